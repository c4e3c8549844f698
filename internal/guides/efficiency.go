package guides

import (
	"math"
)

// scoredSpacerLength is the only spacer length the position weights are calibrated for
const scoredSpacerLength = 20

const (
	efficiencyIntercept = 0.5
	gcPenaltyWeight     = 0.5
	selfCompPerBase     = 0.025
	qualityBonusWeight  = 0.1
)

// positionWeights are the Doench 2016 per-position nucleotide contributions for a
// 20 nt spacer, indexed [position-1][A, C, G, T]. T is the baseline at every position.
// Position 20 is adjacent to the motif
var positionWeights = [scoredSpacerLength][4]float64{
	{-0.097377, -0.083064, 0.031048, 0},
	{-0.094838, -0.088376, 0.040169, 0},
	{-0.070963, -0.073336, 0.035386, 0},
	{-0.043544, -0.063537, 0.032820, 0},
	{-0.031856, -0.057013, 0.028734, 0},
	{-0.027794, -0.046586, 0.022672, 0},
	{-0.009889, -0.041686, 0.028188, 0},
	{0.007820, -0.037756, 0.021966, 0},
	{0.026284, -0.031596, 0.023655, 0},
	{0.023931, -0.029133, 0.021836, 0},
	{0.036131, -0.030821, 0.021483, 0},
	{0.041276, -0.028376, 0.027026, 0},
	{0.037258, -0.025805, 0.030194, 0},
	{0.030462, -0.023042, 0.029692, 0},
	{0.024869, -0.019596, 0.031562, 0},
	{0.019399, -0.016958, 0.024683, 0},
	{0.012968, -0.010496, 0.018628, 0},
	{0.012568, -0.007596, 0.012902, 0},
	{0.006800, -0.003890, 0.005375, 0},
	{0.003281, -0.001329, -0.025902, 0},
}

// baseIndex maps a base to its column in positionWeights
var baseIndex = map[byte]int{'A': 0, 'C': 1, 'G': 2, 'T': 3}

// Efficiency is a predicted on-target cutting efficiency and the terms it's the sum of:
//
//	Score = clamp(Intercept + PositionWeights - GCPenalty - SelfCompPenalty + QualityBonus, 0, 1)
type Efficiency struct {
	Score           float64 `json:"score"`
	Intercept       float64 `json:"intercept"`
	PositionWeights float64 `json:"position_weights"`
	GCPenalty       float64 `json:"gc_penalty"`
	SelfCompPenalty float64 `json:"self_comp_penalty"`
	QualityBonus    float64 `json:"quality_bonus"`

	// SelfCompRun is the longest self-complementary stretch found in the spacer
	SelfCompRun int `json:"self_comp_run"`

	// ReducedConfidence is set when the spacer isn't 20 nt and only the GC and
	// motif terms could be used
	ReducedConfidence bool `json:"reduced_confidence"`
}

// EfficiencyScorer predicts on-target efficiency with the position-weight model
type EfficiencyScorer struct {
	// GCIdeal is the GC fraction with no penalty
	GCIdeal float64

	// SelfCompMinRun is the shortest self-complementary stretch that's penalized
	SelfCompMinRun int
}

// DefaultEfficiencyScorer uses a 0.55 GC ideal and penalizes self-complementary runs of 4+
func DefaultEfficiencyScorer() EfficiencyScorer {
	return EfficiencyScorer{GCIdeal: 0.55, SelfCompMinRun: 4}
}

// Score predicts the cutting efficiency of a candidate for the nuclease it was found with
func (e EfficiencyScorer) Score(s Site, p Profile) Efficiency {
	eff := Efficiency{
		Intercept:    efficiencyIntercept,
		GCPenalty:    gcPenaltyWeight * math.Abs(gcFraction(s.Guide)-e.GCIdeal),
		QualityBonus: p.QualityWeight * qualityBonusWeight,
	}

	if len(s.Guide) != scoredSpacerLength {
		eff.ReducedConfidence = true
		eff.Score = clamp(eff.Intercept-eff.GCPenalty+eff.QualityBonus, 0, 1)
		return eff
	}

	for i := 0; i < scoredSpacerLength; i++ {
		if col, ok := baseIndex[s.Guide[i]]; ok {
			eff.PositionWeights += positionWeights[i][col]
		}
	}

	eff.SelfCompRun = selfComplementarity(s.Guide)
	if e.SelfCompMinRun > 0 && eff.SelfCompRun >= e.SelfCompMinRun {
		eff.SelfCompPenalty = selfCompPerBase * float64(eff.SelfCompRun)
	}

	eff.Score = clamp(
		eff.Intercept+eff.PositionWeights-eff.GCPenalty-eff.SelfCompPenalty+eff.QualityBonus,
		0, 1,
	)
	return eff
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
