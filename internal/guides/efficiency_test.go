package guides

import (
	"math"
	"testing"
)

const tolerance = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestEfficiencyScorer_Score(t *testing.T) {
	tests := []struct {
		name     string
		nuclease string
		guide    string
		want     Efficiency
	}{
		{
			"ideal GC has no GC penalty",
			"SpCas9",
			"CTGACCTGAGCTTCAGGTCA",
			Efficiency{
				Score:           0.288973,
				Intercept:       0.5,
				PositionWeights: -0.111027,
				GCPenalty:       0,
				SelfCompPenalty: 0.2,
				QualityBonus:    0.1,
				SelfCompRun:     8,
			},
		},
		{
			"no self-complementary run",
			"SpCas9",
			"GACTGACTGACTGACTGACT",
			Efficiency{
				Score:           0.482259,
				Intercept:       0.5,
				PositionWeights: -0.092741,
				GCPenalty:       0.025,
				QualityBonus:    0.1,
				SelfCompRun:     1,
			},
		},
		{
			"motif quality weight scales the bonus",
			"Cas9-NG",
			"GACTGACTGACTGACTGACT",
			Efficiency{
				Score:           0.452259,
				Intercept:       0.5,
				PositionWeights: -0.092741,
				GCPenalty:       0.025,
				QualityBonus:    0.07,
				SelfCompRun:     1,
			},
		},
		{
			"palindromic guide clamps to 0",
			"SpCas9",
			"ACGTACGTACGTACGTACGT",
			Efficiency{
				Score:           0,
				Intercept:       0.5,
				PositionWeights: -0.125462,
				GCPenalty:       0.025,
				SelfCompPenalty: 0.5,
				QualityBonus:    0.1,
				SelfCompRun:     20,
			},
		},
		{
			"21 nt spacer falls back to GC and motif terms",
			"SaCas9",
			"CAGTCAGTCAGTCAGTCAGTC",
			Efficiency{
				Score:             0.5 - 0.5*math.Abs(11.0/21.0-0.55) + 0.09,
				Intercept:         0.5,
				GCPenalty:         0.5 * math.Abs(11.0/21.0-0.55),
				QualityBonus:      0.09,
				ReducedConfidence: true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustProfile(t, tt.nuclease)
			got := DefaultEfficiencyScorer().Score(Site{Guide: tt.guide}, p)

			checks := []struct {
				term      string
				got, want float64
			}{
				{"Score", got.Score, tt.want.Score},
				{"Intercept", got.Intercept, tt.want.Intercept},
				{"PositionWeights", got.PositionWeights, tt.want.PositionWeights},
				{"GCPenalty", got.GCPenalty, tt.want.GCPenalty},
				{"SelfCompPenalty", got.SelfCompPenalty, tt.want.SelfCompPenalty},
				{"QualityBonus", got.QualityBonus, tt.want.QualityBonus},
			}
			for _, c := range checks {
				if !near(c.got, c.want) {
					t.Errorf("Score() %s = %v, want %v", c.term, c.got, c.want)
				}
			}
			if got.SelfCompRun != tt.want.SelfCompRun {
				t.Errorf("Score() SelfCompRun = %v, want %v", got.SelfCompRun, tt.want.SelfCompRun)
			}
			if got.ReducedConfidence != tt.want.ReducedConfidence {
				t.Errorf("Score() ReducedConfidence = %v, want %v", got.ReducedConfidence, tt.want.ReducedConfidence)
			}
		})
	}
}

func TestEfficiencyScorer_Score_exactGCIdeal(t *testing.T) {
	got := DefaultEfficiencyScorer().Score(Site{Guide: "CTGACCTGAGCTTCAGGTCA"}, mustProfile(t, "SpCas9"))
	if got.GCPenalty != 0 {
		t.Errorf("GCPenalty = %v, want exactly 0", got.GCPenalty)
	}
}

func TestEfficiencyScorer_Score_selfCompDisabled(t *testing.T) {
	e := EfficiencyScorer{GCIdeal: 0.55}
	got := e.Score(Site{Guide: "CTGACCTGAGCTTCAGGTCA"}, mustProfile(t, "SpCas9"))
	if got.SelfCompPenalty != 0 {
		t.Errorf("SelfCompPenalty = %v with the rule disabled", got.SelfCompPenalty)
	}
	if got.SelfCompRun != 8 {
		t.Errorf("SelfCompRun = %v, want 8", got.SelfCompRun)
	}
}

func TestEfficiencyScorer_Score_bounds(t *testing.T) {
	seq := "GATTACAGGCCTAGCTAGGATCCGATCGGACTGACCTAGCATCGGGAACTGCCGTACGTTTTTTGGGCCCAGGAAAAACGG"
	e := DefaultEfficiencyScorer()

	for _, name := range []string{"SpCas9", "SaCas9", "Cas12a", "Cas9-NG", "xCas9"} {
		p := mustProfile(t, name)
		for site := range NewScanner(seq, p, nil).Sites() {
			eff := e.Score(site, p)
			if eff.Score < 0 || eff.Score > 1 {
				t.Errorf("%s %s scored %v", name, site.Guide, eff.Score)
			}
			if eff.ReducedConfidence != (p.SpacerLength != 20) {
				t.Errorf("%s %s ReducedConfidence = %v", name, site.Guide, eff.ReducedConfidence)
			}
		}
	}
}
