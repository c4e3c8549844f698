package guides

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Severity grades off-target risk, LOW being the safest
type Severity int

const (
	Low Severity = iota
	Medium
	High
	Critical
)

// String returns the severity in upper case, ex: CRITICAL
func (s Severity) String() string {
	switch s {
	case Critical:
		return "CRITICAL"
	case High:
		return "HIGH"
	case Medium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// MarshalText writes the severity by name
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// recommendations is the advice given for a guide at each severity
var recommendations = map[Severity]string{
	Critical: "Do not use without extensive validation. Consider CRISPRi, base editing, or alternative target sites.",
	High:     "Use with caution. Validate off-targets comprehensively (GUIDE-seq or CIRCLE-seq).",
	Medium:   "Acceptable for most applications. Include standard off-target analysis (T7E1, targeted sequencing).",
	Low:      "Minimal off-target concerns. Standard validation recommended.",
}

// Recommendation is the safety advice for a guide at this severity
func (s Severity) Recommendation() string {
	return recommendations[s]
}

// OffTargetRecord is a near-match genomic site for a guide as supplied by a genome
// search: it's already aligned, this package never searches a genome itself
type OffTargetRecord struct {
	Sequence string `json:"sequence"`
	GeneID   string `json:"gene_id,omitempty"`
	Chrom    string `json:"chrom,omitempty"`
	Position int    `json:"position,omitempty"`
	Strand   string `json:"strand,omitempty"`

	// PAM is the motif next to the off-target, if known
	PAM string `json:"pam,omitempty"`

	// PAMQuality overrides grading PAM against the nuclease's motifs
	PAMQuality *float64 `json:"pam_quality,omitempty"`

	// MismatchPositions are 1-indexed positions in the spacer, 5' to 3'
	MismatchPositions []int `json:"mismatch_positions"`

	// Mismatches is the mismatch count. Required: records without it are malformed
	Mismatches *int `json:"mismatches"`
}

// OffTargetHit is a scored off-target of a guide
type OffTargetHit struct {
	Sequence          string `json:"sequence"`
	GeneID            string `json:"gene_id,omitempty"`
	Chrom             string `json:"chrom,omitempty"`
	Position          int    `json:"position,omitempty"`
	Strand            string `json:"strand,omitempty"`
	PAM               string `json:"pam,omitempty"`
	MismatchPositions []int  `json:"mismatch_positions"`
	Mismatches        int    `json:"mismatches"`

	// MotifQuality of the off-target's own motif, multiplied into Risk
	MotifQuality float64 `json:"motif_quality"`

	// Risk is the predicted relative cutting frequency at the off-target, in [0, 1]
	Risk float64 `json:"risk"`

	// Severity of this hit alone
	Severity Severity `json:"severity"`

	// PathwayConflict marks an off-target in a gene sharing a pathway with the target
	PathwayConflict bool `json:"pathway_conflict"`
}

const (
	countPenaltyPerHit   = 0.03
	countPenaltyCap      = 0.4
	riskPenaltyWeight    = 0.25
	severityPenaltyCap   = 0.5
	pamBonusWeight       = 0.1
	pamBonusBaseline     = 0.5
	defaultMaxMismatches = 4
)

// OffTargetScorer turns off-target records into scored hits and a specificity score
type OffTargetScorer struct {
	// MaxMismatches is the most mismatches an off-target can have and still be kept
	MaxMismatches int

	Log zerolog.Logger
}

// DefaultOffTargetScorer keeps off-targets with up to 4 mismatches
func DefaultOffTargetScorer() OffTargetScorer {
	return OffTargetScorer{MaxMismatches: defaultMaxMismatches, Log: zerolog.Nop()}
}

// OffTargetScore is the result of scoring all of a guide's off-targets
type OffTargetScore struct {
	Hits        []OffTargetHit
	Specificity float64

	// Discarded records had more mismatches than allowed
	Discarded int

	// Malformed records were skipped for missing or inconsistent mismatch data
	Malformed int
}

// Score scores every record against the guide and aggregates them into a specificity.
// Malformed records are logged and skipped; the rest of the guide is still scored
func (o OffTargetScorer) Score(s Site, records []OffTargetRecord, p Profile) OffTargetScore {
	var out OffTargetScore
	for i, rec := range records {
		hit, err := o.Hit(rec, p)
		if err != nil {
			out.Malformed++
			o.Log.Warn().
				Str("guide", s.Guide).
				Int("index", i).
				Str("sequence", rec.Sequence).
				Err(err).
				Msg("skipping off-target record")
			continue
		}
		if hit.Mismatches > o.MaxMismatches {
			out.Discarded++
			continue
		}
		out.Hits = append(out.Hits, hit)
	}

	sortHits(out.Hits)
	out.Specificity = Specificity(out.Hits, p.MotifQuality(s.PAM))
	return out
}

// Hit scores one record. It fails with ErrMalformedOffTarget when the
// record's mismatch data is missing or inconsistent
func (o OffTargetScorer) Hit(rec OffTargetRecord, p Profile) (OffTargetHit, error) {
	if rec.Mismatches == nil {
		return OffTargetHit{}, fmt.Errorf("%w: missing mismatch count", ErrMalformedOffTarget)
	}
	mm := *rec.Mismatches
	if mm < 0 {
		return OffTargetHit{}, fmt.Errorf("%w: negative mismatch count %d", ErrMalformedOffTarget, mm)
	}
	if len(rec.MismatchPositions) != mm {
		return OffTargetHit{}, fmt.Errorf(
			"%w: %d mismatch positions for a mismatch count of %d",
			ErrMalformedOffTarget, len(rec.MismatchPositions), mm,
		)
	}

	seen := make(map[int]bool, mm)
	positions := make([]int, 0, mm)
	for _, pos := range rec.MismatchPositions {
		if pos < 1 || pos > p.SpacerLength {
			return OffTargetHit{}, fmt.Errorf("%w: mismatch position %d outside 1..%d", ErrMalformedOffTarget, pos, p.SpacerLength)
		}
		if seen[pos] {
			return OffTargetHit{}, fmt.Errorf("%w: duplicate mismatch position %d", ErrMalformedOffTarget, pos)
		}
		seen[pos] = true
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	quality := p.MotifQuality(rec.PAM)
	if rec.PAMQuality != nil {
		quality = clamp(*rec.PAMQuality, 0, 1)
	}

	risk := quality
	for _, pos := range positions {
		risk *= 1 - seedPenalty(pos, p)
	}

	return OffTargetHit{
		Sequence:          strings.ToUpper(rec.Sequence),
		GeneID:            rec.GeneID,
		Chrom:             rec.Chrom,
		Position:          rec.Position,
		Strand:            rec.Strand,
		PAM:               strings.ToUpper(rec.PAM),
		MismatchPositions: positions,
		Mismatches:        mm,
		MotifQuality:      quality,
		Risk:              clamp(risk, 0, 1),
		Severity:          classify(risk, mm),
	}, nil
}

// seedPenalty is the penalty of a mismatch at a 1-indexed spacer position. The bands are
// set by distance from the motif: 1-4 bp away 0.90, 5-8 0.60, 9-13 0.40 and beyond 0.20.
// For a 20 nt spacer with a 3' motif that's positions 17-20, 13-16, 8-12 and 1-7
func seedPenalty(pos int, p Profile) float64 {
	dist := p.SpacerLength - pos + 1
	if p.Side == FivePrime {
		dist = pos
	}

	switch {
	case dist <= 4:
		return 0.90
	case dist <= 8:
		return 0.60
	case dist <= 13:
		return 0.40
	default:
		return 0.20
	}
}

// classify grades a single off-target by its risk and mismatch count
func classify(risk float64, mismatches int) Severity {
	switch {
	case risk > 0.5 && mismatches <= 2:
		return Critical
	case risk > 0.3 && mismatches <= 2:
		return High
	case risk > 0.1 && mismatches <= 3:
		return Medium
	default:
		return Low
	}
}

// GuideSeverity is the severity of a guide: the first rule, in priority order,
// that any of its off-targets meets
func GuideSeverity(hits []OffTargetHit) Severity {
	worst := Low
	for _, h := range hits {
		if sev := classify(h.Risk, h.Mismatches); sev > worst {
			worst = sev
		}
	}
	return worst
}

// Specificity aggregates off-target hits into a [0, 1] score, higher being more specific:
//
//	clamp(1 - min(0.4, 0.03*n) - min(0.5, 0.25*sum(risk)) + (guideMotifQuality-0.5)*0.1, 0, 1)
//
// The motif term applies without off-targets too, so a guide on a motif graded
// below 0.5 never reaches 1
func Specificity(hits []OffTargetHit, guideMotifQuality float64) float64 {
	countPenalty := min(countPenaltyCap, countPenaltyPerHit*float64(len(hits)))

	riskSum := 0.0
	for _, h := range hits {
		riskSum += h.Risk
	}
	severityPenalty := min(severityPenaltyCap, riskPenaltyWeight*riskSum)

	pamBonus := (guideMotifQuality - pamBonusBaseline) * pamBonusWeight

	return clamp(1.0-countPenalty-severityPenalty+pamBonus, 0, 1)
}

// sortHits orders hits most concerning first
func sortHits(hits []OffTargetHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Risk != hits[j].Risk {
			return hits[i].Risk > hits[j].Risk
		}
		if hits[i].Mismatches != hits[j].Mismatches {
			return hits[i].Mismatches < hits[j].Mismatches
		}
		return hits[i].Sequence < hits[j].Sequence
	})
}
