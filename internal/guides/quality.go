package guides

import (
	"github.com/bebop/poly/checks"
)

// Violation tags a quality rule that a candidate broke
type Violation string

const (
	// GCOutOfRange is a GC fraction outside the accepted range
	GCOutOfRange Violation = "gc_out_of_range"

	// HomopolymerRun is a run of identical bases long enough to end U6 transcription early
	HomopolymerRun Violation = "homopolymer_run"

	// RepeatLength is a longest identical-base run above the repeat ceiling
	RepeatLength Violation = "repeat_length"

	// SelfComplementary is a spacer that can pair with itself over too long a stretch
	SelfComplementary Violation = "self_complementary"
)

// QualityRules are the composition limits a candidate must meet to be scored
type QualityRules struct {
	// GCMin and GCMax bound the accepted GC fraction, inclusive
	GCMin float64
	GCMax float64

	// HomopolymerRun is the shortest identical-base run that rejects a candidate
	HomopolymerRun int

	// MaxRepeat is the longest identical-base run allowed
	MaxRepeat int

	// SelfCompMax is the longest self-complementary stretch allowed, 0 disables the rule
	SelfCompMax int
}

// DefaultQualityRules are the rules used when nothing is configured
func DefaultQualityRules() QualityRules {
	return QualityRules{
		GCMin:          0.40,
		GCMax:          0.70,
		HomopolymerRun: 4,
		MaxRepeat:      4,
	}
}

// Verdict is the outcome of evaluating one candidate against the quality rules
type Verdict struct {
	Accept     bool        `json:"accept"`
	Violations []Violation `json:"violations,omitempty"`

	// measurements behind the verdict
	GC         float64 `json:"gc"`
	LongestRun int     `json:"longest_run"`
	SelfComp   int     `json:"self_comp"`
}

// Has reports whether the verdict includes a violation
func (v Verdict) Has(violation Violation) bool {
	for _, got := range v.Violations {
		if got == violation {
			return true
		}
	}
	return false
}

// Rejection is a candidate that failed quality filtering, kept for auditing
type Rejection struct {
	Site    Site    `json:"site"`
	Verdict Verdict `json:"verdict"`
}

// Evaluate checks every rule against the candidate's spacer and reports all violations
func (r QualityRules) Evaluate(s Site) Verdict {
	v := Verdict{
		GC:         gcFraction(s.Guide),
		LongestRun: longestRun(s.Guide),
		SelfComp:   selfComplementarity(s.Guide),
	}

	if v.GC < r.GCMin || v.GC > r.GCMax {
		v.Violations = append(v.Violations, GCOutOfRange)
	}
	if r.HomopolymerRun > 0 && v.LongestRun >= r.HomopolymerRun {
		v.Violations = append(v.Violations, HomopolymerRun)
	}
	if r.MaxRepeat > 0 && v.LongestRun > r.MaxRepeat {
		v.Violations = append(v.Violations, RepeatLength)
	}
	if r.SelfCompMax > 0 && v.SelfComp > r.SelfCompMax {
		v.Violations = append(v.Violations, SelfComplementary)
	}

	v.Accept = len(v.Violations) == 0
	return v
}

// gcFraction is the fraction of G and C bases in seq, 0 for an empty seq
func gcFraction(seq string) float64 {
	if seq == "" {
		return 0
	}
	return checks.GcContent(seq)
}

// longestRun is the length of the longest run of one base
func longestRun(seq string) int {
	if seq == "" {
		return 0
	}

	longest, current := 1, 1
	for i := 1; i < len(seq); i++ {
		if seq[i] == seq[i-1] {
			current++
			longest = max(longest, current)
		} else {
			current = 1
		}
	}
	return longest
}

// selfComplementarity is the length of the longest stretch of seq whose reverse
// complement also occurs in seq: the longest stem it could fold or dimerize on
func selfComplementarity(seq string) int {
	rc := revComp(seq)

	// longest common substring of seq and its reverse complement
	longest := 0
	prev := make([]int, len(rc)+1)
	cur := make([]int, len(rc)+1)
	for i := 1; i <= len(seq); i++ {
		for j := 1; j <= len(rc); j++ {
			if seq[i-1] == rc[j-1] {
				cur[j] = prev[j-1] + 1
				longest = max(longest, cur[j])
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return longest
}
