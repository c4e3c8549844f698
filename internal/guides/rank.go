package guides

import "sort"

// Rank orders guides best first: efficiency descending, then specificity descending,
// then forward-strand start ascending. Strand and guide sequence break any remaining
// ties so the order is total. Nothing is dropped; guides is sorted in place
func Rank(guides []ScoredGuide) []ScoredGuide {
	sort.SliceStable(guides, func(i, j int) bool {
		a, b := guides[i], guides[j]
		if a.Efficiency.Score != b.Efficiency.Score {
			return a.Efficiency.Score > b.Efficiency.Score
		}
		if a.Specificity != b.Specificity {
			return a.Specificity > b.Specificity
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Strand != b.Strand {
			return a.Strand == Forward
		}
		return a.Guide < b.Guide
	})
	return guides
}

// AboveEfficiency returns the guides scoring at least threshold, keeping their order
func AboveEfficiency(guides []ScoredGuide, threshold float64) []ScoredGuide {
	var out []ScoredGuide
	for _, g := range guides {
		if g.Efficiency.Score >= threshold {
			out = append(out, g)
		}
	}
	return out
}

// Top returns at most n guides from the front of a ranked list, all of them if n < 1
func Top(guides []ScoredGuide, n int) []ScoredGuide {
	if n < 1 || n >= len(guides) {
		return guides
	}
	return guides[:n]
}
