package guides

import (
	"encoding/json"
)

// ScoredGuide is a candidate that passed quality filtering with all of its scores.
// Its severity and safety recommendation are derived from its off-targets
type ScoredGuide struct {
	Site

	// Nuclease is the name of the profile the guide was found with
	Nuclease string `json:"nuclease"`

	Efficiency Efficiency `json:"efficiency"`

	// OffTargets are the retained off-targets, most concerning first
	OffTargets []OffTargetHit `json:"off_targets"`

	// Specificity is the aggregate [0, 1] off-target specificity
	Specificity float64 `json:"specificity"`

	// PathwayStatus is "unavailable" when no pathway data was supplied, in which
	// case PathwayConflict is false without having been checked
	PathwayStatus   PathwayStatus `json:"pathway_status"`
	PathwayConflict bool          `json:"pathway_conflict"`

	// ConflictGenes are the off-target genes sharing a pathway with the target
	ConflictGenes []string `json:"conflict_genes,omitempty"`
}

// Severity of the guide's off-target profile
func (g ScoredGuide) Severity() Severity {
	return GuideSeverity(g.OffTargets)
}

// Recommendation is the safety advice for the guide's severity
func (g ScoredGuide) Recommendation() string {
	return g.Severity().Recommendation()
}

// MarshalJSON adds the derived severity and recommendation to the guide's fields
func (g ScoredGuide) MarshalJSON() ([]byte, error) {
	type plain ScoredGuide
	return json.Marshal(struct {
		plain
		Severity       Severity `json:"severity"`
		Recommendation string   `json:"recommendation"`
	}{
		plain:          plain(g),
		Severity:       g.Severity(),
		Recommendation: g.Recommendation(),
	})
}
