package guides

import (
	"sort"
	"strings"
)

// PathwayMap maps gene identifiers to the pathways they're members of.
// A nil map means pathway data is unavailable, an empty one that it was
// resolved and holds nothing
type PathwayMap map[string][]string

// PathwayStatus records whether a guide was checked for pathway conflicts
type PathwayStatus string

const (
	// PathwayUnavailable means no pathway data was supplied, conflicts are unknown
	PathwayUnavailable PathwayStatus = "unavailable"

	// PathwayChecked means the guide's off-targets were checked against pathway data
	PathwayChecked PathwayStatus = "checked"
)

// Status reports whether the map holds usable pathway data
func (m PathwayMap) Status() PathwayStatus {
	if m == nil {
		return PathwayUnavailable
	}
	return PathwayChecked
}

// Normalize returns a copy with upper-case gene identifiers and deduplicated pathways
func (m PathwayMap) Normalize() PathwayMap {
	if m == nil {
		return nil
	}

	out := make(PathwayMap, len(m))
	for gene, pathways := range m {
		g := strings.ToUpper(strings.TrimSpace(gene))
		if g == "" {
			continue
		}
		out[g] = append(out[g], pathways...)
	}
	for g, pathways := range out {
		out[g] = dedupe(pathways)
	}
	return out
}

// Shared reports whether two genes share at least one pathway
func (m PathwayMap) Shared(a, b string) bool {
	if m == nil {
		return false
	}

	pa := m[strings.ToUpper(a)]
	if len(pa) == 0 {
		return false
	}
	set := make(map[string]bool, len(pa))
	for _, p := range pa {
		set[p] = true
	}
	for _, p := range m[strings.ToUpper(b)] {
		if set[p] {
			return true
		}
	}
	return false
}

// pathwayAnnotation is the outcome of checking a guide's off-targets for conflicts
type pathwayAnnotation struct {
	hits     []OffTargetHit
	status   PathwayStatus
	conflict bool
	genes    []string
}

// annotatePathways marks off-targets in genes that share a pathway with the target gene.
// Without pathway data it's a no-op and the guide is reported as unchecked, never conflict-free
func annotatePathways(targetGene string, hits []OffTargetHit, pathways PathwayMap) pathwayAnnotation {
	out := pathwayAnnotation{
		hits:   make([]OffTargetHit, len(hits)),
		status: pathways.Status(),
	}
	copy(out.hits, hits)
	if pathways == nil {
		return out
	}

	var genes []string
	for i := range out.hits {
		h := &out.hits[i]
		if h.GeneID == "" || strings.EqualFold(h.GeneID, targetGene) {
			continue
		}
		if pathways.Shared(targetGene, h.GeneID) {
			h.PathwayConflict = true
			out.conflict = true
			genes = append(genes, strings.ToUpper(h.GeneID))
		}
	}
	out.genes = dedupe(genes)
	return out
}

// dedupe sorts and deduplicates a string slice
func dedupe(vals []string) []string {
	if len(vals) == 0 {
		return nil
	}
	sorted := append([]string(nil), vals...)
	sort.Strings(sorted)

	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
