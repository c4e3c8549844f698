package seqio

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/kkokay07/K-Sites/internal/guides"
)

// GeneMap is the exon structure of a gene
type GeneMap struct {
	Exons    []guides.Exon
	CDSStart *int
}

// ExonMaps are gene maps keyed by upper-cased gene id
type ExonMaps map[string]GeneMap

// ReadExons reads an exon map TSV:
//
//	gene	exon	start	end
//	TP53	1	0	120
//	TP53	cds	45
//
// Coordinates are 0-based, end exclusive. A "cds" row sets the coding start of the gene
func ReadExons(path string) (ExonMaps, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open exon map: %w", err)
	}
	defer f.Close()

	return ParseExons(path, f)
}

// ParseExons reads an exon map TSV from r
func ParseExons(name string, r io.Reader) (ExonMaps, error) {
	rows, err := readRows(name, r, 3, "gene")
	if err != nil {
		return nil, err
	}

	maps := make(ExonMaps)
	for _, row := range rows {
		gene := strings.ToUpper(row.columns[0])
		m := maps[gene]

		start, err := strconv.Atoi(row.columns[2])
		if err != nil || start < 0 {
			return nil, fmt.Errorf("%s line %d: bad start %q", name, row.line, row.columns[2])
		}

		if strings.EqualFold(row.columns[1], "cds") {
			m.CDSStart = &start
			maps[gene] = m
			continue
		}

		index, err := strconv.Atoi(row.columns[1])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad exon number %q", name, row.line, row.columns[1])
		}
		if len(row.columns) < 4 {
			return nil, fmt.Errorf("%s line %d: exon %d has no end", name, row.line, index)
		}
		end, err := strconv.Atoi(row.columns[3])
		if err != nil || end <= start {
			return nil, fmt.Errorf("%s line %d: bad end %q", name, row.line, row.columns[3])
		}

		m.Exons = append(m.Exons, guides.Exon{Index: index, Start: start, End: end})
		maps[gene] = m
	}

	for gene, m := range maps {
		sort.Slice(m.Exons, func(i, j int) bool { return m.Exons[i].Start < m.Exons[j].Start })
		maps[gene] = m
	}
	return maps, nil
}

// Apply sets the exons and CDS start of each target that has a gene map.
// Targets without one are returned unchanged
func (m ExonMaps) Apply(targets []guides.Target) []guides.Target {
	out := make([]guides.Target, len(targets))
	for i, t := range targets {
		if gm, ok := m[strings.ToUpper(t.ID)]; ok {
			t.Exons = gm.Exons
			t.CDSStart = gm.CDSStart
		}
		out[i] = t
	}
	return out
}
