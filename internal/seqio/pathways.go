package seqio

import (
	"fmt"
	"io"
	"os"

	"github.com/kkokay07/K-Sites/internal/guides"
)

// ReadPathways reads gene to pathway membership from a two column TSV:
//
//	gene	pathway
//	TP53	hsa04115
//
// A gene in several pathways has a row per pathway
func ReadPathways(path string) (guides.PathwayMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pathways: %w", err)
	}
	defer f.Close()

	return ParsePathways(path, f)
}

// ParsePathways reads a gene/pathway TSV from r. The result is never nil, an
// empty file means no gene shares a pathway
func ParsePathways(name string, r io.Reader) (guides.PathwayMap, error) {
	rows, err := readRows(name, r, 2, "gene")
	if err != nil {
		return nil, err
	}

	m := guides.PathwayMap{}
	for _, row := range rows {
		gene, pathway := row.columns[0], row.columns[1]
		if gene == "" || pathway == "" {
			return nil, fmt.Errorf("%s line %d: empty gene or pathway", name, row.line)
		}
		m[gene] = append(m[gene], pathway)
	}
	return m.Normalize(), nil
}
