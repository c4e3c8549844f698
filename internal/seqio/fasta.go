// Package seqio reads the inputs of a guide design (targets, exon maps,
// off-target records, pathway membership and the nuclease database) and
// writes its results.
package seqio

import (
	"fmt"
	"io"
	"strings"

	"github.com/bebop/poly/io/fasta"
	"github.com/kkokay07/K-Sites/internal/guides"
)

// ReadTargets reads a (multi-)FASTA file of genes to design against
func ReadTargets(path string) ([]guides.Target, error) {
	records, err := fasta.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file %s: %w", path, err)
	}
	return toTargets(path, records)
}

// ParseTargets reads FASTA formatted targets from r. name is used in errors
func ParseTargets(name string, r io.Reader) ([]guides.Target, error) {
	records, err := fasta.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return toTargets(name, records)
}

// toTargets makes a target of each record. The target ID is the
// first word of the header
func toTargets(name string, records []fasta.Fasta) ([]guides.Target, error) {
	if len(records) < 1 {
		return nil, fmt.Errorf("failed to parse target(s) from %s", name)
	}

	targets := make([]guides.Target, 0, len(records))
	for i, rec := range records {
		fields := strings.Fields(rec.Name)
		if len(fields) == 0 {
			return nil, fmt.Errorf("failed to parse %s: record %d has no id", name, i+1)
		}
		targets = append(targets, guides.Target{
			ID:  fields[0],
			Seq: strings.ToUpper(strings.Join(strings.Fields(rec.Sequence), "")),
		})
	}
	return targets, nil
}
