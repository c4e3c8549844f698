package seqio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kkokay07/K-Sites/internal/guides"
)

// OffTargets are the off-target records of each guide, keyed by guide sequence
type OffTargets = map[string][]guides.OffTargetRecord

// offTargetColumns are the columns of an off-target TSV, in order
var offTargetColumns = []string{
	"guide", "sequence", "gene_id", "chrom", "position", "strand", "pam", "mismatches", "mismatch_positions",
}

// ReadOffTargets reads off-target records from a JSON or TSV file, by its extension.
//
// JSON files are an object from guide sequence to a list of records. TSV files
// have one record per row in the columns:
//
//	guide	sequence	gene_id	chrom	position	strand	pam	mismatches	mismatch_positions
//
// where mismatch_positions is comma separated. Trailing columns can be left off
func ReadOffTargets(path string) (OffTargets, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open off-targets: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".txt", ".tab":
		return ParseOffTargetsTSV(path, f)
	default:
		return ParseOffTargetsJSON(path, f)
	}
}

// ParseOffTargetsJSON decodes a guide to records JSON object
func ParseOffTargetsJSON(name string, r io.Reader) (OffTargets, error) {
	out := make(OffTargets)
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to parse off-targets in %s: %w", name, err)
	}
	return out, nil
}

// ParseOffTargetsTSV reads off-target records from a TSV. A missing mismatch
// count is left nil so the record is reported as malformed when it's scored
func ParseOffTargetsTSV(name string, r io.Reader) (OffTargets, error) {
	rows, err := readRows(name, r, 2, offTargetColumns[0])
	if err != nil {
		return nil, err
	}

	out := make(OffTargets)
	for _, row := range rows {
		col := func(i int) string {
			if i < len(row.columns) {
				return row.columns[i]
			}
			return ""
		}

		rec := guides.OffTargetRecord{
			Sequence: col(1),
			GeneID:   col(2),
			Chrom:    col(3),
			Strand:   col(5),
			PAM:      col(6),
		}

		if p := col(4); p != "" {
			if rec.Position, err = strconv.Atoi(p); err != nil {
				return nil, fmt.Errorf("%s line %d: bad position %q", name, row.line, p)
			}
		}
		if m := col(7); m != "" {
			n, err := strconv.Atoi(m)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: bad mismatch count %q", name, row.line, m)
			}
			rec.Mismatches = &n
		}
		if positions := col(8); positions != "" {
			for _, p := range strings.Split(positions, ",") {
				pos, err := strconv.Atoi(strings.TrimSpace(p))
				if err != nil {
					return nil, fmt.Errorf("%s line %d: bad mismatch position %q", name, row.line, p)
				}
				rec.MismatchPositions = append(rec.MismatchPositions, pos)
			}
		}

		guide := strings.ToUpper(col(0))
		out[guide] = append(out[guide], rec)
	}
	return out, nil
}
