package seqio

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kkokay07/K-Sites/internal/guides"
)

// Output is the JSON written for a design run
type Output struct {
	// Time the run finished, in the same format as log.Println
	Time string `json:"time"`

	// Execution is the run time in seconds
	Execution float64 `json:"execution"`

	// Results are the designs of each target and nuclease, in input order
	Results []*guides.Result `json:"results"`

	// Failures are the targets and nucleases that couldn't be designed
	Failures []Failure `json:"failures,omitempty"`
}

// Failure is a target and nuclease pair whose design failed
type Failure struct {
	Target   string `json:"target"`
	Nuclease string `json:"nuclease"`
	Error    string `json:"error"`
}

// NewOutput collects a batch into an Output
func NewOutput(batch []guides.BatchResult, t time.Time, seconds float64) Output {
	out := Output{
		Time:      fmt.Sprintf("%d/%02d/%02d %02d:%02d:%02d", t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second()),
		Execution: seconds,
		Results:   []*guides.Result{},
	}
	for _, b := range batch {
		if b.Err != nil {
			out.Failures = append(out.Failures, Failure{Target: b.Target, Nuclease: b.Nuclease, Error: b.Err.Error()})
			continue
		}
		out.Results = append(out.Results, b.Result)
	}
	return out
}

// View returns copies of results keeping only the guides at or above
// minEfficiency and at most top of them per result, 0 being no limit
func View(results []*guides.Result, minEfficiency float64, top int) []*guides.Result {
	out := make([]*guides.Result, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		view := *r
		view.Guides = guides.Top(guides.AboveEfficiency(r.Guides, minEfficiency), top)
		if view.Guides == nil {
			view.Guides = []guides.ScoredGuide{}
		}
		out = append(out, &view)
	}
	return out
}

// WriteJSON writes the output to filename and returns what was written
func WriteJSON(filename string, out Output) ([]byte, error) {
	output, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize output: %w", err)
	}

	if err = os.WriteFile(filename, output, 0666); err != nil {
		return output, fmt.Errorf("failed to write the output: %w", err)
	}
	return output, nil
}

// csvHeader are the columns of the guide CSV
var csvHeader = []string{
	"Gene",
	"Nuclease",
	"Guide_Sequence",
	"PAM",
	"Strand",
	"Position",
	"Exon",
	"Efficiency",
	"Specificity",
	"Off_Targets",
	"Pathway_Conflict",
	"Severity",
	"Safety_Recommendation",
}

// WriteCSV writes a row per guide, in the ranked order of each result
func WriteCSV(w io.Writer, results []*guides.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, res := range results {
		for _, g := range res.Guides {
			exon := ""
			if g.Exon != nil {
				exon = strconv.Itoa(g.Exon.Index)
			}

			record := []string{
				res.Target,
				g.Nuclease,
				g.Guide,
				g.PAM,
				string(g.Strand),
				strconv.Itoa(g.Start),
				exon,
				formatScore(g.Efficiency.Score),
				formatScore(g.Specificity),
				strconv.Itoa(len(g.OffTargets)),
				conflictLabel(g),
				g.Severity().String(),
				g.Recommendation(),
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteRejected writes the candidates that failed quality filtering as a TSV,
// with the rules each broke
func WriteRejected(w io.Writer, results []*guides.Result) error {
	if _, err := fmt.Fprintln(w, "gene\tnuclease\tguide\tpam\tstrand\tposition\tviolations\tgc\tlongest_run\tself_comp"); err != nil {
		return err
	}

	for _, res := range results {
		for _, r := range res.Rejected {
			violations := make([]string, len(r.Verdict.Violations))
			for i, v := range r.Verdict.Violations {
				violations[i] = string(v)
			}

			_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%d\t%d\n",
				res.Target,
				res.Nuclease,
				r.Site.Guide,
				r.Site.PAM,
				r.Site.Strand,
				r.Site.Start,
				strings.Join(violations, ","),
				formatScore(r.Verdict.GC),
				r.Verdict.LongestRun,
				r.Verdict.SelfComp,
			)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// formatScore rounds a score to three decimal places
func formatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

// conflictLabel is yes or no, or unavailable when pathways weren't checked
func conflictLabel(g guides.ScoredGuide) string {
	switch {
	case g.PathwayStatus == guides.PathwayUnavailable:
		return string(guides.PathwayUnavailable)
	case g.PathwayConflict:
		return "yes"
	default:
		return "no"
	}
}
