// Package report plots the score distributions of a design run
package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kkokay07/K-Sites/internal/guides"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrNoGuides is returned when there's nothing to plot
var ErrNoGuides = errors.New("no guides to plot")

// binCount is the number of equal width score bins in [0, 1]
const binCount = 10

var (
	width  = 8 * vg.Inch
	height = 4 * vg.Inch
)

// Scores are the efficiency and specificity scores of every guide in results
func Scores(results []*guides.Result) (efficiency, specificity []float64) {
	for _, r := range results {
		if r == nil {
			continue
		}
		for _, g := range r.Guides {
			efficiency = append(efficiency, g.Efficiency.Score)
			specificity = append(specificity, g.Specificity)
		}
	}
	return efficiency, specificity
}

// bin counts scores into binCount bins over [0, 1]. 1.0 falls in the last bin
func bin(scores []float64) plotter.Values {
	counts := make(plotter.Values, binCount)
	for _, s := range scores {
		i := int(s * binCount)
		i = max(0, min(binCount-1, i))
		counts[i]++
	}
	return counts
}

// binLabels are the x axis labels of the bins, ex: 0.3-0.4
func binLabels() []string {
	labels := make([]string, binCount)
	for i := range labels {
		labels[i] = fmt.Sprintf("%.1f-%.1f", float64(i)/binCount, float64(i+1)/binCount)
	}
	return labels
}

// Plot makes a grouped bar chart of the efficiency and specificity distributions
func Plot(title string, results []*guides.Result) (*plot.Plot, error) {
	efficiency, specificity := Scores(results)
	if len(efficiency) == 0 {
		return nil, ErrNoGuides
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "score"
	p.Y.Label.Text = "guides"

	barWidth := vg.Points(14)

	eff, err := plotter.NewBarChart(bin(efficiency), barWidth)
	if err != nil {
		return nil, fmt.Errorf("failed to plot efficiency: %w", err)
	}
	eff.LineStyle.Width = vg.Length(0)
	eff.Color = plotutil.Color(0)
	eff.Offset = -barWidth / 2

	spec, err := plotter.NewBarChart(bin(specificity), barWidth)
	if err != nil {
		return nil, fmt.Errorf("failed to plot specificity: %w", err)
	}
	spec.LineStyle.Width = vg.Length(0)
	spec.Color = plotutil.Color(1)
	spec.Offset = barWidth / 2

	p.Add(eff, spec)
	p.Legend.Add("efficiency", eff)
	p.Legend.Add("specificity", spec)
	p.Legend.Top = true
	p.NominalX(binLabels()...)

	return p, nil
}

// Save plots results to filename. The image format comes from its
// extension: png, svg, pdf, eps, jpg or tif. Nothing is written if the
// plot fails
func Save(filename, title string, results []*guides.Result) error {
	var buf bytes.Buffer
	if err := Write(&buf, Format(filename), title, results); err != nil {
		return err
	}
	if err := os.WriteFile(filename, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}

// Write plots results to w in format, ex: svg
func Write(w io.Writer, format, title string, results []*guides.Result) error {
	p, err := Plot(title, results)
	if err != nil {
		return err
	}

	wt, err := p.WriterTo(width, height, strings.TrimPrefix(strings.ToLower(format), "."))
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}

// Format is the image format of filename, ex: png
func Format(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}
