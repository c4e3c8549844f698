package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kkokay07/K-Sites/internal/guides"
	"github.com/kkokay07/K-Sites/internal/logger"
	"github.com/kkokay07/K-Sites/internal/pathway"
	"github.com/kkokay07/K-Sites/internal/report"
	"github.com/kkokay07/K-Sites/internal/seqio"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// designCmd designs guides for the genes in a FASTA file
var designCmd = &cobra.Command{
	Use:                        "design",
	Short:                      "Design guides for the genes in a FASTA file",
	RunE:                       runDesign,
	SuggestionsMinimumDistance: 2,
	Example: `  ksites design --in TP53.fa --nuclease SpCas9,Cas12a
  cat genes.fa | ksites design --in - --out genes.ksites.json
  ksites design -i genes.fa --exons exons.tsv --target-exons 1,2 --off-targets ot.json --pathways kegg.tsv --csv guides.csv`,
	Long: `Design guides for each gene in a (multi-)FASTA file.

For every gene and nuclease, "ksites design":

1. Scans both strands for the nuclease's recognition motif and takes the
   adjacent spacer of each match as a candidate guide
2. Rejects candidates with a GC fraction outside the accepted range, long
   single-base runs or too much self-complementarity
3. Scores on-target efficiency with a position-weight model
4. Scores the off-targets passed with --off-targets by their mismatch
   positions, and flags those in genes that share a pathway with the target
5. Ranks guides by efficiency then specificity

Results are written as JSON to --out, and optionally as a CSV of guides, a TSV
of the rejected candidates and a plot of the score distributions.`,
}

// designFlags are the inputs of a design run
type designFlags struct {
	in          string
	out         string
	exons       string
	offTargets  string
	nucleases   []string
	targetExons []int
	csv         string
	rejected    string
	plot        string
	top         int
}

func init() {
	flags := designCmd.Flags()

	flags.StringP("in", "i", "", "FASTA file of genes to design guides for, - reads stdin")
	flags.StringP("out", "o", "", "JSON output file (default <in>.ksites.json)")
	flags.StringSliceP("nuclease", "n", nil, "nucleases to design with (default from settings, SpCas9)")
	flags.String("exons", "", "exon map TSV: gene, exon, start, end")
	flags.IntSlice("target-exons", nil, "only design guides starting in these exons")
	flags.String("off-targets", "", "off-target records of each guide, JSON or TSV")
	flags.String("pathways", "", "gene/pathway membership TSV")
	flags.String("pathway-db", "", "Postgres url of a database with a gene_pathways table")
	flags.String("csv", "", "write the guides to a CSV file")
	flags.String("rejected", "", "write the rejected candidates to a TSV file")
	flags.String("plot", "", "plot the score distributions to an image file (png, svg, pdf)")
	flags.Int("top", 0, "keep only the best n guides of each gene and nuclease, 0 keeps all")
	flags.Float64("min-efficiency", 0.3, "lowest efficiency score reported")
	flags.Float64("gc-min", 0.40, "lowest accepted guide GC fraction")
	flags.Float64("gc-max", 0.70, "highest accepted guide GC fraction")
	flags.Int("max-mismatches", 4, "most mismatches an off-target can have and be scored")
	flags.Int("workers", 0, "most designs run at once, 0 uses every CPU")

	designCmd.MarkFlagRequired("in")

	viper.BindPFlag("pathway.file", flags.Lookup("pathways"))
	viper.BindPFlag("pathway.postgres-url", flags.Lookup("pathway-db"))
	viper.BindPFlag("score.min-efficiency", flags.Lookup("min-efficiency"))
	viper.BindPFlag("filter.gc-min", flags.Lookup("gc-min"))
	viper.BindPFlag("filter.gc-max", flags.Lookup("gc-max"))
	viper.BindPFlag("offtarget.max-mismatches", flags.Lookup("max-mismatches"))
	viper.BindPFlag("workers", flags.Lookup("workers"))

	rootCmd.AddCommand(designCmd)
}

// parseDesignFlags reads the flags of the design command
func parseDesignFlags(cmd *cobra.Command) (f designFlags, err error) {
	flags := cmd.Flags()

	if f.in, err = flags.GetString("in"); err != nil {
		return f, err
	}
	if f.out, err = flags.GetString("out"); err != nil {
		return f, err
	}
	if f.out == "" {
		f.out = guessOutput(f.in)
	}
	if f.exons, err = flags.GetString("exons"); err != nil {
		return f, err
	}
	if f.offTargets, err = flags.GetString("off-targets"); err != nil {
		return f, err
	}
	if f.nucleases, err = flags.GetStringSlice("nuclease"); err != nil {
		return f, err
	}
	if len(f.nucleases) == 0 {
		f.nucleases = []string{conf.Nuclease}
	}
	if f.targetExons, err = flags.GetIntSlice("target-exons"); err != nil {
		return f, err
	}
	if f.csv, err = flags.GetString("csv"); err != nil {
		return f, err
	}
	if f.rejected, err = flags.GetString("rejected"); err != nil {
		return f, err
	}
	if f.plot, err = flags.GetString("plot"); err != nil {
		return f, err
	}
	if f.top, err = flags.GetInt("top"); err != nil {
		return f, err
	}
	if f.top < 0 {
		return f, fmt.Errorf("--top must be >= 0, got %d", f.top)
	}
	return f, nil
}

// guessOutput is the input path with a .ksites.json extension
func guessOutput(in string) string {
	if in == "-" {
		return "stdin.ksites.json"
	}
	ext := filepath.Ext(in)
	return in[0:len(in)-len(ext)] + ".ksites.json"
}

func runDesign(cmd *cobra.Command, args []string) error {
	start := time.Now()
	log := logger.Named("design")

	f, err := parseDesignFlags(cmd)
	if err != nil {
		return err
	}

	reg, _, err := registry()
	if err != nil {
		return err
	}
	for _, n := range f.nucleases {
		if _, err := reg.Get(n); err != nil {
			return fmt.Errorf("%w, see 'ksites find nuclease'", err)
		}
	}

	var targets []guides.Target
	if f.in == "-" {
		targets, err = seqio.ParseTargets("stdin", cmd.InOrStdin())
	} else {
		targets, err = seqio.ReadTargets(f.in)
	}
	if err != nil {
		return err
	}
	if f.exons != "" {
		exons, err := seqio.ReadExons(f.exons)
		if err != nil {
			return err
		}
		targets = exons.Apply(targets)
	}
	if len(f.targetExons) > 0 {
		for i := range targets {
			targets[i].TargetExons = f.targetExons
		}
	}

	var offTargets seqio.OffTargets
	if f.offTargets != "" {
		if offTargets, err = seqio.ReadOffTargets(f.offTargets); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	src, closeSrc, err := pathway.New(ctx, conf.Pathway)
	if err != nil && !errors.Is(err, pathway.ErrNoSource) {
		log.Warn().Err(err).Msg("pathway source unavailable")
	}
	defer closeSrc()
	pathways := pathway.Resolve(ctx, src, pathway.Genes(targets, offTargets), log)

	d := guides.NewDesigner(reg, conf.Settings(), log)
	batch := d.DesignAll(guides.Jobs(targets, f.nucleases), guides.Input{OffTargets: offTargets, Pathways: pathways})

	out := seqio.NewOutput(batch, time.Now(), time.Since(start).Seconds())
	out.Results = seqio.View(out.Results, conf.Score.MinEfficiency, f.top)
	if len(out.Results) == 0 {
		return fmt.Errorf("failed to design guides for any gene in %s: %s", f.in, out.Failures[0].Error)
	}

	if _, err := seqio.WriteJSON(f.out, out); err != nil {
		return err
	}
	if f.csv != "" {
		if err := writeFile(f.csv, func(w *os.File) error { return seqio.WriteCSV(w, out.Results) }); err != nil {
			return err
		}
	}
	if f.rejected != "" {
		if err := writeFile(f.rejected, func(w *os.File) error { return seqio.WriteRejected(w, out.Results) }); err != nil {
			return err
		}
	}
	if f.plot != "" {
		title := strings.TrimSuffix(filepath.Base(f.in), filepath.Ext(f.in))
		if err := report.Save(f.plot, title, out.Results); err != nil {
			if !errors.Is(err, report.ErrNoGuides) {
				return err
			}
			log.Warn().Msg("no guides to plot")
		}
	}

	summarize(cmd, out)
	return nil
}

// writeFile creates filename and writes to it with write
func writeFile(filename string, write func(*os.File) error) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return f.Close()
}

// summarize writes a table of each gene's best guide to stdout
func summarize(cmd *cobra.Command, out seqio.Output) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', tabwriter.TabIndent)
	fmt.Fprintf(w, "gene\tnuclease\tguides\trejected\tbest\tefficiency\tseverity\n")
	for _, r := range out.Results {
		best, eff, severity := "-", "-", "-"
		if len(r.Guides) > 0 {
			g := r.Guides[0]
			best = g.Guide + " " + g.PAM
			eff = fmt.Sprintf("%.3f", g.Efficiency.Score)
			severity = g.Severity().String()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n", r.Target, r.Nuclease, len(r.Guides), len(r.Rejected), best, eff, severity)
	}
	for _, f := range out.Failures {
		fmt.Fprintf(w, "%s\t%s\tfailed: %s\n", f.Target, f.Nuclease, f.Error)
	}
	w.Flush()
}
