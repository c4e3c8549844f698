package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/kkokay07/K-Sites/internal/guides"
	"github.com/spf13/cobra"
)

// findCmd is for finding nucleases by their name.
var findCmd = &cobra.Command{
	Use:                        "find",
	Short:                      "Find nucleases",
	SuggestionsMinimumDistance: 2,
	Long: `Find nucleases by name.
If there is no exact match, similar entries are returned`,
	Aliases: []string{"ls", "list"},
}

// nucleaseFindCmd is for listing the nucleases guides can be designed with
var nucleaseFindCmd = &cobra.Command{
	Use:                        "nuclease [name]",
	Short:                      "Find nucleases available for guide design",
	RunE:                       findNuclease,
	SuggestionsMinimumDistance: 2,
	Example:                    "  ksites find nuclease cas9",
	Long: `List the nucleases with the same or a similar name as the argument.
Each is written with its motif, spacer length, motif side and motif quality.

'ksites find nuclease' without any arguments lists every nuclease.`,
	Aliases: []string{"nucleases"},
}

func init() {
	findCmd.AddCommand(nucleaseFindCmd)

	rootCmd.AddCommand(findCmd)
}

// findNuclease writes the nucleases matching the name in args to stdout
func findNuclease(cmd *cobra.Command, args []string) error {
	reg, _, err := registry()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', tabwriter.TabIndent)
	defer w.Flush()

	if len(args) < 1 {
		writeNucleases(w, reg, reg.Profiles())
		return nil
	}

	name := strings.Join(args, " ")
	if p, err := reg.Get(name); err == nil {
		writeNucleases(w, reg, []guides.Profile{p})
		return nil
	}

	similar := reg.Similar(name)
	if len(similar) == 0 {
		fmt.Fprintf(w, "failed to find any nucleases for %s\n", name)
		return nil
	}
	writeNucleases(w, reg, similar)
	return nil
}

// writeNucleases writes a row per profile
func writeNucleases(w *tabwriter.Writer, reg *guides.Registry, profiles []guides.Profile) {
	for _, p := range profiles {
		pams := strings.Join(append([]string{p.PAM}, p.AltPAMs...), ",")
		source := "custom"
		if reg.IsBuiltin(p.Name) {
			source = "built-in"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			p.Name, pams, p.SpacerLength, p.Side, strconv.FormatFloat(p.QualityWeight, 'f', -1, 64), source)
	}
}
