package cmd

import (
	"fmt"
	"strconv"

	"github.com/kkokay07/K-Sites/internal/guides"
	"github.com/spf13/cobra"
)

// setCmd is for creating or updating custom nucleases
var setCmd = &cobra.Command{
	Use:                        "set",
	Short:                      "Set a nuclease",
	SuggestionsMinimumDistance: 1,
	Long: `
Create/update a nuclease with its name, motif and spacer length.
Set nucleases can be passed to the --nuclease flag of 'ksites design'`,
	Aliases: []string{"add", "update"},
}

// nucleaseSetCmd is for adding a nuclease to the nuclease database
var nucleaseSetCmd = &cobra.Command{
	Use:                        "nuclease [name] [motif] [spacer length]",
	Short:                      "Add a nuclease to the nuclease database",
	RunE:                       setNuclease,
	Args:                       cobra.ExactArgs(3),
	SuggestionsMinimumDistance: 2,
	Long: `
Set a nuclease in the nuclease database so it can be used in 'ksites design'.
The motif is written 5' to 3' in IUPAC codes. Built-in nucleases can't be changed.`,
	Aliases: []string{"add", "update"},
	Example: `  ksites set nuclease SpRY NRN 20 --quality 0.6
  ksites set nuclease enAsCas12a TTYN 23 --five-prime --alt-pam VTTV --quality 0.75`,
}

func init() {
	nucleaseSetCmd.Flags().Bool("five-prime", false, "the motif is 5' of the spacer (like Cas12a)")
	nucleaseSetCmd.Flags().Float64("quality", 1.0, "motif quality in [0, 1]")
	nucleaseSetCmd.Flags().StringSlice("alt-pam", nil, "other motifs the nuclease recognizes")

	setCmd.AddCommand(nucleaseSetCmd)

	rootCmd.AddCommand(setCmd)
}

// setNuclease saves the nuclease in args to the nuclease database
func setNuclease(cmd *cobra.Command, args []string) error {
	spacer, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("spacer length must be an integer, got %q", args[2])
	}

	p := guides.Profile{
		Name:         args[0],
		PAM:          args[1],
		SpacerLength: spacer,
		Side:         guides.ThreePrime,
	}
	if fivePrime, _ := cmd.Flags().GetBool("five-prime"); fivePrime {
		p.Side = guides.FivePrime
	}
	if p.QualityWeight, err = cmd.Flags().GetFloat64("quality"); err != nil {
		return err
	}
	if p.AltPAMs, err = cmd.Flags().GetStringSlice("alt-pam"); err != nil {
		return err
	}

	reg, db, err := registry()
	if err != nil {
		return err
	}
	updated, err := db.Set(reg, p)
	if err != nil {
		return err
	}

	if updated {
		fmt.Fprintf(cmd.OutOrStdout(), "updated %s in the nuclease database\n", p.Name)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "added %s to the nuclease database\n", p.Name)
	}
	return nil
}
