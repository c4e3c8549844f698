package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// deleteCmd is for deleting custom nucleases by name
var deleteCmd = &cobra.Command{
	Use:                        "delete",
	Short:                      "Delete a nuclease",
	SuggestionsMinimumDistance: 2,
	Long:                       `Delete a custom nuclease by name.`,
	Aliases:                    []string{"rm", "remove"},
}

// nucleaseDeleteCmd is for deleting nucleases from the nuclease db
var nucleaseDeleteCmd = &cobra.Command{
	Use:                        "nuclease [name]",
	Short:                      "Delete a nuclease from the nuclease database",
	RunE:                       deleteNuclease,
	Args:                       cobra.MinimumNArgs(1),
	SuggestionsMinimumDistance: 2,
	Aliases:                    []string{"remove"},
	Example:                    "  ksites delete nuclease SpRY",
	Long: `Delete a nuclease from the nuclease database by its name.
Built-in nucleases can't be deleted. If no such nuclease exists, an error is logged to stderr.`,
}

func init() {
	deleteCmd.AddCommand(nucleaseDeleteCmd)

	rootCmd.AddCommand(deleteCmd)
}

// deleteNuclease removes the nuclease named in args from the nuclease database
func deleteNuclease(cmd *cobra.Command, args []string) error {
	name := strings.Join(args, " ")

	reg, db, err := registry()
	if err != nil {
		return err
	}
	if err := db.Delete(reg, name); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s from the nuclease database\n", name)
	return nil
}
