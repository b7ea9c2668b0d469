package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schemakeep/schemakeep/internal/snapshot"
)

var restoreCmd = &cobra.Command{
	Use:   "restore FILE",
	Short: "Load a snapshot into the configured backend",
	Long: `Replay a YAML snapshot into the catalog. Objects receive fresh ids
from the target backend; index key-column references are remapped to the
newly issued column ids. Tables whose names are already registered are
skipped and reported.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := snapshot.ReadYAML(args[0])
		if err != nil {
			return fmt.Errorf("reading snapshot: %w", err)
		}

		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())

		report, err := snapshot.Restore(cmd.Context(), cat, snap)
		if err != nil {
			return fmt.Errorf("restoring snapshot: %w", err)
		}

		fmt.Printf("Restored %d tables, %d indexes, %d statistics.\n",
			report.Tables, report.Indexes, report.Statistics)
		for _, s := range report.Skipped {
			fmt.Printf("  skipped: %s\n", s)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}
