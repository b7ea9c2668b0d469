package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schemakeep/schemakeep/internal/metadata"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend health and object counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())

		st, err := cat.Status(cmd.Context())
		if err != nil {
			return fmt.Errorf("reading catalog status: %w", err)
		}

		fmt.Printf("Backend: %s\n", st.Backend)
		fmt.Println()
		fmt.Printf("  Tables:  %d\n", st.Tables)
		fmt.Printf("  Indexes: %d\n", st.Indexes)
		fmt.Println()
		fmt.Println("Last issued ids:")
		families := []metadata.Family{
			metadata.FamilyTables,
			metadata.FamilyColumns,
			metadata.FamilyIndexes,
		}
		for _, family := range families {
			fmt.Printf("  %-18s %d\n", family, st.Counters[family])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
