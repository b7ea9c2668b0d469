package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/schemakeep/schemakeep/internal/typemap"
)

var (
	typemapDriver string
	typemapOut    string
)

var typemapCmd = &cobra.Command{
	Use:   "typemap",
	Short: "Show or write the source-type mapping used by import",
	Long: `Print the default mapping from source database types to catalog
data types, or write it to a YAML file. An edited copy can be passed to
import via --typemap to override individual mappings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tm := typemap.ForDriver(typemapDriver)

		if typemapOut != "" {
			if err := tm.WriteYAML(typemapOut); err != nil {
				return fmt.Errorf("writing typemap: %w", err)
			}
			fmt.Printf("Typemap for %s written to %s\n", typemapDriver, typemapOut)
			return nil
		}

		fmt.Printf("Type mapping for %s (catalog types: %s):\n\n",
			typemapDriver, strings.Join(typemap.CatalogTypeNames(), ", "))
		for _, src := range tm.SortedTypes() {
			id, _ := tm.Resolve(src)
			fmt.Printf("  %-28s → type id %d\n", src, id)
		}
		return nil
	},
}

func init() {
	typemapCmd.Flags().StringVar(&typemapDriver, "driver", "postgres", "source driver (postgres, oracle)")
	typemapCmd.Flags().StringVar(&typemapOut, "out", "", "write the mapping to a YAML file")
	rootCmd.AddCommand(typemapCmd)
}
