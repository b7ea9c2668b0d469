package cmd

import (
	"github.com/spf13/cobra"

	"github.com/schemakeep/schemakeep/internal/browse"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Open the interactive catalog browser",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())
		return browse.Run(cmd.Context(), cat)
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
}
