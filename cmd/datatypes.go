package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var datatypesCmd = &cobra.Command{
	Use:   "datatypes [NAME]",
	Short: "Show the seeded data type catalog",
	Long: `Without arguments, lists every seeded data type. With a name
argument or --id, shows one entry.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())

		if len(args) > 0 || datatypesID != 0 {
			key, value, err := lookupArgs(args, datatypesID)
			if err != nil {
				return err
			}
			dt, err := cat.DataType(cmd.Context(), key, value)
			if err != nil {
				return err
			}
			return printYAML(dt)
		}

		datatypes, err := cat.DataTypes(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%4s  %-10s %8s %-18s %-12s\n", "ID", "NAME", "PG OID", "PG NAME", "QUALIFIED")
		for _, dt := range datatypes {
			fmt.Printf("%4d  %-10s %8d %-18s %-12s\n",
				dt.ID, dt.Name, dt.PgDataType, dt.PgDataTypeName, dt.PgDataTypeQualifiedName)
		}
		return nil
	},
}

var datatypesID int64

func init() {
	datatypesCmd.Flags().Int64Var(&datatypesID, "id", 0, "look up by id instead of name")
	rootCmd.AddCommand(datatypesCmd)
}
