package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/schemakeep/schemakeep/internal/metadata"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Manage registered tables",
	Long:  `Register, inspect, update and remove tables and their columns.`,
}

var tableAddCmd = &cobra.Command{
	Use:   "add FILE",
	Short: "Register a table from a YAML definition",
	Long: `Register a table with its columns as one atomic unit. The file
holds a YAML table definition:

  name: orders
  columns:
    - name: id
      ordinal_position: 1
      data_type_id: 6
      nullable: false
    - name: amount
      ordinal_position: 2
      data_type_id: 9
      nullable: true`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading table definition: %w", err)
		}
		var table metadata.Table
		if err := yaml.Unmarshal(data, &table); err != nil {
			return fmt.Errorf("parsing table definition: %w", err)
		}

		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())

		id, err := cat.AddTable(cmd.Context(), &table)
		if err != nil {
			return err
		}
		fmt.Printf("Registered table %s with id %d (%d columns).\n", table.Name, id, len(table.Columns))
		return nil
	},
}

var tableGetID int64

var tableGetCmd = &cobra.Command{
	Use:   "get [NAME]",
	Short: "Show one table with its columns",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value, err := lookupArgs(args, tableGetID)
		if err != nil {
			return err
		}

		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())

		table, err := cat.Table(cmd.Context(), key, value)
		if err != nil {
			return err
		}
		return printYAML(table)
	},
}

var tableListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every registered table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())

		tables, err := cat.Tables(cmd.Context())
		if err != nil {
			return err
		}
		if len(tables) == 0 {
			fmt.Println("No tables registered.")
			return nil
		}

		fmt.Printf("%6s  %-32s %6s %12s\n", "ID", "NAME", "COLS", "TUPLES")
		for _, t := range tables {
			fmt.Printf("%6d  %-32s %6d %12.0f\n", t.ID, t.Name, len(t.Columns), t.Tuples)
		}
		return nil
	},
}

var tableUpdateID int64

var tableUpdateCmd = &cobra.Command{
	Use:   "update FILE",
	Short: "Replace a table definition under its existing id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if tableUpdateID == 0 {
			return fmt.Errorf("--id is required: %w", metadata.ErrInvalidParameter)
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading table definition: %w", err)
		}
		var table metadata.Table
		if err := yaml.Unmarshal(data, &table); err != nil {
			return fmt.Errorf("parsing table definition: %w", err)
		}

		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())

		if err := cat.UpdateTable(cmd.Context(), tableUpdateID, &table); err != nil {
			return err
		}
		fmt.Printf("Updated table %d.\n", tableUpdateID)
		return nil
	},
}

var tableRemoveID int64

var tableRemoveCmd = &cobra.Command{
	Use:   "remove [NAME]",
	Short: "Remove a table, its columns and its column statistics",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value, err := lookupArgs(args, tableRemoveID)
		if err != nil {
			return err
		}

		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())

		id, err := cat.RemoveTable(cmd.Context(), key, value)
		if err != nil {
			return err
		}
		fmt.Printf("Removed table %d.\n", id)
		return nil
	},
}

var (
	tableStatID     int64
	tableStatTuples float64
)

var tableStatCmd = &cobra.Command{
	Use:   "stat [NAME]",
	Short: "Show or set a table's tuple-count statistic",
	Long: `Without --tuples, prints the table's tuple-count estimate. With
--tuples, updates it without touching the table's columns.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value, err := lookupArgs(args, tableStatID)
		if err != nil {
			return err
		}

		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())

		if cmd.Flags().Changed("tuples") {
			id, err := cat.SetTableStatistic(cmd.Context(), key, value, tableStatTuples)
			if err != nil {
				return err
			}
			fmt.Printf("Set tuples=%g on table %d.\n", tableStatTuples, id)
			return nil
		}

		table, err := cat.TableStatistic(cmd.Context(), key, value)
		if err != nil {
			return err
		}
		fmt.Printf("Table %s (id %d): %g tuples\n", table.Name, table.ID, table.Tuples)
		return nil
	},
}

func init() {
	tableGetCmd.Flags().Int64Var(&tableGetID, "id", 0, "look up by id instead of name")
	tableUpdateCmd.Flags().Int64Var(&tableUpdateID, "id", 0, "id of the table to replace")
	tableRemoveCmd.Flags().Int64Var(&tableRemoveID, "id", 0, "look up by id instead of name")
	tableStatCmd.Flags().Int64Var(&tableStatID, "id", 0, "look up by id instead of name")
	tableStatCmd.Flags().Float64Var(&tableStatTuples, "tuples", 0, "tuple-count estimate to store")

	tableCmd.AddCommand(tableAddCmd)
	tableCmd.AddCommand(tableGetCmd)
	tableCmd.AddCommand(tableListCmd)
	tableCmd.AddCommand(tableUpdateCmd)
	tableCmd.AddCommand(tableRemoveCmd)
	tableCmd.AddCommand(tableStatCmd)
	rootCmd.AddCommand(tableCmd)
}

func printYAML(v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	fmt.Print(string(data))
	return nil
}
