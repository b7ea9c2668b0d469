package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/schemakeep/schemakeep/internal/metadata"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage registered indexes",
}

var indexAddCmd = &cobra.Command{
	Use:   "add FILE",
	Short: "Register an index from a YAML definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading index definition: %w", err)
		}
		var index metadata.Index
		if err := yaml.Unmarshal(data, &index); err != nil {
			return fmt.Errorf("parsing index definition: %w", err)
		}

		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())

		id, err := cat.AddIndex(cmd.Context(), &index)
		if err != nil {
			return err
		}
		fmt.Printf("Registered index %s with id %d.\n", index.Name, id)
		return nil
	},
}

var indexGetID int64

var indexGetCmd = &cobra.Command{
	Use:   "get [NAME]",
	Short: "Show one index",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value, err := lookupArgs(args, indexGetID)
		if err != nil {
			return err
		}

		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())

		index, err := cat.Index(cmd.Context(), key, value)
		if err != nil {
			return err
		}
		return printYAML(index)
	},
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every registered index",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())

		indexes, err := cat.Indexes(cmd.Context())
		if err != nil {
			return err
		}
		if len(indexes) == 0 {
			fmt.Println("No indexes registered.")
			return nil
		}

		fmt.Printf("%6s  %-32s %8s %6s %10s\n", "ID", "NAME", "OWNER", "COLS", "KEY COLS")
		for _, ix := range indexes {
			fmt.Printf("%6d  %-32s %8d %6d %10d\n", ix.ID, ix.Name, ix.OwnerID, ix.NumberOfColumns, ix.NumberOfKeyColumns)
		}
		return nil
	},
}

var indexUpdateID int64

var indexUpdateCmd = &cobra.Command{
	Use:   "update FILE",
	Short: "Replace an index definition under its existing id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if indexUpdateID == 0 {
			return fmt.Errorf("--id is required: %w", metadata.ErrInvalidParameter)
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading index definition: %w", err)
		}
		var index metadata.Index
		if err := yaml.Unmarshal(data, &index); err != nil {
			return fmt.Errorf("parsing index definition: %w", err)
		}

		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())

		if err := cat.UpdateIndex(cmd.Context(), indexUpdateID, &index); err != nil {
			return err
		}
		fmt.Printf("Updated index %d.\n", indexUpdateID)
		return nil
	},
}

var indexRemoveID int64

var indexRemoveCmd = &cobra.Command{
	Use:   "remove [NAME]",
	Short: "Remove one index",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value, err := lookupArgs(args, indexRemoveID)
		if err != nil {
			return err
		}

		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())

		id, err := cat.RemoveIndex(cmd.Context(), key, value)
		if err != nil {
			return err
		}
		fmt.Printf("Removed index %d.\n", id)
		return nil
	},
}

func init() {
	indexGetCmd.Flags().Int64Var(&indexGetID, "id", 0, "look up by id instead of name")
	indexUpdateCmd.Flags().Int64Var(&indexUpdateID, "id", 0, "id of the index to replace")
	indexRemoveCmd.Flags().Int64Var(&indexRemoveID, "id", 0, "look up by id instead of name")

	indexCmd.AddCommand(indexAddCmd)
	indexCmd.AddCommand(indexGetCmd)
	indexCmd.AddCommand(indexListCmd)
	indexCmd.AddCommand(indexUpdateCmd)
	indexCmd.AddCommand(indexRemoveCmd)
	rootCmd.AddCommand(indexCmd)
}
