package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/schemakeep/schemakeep/internal/metadata"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Manage per-column statistics",
	Long: `Store and read opaque per-column statistic blobs keyed by
(table id, ordinal position). The catalog does not interpret their
contents.`,
}

var (
	statsTableID  int64
	statsPosition int64
)

var statsPutCmd = &cobra.Command{
	Use:   "put FILE",
	Short: "Store or replace one column statistic from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading statistic: %w", err)
		}
		if !json.Valid(data) {
			return fmt.Errorf("statistic payload is not valid JSON: %w", metadata.ErrInvalidParameter)
		}

		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())

		stat := &metadata.ColumnStatistic{
			TableID:         statsTableID,
			OrdinalPosition: statsPosition,
			ColumnStatistic: json.RawMessage(data),
		}
		if err := cat.PutColumnStatistic(cmd.Context(), stat); err != nil {
			return err
		}
		fmt.Printf("Stored statistic for table %d position %d.\n", statsTableID, statsPosition)
		return nil
	},
}

var statsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print one column statistic",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())

		stat, err := cat.ColumnStatistic(cmd.Context(), statsTableID, statsPosition)
		if err != nil {
			return err
		}
		fmt.Println(string(stat.ColumnStatistic))
		return nil
	},
}

var statsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every statistic of one table, by ordinal position",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())

		stats, err := cat.ColumnStatistics(cmd.Context(), statsTableID)
		if err != nil {
			return err
		}

		positions := make([]int64, 0, len(stats))
		for pos := range stats {
			positions = append(positions, pos)
		}
		sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })

		for _, pos := range positions {
			fmt.Printf("%d: %s\n", pos, string(stats[pos].ColumnStatistic))
		}
		return nil
	},
}

var statsAll bool

var statsRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Delete one column statistic, or all of a table's with --all",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())

		if statsAll {
			if err := cat.RemoveColumnStatistics(cmd.Context(), statsTableID); err != nil {
				return err
			}
			fmt.Printf("Removed all statistics of table %d.\n", statsTableID)
			return nil
		}

		if err := cat.RemoveColumnStatistic(cmd.Context(), statsTableID, statsPosition); err != nil {
			return err
		}
		fmt.Printf("Removed statistic for table %d position %d.\n", statsTableID, statsPosition)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{statsPutCmd, statsGetCmd, statsListCmd, statsRemoveCmd} {
		c.Flags().Int64Var(&statsTableID, "table-id", 0, "owning table id")
		c.MarkFlagRequired("table-id")
	}
	statsPutCmd.Flags().Int64Var(&statsPosition, "position", 0, "column ordinal position")
	statsPutCmd.MarkFlagRequired("position")
	statsGetCmd.Flags().Int64Var(&statsPosition, "position", 0, "column ordinal position")
	statsGetCmd.MarkFlagRequired("position")
	statsRemoveCmd.Flags().Int64Var(&statsPosition, "position", 0, "column ordinal position")
	statsRemoveCmd.Flags().BoolVar(&statsAll, "all", false, "remove every statistic of the table")

	statsCmd.AddCommand(statsPutCmd)
	statsCmd.AddCommand(statsGetCmd)
	statsCmd.AddCommand(statsListCmd)
	statsCmd.AddCommand(statsRemoveCmd)
	rootCmd.AddCommand(statsCmd)
}
