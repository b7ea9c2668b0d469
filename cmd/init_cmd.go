package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/schemakeep/schemakeep/internal/catalog"
	"github.com/schemakeep/schemakeep/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file and provision the catalog storage",
	Long: `Walk through prompts to create a schemakeep configuration file at
~/.schemakeep/schemakeep.yaml, then bootstrap the chosen backend (catalog
directory and family files, or database schema, tables and id counters).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)

		fmt.Println("Schemakeep Catalog Setup")
		fmt.Println("========================")
		fmt.Println()

		fmt.Println("Storage Backend")
		fmt.Println("---------------")
		backend := prompt(reader, "Backend type (jsonfile/sqlite/postgres/mongo)", "jsonfile")

		cfg := &config.Config{
			Version: config.CurrentVersion,
			Backend: config.BackendConfig{Type: backend},
		}

		switch backend {
		case "jsonfile":
			cfg.Backend.Directory = prompt(reader, "Catalog directory", "~/.schemakeep/catalog/")
		case "sqlite":
			cfg.Backend.Path = prompt(reader, "Database file", "~/.schemakeep/catalog.db")
		case "postgres":
			cfg.Backend.ConnectionString = prompt(reader, "Connection string", "postgres://localhost:5432/schemakeep?sslmode=disable")
		case "mongo":
			cfg.Backend.ConnectionString = prompt(reader, "Connection string (replica set required)", "mongodb://localhost:27017/?replicaSet=rs0")
		default:
			return fmt.Errorf("unknown backend type: %s", backend)
		}
		fmt.Println()

		cfgPath := config.ExpandHome(config.DefaultPath)
		if cfgFile != "" {
			cfgPath = cfgFile
		}

		if err := cfg.Save(cfgPath); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Printf("Config written to %s\n", cfgPath)

		if err := catalog.Init(cmd.Context(), cfg); err != nil {
			return fmt.Errorf("provisioning %s backend: %w", backend, err)
		}
		fmt.Printf("Provisioned %s backend.\n", backend)

		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  schemakeep table add <file>  — Register a table definition")
		fmt.Println("  schemakeep import            — Import a live database schema")
		fmt.Println("  schemakeep                   — Open the catalog browser")
		fmt.Println("  schemakeep serve             — Start the catalog API server")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func prompt(reader *bufio.Reader, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("  %s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("  %s: ", label)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}
