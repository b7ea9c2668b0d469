package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schemakeep/schemakeep/internal/config"
	"github.com/schemakeep/schemakeep/internal/introspect"
	"github.com/schemakeep/schemakeep/internal/typemap"
)

var (
	importDriver    string
	importDSN       string
	importNamespace string
	importTypemap   string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a live database schema into the catalog",
	Long: `Connect to a running PostgreSQL or Oracle database, read its table
definitions and indexes, map source types onto catalog data types, and
register everything through the catalog. Columns whose source type has no
mapping are skipped with a warning.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := config.ResolveValue(importDSN)
		if err != nil {
			return fmt.Errorf("resolving source DSN: %w", err)
		}

		types := typemap.ForDriver(importDriver)
		if importTypemap != "" {
			if err := types.LoadOverrides(importTypemap); err != nil {
				return fmt.Errorf("loading type overrides: %w", err)
			}
		}

		ins, err := introspect.New(importDriver, dsn, importNamespace, types)
		if err != nil {
			return err
		}
		if err := ins.Connect(cmd.Context()); err != nil {
			return fmt.Errorf("connecting to source database: %w", err)
		}
		defer ins.Close()

		schemas, err := ins.Tables(cmd.Context())
		if err != nil {
			return fmt.Errorf("reading source schema: %w", err)
		}
		if len(schemas) == 0 {
			fmt.Println("No tables found in the source namespace.")
			return nil
		}

		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())

		results := introspect.Register(cmd.Context(), cat, schemas)

		registered, failed := 0, 0
		for _, res := range results {
			if res.Err != nil {
				failed++
				fmt.Printf("  FAIL %-32s %v\n", res.Name, res.Err)
				continue
			}
			registered++
			fmt.Printf("  OK   %-32s id %d, %d indexes\n", res.Name, res.TableID, res.Indexes)
			for _, warning := range res.Warnings {
				fmt.Printf("       warning: %s\n", warning)
			}
		}

		fmt.Println()
		fmt.Printf("Imported %d of %d tables", registered, len(results))
		if failed > 0 {
			fmt.Printf(" (%d failed)", failed)
		}
		fmt.Println()
		if failed > 0 {
			return fmt.Errorf("%d table(s) failed to register", failed)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importDriver, "from", "postgres", "source driver (postgres, oracle)")
	importCmd.Flags().StringVar(&importDSN, "dsn", "", "source connection string (supports ${ENV:..}/${VAULT:..}/${AWS_SM:..})")
	importCmd.Flags().StringVar(&importNamespace, "namespace", "public", "source schema to read")
	importCmd.Flags().StringVar(&importTypemap, "typemap", "", "YAML file with source-type → catalog-type overrides")
	importCmd.MarkFlagRequired("dsn")
	rootCmd.AddCommand(importCmd)
}
