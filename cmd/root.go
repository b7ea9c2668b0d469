package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/schemakeep/schemakeep/internal/browse"
	"github.com/schemakeep/schemakeep/internal/catalog"
	"github.com/schemakeep/schemakeep/internal/config"
	"github.com/schemakeep/schemakeep/internal/logging"
	"github.com/schemakeep/schemakeep/internal/metadata"
)

var (
	cfgFile  string
	logLevel string
	version  = "dev"
	commit   = "none"
	date     = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "schemakeep",
	Short: "schemakeep — schema metadata catalog",
	Long: `Schemakeep stores structural descriptions of database objects
(tables, columns, indexes, column statistics) on behalf of engines that
do not own a catalog store.

Running without a subcommand opens the interactive catalog browser.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())
		return browse.Run(cmd.Context(), cat)
	},
}

func Execute() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.schemakeep/schemakeep.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// openCatalog loads the config, sets up logging and connects the
// configured backend. Callers own the returned catalog and must Close it.
func openCatalog(ctx context.Context) (*catalog.Catalog, *config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logging.Setup(level, cfg.Logging.Directory)
	if err != nil {
		return nil, nil, fmt.Errorf("setting up logging: %w", err)
	}

	cat, err := catalog.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return cat, cfg, nil
}

// logger builds a bare stderr logger for commands that run before a
// config exists.
func stderrLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// lookupArgs resolves the shared NAME-or---id command shape into a
// catalog lookup key.
func lookupArgs(args []string, id int64) (metadata.Key, string, error) {
	switch {
	case id != 0 && len(args) > 0:
		return "", "", fmt.Errorf("pass either a name or --id, not both: %w", metadata.ErrInvalidParameter)
	case id != 0:
		return metadata.KeyID, strconv.FormatInt(id, 10), nil
	case len(args) == 1 && args[0] != "":
		return metadata.KeyName, args[0], nil
	default:
		return "", "", fmt.Errorf("a name argument or --id is required: %w", metadata.ErrInvalidParameter)
	}
}
