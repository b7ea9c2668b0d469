package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/schemakeep/schemakeep/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and validate the schemakeep configuration file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current config (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		fmt.Println("Current configuration:")
		fmt.Println()
		fmt.Printf("  Backend:\n")
		fmt.Printf("    Type:           %s\n", cfg.Backend.Type)
		switch cfg.Backend.Type {
		case "jsonfile":
			fmt.Printf("    Directory:      %s\n", cfg.Backend.Directory)
		case "sqlite":
			fmt.Printf("    Path:           %s\n", cfg.Backend.Path)
		default:
			fmt.Printf("    Connection:     %s\n", maskSecret(cfg.Backend.ConnectionString))
		}
		fmt.Println()
		fmt.Printf("  Server:\n")
		fmt.Printf("    Listen:         %s\n", cfg.Server.Listen)
		fmt.Println()
		fmt.Printf("  Logging:\n")
		fmt.Printf("    Level:          %s\n", cfg.Logging.Level)
		fmt.Printf("    Directory:      %s\n", cfg.Logging.Directory)
		if cfg.AWS.S3Bucket != "" || cfg.AWS.GlueDatabase != "" {
			fmt.Println()
			fmt.Printf("  AWS:\n")
			fmt.Printf("    Region:         %s\n", cfg.AWS.Region)
			fmt.Printf("    Profile:        %s\n", cfg.AWS.Profile)
			fmt.Printf("    S3 Bucket:      %s\n", cfg.AWS.S3Bucket)
			fmt.Printf("    Glue Database:  %s\n", cfg.AWS.GlueDatabase)
		}
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}
		fmt.Println("Config is valid.")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	// keep the scheme and host visible, mask any credentials
	if at := strings.Index(s, "@"); at > 0 {
		if scheme := strings.Index(s, "://"); scheme > 0 && scheme+3 < at {
			return s[:scheme+3] + "****" + s[at:]
		}
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
