package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	CurrentVersion = 1
	DefaultPath    = "~/.schemakeep/schemakeep.yaml"
)

// Config is the top-level configuration.
type Config struct {
	Version int           `yaml:"version"`
	Backend BackendConfig `yaml:"backend"`
	Server  ServerConfig  `yaml:"server,omitempty"`
	AWS     AWSConfig     `yaml:"aws,omitempty"`
	Logging LogConfig     `yaml:"logging,omitempty"`
}

// BackendConfig selects and parameterizes the catalog storage backend.
type BackendConfig struct {
	Type             string `yaml:"type"`                        // jsonfile, sqlite, postgres or mongo
	Directory        string `yaml:"directory,omitempty"`         // jsonfile: catalog root
	Path             string `yaml:"path,omitempty"`              // sqlite: database file
	ConnectionString string `yaml:"connection_string,omitempty"` // postgres and mongo
}

// ServerConfig defines the serve command's listen address.
type ServerConfig struct {
	Listen string `yaml:"listen,omitempty"` // default 127.0.0.1:7761
}

// AWSConfig defines AWS snapshot export settings.
type AWSConfig struct {
	Region       string `yaml:"region,omitempty"`
	Profile      string `yaml:"profile,omitempty"`
	S3Bucket     string `yaml:"s3_bucket,omitempty"`
	GlueDatabase string `yaml:"glue_database,omitempty"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level         string `yaml:"level,omitempty"`          // debug, info, warn, error
	Directory     string `yaml:"directory,omitempty"`      // default ~/.schemakeep/logs/
	RetentionDays int    `yaml:"retention_days,omitempty"` // default 30
}

// Load reads and parses the config file from the given path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

func (c *Config) applyDefaults() {
	if c.Backend.Type == "" {
		c.Backend.Type = "jsonfile"
	}
	if c.Backend.Directory == "" {
		c.Backend.Directory = ExpandHome("~/.schemakeep/catalog/")
	}
	if c.Backend.Path == "" {
		c.Backend.Path = ExpandHome("~/.schemakeep/catalog.db")
	}
	if c.Server.Listen == "" {
		c.Server.Listen = "127.0.0.1:7761"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = ExpandHome("~/.schemakeep/logs/")
	}
	if c.Logging.RetentionDays == 0 {
		c.Logging.RetentionDays = 30
	}
}

func (c *Config) validate() error {
	switch c.Backend.Type {
	case "jsonfile", "sqlite":
	case "postgres", "mongo":
		if c.Backend.ConnectionString == "" {
			return fmt.Errorf("backend %s requires a connection string", c.Backend.Type)
		}
	default:
		return fmt.Errorf("unknown backend type %q", c.Backend.Type)
	}
	return nil
}

var secretPattern = regexp.MustCompile(`\$\{(ENV|VAULT|AWS_SM):([^}]+)\}`)

func (c *Config) resolveSecrets() error {
	var err error
	c.Backend.ConnectionString, err = ResolveValue(c.Backend.ConnectionString)
	if err != nil {
		return fmt.Errorf("backend connection string: %w", err)
	}
	return nil
}

// ResolveValue resolves secret references in a string value.
func ResolveValue(val string) (string, error) {
	matches := secretPattern.FindStringSubmatch(val)
	if matches == nil {
		return val, nil
	}

	provider := matches[1]
	ref := matches[2]

	switch provider {
	case "ENV":
		v := os.Getenv(ref)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", ref)
		}
		return v, nil
	case "VAULT":
		return resolveVault(ref)
	case "AWS_SM":
		return resolveAWSSecretsManager(ref)
	default:
		return "", fmt.Errorf("unknown secrets provider: %s", provider)
	}
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
