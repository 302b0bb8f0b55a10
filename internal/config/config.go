// Package config loads swgmerchant settings from YAML, .env files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/roach88/swgmerchant/internal/artifact"
	"github.com/roach88/swgmerchant/internal/classify"
	"github.com/roach88/swgmerchant/internal/ledger"
)

// Environment variables that override file settings.
const (
	EnvDB        = "SWGMERCHANT_DB"
	EnvDriver    = "SWGMERCHANT_DRIVER"
	EnvRules     = "SWGMERCHANT_RULES"
	EnvLogLevel  = "SWGMERCHANT_LOG_LEVEL"
	EnvCacheSize = "SWGMERCHANT_CACHE_SIZE"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "swgmerchant.yaml"

// Config holds all swgmerchant configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Classify ClassifyConfig `yaml:"classify"`
	Report   ReportConfig   `yaml:"report"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig selects the ledger file and SQL driver.
type DatabaseConfig struct {
	Path   string `yaml:"path"`
	Driver string `yaml:"driver"` // "sqlite3" (cgo) or "sqlite" (pure Go)
}

// IngestConfig controls artifact discovery and parsing.
type IngestConfig struct {
	Extensions []string `yaml:"extensions"`
	Recursive  bool     `yaml:"recursive"`
	SuffixTags []string `yaml:"suffix_tags"`
}

// ClassifyConfig points at an optional rule table override.
type ClassifyConfig struct {
	RulesFile string `yaml:"rules_file"`
	CacheSize int    `yaml:"cache_size"`
}

// ReportConfig holds report defaults.
type ReportConfig struct {
	Months int `yaml:"months"`
	TopN   int `yaml:"top_n"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:   "swg_merchant.db",
			Driver: ledger.DriverCGO,
		},
		Ingest: IngestConfig{
			Extensions: []string{artifact.DefaultExtension},
			Recursive:  true,
			SuffixTags: []string{"Epak"},
		},
		Classify: ClassifyConfig{
			CacheSize: classify.DefaultCacheSize,
		},
		Report: ReportConfig{
			Months: 12,
			TopN:   10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the
// process environment without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from a YAML file on top of the defaults and then
// applies environment overrides. A missing file yields the defaults; an empty
// path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
			cfg.resolveRelative(filepath.Dir(path))
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// resolveRelative makes the rules file relative to the config file's directory.
func (c *Config) resolveRelative(dir string) {
	if c.Classify.RulesFile != "" && !filepath.IsAbs(c.Classify.RulesFile) {
		c.Classify.RulesFile = filepath.Join(dir, c.Classify.RulesFile)
	}
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(EnvDB); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvDriver); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(EnvRules); v != "" {
		c.Classify.RulesFile = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvCacheSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCacheSize, err)
		}
		c.Classify.CacheSize = n
	}
	return nil
}

// Validate checks the configuration for values the tools cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Database.Driver != ledger.DriverCGO && c.Database.Driver != ledger.DriverPure {
		errs = append(errs, fmt.Errorf("invalid database.driver %q (valid: %s, %s)",
			c.Database.Driver, ledger.DriverCGO, ledger.DriverPure))
	}
	if len(c.Ingest.Extensions) == 0 {
		errs = append(errs, errors.New("ingest.extensions must not be empty"))
	}
	for _, ext := range c.Ingest.Extensions {
		if strings.TrimSpace(ext) == "" || strings.ContainsAny(ext, `/\`) {
			errs = append(errs, fmt.Errorf("invalid ingest extension %q", ext))
		}
	}
	if c.Classify.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("classify.cache_size must be >= 0, got %d", c.Classify.CacheSize))
	}
	if c.Report.Months < 1 {
		errs = append(errs, fmt.Errorf("report.months must be >= 1, got %d", c.Report.Months))
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("invalid logging.level: %w", err))
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("invalid logging.format %q (valid: console, json)", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// LocateOptions converts ingest settings for artifact.Locate.
func (c *Config) LocateOptions() artifact.Options {
	return artifact.Options{
		Extensions: c.Ingest.Extensions,
		Flat:       !c.Ingest.Recursive,
	}
}

// Classifier builds the configured classifier: the rules file when set,
// otherwise the built-in table, wrapped in an LRU memo.
func (c *Config) Classifier() (*classify.Cached, error) {
	var (
		table *classify.Table
		err   error
	)
	if c.Classify.RulesFile != "" {
		table, err = classify.LoadTable(c.Classify.RulesFile)
	} else {
		table, err = classify.DefaultTable()
	}
	if err != nil {
		return nil, err
	}
	return classify.NewCached(classify.New(table), c.Classify.CacheSize)
}
