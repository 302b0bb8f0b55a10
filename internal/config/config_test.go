package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/swgmerchant/internal/classify"
	"github.com/roach88/swgmerchant/internal/ledger"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvDB, EnvDriver, EnvRules, EnvLogLevel, EnvCacheSize} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "swg_merchant.db", cfg.Database.Path)
	assert.Equal(t, ledger.DriverCGO, cfg.Database.Driver)
	assert.Equal(t, []string{".mail"}, cfg.Ingest.Extensions)
	assert.True(t, cfg.Ingest.Recursive)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "swgmerchant.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: "merchant.db"
  driver: "sqlite"
ingest:
  recursive: false
  suffix_tags: ["Epak", "Guild"]
classify:
  rules_file: "rules.yaml"
logging:
  level: "debug"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "merchant.db", cfg.Database.Path)
	assert.Equal(t, ledger.DriverPure, cfg.Database.Driver)
	assert.False(t, cfg.Ingest.Recursive)
	assert.True(t, cfg.LocateOptions().Flat)
	assert.Equal(t, []string{".mail"}, cfg.Ingest.Extensions, "unset keys keep defaults")
	assert.Equal(t, []string{"Epak", "Guild"}, cfg.Ingest.SuffixTags)
	assert.Equal(t, filepath.Join(dir, "rules.yaml"), cfg.Classify.RulesFile)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: [oops"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDB, "/tmp/env.db")
	t.Setenv(EnvDriver, "sqlite")
	t.Setenv(EnvRules, "/etc/rules.yaml")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvCacheSize, "64")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/etc/rules.yaml", cfg.Classify.RulesFile)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 64, cfg.Classify.CacheSize)

	t.Setenv(EnvCacheSize, "many")
	_, err = Load("")
	assert.ErrorContains(t, err, EnvCacheSize)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides a variable that is present, even when empty.
	require.NoError(t, os.Unsetenv(EnvDB))
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SWGMERCHANT_DB=from-dotenv.db\n"), 0o644))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv.db", cfg.Database.Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty db path", func(c *Config) { c.Database.Path = " " }, "database.path"},
		{"bad driver", func(c *Config) { c.Database.Driver = "postgres" }, "database.driver"},
		{"no extensions", func(c *Config) { c.Ingest.Extensions = nil }, "ingest.extensions"},
		{"bad extension", func(c *Config) { c.Ingest.Extensions = []string{"a/b"} }, "extension"},
		{"negative cache", func(c *Config) { c.Classify.CacheSize = -1 }, "cache_size"},
		{"zero months", func(c *Config) { c.Report.Months = 0 }, "report.months"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "cfg.yaml")
	cfg := DefaultConfig()
	cfg.Report.TopN = 3

	require.NoError(t, cfg.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Report.TopN)
}

func TestClassifier(t *testing.T) {
	cfg := DefaultConfig()
	c, err := cfg.Classifier()
	require.NoError(t, err)
	assert.Equal(t, classify.Result{Profession: "Weaponsmith", Category: "Carbine"}, c.Sale("Weapons", "Wookiee Carbine"))

	cfg.Classify.RulesFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = cfg.Classifier()
	assert.Error(t, err)
}
