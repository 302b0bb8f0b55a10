package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

// testEnv is a scratch directory holding the database and a config path
// that does not exist, so commands run on defaults.
type testEnv struct {
	dir string
	db  string
	cfg string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	for _, key := range []string{"SWGMERCHANT_DB", "SWGMERCHANT_DRIVER", "SWGMERCHANT_RULES", "SWGMERCHANT_LOG_LEVEL", "SWGMERCHANT_CACHE_SIZE"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	return testEnv{
		dir: dir,
		db:  filepath.Join(dir, "merchant.db"),
		cfg: filepath.Join(dir, "swgmerchant.yaml"),
	}
}

// run executes the CLI with the env's --db and --config and returns stdout
// and stderr.
func (e testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

	cmd := newRootCommand(&RootOptions{Logger: zaptest.NewLogger(t)})
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(append([]string{"--db", e.db, "--config", e.cfg}, args...))

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
