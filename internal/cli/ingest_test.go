package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/swgmerchant/internal/testutil"
)

const ts = 1700000000

func writeInbox(t *testing.T, dir string) string {
	t.Helper()
	inbox := filepath.Join(dir, "Inbox")
	testutil.WriteMail(t, inbox, "778001.mail", testutil.SaleMail("778001", ts, "Weapons", "Wookiee Carbine", "zeta", 25000))
	testutil.WriteMail(t, inbox, "778002.mail", testutil.PurchaseMail("778002", ts+60, "Blood", "Bio Shop", 300))
	testutil.WriteMail(t, inbox, "broken.mail", "too\nshort\n")
	return inbox
}

func TestIngestCommand_Text(t *testing.T) {
	env := newTestEnv(t)
	inbox := writeInbox(t, env.dir)

	out, _, err := env.run(t, "ingest", inbox)
	require.Error(t, err, "one mail is malformed")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✔ Ingested sale from 778001.mail")
	assert.Contains(t, out, "✔ Ingested purchase from 778002.mail")
	assert.Contains(t, out, "✖ Failed to ingest from broken.mail: malformed")
	assert.Contains(t, out, "[DONE] Inserted: 2, Skipped: 0, Failed: 1")
}

func TestIngestCommand_SecondRunSkips(t *testing.T) {
	env := newTestEnv(t)
	inbox := filepath.Join(env.dir, "Inbox")
	testutil.WriteMail(t, inbox, "778001.mail", testutil.SaleMail("778001", ts, "Weapons", "Wookiee Carbine", "zeta", 25000))

	_, _, err := env.run(t, "ingest", inbox)
	require.NoError(t, err)

	out, _, err := env.run(t, "ingest", inbox)
	require.NoError(t, err)
	assert.Contains(t, out, "[DONE] Inserted: 0, Skipped: 1, Failed: 0")
	assert.NotContains(t, out, "Skipped 778001.mail", "skips are listed only with --verbose")

	out, _, err = env.run(t, "ingest", "-v", inbox)
	require.NoError(t, err)
	assert.Contains(t, out, "- Skipped 778001.mail (already recorded)")
}

func TestIngestCommand_JSON(t *testing.T) {
	env := newTestEnv(t)
	inbox := writeInbox(t, env.dir)

	out, _, err := env.run(t, "--format", "json", "ingest", inbox)
	require.Error(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   IngestOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data.Located)
	assert.Equal(t, 2, resp.Data.Inserted)
	assert.Equal(t, 1, resp.Data.Failed)
	assert.NotEmpty(t, resp.Data.RunID)

	require.Len(t, resp.Data.Results, 3)
	// Locator order is lexical.
	assert.Equal(t, "sale", resp.Data.Results[0].Kind)
	assert.Equal(t, "new", resp.Data.Results[0].State)
	assert.Equal(t, "778001", resp.Data.Results[0].MailID)
	assert.Equal(t, "failed", resp.Data.Results[2].Outcome)
	assert.Equal(t, "malformed", resp.Data.Results[2].Failure)
	assert.NotEmpty(t, resp.Data.Results[2].Error)
}

func TestIngestCommand_FlatAndExtension(t *testing.T) {
	env := newTestEnv(t)
	inbox := filepath.Join(env.dir, "Inbox")
	testutil.WriteMail(t, inbox, "top.txt", testutil.SaleMail("1", ts, "Weapons", "Wookiee Carbine", "zeta", 100))
	testutil.WriteMail(t, inbox, "nested/deep.txt", testutil.SaleMail("2", ts, "Weapons", "Wookiee Carbine", "zeta", 100))
	testutil.WriteMail(t, inbox, "ignored.mail", testutil.SaleMail("3", ts, "Weapons", "Wookiee Carbine", "zeta", 100))

	out, _, err := env.run(t, "ingest", "--flat", "--ext", ".txt", inbox)
	require.NoError(t, err)
	assert.Contains(t, out, "[DONE] Inserted: 1, Skipped: 0, Failed: 0")
}

func TestIngestCommand_MissingTarget(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(t, "ingest", filepath.Join(env.dir, "nope"))
	require.NoError(t, err)
	assert.Contains(t, out, "No mail files found at:")
	assert.Contains(t, out, "[DONE] Inserted: 0, Skipped: 0, Failed: 0")
}

func TestIngestCommand_RequiresPath(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run(t, "ingest")
	assert.Error(t, err)
}

func TestIngestCommand_BadDatabase(t *testing.T) {
	env := newTestEnv(t)
	env.db = env.dir // a directory is not a database

	_, _, err := env.run(t, "ingest", env.dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
