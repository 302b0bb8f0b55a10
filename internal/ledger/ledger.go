package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Baseline tables from schema.sql (also databases written by earlier tools)
// 1 - Added ingest_runs and mail_ingests.run_id
const currentSchemaVersion = 1

// Supported database/sql driver names.
const (
	DriverCGO  = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPure = "sqlite"  // modernc.org/sqlite
)

// DateLayout is the storage format of sale_date and inserted_at (always UTC).
const DateLayout = "2006-01-02 15:04:05"

// Ledger is the relational store of customers, sales, purchases and
// ingest records. It owns the database exclusively for the duration of a run.
type Ledger struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// Option configures Open.
type Option func(*Ledger)

// WithDriver selects the database/sql driver (DriverCGO or DriverPure).
func WithDriver(name string) Option {
	return func(l *Ledger) {
		if name != "" {
			l.driver = name
		}
	}
}

// WithClock overrides the wall clock used for inserted_at and run timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// Open creates or opens a SQLite ledger at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement (cascades from mail_ingests depend on it)
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Ledger, error) {
	l := &Ledger{driver: DriverCGO, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	if l.driver != DriverCGO && l.driver != DriverPure {
		return nil, fmt.Errorf("unsupported driver %q", l.driver)
	}

	db, err := sql.Open(l.driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection: pragmas are per-connection and ingestion is single-writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	l.db = db
	return l, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Ledger methods when available.
func (l *Ledger) DB() *sql.DB {
	return l.db
}

// Driver reports the database/sql driver in use.
func (l *Ledger) Driver() string {
	return l.driver
}

// Now returns the ledger clock's current time in UTC.
func (l *Ledger) Now() time.Time {
	return l.now().UTC()
}

// WithTx runs fn inside a single transaction. The transaction is committed
// when fn returns nil and rolled back otherwise, so a failed artifact never
// leaves a terminal row without its ingest record (or the reverse).
func (l *Ledger) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback() // No-op if committed

	if err := fn(&Tx{tx: sqlTx, now: l.Now}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", dbError(err))
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds run bookkeeping. Databases written by earlier tools have
// the v1 tables but no ingest_runs and no run_id column.
func migrateToV1(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ingest_runs (
			id          TEXT    PRIMARY KEY,
			target      TEXT    NOT NULL,
			started_at  TEXT    NOT NULL,
			finished_at TEXT,
			located     INTEGER NOT NULL DEFAULT 0,
			inserted    INTEGER NOT NULL DEFAULT 0,
			skipped     INTEGER NOT NULL DEFAULT 0,
			failed      INTEGER NOT NULL DEFAULT 0,
			reparsed    INTEGER NOT NULL DEFAULT 0
		)
	`); err != nil {
		return fmt.Errorf("migrate to v1: create ingest_runs: %w", err)
	}

	has, err := hasColumn(db, "mail_ingests", "run_id")
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	if !has {
		if _, err := db.Exec(`
			ALTER TABLE mail_ingests
			ADD COLUMN run_id TEXT REFERENCES ingest_runs(id) ON DELETE SET NULL
		`); err != nil {
			return fmt.Errorf("migrate to v1: add run_id: %w", err)
		}
	}
	return nil
}

func hasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, fmt.Errorf("scan table info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (l *Ledger) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := l.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
