package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Tx is the unit of work for one artifact. Obtain it from Ledger.WithTx.
type Tx struct {
	tx  *sql.Tx
	now func() time.Time
}

// CustomerID returns the id of the customer with exactly this name,
// creating the customer if it does not exist yet.
// Uses ON CONFLICT(name) DO NOTHING so repeated calls are idempotent.
func (t *Tx) CustomerID(ctx context.Context, name string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, fmt.Errorf("customer id: %w", ErrEmptyName)
	}

	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO customers (name) VALUES (?)
		ON CONFLICT(name) DO NOTHING
	`, name); err != nil {
		return 0, fmt.Errorf("customer id: insert: %w", dbError(err))
	}

	var id int64
	if err := t.tx.QueryRowContext(ctx, `SELECT id FROM customers WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("customer id: select: %w", err)
	}
	return id, nil
}

// InsertSale records a sale and applies it to the customer's aggregates.
// The customer is created if absent. Returns the new sale id.
func (t *Tx) InsertSale(ctx context.Context, s Sale) (int64, error) {
	if s.Amount < 0 {
		return 0, fmt.Errorf("insert sale: %w (got %d)", ErrNegativeAmount, s.Amount)
	}

	customerID, err := t.CustomerID(ctx, s.Customer)
	if err != nil {
		return 0, fmt.Errorf("insert sale: %w", err)
	}

	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO sales (sale_date, vendor, item, customer_id, amount, profession, category)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		formatTime(s.SaleDate),
		s.Vendor,
		s.Item,
		customerID,
		s.Amount,
		nullString(s.Profession),
		nullString(s.Category),
	)
	if err != nil {
		return 0, fmt.Errorf("insert sale: %w", dbError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert sale: last insert id: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx, `
		UPDATE customers
		SET total_spent = total_spent + ?, total_purchases = total_purchases + 1
		WHERE id = ?
	`, s.Amount, customerID); err != nil {
		return 0, fmt.Errorf("insert sale: update customer totals: %w", dbError(err))
	}

	return id, nil
}

// InsertPurchase records a purchase. Returns the new purchase id.
func (t *Tx) InsertPurchase(ctx context.Context, p Purchase) (int64, error) {
	if p.Amount < 0 {
		return 0, fmt.Errorf("insert purchase: %w (got %d)", ErrNegativeAmount, p.Amount)
	}

	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO purchases (sale_date, item, vendor, amount, category)
		VALUES (?, ?, ?, ?, ?)
	`,
		formatTime(p.SaleDate),
		p.Item,
		p.Vendor,
		p.Amount,
		nullString(p.Category),
	)
	if err != nil {
		return 0, fmt.Errorf("insert purchase: %w", dbError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert purchase: last insert id: %w", err)
	}
	return id, nil
}

// UpsertIngest links an artifact path to its terminal row.
// The record is updated in place when the path is already known, otherwise
// inserted. The link is validated before anything is written.
func (t *Tx) UpsertIngest(ctx context.Context, r IngestRecord) (int64, error) {
	if err := r.validateLink(); err != nil {
		return 0, fmt.Errorf("upsert ingest: %w", err)
	}
	if r.FilePath == "" {
		return 0, fmt.Errorf("upsert ingest: file path is required")
	}

	insertedAt := formatTime(t.now())

	result, err := t.tx.ExecContext(ctx, `
		UPDATE mail_ingests
		SET mail_id     = COALESCE(?, mail_id),
		    file_mtime  = ?,
		    sale_id     = ?,
		    purchase_id = ?,
		    run_id      = COALESCE(?, run_id),
		    inserted_at = ?
		WHERE file_path = ?
	`,
		nullString(r.MailID),
		r.FileMTime,
		nullInt64(r.SaleID),
		nullInt64(r.PurchaseID),
		nullString(r.RunID),
		insertedAt,
		r.FilePath,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert ingest: update: %w", dbError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("upsert ingest: rows affected: %w", err)
	}

	if rowsAffected > 0 {
		var id int64
		if err := t.tx.QueryRowContext(ctx, `
			SELECT id FROM mail_ingests WHERE file_path = ?
		`, r.FilePath).Scan(&id); err != nil {
			return 0, fmt.Errorf("upsert ingest: select existing: %w", err)
		}
		return id, nil
	}

	result, err = t.tx.ExecContext(ctx, `
		INSERT INTO mail_ingests (mail_id, file_path, file_mtime, inserted_at, sale_id, purchase_id, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		nullString(r.MailID),
		r.FilePath,
		r.FileMTime,
		insertedAt,
		nullInt64(r.SaleID),
		nullInt64(r.PurchaseID),
		nullString(r.RunID),
	)
	if err != nil {
		return 0, fmt.Errorf("upsert ingest: insert: %w", dbError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("upsert ingest: last insert id: %w", err)
	}
	return id, nil
}

// Purge removes an ingest record and its terminal row so the artifact can be
// reparsed. A purged sale's amount and count are taken back out of the
// customer's aggregates before the row is deleted.
func (t *Tx) Purge(ctx context.Context, recordID int64) error {
	var saleID, purchaseID sql.NullInt64
	err := t.tx.QueryRowContext(ctx, `
		SELECT sale_id, purchase_id FROM mail_ingests WHERE id = ?
	`, recordID).Scan(&saleID, &purchaseID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("purge ingest %d: %w", recordID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("purge ingest %d: %w", recordID, err)
	}

	if saleID.Valid {
		if err := t.deleteSale(ctx, saleID.Int64); err != nil {
			return fmt.Errorf("purge ingest %d: %w", recordID, err)
		}
	}

	if purchaseID.Valid {
		if _, err := t.tx.ExecContext(ctx, `DELETE FROM purchases WHERE id = ?`, purchaseID.Int64); err != nil {
			return fmt.Errorf("purge ingest %d: delete purchase: %w", recordID, dbError(err))
		}
	}

	// Usually already gone through ON DELETE CASCADE.
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM mail_ingests WHERE id = ?`, recordID); err != nil {
		return fmt.Errorf("purge ingest %d: delete record: %w", recordID, dbError(err))
	}

	return nil
}

func (t *Tx) deleteSale(ctx context.Context, saleID int64) error {
	var customerID, amount int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT customer_id, amount FROM sales WHERE id = ?
	`, saleID).Scan(&customerID, &amount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("select sale %d: %w", saleID, err)
	}

	// MAX(..., 0) keeps databases that were double counted by older tools
	// inside the CHECK constraints.
	if _, err := t.tx.ExecContext(ctx, `
		UPDATE customers
		SET total_spent     = MAX(total_spent - ?, 0),
		    total_purchases = MAX(total_purchases - 1, 0)
		WHERE id = ?
	`, amount, customerID); err != nil {
		return fmt.Errorf("reverse customer totals: %w", dbError(err))
	}

	if _, err := t.tx.ExecContext(ctx, `DELETE FROM sales WHERE id = ?`, saleID); err != nil {
		return fmt.Errorf("delete sale %d: %w", saleID, dbError(err))
	}
	return nil
}

// FindIngest looks up the ingest record for an artifact inside the transaction.
// See Ledger.FindIngest for the matching rules.
func (t *Tx) FindIngest(ctx context.Context, mailID, path string) (IngestRecord, bool, error) {
	return findIngest(ctx, t.tx, mailID, path)
}

// StartRun records the beginning of an ingestion run.
func (l *Ledger) StartRun(ctx context.Context, id, target string) (Run, error) {
	run := Run{ID: id, Target: target, StartedAt: l.Now()}
	if _, err := l.db.ExecContext(ctx, `
		INSERT INTO ingest_runs (id, target, started_at) VALUES (?, ?, ?)
	`, run.ID, run.Target, formatTime(run.StartedAt)); err != nil {
		return Run{}, fmt.Errorf("start run: %w", dbError(err))
	}
	return run, nil
}

// FinishRun stores the final tally of a run and stamps finished_at.
func (l *Ledger) FinishRun(ctx context.Context, run Run) error {
	result, err := l.db.ExecContext(ctx, `
		UPDATE ingest_runs
		SET finished_at = ?, located = ?, inserted = ?, skipped = ?, failed = ?, reparsed = ?
		WHERE id = ?
	`,
		formatTime(l.Now()),
		run.Located,
		run.Inserted,
		run.Skipped,
		run.Failed,
		run.Reparsed,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", dbError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}
