package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const ingestColumns = `
	mi.id, mi.mail_id, mi.file_path, mi.file_mtime, mi.inserted_at,
	mi.sale_id, mi.purchase_id, mi.run_id,
	CASE
		WHEN mi.sale_id IS NOT NULL THEN (s.profession IS NULL OR s.category IS NULL)
		ELSE (p.category IS NULL)
	END AS incomplete
`

const ingestJoins = `
	FROM mail_ingests mi
	LEFT JOIN sales s ON s.id = mi.sale_id
	LEFT JOIN purchases p ON p.id = mi.purchase_id
`

// FindIngest looks up the ingest record for an artifact.
//
// The natural mail id takes precedence: when mailID is non-empty and some
// record carries it, that record is returned even if its path differs. Otherwise
// the record stored under path (the uniqueness key) is returned.
// found is false when neither matches.
func (l *Ledger) FindIngest(ctx context.Context, mailID, path string) (IngestRecord, bool, error) {
	return findIngest(ctx, l.db, mailID, path)
}

func findIngest(ctx context.Context, q queryer, mailID, path string) (IngestRecord, bool, error) {
	if mailID != "" {
		rec, err := scanIngestRow(q.QueryRowContext(ctx,
			`SELECT `+ingestColumns+ingestJoins+` WHERE mi.mail_id = ? LIMIT 1`, mailID))
		if err == nil {
			return rec, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return IngestRecord{}, false, fmt.Errorf("find ingest by mail id: %w", err)
		}
	}

	rec, err := scanIngestRow(q.QueryRowContext(ctx,
		`SELECT `+ingestColumns+ingestJoins+` WHERE mi.file_path = ? LIMIT 1`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return IngestRecord{}, false, nil
	}
	if err != nil {
		return IngestRecord{}, false, fmt.Errorf("find ingest by path: %w", err)
	}
	return rec, true, nil
}

// IsProcessed reports whether an ingest record exists for the mail id
// (when present) or the path.
func (l *Ledger) IsProcessed(ctx context.Context, mailID, path string) (bool, error) {
	_, found, err := l.FindIngest(ctx, mailID, path)
	return found, err
}

// IsIncomplete reports whether the terminal row of the artifact's ingest
// record has an unresolved classification. The record is matched the same
// way as FindIngest. Unknown artifacts are not incomplete.
func (l *Ledger) IsIncomplete(ctx context.Context, mailID, path string) (bool, error) {
	rec, found, err := findIngest(ctx, l.db, mailID, path)
	if err != nil || !found {
		return false, err
	}
	return rec.Incomplete, nil
}

// IngestRecords returns every ingest record ordered by file path.
func (l *Ledger) IngestRecords(ctx context.Context) ([]IngestRecord, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT `+ingestColumns+ingestJoins+` ORDER BY mi.file_path ASC`)
	if err != nil {
		return nil, fmt.Errorf("query ingest records: %w", err)
	}
	defer rows.Close()

	records := []IngestRecord{}
	for rows.Next() {
		rec, err := scanIngest(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingest records: %w", err)
	}
	return records, nil
}

// Customer retrieves a customer by exact name.
// Returns ErrNotFound if the customer does not exist.
func (l *Ledger) Customer(ctx context.Context, name string) (Customer, error) {
	var c Customer
	err := l.db.QueryRowContext(ctx, `
		SELECT id, name, total_spent, total_purchases FROM customers WHERE name = ?
	`, name).Scan(&c.ID, &c.Name, &c.TotalSpent, &c.TotalPurchases)
	if errors.Is(err, sql.ErrNoRows) {
		return Customer{}, fmt.Errorf("customer %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Customer{}, fmt.Errorf("customer %q: %w", name, err)
	}
	return c, nil
}

// Sale retrieves a sale by id. Returns ErrNotFound if missing.
func (l *Ledger) Sale(ctx context.Context, id int64) (Sale, error) {
	rows, err := l.db.QueryContext(ctx, saleSelect+` WHERE s.id = ?`, id)
	if err != nil {
		return Sale{}, fmt.Errorf("sale %d: %w", id, err)
	}
	sales, err := collectSales(rows)
	if err != nil {
		return Sale{}, fmt.Errorf("sale %d: %w", id, err)
	}
	if len(sales) == 0 {
		return Sale{}, fmt.Errorf("sale %d: %w", id, ErrNotFound)
	}
	return sales[0], nil
}

// SalesForCustomer returns a customer's sales ordered by date then id.
func (l *Ledger) SalesForCustomer(ctx context.Context, name string) ([]Sale, error) {
	rows, err := l.db.QueryContext(ctx, saleSelect+` WHERE c.name = ? ORDER BY s.sale_date ASC, s.id ASC`, name)
	if err != nil {
		return nil, fmt.Errorf("sales for %q: %w", name, err)
	}
	return collectSales(rows)
}

// Purchase retrieves a purchase by id. Returns ErrNotFound if missing.
func (l *Ledger) Purchase(ctx context.Context, id int64) (Purchase, error) {
	var (
		p        Purchase
		saleDate string
		category sql.NullString
	)
	err := l.db.QueryRowContext(ctx, `
		SELECT id, sale_date, item, vendor, amount, category FROM purchases WHERE id = ?
	`, id).Scan(&p.ID, &saleDate, &p.Item, &p.Vendor, &p.Amount, &category)
	if errors.Is(err, sql.ErrNoRows) {
		return Purchase{}, fmt.Errorf("purchase %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Purchase{}, fmt.Errorf("purchase %d: %w", id, err)
	}
	if p.SaleDate, err = parseTime(saleDate); err != nil {
		return Purchase{}, fmt.Errorf("purchase %d: %w", id, err)
	}
	p.Category = category.String
	return p, nil
}

// Runs returns the most recent ingestion runs, newest first.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, target, started_at, finished_at, located, inserted, skipped, failed, reparsed
		FROM ingest_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r          Run
			startedAt  string
			finishedAt sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Target, &startedAt, &finishedAt,
			&r.Located, &r.Inserted, &r.Skipped, &r.Failed, &r.Reparsed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if finishedAt.Valid {
			if r.FinishedAt, err = parseTime(finishedAt.String); err != nil {
				return nil, err
			}
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Counts returns the number of rows in each ledger table, keyed by table name.
func (l *Ledger) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, table := range []string{"customers", "sales", "purchases", "mail_ingests", "ingest_runs"} {
		var n int
		if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

const saleSelect = `
	SELECT s.id, s.sale_date, s.vendor, s.item, c.name, s.customer_id, s.amount, s.profession, s.category
	FROM sales s
	JOIN customers c ON c.id = s.customer_id
`

func collectSales(rows *sql.Rows) ([]Sale, error) {
	defer rows.Close()

	sales := []Sale{}
	for rows.Next() {
		var (
			s          Sale
			saleDate   string
			profession sql.NullString
			category   sql.NullString
		)
		if err := rows.Scan(&s.ID, &saleDate, &s.Vendor, &s.Item, &s.Customer,
			&s.CustomerID, &s.Amount, &profession, &category); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		var err error
		if s.SaleDate, err = parseTime(saleDate); err != nil {
			return nil, err
		}
		s.Profession = profession.String
		s.Category = category.String
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}
	return sales, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanIngestRow scans a single-row result, passing sql.ErrNoRows through.
func scanIngestRow(row *sql.Row) (IngestRecord, error) {
	return scanIngestFrom(row)
}

func scanIngest(rows *sql.Rows) (IngestRecord, error) {
	rec, err := scanIngestFrom(rows)
	if err != nil {
		return IngestRecord{}, fmt.Errorf("scan ingest record: %w", err)
	}
	return rec, nil
}

func scanIngestFrom(s rowScanner) (IngestRecord, error) {
	var (
		rec        IngestRecord
		mailID     sql.NullString
		insertedAt string
		saleID     sql.NullInt64
		purchaseID sql.NullInt64
		runID      sql.NullString
		incomplete sql.NullBool
	)
	if err := s.Scan(&rec.ID, &mailID, &rec.FilePath, &rec.FileMTime, &insertedAt,
		&saleID, &purchaseID, &runID, &incomplete); err != nil {
		return IngestRecord{}, err
	}

	var err error
	if rec.InsertedAt, err = parseTime(insertedAt); err != nil {
		return IngestRecord{}, err
	}
	rec.MailID = mailID.String
	rec.SaleID = saleID.Int64
	rec.PurchaseID = purchaseID.Int64
	rec.RunID = runID.String
	rec.Incomplete = incomplete.Bool
	return rec, nil
}
