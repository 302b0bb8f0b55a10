package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Customer is a buyer identified by display name.
type Customer struct {
	ID             int64
	Name           string
	TotalSpent     int64
	TotalPurchases int64
}

// Sale is a transaction where one of the operator's vendors sold an item.
// Empty Profession or Category means the classifier could not resolve it.
type Sale struct {
	ID         int64
	SaleDate   time.Time
	Vendor     string
	Item       string
	Customer   string
	CustomerID int64
	Amount     int64
	Profession string
	Category   string
}

// Incomplete reports whether a classification field is unresolved.
func (s Sale) Incomplete() bool {
	return s.Profession == "" || s.Category == ""
}

// Purchase is a transaction where the operator bought an item from a vendor.
type Purchase struct {
	ID       int64
	SaleDate time.Time
	Item     string
	Vendor   string
	Amount   int64
	Category string
}

// Incomplete reports whether the category is unresolved.
func (p Purchase) Incomplete() bool {
	return p.Category == ""
}

// IngestRecord links one source artifact to exactly one terminal row.
// SaleID and PurchaseID use 0 for "no link"; exactly one must be set.
type IngestRecord struct {
	ID         int64
	MailID     string
	FilePath   string
	FileMTime  int64
	InsertedAt time.Time
	SaleID     int64
	PurchaseID int64
	RunID      string

	// Incomplete is computed on read: the linked row has an unresolved
	// profession (sales only) or category.
	Incomplete bool
}

// validateLink enforces the exclusive sale/purchase reference.
func (r IngestRecord) validateLink() error {
	if (r.SaleID > 0) == (r.PurchaseID > 0) {
		return fmt.Errorf("%w (sale_id=%d, purchase_id=%d)", ErrInvalidLink, r.SaleID, r.PurchaseID)
	}
	return nil
}

// Run is one ingestion pass over a target path.
type Run struct {
	ID         string
	Target     string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is in progress
	Located    int
	Inserted   int
	Skipped    int
	Failed     int
	Reparsed   int
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func formatTime(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v > 0}
}
