package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

// createTestLedger opens a fresh ledger in a temp dir with a fixed clock.
func createTestLedger(t *testing.T, opts ...Option) *Ledger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	l, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s+" 12:00:00")
	if err != nil {
		panic(err)
	}
	return t
}

// addSale inserts a sale plus its ingest record and returns the record id.
func addSale(t *testing.T, l *Ledger, path string, s Sale) int64 {
	t.Helper()
	var recID int64
	err := l.WithTx(context.Background(), func(tx *Tx) error {
		id, err := tx.InsertSale(context.Background(), s)
		if err != nil {
			return err
		}
		recID, err = tx.UpsertIngest(context.Background(), IngestRecord{
			MailID:    "mail:" + path,
			FilePath:  path,
			FileMTime: 1,
			SaleID:    id,
		})
		return err
	})
	require.NoError(t, err)
	return recID
}

// addPurchase inserts a purchase plus its ingest record and returns the record id.
func addPurchase(t *testing.T, l *Ledger, path string, p Purchase) int64 {
	t.Helper()
	var recID int64
	err := l.WithTx(context.Background(), func(tx *Tx) error {
		id, err := tx.InsertPurchase(context.Background(), p)
		if err != nil {
			return err
		}
		recID, err = tx.UpsertIngest(context.Background(), IngestRecord{
			MailID:     "mail:" + path,
			FilePath:   path,
			FileMTime:  1,
			PurchaseID: id,
		})
		return err
	})
	require.NoError(t, err)
	return recID
}
