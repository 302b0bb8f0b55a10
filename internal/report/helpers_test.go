package report

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/swgmerchant/internal/ledger"
)

var fixedNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func day(s string) time.Time {
	t, err := time.Parse(ledger.DateLayout, s+" 12:00:00")
	if err != nil {
		panic(err)
	}
	return t
}

func createTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "report.db"),
		ledger.WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

// seedLedger stores four sales and two purchases spread over Jan-Mar 2025.
func seedLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l := createTestLedger(t)
	ctx := context.Background()

	sales := []ledger.Sale{
		{SaleDate: day("2025-01-10"), Vendor: "Weapons", Item: "Carbine", Customer: "Wookiee", Amount: 100, Profession: "Weaponsmith", Category: "Carbine"},
		{SaleDate: day("2025-02-05"), Vendor: "Weapons", Item: "Rifle", Customer: "Han", Amount: 300, Profession: "Weaponsmith", Category: "Rifle"},
		{SaleDate: day("2025-02-20"), Vendor: "Chef", Item: "Pie", Customer: "Wookiee", Amount: 50, Profession: "Chef", Category: "Chef"},
		{SaleDate: day("2025-03-01"), Vendor: "Weapons", Item: "Carbine", Customer: "Leia", Amount: 120, Profession: "Weaponsmith", Category: "Carbine"},
	}
	purchases := []ledger.Purchase{
		{SaleDate: day("2025-02-10"), Item: "Blood", Vendor: "V1", Amount: 30, Category: "Blood"},
		{SaleDate: day("2025-03-02"), Item: "Carbine Parts", Vendor: "V2", Amount: 20, Category: "Carbine"},
	}

	for i, s := range sales {
		err := l.WithTx(ctx, func(tx *ledger.Tx) error {
			id, err := tx.InsertSale(ctx, s)
			if err != nil {
				return err
			}
			_, err = tx.UpsertIngest(ctx, ledger.IngestRecord{FilePath: fmt.Sprintf("/m/s%d.mail", i), FileMTime: 1, SaleID: id})
			return err
		})
		require.NoError(t, err)
	}
	for i, p := range purchases {
		err := l.WithTx(ctx, func(tx *ledger.Tx) error {
			id, err := tx.InsertPurchase(ctx, p)
			if err != nil {
				return err
			}
			_, err = tx.UpsertIngest(ctx, ledger.IngestRecord{FilePath: fmt.Sprintf("/m/p%d.mail", i), FileMTime: 1, PurchaseID: id})
			return err
		})
		require.NoError(t, err)
	}
	return l
}
