package csvimport

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/roach88/swgmerchant/internal/classify"
	"github.com/roach88/swgmerchant/internal/ledger"
)

func openLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

const sample = "\ufeffDate,Vendor,Customer,Item,Price,Profession,Category\n" +
	`02/13/23,Grind Kits,hara,Grind Kit: Droid Engineer,"150,000",Artisan,Grind Kit` + "\n" +
	`02/14/23,Weapons,zeta,Wookiee Carbine,2500,,` + "\n" +
	`13/45/23,Weapons,zeta,Bad Date,100,,` + "\n" +
	`02/15/23,Weapons,zeta,Bad Price,lots,,` + "\n" +
	`02/16/23,Weapons,zeta,Refund,-5,,` + "\n"

func TestImport(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()
	cl, err := classify.Default()
	require.NoError(t, err)

	res, err := Import(ctx, l, strings.NewReader(sample), Options{Logger: zaptest.NewLogger(t), Classifier: cl})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	require.Len(t, res.Skipped, 3)
	assert.Equal(t, []int{4, 5, 6}, []int{res.Skipped[0].Line, res.Skipped[1].Line, res.Skipped[2].Line})
	assert.ErrorIs(t, res.Skipped[2], ledger.ErrNegativeAmount)

	hara, err := l.SalesForCustomer(ctx, "hara")
	require.NoError(t, err)
	require.Len(t, hara, 1)
	assert.Equal(t, int64(150000), hara[0].Amount)
	assert.Equal(t, "2023-02-13 00:00:00", hara[0].SaleDate.Format(ledger.DateLayout))
	assert.Equal(t, "Artisan", hara[0].Profession)
	assert.Equal(t, "Grind Kit", hara[0].Category)

	zeta, err := l.SalesForCustomer(ctx, "zeta")
	require.NoError(t, err)
	require.Len(t, zeta, 1)
	assert.Equal(t, "Weaponsmith", zeta[0].Profession, "blank cells filled by classifier")
	assert.Equal(t, "Carbine", zeta[0].Category)

	c, err := l.Customer(ctx, "zeta")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), c.TotalSpent)
}

func TestImport_WithoutClassifierKeepsBlanks(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	res, err := Import(ctx, l, strings.NewReader("Date,Vendor,Customer,Item,Price\n01/05/24,Weapons,zeta,Wookiee Carbine,10\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)

	sales, err := l.SalesForCustomer(ctx, "zeta")
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.True(t, sales[0].Incomplete())
}

func TestImport_MissingColumn(t *testing.T) {
	l := openLedger(t)

	_, err := Import(context.Background(), l, strings.NewReader("Date,Vendor,Item,Price\n"), Options{})
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.ErrorContains(t, err, "Customer")
}

func TestImport_Empty(t *testing.T) {
	l := openLedger(t)

	res, err := Import(context.Background(), l, strings.NewReader(""), Options{})
	require.NoError(t, err)
	assert.Zero(t, res.Imported)
}

func TestImport_Cancelled(t *testing.T) {
	l := openLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Import(ctx, l, strings.NewReader(sample), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "150,000", want: 150000},
		{in: `"1,250.75"`, want: 1250},
		{in: " 42 ", want: 42},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1e30", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParsePrice(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
