package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/swgmerchant/internal/ledger"
)

func TestSuggest(t *testing.T) {
	known := []string{"Chef", "Tailor", "Weaponsmith"}

	assert.Equal(t, []string{"Weaponsmith"}, Suggest("Weaponsmth", known))
	assert.Equal(t, []string{"Chef"}, Suggest("chef", known))
	assert.Empty(t, Suggest("zzz", known))
	assert.Empty(t, Suggest("Chef", nil))
}

func TestSuggest_CapsAndOrders(t *testing.T) {
	known := []string{"Rifle", "Rifles", "Riflx", "Riflez", "Pistol"}

	got := Suggest("Rifle", known)
	assert.Equal(t, []string{"Rifle", "Rifles", "Riflez"}, got)
}

func TestCheckFilter(t *testing.T) {
	l := seedLedger(t)

	warnings, err := CheckFilter(context.Background(), l, ledger.Filter{
		Professions: []string{"Weaponsmth", "Chef"},
		Categories:  []string{"Rifle", "Nothing Like It"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		`no sales with profession "Weaponsmth" (did you mean "Weaponsmith"?)`,
		`no sales with category "Nothing Like It"`,
	}, warnings)
}
