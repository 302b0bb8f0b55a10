package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/swgmerchant/internal/ledger"
)

func keys(groups []ledger.Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Key
	}
	return out
}

func TestRecommend_Defaults(t *testing.T) {
	l := seedLedger(t)

	r, err := Recommend(context.Background(), l, RecommendOptions{Now: fixedNow})
	require.NoError(t, err)

	assert.Equal(t, DefaultDays, r.Days)
	assert.Equal(t, DefaultMinSales, r.MinSales)
	assert.Empty(t, r.Restock, "no item sold twice in the last 30 days")
	assert.Equal(t, []string{"Carbine", "Chef"}, keys(r.Hot))

	require.Len(t, r.Trending, 3)
	assert.Equal(t, ledger.Trend{Category: "Chef", LastMonth: 1, PrevMonth: 0}, r.Trending[0])
	assert.Equal(t, ledger.Trend{Category: "Rifle", LastMonth: 1, PrevMonth: 0}, r.Trending[1])
	assert.Equal(t, ledger.Trend{Category: "Carbine", LastMonth: 0, PrevMonth: 1}, r.Trending[2])
}

func TestRecommend_MinSalesOne(t *testing.T) {
	l := seedLedger(t)

	r, err := Recommend(context.Background(), l, RecommendOptions{Now: fixedNow, MinSales: 1})
	require.NoError(t, err)

	assert.Equal(t, []string{"Carbine", "Pie"}, keys(r.Restock))
	assert.Equal(t, "2025-03-01 12:00:00", r.Restock[0].Last)
}

func TestRecommend_Filter(t *testing.T) {
	l := seedLedger(t)

	r, err := Recommend(context.Background(), l, RecommendOptions{
		Now:      fixedNow,
		MinSales: 1,
		Filter:   ledger.Filter{Professions: []string{"Chef"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Pie"}, keys(r.Restock))
	assert.Equal(t, []string{"Chef"}, keys(r.Hot))
	assert.Equal(t, []ledger.Trend{{Category: "Chef", LastMonth: 1}}, r.Trending)

	md := r.Markdown()
	assert.Contains(t, md, "## Top items to restock (last 30 days, min 1 sales) (professions=Chef)")
	assert.Contains(t, md, "| Pie ")
}

func TestRecommendations_MarkdownEmpty(t *testing.T) {
	l := createTestLedger(t)

	r, err := Recommend(context.Background(), l, RecommendOptions{Now: fixedNow})
	require.NoError(t, err)

	md := r.Markdown()
	assert.Contains(t, md, "(No qualifying items yet)")
	assert.Contains(t, md, "(No category data yet)")
	assert.Contains(t, md, "(Not enough history yet)")
}

func TestFilterLabel(t *testing.T) {
	assert.Equal(t, "", filterLabel(ledger.Filter{}))
	assert.Equal(t, " (categories=Rifle)", filterLabel(ledger.Filter{Categories: []string{"Rifle"}}))
	assert.Equal(t, " (professions=Chef,Tailor; categories=Rifle)",
		filterLabel(ledger.Filter{Professions: []string{"Chef", "Tailor"}, Categories: []string{"Rifle"}}))
}
