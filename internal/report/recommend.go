package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/swgmerchant/internal/ledger"
)

// Recommendation defaults.
const (
	DefaultDays     = 30
	DefaultMinSales = 2
	DefaultTop      = 20
)

// RecommendOptions configures Recommend.
type RecommendOptions struct {
	Days     int
	MinSales int
	Top      int
	Filter   ledger.Filter
	Now      time.Time
}

// Recommendations is the restock advice for a lookback window.
type Recommendations struct {
	Days     int            `json:"days"`
	MinSales int            `json:"min_sales"`
	Filter   ledger.Filter  `json:"filter"`
	Restock  []ledger.Group `json:"restock"`
	Hot      []ledger.Group `json:"hot_categories"`
	Trending []ledger.Trend `json:"trending"`
}

// Recommend lists items worth restocking, the busiest categories of the
// lookback window and the month-over-month category movers.
func Recommend(ctx context.Context, l *ledger.Ledger, opts RecommendOptions) (*Recommendations, error) {
	if opts.Days <= 0 {
		opts.Days = DefaultDays
	}
	if opts.MinSales <= 0 {
		opts.MinSales = DefaultMinSales
	}
	if opts.Top <= 0 {
		opts.Top = DefaultTop
	}
	if opts.Now.IsZero() {
		opts.Now = l.Now()
	}
	since := opts.Now.UTC().AddDate(0, 0, -opts.Days)

	restock, err := l.RestockItems(ctx, since, opts.Filter, opts.MinSales, opts.Top)
	if err != nil {
		return nil, err
	}
	hot, err := l.HotCategories(ctx, since, opts.Filter, opts.Top)
	if err != nil {
		return nil, err
	}
	trending, err := l.TrendingCategories(ctx, opts.Now, opts.Filter)
	if err != nil {
		return nil, err
	}

	return &Recommendations{
		Days:     opts.Days,
		MinSales: opts.MinSales,
		Filter:   opts.Filter,
		Restock:  restock,
		Hot:      hot,
		Trending: trending,
	}, nil
}

// filterLabel describes active filters, e.g. " (professions=Chef; categories=Rifle)".
func filterLabel(f ledger.Filter) string {
	var parts []string
	if len(f.Professions) > 0 {
		parts = append(parts, "professions="+strings.Join(f.Professions, ","))
	}
	if len(f.Categories) > 0 {
		parts = append(parts, "categories="+strings.Join(f.Categories, ","))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, "; ") + ")"
}

// Markdown renders the three recommendation sections.
func (r *Recommendations) Markdown() string {
	var sb strings.Builder
	label := filterLabel(r.Filter)

	fmt.Fprintf(&sb, "## Top items to restock (last %d days, min %d sales)%s\n\n", r.Days, r.MinSales, label)
	if len(r.Restock) == 0 {
		sb.WriteString("(No qualifying items yet)\n\n")
	} else {
		t := Table{Headers: []string{"Item", "Sold", "Credits", "Last Sold (UTC)"}}
		for _, g := range r.Restock {
			t.Rows = append(t.Rows, []any{g.Key, g.Count, g.Credits, g.Last})
		}
		sb.WriteString(t.Markdown())
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "## Hottest categories (last %d days)%s\n\n", r.Days, label)
	if len(r.Hot) == 0 {
		sb.WriteString("(No category data yet)\n\n")
	} else {
		t := Table{Headers: []string{"Category", "Sales", "Credits", "Avg Price"}}
		for _, g := range r.Hot {
			t.Rows = append(t.Rows, []any{g.Key, g.Count, g.Credits, g.AvgPrice})
		}
		sb.WriteString(t.Markdown())
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "## Trending categories (last month vs. previous month)%s\n\n", label)
	if len(r.Trending) == 0 {
		sb.WriteString("(Not enough history yet)\n\n")
	} else {
		t := Table{Headers: []string{"Category", "Last Mo", "Prev Mo", "Delta"}}
		for _, tr := range r.Trending {
			t.Rows = append(t.Rows, []any{tr.Category, tr.LastMonth, tr.PrevMonth, tr.Delta()})
		}
		sb.WriteString(t.Markdown())
		sb.WriteString("\n")
	}
	return sb.String()
}
