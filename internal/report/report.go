package report

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/roach88/swgmerchant/internal/ledger"
)

// DefaultTopN is the row limit of the "Top N" sections.
const DefaultTopN = 10

// CSV extracts written next to the report when Options.CSVDir is set.
const (
	MonthlySalesCSV     = "monthly_sales.csv"
	MonthlyPurchasesCSV = "monthly_purchases.csv"
	CategoryMarginCSV   = "category_margin.csv"
)

// Options configures Generate.
type Options struct {
	Period Period
	Now    time.Time // stamped in the header; defaults to the ledger clock
	TopN   int
	CSVDir string // empty disables the extracts
}

// Section is one titled table of the report.
type Section struct {
	Title string `json:"title"`
	Table Table  `json:"table"`
}

// Report is the rendered business report.
type Report struct {
	Title    string    `json:"title"`
	Period   Period    `json:"period"`
	Now      time.Time `json:"generated_at"`
	Sections []Section `json:"sections"`

	// raw tables backing the CSV extracts
	monthlySales     Table
	monthlyPurchases Table
	categoryMargin   Table
}

// Generate builds the report for the period. When opts.CSVDir is set the
// monthly trends and category margins are also written there as CSV.
func Generate(ctx context.Context, l *ledger.Ledger, opts Options) (*Report, error) {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.Now.IsZero() {
		opts.Now = l.Now()
	}

	r := &Report{
		Title:  fmt.Sprintf("SWG Merchant - %s Report", opts.Period.Label),
		Period: opts.Period,
		Now:    opts.Now.UTC(),
	}
	w := opts.Period.Window
	top := opts.TopN

	sales, err := l.SalesSummary(ctx, w)
	if err != nil {
		return nil, err
	}
	purchases, err := l.PurchasesSummary(ctx, w)
	if err != nil {
		return nil, err
	}
	r.add("Summary KPIs", Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]any{
			{"Total Revenue", sales.Revenue},
			{"Total Purchases (Spend)", purchases.Spent},
			{"Gross Margin", sales.Revenue - purchases.Spent},
			{"Total Sales", sales.Count},
			{"Avg Sale", sales.AvgSale},
			{"Avg Purchase", purchases.AvgPurchase},
			{"Distinct Items Sold", sales.DistinctItems},
			{"Active Customers", sales.DistinctCustomers},
			{"Vendors Purchased From", purchases.DistinctVendors},
		},
	})

	monthlySales, err := l.MonthlySales(ctx, w)
	if err != nil {
		return nil, err
	}
	r.monthlySales = trendTable(monthlySales, "sales")
	r.add("Monthly Sales Trend", r.monthlySales)

	if err := r.addGroups("Sales by Category", []string{"category", "sales", "credits", "avg_price"},
		func() ([]ledger.Group, error) { return l.SalesBy(ctx, w, ledger.ByCategory, ledger.ByCredits, 0) },
		func(g ledger.Group) []any { return []any{g.Key, g.Count, g.Credits, g.AvgPrice} },
	); err != nil {
		return nil, err
	}
	if err := r.addGroups("Sales by Profession", []string{"profession", "sales", "credits", "avg_price"},
		func() ([]ledger.Group, error) { return l.SalesBy(ctx, w, ledger.ByProfession, ledger.ByCredits, 0) },
		func(g ledger.Group) []any { return []any{g.Key, g.Count, g.Credits, g.AvgPrice} },
	); err != nil {
		return nil, err
	}
	if err := r.addGroups(fmt.Sprintf("Top %d Items (by quantity)", top), []string{"item", "sold", "credits", "last_sold"},
		func() ([]ledger.Group, error) { return l.SalesBy(ctx, w, ledger.ByItem, ledger.ByCount, top) },
		func(g ledger.Group) []any { return []any{g.Key, g.Count, g.Credits, g.Last} },
	); err != nil {
		return nil, err
	}
	if err := r.addGroups(fmt.Sprintf("Top %d Items (by credits)", top), []string{"item", "credits", "sold", "last_sold"},
		func() ([]ledger.Group, error) { return l.SalesBy(ctx, w, ledger.ByItem, ledger.ByCredits, top) },
		func(g ledger.Group) []any { return []any{g.Key, g.Credits, g.Count, g.Last} },
	); err != nil {
		return nil, err
	}
	if err := r.addGroups(fmt.Sprintf("Top %d Vendors (by revenue)", top), []string{"vendor", "credits", "sales"},
		func() ([]ledger.Group, error) { return l.SalesBy(ctx, w, ledger.ByVendor, ledger.ByCredits, top) },
		func(g ledger.Group) []any { return []any{g.Key, g.Credits, g.Count} },
	); err != nil {
		return nil, err
	}

	monthlyPurchases, err := l.MonthlyPurchases(ctx, w)
	if err != nil {
		return nil, err
	}
	r.monthlyPurchases = Table{Headers: []string{"month", "purchases", "credits"}}
	for _, m := range monthlyPurchases {
		r.monthlyPurchases.Rows = append(r.monthlyPurchases.Rows, []any{m.Month, m.Count, m.Credits})
	}
	r.add("Monthly Purchases Trend", r.monthlyPurchases)

	if err := r.addGroups("Purchases by Category", []string{"category", "purchases", "credits", "avg_price"},
		func() ([]ledger.Group, error) { return l.PurchasesBy(ctx, w, ledger.ByCategory, ledger.ByCredits, 0) },
		func(g ledger.Group) []any { return []any{g.Key, g.Count, g.Credits, g.AvgPrice} },
	); err != nil {
		return nil, err
	}
	if err := r.addGroups(fmt.Sprintf("Top %d Purchase Vendors (by spend)", top), []string{"vendor", "credits", "purchases"},
		func() ([]ledger.Group, error) { return l.PurchasesBy(ctx, w, ledger.ByVendor, ledger.ByCredits, top) },
		func(g ledger.Group) []any { return []any{g.Key, g.Credits, g.Count} },
	); err != nil {
		return nil, err
	}

	margins, err := l.CategoryMargin(ctx, w)
	if err != nil {
		return nil, err
	}
	r.categoryMargin = Table{Headers: []string{"category", "sales_credits", "purchase_credits", "margin"}}
	for _, m := range margins {
		r.categoryMargin.Rows = append(r.categoryMargin.Rows, []any{m.Category, m.SalesCredits, m.PurchaseCredits, m.Value()})
	}
	r.add("Category Margin (Sales - Purchases)", r.categoryMargin)

	customers, err := l.CustomerSummary(ctx, w)
	if err != nil {
		return nil, err
	}
	r.add("Customer Summary", Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]any{
			{"Active Customers", customers.Active},
			{"New Customers", customers.New},
			{"Returning Customers (lifetime)", customers.Returning},
			{"Repeat-Purchase Rate", fmt.Sprintf("%.1f%%", customers.RepeatRate())},
			{"Avg Spend per Active Customer", customers.AvgSpend},
		},
	})

	for _, o := range []struct {
		title string
		order ledger.Order
	}{
		{fmt.Sprintf("Top %d Customers (by spend)", top), ledger.ByCredits},
		{fmt.Sprintf("Top %d Customers (by orders)", top), ledger.ByCount},
	} {
		activity, err := l.TopCustomers(ctx, w, o.order, top)
		if err != nil {
			return nil, err
		}
		t := Table{Headers: []string{"customer", "credits", "orders", "first", "last"}}
		for _, a := range activity {
			t.Rows = append(t.Rows, []any{a.Name, a.Credits, a.Orders, a.First, a.Last})
		}
		r.add(o.title, t)
	}

	if opts.CSVDir != "" {
		if err := r.WriteCSV(opts.CSVDir); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Report) add(title string, t Table) {
	r.Sections = append(r.Sections, Section{Title: title, Table: t})
}

func (r *Report) addGroups(
	title string,
	headers []string,
	query func() ([]ledger.Group, error),
	row func(ledger.Group) []any,
) error {
	groups, err := query()
	if err != nil {
		return fmt.Errorf("%s: %w", strings.ToLower(title), err)
	}
	t := Table{Headers: headers}
	for _, g := range groups {
		t.Rows = append(t.Rows, row(g))
	}
	r.add(title, t)
	return nil
}

func trendTable(trends []ledger.MonthlyTrend, noun string) Table {
	t := Table{Headers: []string{"month", noun, "credits", "prev_" + noun, "prev_credits", "mom_" + noun + "_delta", "mom_credits_delta"}}
	for _, m := range trends {
		t.Rows = append(t.Rows, []any{m.Month, m.Count, m.Credits, m.PrevCount, m.PrevCredits, m.CountDelta(), m.CreditsDelta()})
	}
	return t
}

// Markdown renders the whole report.
func (r *Report) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", r.Title)
	fmt.Fprintf(&sb, "_Generated %s UTC_\n\n", r.Now.Format(ledger.DateLayout))
	fmt.Fprintf(&sb, "_Period: %s to %s (UTC)_\n\n", r.Period.Start, r.Period.End)
	for _, s := range r.Sections {
		fmt.Fprintf(&sb, "## %s\n\n", s.Title)
		sb.WriteString(s.Table.Markdown())
		sb.WriteString("\n")
	}
	return sb.String()
}

// WriteCSV writes the monthly trend and category margin extracts to dir.
func (r *Report) WriteCSV(dir string) error {
	for name, t := range map[string]Table{
		MonthlySalesCSV:     r.monthlySales,
		MonthlyPurchasesCSV: r.monthlyPurchases,
		CategoryMarginCSV:   r.categoryMargin,
	} {
		if err := t.WriteCSV(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}
