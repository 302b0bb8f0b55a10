package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Read-only query surface used by reports and recommendations.
// Every query takes a Window; the zero Window means all history.

// Window restricts queries to rows with sale_date >= Since (date granularity).
type Window struct {
	Since time.Time
}

// All reports whether the window is unbounded.
func (w Window) All() bool {
	return w.Since.IsZero()
}

// where returns a WHERE clause on col and its arguments.
func (w Window) where(col string) (string, []any) {
	if w.All() {
		return "", nil
	}
	return fmt.Sprintf(" WHERE %s >= ? ", col), []any{w.Since.UTC().Format("2006-01-02")}
}

// Dimension is a grouping key for sales and purchases.
type Dimension string

const (
	ByCategory   Dimension = "category"
	ByProfession Dimension = "profession"
	ByVendor     Dimension = "vendor"
	ByItem       Dimension = "item"
	ByCustomer   Dimension = "customer"
)

// Uncategorized and UnknownProfession label NULL classification fields.
const (
	Uncategorized     = "(uncategorized)"
	UnknownProfession = "(unknown)"
)

func (d Dimension) expr() (string, error) {
	switch d {
	case ByCategory:
		return "COALESCE(category, '" + Uncategorized + "')", nil
	case ByProfession:
		return "COALESCE(profession, '" + UnknownProfession + "')", nil
	case ByVendor:
		return "vendor", nil
	case ByItem:
		return "item", nil
	case ByCustomer:
		return "(SELECT name FROM customers WHERE customers.id = customer_id)", nil
	}
	return "", fmt.Errorf("unknown dimension %q", d)
}

// Order selects the ranking of grouped results.
type Order int

const (
	// ByCredits ranks by summed amount, then count.
	ByCredits Order = iota
	// ByCount ranks by number of rows, then summed amount.
	ByCount
)

func (o Order) clause() string {
	if o == ByCount {
		return "ORDER BY cnt DESC, credits DESC, grp ASC"
	}
	return "ORDER BY credits DESC, cnt DESC, grp ASC"
}

// Group is one aggregated bucket.
type Group struct {
	Key      string
	Count    int64
	Credits  int64
	AvgPrice int64
	Last     string
}

// SalesSummary holds headline sales figures for a window.
type SalesSummary struct {
	Revenue           int64
	Count             int64
	AvgSale           int64
	MaxSale           int64
	DistinctItems     int64
	DistinctCustomers int64
}

// PurchasesSummary holds headline purchase figures for a window.
type PurchasesSummary struct {
	Spent           int64
	Count           int64
	AvgPurchase     int64
	DistinctVendors int64
}

// MonthlyTrend is one calendar month of activity. Prev* are the previous
// month's values within the same window (zero when absent).
type MonthlyTrend struct {
	Month       string
	Count       int64
	Credits     int64
	PrevCount   int64
	PrevCredits int64
}

// CountDelta is the month-over-month change in count.
func (m MonthlyTrend) CountDelta() int64 { return m.Count - m.PrevCount }

// CreditsDelta is the month-over-month change in credits.
func (m MonthlyTrend) CreditsDelta() int64 { return m.Credits - m.PrevCredits }

// Margin is sales minus purchases for one category.
type Margin struct {
	Category        string
	SalesCredits    int64
	PurchaseCredits int64
}

// Value is SalesCredits - PurchaseCredits.
func (m Margin) Value() int64 { return m.SalesCredits - m.PurchaseCredits }

// CustomerSummary describes customer behaviour in a window.
// Returning counts active customers with more than one lifetime sale.
type CustomerSummary struct {
	Active    int64
	New       int64
	Returning int64
	AvgSpend  float64
}

// RepeatRate is Returning / Active as a percentage (0 when no one is active).
func (c CustomerSummary) RepeatRate() float64 {
	if c.Active == 0 {
		return 0
	}
	return float64(c.Returning) * 100 / float64(c.Active)
}

// CustomerActivity is a customer's spend within a window.
type CustomerActivity struct {
	Name    string
	Credits int64
	Orders  int64
	First   string
	Last    string
}

// Filter narrows recommendation queries by classification.
type Filter struct {
	Professions []string
	Categories  []string
}

func (f Filter) and() (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	in := func(col string, values []string) {
		if len(values) == 0 {
			return
		}
		sb.WriteString(" AND " + col + " IN (" + strings.TrimSuffix(strings.Repeat("?,", len(values)), ",") + ") ")
		for _, v := range values {
			args = append(args, v)
		}
	}
	in("profession", f.Professions)
	in("category", f.Categories)
	return sb.String(), args
}

// Trend compares a category's sales count in the last two full months.
type Trend struct {
	Category  string
	LastMonth int64
	PrevMonth int64
}

// Delta is LastMonth - PrevMonth.
func (t Trend) Delta() int64 { return t.LastMonth - t.PrevMonth }

// SalesSummary returns headline sales figures.
func (l *Ledger) SalesSummary(ctx context.Context, w Window) (SalesSummary, error) {
	where, args := w.where("sale_date")
	var s SalesSummary
	err := l.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(amount), 0),
			COUNT(id),
			CAST(ROUND(COALESCE(AVG(amount), 0)) AS INTEGER),
			COALESCE(MAX(amount), 0),
			COUNT(DISTINCT item),
			COUNT(DISTINCT customer_id)
		FROM sales`+where, args...).Scan(
		&s.Revenue, &s.Count, &s.AvgSale, &s.MaxSale, &s.DistinctItems, &s.DistinctCustomers)
	if err != nil {
		return SalesSummary{}, fmt.Errorf("sales summary: %w", err)
	}
	return s, nil
}

// PurchasesSummary returns headline purchase figures.
func (l *Ledger) PurchasesSummary(ctx context.Context, w Window) (PurchasesSummary, error) {
	where, args := w.where("sale_date")
	var p PurchasesSummary
	err := l.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(amount), 0),
			COUNT(id),
			CAST(ROUND(COALESCE(AVG(amount), 0)) AS INTEGER),
			COUNT(DISTINCT vendor)
		FROM purchases`+where, args...).Scan(
		&p.Spent, &p.Count, &p.AvgPurchase, &p.DistinctVendors)
	if err != nil {
		return PurchasesSummary{}, fmt.Errorf("purchases summary: %w", err)
	}
	return p, nil
}

// MonthlySales returns per-month sales with month-over-month comparison.
func (l *Ledger) MonthlySales(ctx context.Context, w Window) ([]MonthlyTrend, error) {
	return l.monthly(ctx, "sales", w)
}

// MonthlyPurchases returns per-month purchases with month-over-month comparison.
func (l *Ledger) MonthlyPurchases(ctx context.Context, w Window) ([]MonthlyTrend, error) {
	return l.monthly(ctx, "purchases", w)
}

func (l *Ledger) monthly(ctx context.Context, table string, w Window) ([]MonthlyTrend, error) {
	where, args := w.where("sale_date")
	rows, err := l.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m', sale_date) AS month, COUNT(*), COALESCE(SUM(amount), 0)
		FROM `+table+where+`
		GROUP BY month
		ORDER BY month ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("monthly %s: %w", table, err)
	}
	defer rows.Close()

	trends := []MonthlyTrend{}
	byMonth := make(map[string]MonthlyTrend)
	for rows.Next() {
		var m MonthlyTrend
		if err := rows.Scan(&m.Month, &m.Count, &m.Credits); err != nil {
			return nil, fmt.Errorf("monthly %s: scan: %w", table, err)
		}
		trends = append(trends, m)
		byMonth[m.Month] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monthly %s: iterate: %w", table, err)
	}

	for i := range trends {
		prev, ok := byMonth[previousMonth(trends[i].Month)]
		if ok {
			trends[i].PrevCount = prev.Count
			trends[i].PrevCredits = prev.Credits
		}
	}
	return trends, nil
}

func previousMonth(month string) string {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return ""
	}
	return t.AddDate(0, -1, 0).Format("2006-01")
}

// SalesBy groups sales by dimension. limit <= 0 returns every group.
func (l *Ledger) SalesBy(ctx context.Context, w Window, d Dimension, o Order, limit int) ([]Group, error) {
	return l.groupBy(ctx, "sales", w, d, o, limit)
}

// PurchasesBy groups purchases by dimension (category, vendor or item).
func (l *Ledger) PurchasesBy(ctx context.Context, w Window, d Dimension, o Order, limit int) ([]Group, error) {
	if d == ByProfession || d == ByCustomer {
		return nil, fmt.Errorf("purchases have no %s", d)
	}
	return l.groupBy(ctx, "purchases", w, d, o, limit)
}

func (l *Ledger) groupBy(ctx context.Context, table string, w Window, d Dimension, o Order, limit int) ([]Group, error) {
	expr, err := d.expr()
	if err != nil {
		return nil, err
	}
	where, args := w.where("sale_date")

	query := `
		SELECT ` + expr + ` AS grp,
		       COUNT(*) AS cnt,
		       COALESCE(SUM(amount), 0) AS credits,
		       CAST(ROUND(AVG(amount)) AS INTEGER),
		       MAX(sale_date)
		FROM ` + table + where + `
		GROUP BY grp
		` + o.clause()
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s by %s: %w", table, d, err)
	}
	return collectGroups(rows)
}

func collectGroups(rows *sql.Rows) ([]Group, error) {
	defer rows.Close()

	groups := []Group{}
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.Key, &g.Count, &g.Credits, &g.AvgPrice, &g.Last); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return groups, nil
}

// CategoryMargin returns sales minus purchases per category, best margin first.
func (l *Ledger) CategoryMargin(ctx context.Context, w Window) ([]Margin, error) {
	sales, err := l.SalesBy(ctx, w, ByCategory, ByCredits, 0)
	if err != nil {
		return nil, fmt.Errorf("category margin: %w", err)
	}
	purchases, err := l.PurchasesBy(ctx, w, ByCategory, ByCredits, 0)
	if err != nil {
		return nil, fmt.Errorf("category margin: %w", err)
	}

	byCategory := make(map[string]*Margin)
	for _, g := range sales {
		byCategory[g.Key] = &Margin{Category: g.Key, SalesCredits: g.Credits}
	}
	for _, g := range purchases {
		m, ok := byCategory[g.Key]
		if !ok {
			m = &Margin{Category: g.Key}
			byCategory[g.Key] = m
		}
		m.PurchaseCredits = g.Credits
	}

	margins := make([]Margin, 0, len(byCategory))
	for _, m := range byCategory {
		margins = append(margins, *m)
	}
	sort.Slice(margins, func(i, j int) bool {
		if margins[i].Value() != margins[j].Value() {
			return margins[i].Value() > margins[j].Value()
		}
		if margins[i].SalesCredits != margins[j].SalesCredits {
			return margins[i].SalesCredits > margins[j].SalesCredits
		}
		return margins[i].Category < margins[j].Category
	})
	return margins, nil
}

// CustomerSummary counts active, new and returning customers.
// New means the customer's first-ever sale falls inside the window; returning
// means active in the window with more than one lifetime sale.
func (l *Ledger) CustomerSummary(ctx context.Context, w Window) (CustomerSummary, error) {
	periodWhere, periodArgs := w.where("sale_date")
	newWhere, newArgs := w.where("first_date")

	args := append([]any{}, periodArgs...)
	args = append(args, newArgs...)

	var (
		s        CustomerSummary
		avgSpend sql.NullFloat64
	)
	err := l.db.QueryRowContext(ctx, `
		WITH
			period_sales AS (SELECT * FROM sales`+periodWhere+`),
			active AS (SELECT DISTINCT customer_id FROM period_sales),
			first_ever AS (
				SELECT customer_id, MIN(sale_date) AS first_date FROM sales GROUP BY customer_id
			),
			lifetime_counts AS (
				SELECT customer_id, COUNT(*) AS lifetime_cnt FROM sales GROUP BY customer_id
			),
			returning_lifetime AS (
				SELECT a.customer_id
				FROM active a
				JOIN lifetime_counts lc ON lc.customer_id = a.customer_id
				WHERE lc.lifetime_cnt > 1
			)
		SELECT
			(SELECT COUNT(*) FROM active),
			(SELECT COUNT(*) FROM first_ever`+newWhere+`),
			(SELECT COUNT(*) FROM returning_lifetime),
			ROUND(
				(SELECT COALESCE(SUM(amount), 0) FROM period_sales) * 1.0
				/ NULLIF((SELECT COUNT(*) FROM active), 0),
				2
			)
	`, args...).Scan(&s.Active, &s.New, &s.Returning, &avgSpend)
	if err != nil {
		return CustomerSummary{}, fmt.Errorf("customer summary: %w", err)
	}
	s.AvgSpend = avgSpend.Float64
	return s, nil
}

// TopCustomers ranks customers by spend (ByCredits) or order count (ByCount).
func (l *Ledger) TopCustomers(ctx context.Context, w Window, o Order, limit int) ([]CustomerActivity, error) {
	where, args := w.where("s.sale_date")
	order := "ORDER BY credits DESC, orders DESC, c.name ASC"
	if o == ByCount {
		order = "ORDER BY orders DESC, credits DESC, c.name ASC"
	}
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, `
		SELECT c.name, SUM(s.amount) AS credits, COUNT(*) AS orders,
		       MIN(s.sale_date), MAX(s.sale_date)
		FROM sales s
		JOIN customers c ON c.id = s.customer_id
		`+where+`
		GROUP BY c.id
		`+order+`
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("top customers: %w", err)
	}
	defer rows.Close()

	out := []CustomerActivity{}
	for rows.Next() {
		var a CustomerActivity
		if err := rows.Scan(&a.Name, &a.Credits, &a.Orders, &a.First, &a.Last); err != nil {
			return nil, fmt.Errorf("top customers: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top customers: iterate: %w", err)
	}
	return out, nil
}

// RestockItems lists items sold at least minSales times since the given day,
// most recently sold first.
func (l *Ledger) RestockItems(ctx context.Context, since time.Time, f Filter, minSales, top int) ([]Group, error) {
	filter, filterArgs := f.and()
	args := []any{since.UTC().Format("2006-01-02")}
	args = append(args, filterArgs...)
	args = append(args, minSales, top)

	rows, err := l.db.QueryContext(ctx, `
		SELECT item AS grp, COUNT(*) AS cnt, COALESCE(SUM(amount), 0) AS credits,
		       CAST(ROUND(AVG(amount)) AS INTEGER), MAX(sale_date) AS last_sold
		FROM sales
		WHERE sale_date >= ?
		`+filter+`
		GROUP BY item
		HAVING cnt >= ?
		ORDER BY last_sold DESC, cnt DESC, credits DESC, grp ASC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("restock items: %w", err)
	}
	return collectGroups(rows)
}

// HotCategories ranks categories by number of sales since the given day.
func (l *Ledger) HotCategories(ctx context.Context, since time.Time, f Filter, top int) ([]Group, error) {
	filter, filterArgs := f.and()
	args := []any{since.UTC().Format("2006-01-02")}
	args = append(args, filterArgs...)
	args = append(args, top)

	rows, err := l.db.QueryContext(ctx, `
		SELECT COALESCE(category, '`+Uncategorized+`') AS grp, COUNT(*) AS cnt,
		       COALESCE(SUM(amount), 0) AS credits,
		       CAST(ROUND(AVG(amount)) AS INTEGER), MAX(sale_date)
		FROM sales
		WHERE sale_date >= ?
		`+filter+`
		GROUP BY category
		ORDER BY cnt DESC, credits DESC, grp ASC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("hot categories: %w", err)
	}
	return collectGroups(rows)
}

// TrendingCategories compares per-category sales counts for the last full
// calendar month before now against the month before that.
func (l *Ledger) TrendingCategories(ctx context.Context, now time.Time, f Filter) ([]Trend, error) {
	now = now.UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonth := current.AddDate(0, -1, 0).Format("2006-01")
	prevMonth := current.AddDate(0, -2, 0).Format("2006-01")

	filter, filterArgs := f.and()
	args := []any{lastMonth, prevMonth}
	args = append(args, filterArgs...)

	rows, err := l.db.QueryContext(ctx, `
		SELECT COALESCE(category, '`+Uncategorized+`') AS grp,
		       strftime('%Y-%m', sale_date) AS month,
		       COUNT(*)
		FROM sales
		WHERE strftime('%Y-%m', sale_date) IN (?, ?)
		`+filter+`
		GROUP BY grp, month
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("trending categories: %w", err)
	}
	defer rows.Close()

	byCategory := make(map[string]*Trend)
	for rows.Next() {
		var (
			category, month string
			sold            int64
		)
		if err := rows.Scan(&category, &month, &sold); err != nil {
			return nil, fmt.Errorf("trending categories: scan: %w", err)
		}
		t, ok := byCategory[category]
		if !ok {
			t = &Trend{Category: category}
			byCategory[category] = t
		}
		if month == lastMonth {
			t.LastMonth = sold
		} else {
			t.PrevMonth = sold
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trending categories: iterate: %w", err)
	}

	trends := make([]Trend, 0, len(byCategory))
	for _, t := range byCategory {
		trends = append(trends, *t)
	}
	sort.Slice(trends, func(i, j int) bool {
		if trends[i].Delta() != trends[j].Delta() {
			return trends[i].Delta() > trends[j].Delta()
		}
		if trends[i].LastMonth != trends[j].LastMonth {
			return trends[i].LastMonth > trends[j].LastMonth
		}
		return trends[i].Category < trends[j].Category
	})
	return trends, nil
}

// DataBounds returns the first and last sale/purchase dates (YYYY-MM-DD).
// ok is false when the ledger holds no terminal rows.
func (l *Ledger) DataBounds(ctx context.Context) (first, last string, ok bool, err error) {
	var lo, hi sql.NullString
	err = l.db.QueryRowContext(ctx, `
		WITH bounds AS (
			SELECT MIN(date(sale_date)) AS lo, MAX(date(sale_date)) AS hi FROM sales
			UNION ALL
			SELECT MIN(date(sale_date)), MAX(date(sale_date)) FROM purchases
		)
		SELECT MIN(lo), MAX(hi) FROM bounds
	`).Scan(&lo, &hi)
	if err != nil {
		return "", "", false, fmt.Errorf("data bounds: %w", err)
	}
	if !lo.Valid || !hi.Valid {
		return "", "", false, nil
	}
	return lo.String, hi.String, true, nil
}

// DistinctValues returns the sorted non-null values of a sales
// classification column ("profession" or "category").
func (l *Ledger) DistinctValues(ctx context.Context, column string) ([]string, error) {
	if column != "profession" && column != "category" {
		return nil, fmt.Errorf("distinct values: unsupported column %q", column)
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT DISTINCT `+column+` FROM sales WHERE `+column+` IS NOT NULL ORDER BY `+column+` ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("distinct %s: scan: %w", column, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
