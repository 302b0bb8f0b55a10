package report

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/swgmerchant/internal/ledger"
)

const dayLayout = "2006-01-02"

// Period is the reporting window and its human label.
type Period struct {
	Label  string        `json:"label"`
	Window ledger.Window `json:"-"`
	Start  string        `json:"start"` // YYYY-MM-DD or "(no data)"
	End    string        `json:"end"`
}

// PeriodOptions selects a window. All wins over YTD, which wins over Months.
type PeriodOptions struct {
	Months int
	YTD    bool
	All    bool
}

// ResolvePeriod computes the window relative to now (UTC). All-history
// bounds come from the data itself.
func ResolvePeriod(ctx context.Context, l *ledger.Ledger, now time.Time, opts PeriodOptions) (Period, error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch {
	case opts.All:
		first, last, ok, err := l.DataBounds(ctx)
		if err != nil {
			return Period{}, err
		}
		if !ok {
			first, last = "(no data)", "(no data)"
		}
		return Period{Label: "All History", Start: first, End: last}, nil

	case opts.YTD:
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return Period{
			Label:  "Year-To-Date",
			Window: ledger.Window{Since: start},
			Start:  start.Format(dayLayout),
			End:    today.Format(dayLayout),
		}, nil
	}

	months := opts.Months
	if months < 1 {
		return Period{}, fmt.Errorf("months must be >= 1, got %d", months)
	}
	start := today.AddDate(0, -months, 0)
	return Period{
		Label:  fmt.Sprintf("Last %d Months", months),
		Window: ledger.Window{Since: start},
		Start:  start.Format(dayLayout),
		End:    today.Format(dayLayout),
	}, nil
}
