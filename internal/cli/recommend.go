package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/swgmerchant/internal/ledger"
	"github.com/roach88/swgmerchant/internal/report"
)

// RecommendOptions holds flags for the recommend command.
type RecommendOptions struct {
	*RootOptions
	Days        int
	MinSales    int
	Top         int
	Professions []string
	Categories  []string
	Pretty      bool
}

// RecommendOutput is the JSON payload of the recommend command.
type RecommendOutput struct {
	Recommendations *report.Recommendations `json:"recommendations"`
	Warnings        []string                `json:"warnings,omitempty"`
}

// NewRecommendCommand creates the recommend command.
func NewRecommendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecommendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Suggest what to craft and list",
		Long: `Suggest items to restock from recent sales.

Lists items that sold at least --min-sales times in the last --days days,
the busiest categories of that window, and categories trending up or down
between the last two calendar months.

Example:
  swgmerchant recommend --days 30 --min-sales 2 --top 20
  swgmerchant recommend --profession Doctor --category Buff --days 60`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecommend(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Days, "days", report.DefaultDays, "lookback window in days")
	cmd.Flags().IntVar(&opts.MinSales, "min-sales", report.DefaultMinSales, "minimum sales per item")
	cmd.Flags().IntVar(&opts.Top, "top", report.DefaultTop, "max rows in each section")
	cmd.Flags().StringSliceVar(&opts.Professions, "profession", nil, "filter by profession (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Categories, "category", nil, "filter by category (repeatable)")
	cmd.Flags().BoolVar(&opts.Pretty, "pretty", false, "render Markdown for the terminal")

	return cmd
}

func runRecommend(cmd *cobra.Command, opts *RecommendOptions) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	if opts.Days < 1 || opts.MinSales < 1 || opts.Top < 1 {
		return formatter.Fail(ExitCommandError, ErrCodeInput,
			fmt.Sprintf("--days, --min-sales and --top must be >= 1 (got %d, %d, %d)", opts.Days, opts.MinSales, opts.Top), nil)
	}

	l, err := opts.openLedger()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer l.Close()

	filter := ledger.Filter{Professions: opts.Professions, Categories: opts.Categories}
	warnings, err := report.CheckFilter(ctx, l, filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to check filters", err)
	}
	for _, w := range warnings {
		opts.Logger.Warn("unknown filter value", zap.String("detail", w))
	}

	rec, err := report.Recommend(ctx, l, report.RecommendOptions{
		Days:     opts.Days,
		MinSales: opts.MinSales,
		Top:      opts.Top,
		Filter:   filter,
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to build recommendations", err)
	}

	if formatter.JSON() {
		return formatter.Success(RecommendOutput{Recommendations: rec, Warnings: warnings})
	}

	for _, w := range warnings {
		fmt.Fprintf(formatter.GetErrWriter(), "[WARN] %s\n", w)
	}
	md := rec.Markdown()
	if opts.Pretty {
		if md, err = report.Pretty(md, ""); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeOutput, "failed to render recommendations", err)
		}
	}
	fmt.Fprint(formatter.Writer, md)
	return nil
}
