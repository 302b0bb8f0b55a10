package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/swgmerchant/internal/report"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Months int
	YTD    bool
	All    bool
	TopN   int
	Out    string
	CSVDir string
	Pretty bool
	Style  string
}

// ReportOutput is the JSON payload of the report command.
type ReportOutput struct {
	Report  *report.Report `json:"report"`
	OutFile string         `json:"out_file,omitempty"`
	CSVDir  string         `json:"csv_dir,omitempty"`
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a Markdown business report",
		Long: `Generate a Markdown report of sales, purchases, margins and customers.

The window is a rolling number of months (default from config: 12),
year-to-date with --ytd, or all history with --all. --csv-dir also writes
monthly_sales.csv, monthly_purchases.csv and category_margin.csv.

Example:
  swgmerchant report --months 6
  swgmerchant report --ytd --out reports/ytd.md --csv-dir reports/csv
  swgmerchant report --all --pretty`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("months") {
				opts.Months = opts.Config.Report.Months
			}
			if !cmd.Flags().Changed("top") {
				opts.TopN = opts.Config.Report.TopN
			}
			return runReport(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Months, "months", 12, "lookback window in months")
	cmd.Flags().BoolVar(&opts.YTD, "ytd", false, "report year-to-date instead of a rolling window")
	cmd.Flags().BoolVar(&opts.All, "all", false, "report on all history")
	cmd.Flags().IntVar(&opts.TopN, "top", report.DefaultTopN, "rows in each Top N section")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the Markdown report to this file")
	cmd.Flags().StringVar(&opts.CSVDir, "csv-dir", "", "write CSV extracts to this directory")
	cmd.Flags().BoolVar(&opts.Pretty, "pretty", false, "render Markdown for the terminal")
	cmd.Flags().StringVar(&opts.Style, "style", "", "glamour style for --pretty (dark, light, notty; default: auto)")
	cmd.MarkFlagsMutuallyExclusive("ytd", "all")

	return cmd
}

func runReport(cmd *cobra.Command, opts *ReportOptions) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	l, err := opts.openLedger()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer l.Close()

	period, err := report.ResolvePeriod(ctx, l, l.Now(), report.PeriodOptions{
		Months: opts.Months,
		YTD:    opts.YTD,
		All:    opts.All,
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInput, "invalid period", err)
	}

	r, err := report.Generate(ctx, l, report.Options{
		Period: period,
		TopN:   opts.TopN,
		CSVDir: opts.CSVDir,
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to generate report", err)
	}
	opts.Logger.Debug("report generated",
		zap.String("period", period.Label),
		zap.Int("sections", len(r.Sections)),
		zap.String("csv_dir", opts.CSVDir),
	)

	md := r.Markdown()
	if opts.Out != "" {
		if err := writeFile(opts.Out, md); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeOutput, "failed to write report", err)
		}
	}

	if formatter.JSON() {
		return formatter.Success(ReportOutput{Report: r, OutFile: opts.Out, CSVDir: opts.CSVDir})
	}

	w := formatter.Writer
	if opts.Out != "" {
		fmt.Fprintf(w, "Report written to %s\n", opts.Out)
	} else {
		if opts.Pretty {
			if md, err = report.Pretty(md, opts.Style); err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeOutput, "failed to render report", err)
			}
		}
		fmt.Fprint(w, md)
	}
	if opts.CSVDir != "" {
		fmt.Fprintf(w, "CSV extracts written to %s\n", opts.CSVDir)
	}
	return nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
