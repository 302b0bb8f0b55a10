package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/swgmerchant/internal/csvimport"
)

// ImportCSVOptions holds flags for the import-csv command.
type ImportCSVOptions struct {
	*RootOptions
	NoClassify bool
}

// ImportCSVOutput is the JSON payload of the import-csv command.
type ImportCSVOutput struct {
	File     string           `json:"file"`
	Imported int              `json:"imported"`
	Skipped  []ImportSkipInfo `json:"skipped,omitempty"`
}

// ImportSkipInfo describes one skipped row.
type ImportSkipInfo struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// NewImportCSVCommand creates the import-csv command.
func NewImportCSVCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportCSVOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import-csv <file>",
		Short: "Import historical sales from a spreadsheet export",
		Long: `Import sales from a CSV file with the columns
Date (MM/DD/YY), Vendor, Customer, Item, Price and optionally Profession
and Category. Blank Profession/Category cells are filled by the classifier
unless --no-classify is given. Rows are not deduplicated against mail ingests.

Example:
  swgmerchant import-csv sales_2024.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportCSV(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.NoClassify, "no-classify", false, "keep blank profession/category cells blank")

	return cmd
}

func runImportCSV(cmd *cobra.Command, opts *ImportCSVOptions, path string) error {
	formatter := opts.formatter(cmd)

	f, err := os.Open(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInput, "cannot open CSV file", err)
	}
	defer f.Close()

	importOpts := csvimport.Options{Logger: opts.Logger}
	if !opts.NoClassify {
		cl, err := opts.Config.Classifier()
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load classification rules", err)
		}
		importOpts.Classifier = cl
	}

	l, err := opts.openLedger()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer l.Close()

	res, err := csvimport.Import(cmd.Context(), l, f, importOpts)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInput, "import failed", err)
	}

	if formatter.JSON() {
		out := ImportCSVOutput{File: path, Imported: res.Imported}
		for _, s := range res.Skipped {
			out.Skipped = append(out.Skipped, ImportSkipInfo{Line: s.Line, Reason: s.Err.Error()})
		}
		if err := formatter.Success(out); err != nil {
			return err
		}
	} else {
		for _, s := range res.Skipped {
			fmt.Fprintf(formatter.Writer, "[WARN] Skipping row %d: %v\n", s.Line, s.Err)
		}
		fmt.Fprintf(formatter.Writer, "Imported %d sales from %s\n", res.Imported, path)
	}

	if len(res.Skipped) > 0 {
		return WrapExitError(ExitFailure, fmt.Sprintf("%d row(s) skipped", len(res.Skipped)), nil)
	}
	return nil
}
