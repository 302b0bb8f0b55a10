package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/swgmerchant/internal/ingest"
	"github.com/roach88/swgmerchant/internal/mail"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Flat       bool
	Extensions []string

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs ingest.RunIDGenerator
}

// IngestOutput is the JSON payload of the ingest command.
type IngestOutput struct {
	RunID    string         `json:"run_id"`
	Target   string         `json:"target"`
	Located  int            `json:"located"`
	Inserted int            `json:"inserted"`
	Skipped  int            `json:"skipped"`
	Failed   int            `json:"failed"`
	Reparsed int            `json:"reparsed"`
	Results  []IngestResult `json:"results"`
}

// IngestResult is one artifact in IngestOutput.
type IngestResult struct {
	Path     string `json:"path"`
	MailID   string `json:"mail_id,omitempty"`
	State    string `json:"state"`
	Outcome  string `json:"outcome"`
	Kind     string `json:"kind,omitempty"`
	Reparsed bool   `json:"reparsed,omitempty"`
	Failure  string `json:"failure,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: "Parse mail files into the ledger",
		Long: `Parse vendor sale and purchase mails into the ledger.

<path> is a single mail file or a directory, searched recursively unless
--flat is given. Mails already in the ledger are skipped; mails whose
profession or category could not be resolved last time are reparsed.

Example:
  swgmerchant ingest ~/SWG/profiles/Epak/Inbox
  swgmerchant ingest --db ./merchant.db --ext .mail --ext .txt ./mail`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Flat, "flat", false, "do not descend into subdirectories")
	cmd.Flags().StringSliceVar(&opts.Extensions, "ext", nil, "mail file extensions (default from config: .mail)")

	return cmd
}

func runIngest(cmd *cobra.Command, opts *IngestOptions, target string) error {
	formatter := opts.formatter(cmd)

	cl, err := opts.Config.Classifier()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load classification rules", err)
	}

	l, err := opts.openLedger()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer l.Close()

	locate := opts.Config.LocateOptions()
	if opts.Flat {
		locate.Flat = true
	}
	if len(opts.Extensions) > 0 {
		locate.Extensions = opts.Extensions
	}

	coordOpts := []ingest.Option{
		ingest.WithLogger(opts.Logger),
		ingest.WithLocateOptions(locate),
		ingest.WithParser(mail.NewParser(mail.Options{SuffixTags: opts.Config.Ingest.SuffixTags})),
	}
	if opts.RunIDs != nil {
		coordOpts = append(coordOpts, ingest.WithRunIDs(opts.RunIDs))
	}

	opts.Logger.Debug("ingesting",
		zap.String("target", target),
		zap.String("db", opts.Config.Database.Path),
		zap.String("rules_version", cl.Version()),
	)

	summary, err := ingest.New(l, cl, coordOpts...).Run(cmd.Context(), target)
	if err != nil {
		if summary.RunID == "" {
			return formatter.Fail(ExitCommandError, ErrCodeInput, "cannot read target", err)
		}
		// Cancelled or bookkeeping failed: report what was done, then fail.
		_ = writeIngest(formatter, summary)
		return formatter.Fail(ExitFailure, ErrCodeIngest, "ingest interrupted", err)
	}

	if err := writeIngest(formatter, summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return WrapExitError(ExitFailure, fmt.Sprintf("%d mail file(s) failed", summary.Failed), nil)
	}
	return nil
}

func writeIngest(f *OutputFormatter, s ingest.Summary) error {
	if f.JSON() {
		return f.Success(ingestOutput(s))
	}
	writeIngestText(f.Writer, s, f.Verbose)
	return nil
}

func writeIngestText(w io.Writer, s ingest.Summary, verbose bool) {
	if s.Located == 0 {
		fmt.Fprintf(w, "No mail files found at: %s\n", s.Target)
	}
	for _, r := range s.Results {
		name := filepath.Base(r.Path)
		switch r.Outcome {
		case ingest.OutcomeInserted:
			if r.Reparsed {
				fmt.Fprintf(w, "[REPARSE] Incomplete data found; purged and reparsed: %s\n", name)
			}
			fmt.Fprintf(w, "  ✔ Ingested %s from %s\n", r.Kind, name)
		case ingest.OutcomeSkipped:
			if verbose {
				fmt.Fprintf(w, "  - Skipped %s (already recorded)\n", name)
			}
		case ingest.OutcomeFailed:
			fmt.Fprintf(w, "  ✖ Failed to ingest from %s: %s\n", name, r.Reason())
		}
	}
	fmt.Fprintf(w, "[DONE] Inserted: %d, Skipped: %d, Failed: %d\n", s.Inserted, s.Skipped, s.Failed)
}

func ingestOutput(s ingest.Summary) IngestOutput {
	out := IngestOutput{
		RunID:    s.RunID,
		Target:   s.Target,
		Located:  s.Located,
		Inserted: s.Inserted,
		Skipped:  s.Skipped,
		Failed:   s.Failed,
		Reparsed: s.Reparsed,
		Results:  make([]IngestResult, 0, len(s.Results)),
	}
	for _, r := range s.Results {
		ir := IngestResult{
			Path:     r.Path,
			MailID:   r.MailID,
			State:    r.State.String(),
			Outcome:  string(r.Outcome),
			Kind:     string(r.Kind),
			Reparsed: r.Reparsed,
			Failure:  string(r.Failure),
		}
		if r.Err != nil {
			ir.Error = r.Err.Error()
		}
		out.Results = append(out.Results, ir)
	}
	return out
}
