package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/swgmerchant/internal/ledger"
	"github.com/roach88/swgmerchant/internal/report"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Limit int
}

// RunInfo is one ingest run in the JSON payload of the runs command.
type RunInfo struct {
	ID         string    `json:"id"`
	Target     string    `json:"target"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Located    int       `json:"located"`
	Inserted   int       `json:"inserted"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Reparsed   int       `json:"reparsed"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent ingest runs",
		Long: `List recent ingest runs, newest first, with their tallies.

Example:
  swgmerchant runs --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "number of runs to show")

	return cmd
}

func runRuns(cmd *cobra.Command, opts *RunsOptions) error {
	formatter := opts.formatter(cmd)

	l, err := opts.openLedger()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer l.Close()

	runs, err := l.Runs(cmd.Context(), opts.Limit)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to list runs", err)
	}

	if formatter.JSON() {
		out := make([]RunInfo, len(runs))
		for i, r := range runs {
			out[i] = RunInfo(r)
		}
		return formatter.Success(out)
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No ingest runs recorded yet.")
		return nil
	}
	fmt.Fprint(formatter.Writer, runsTable(runs, l.Now()).Markdown())
	return nil
}

func runsTable(runs []ledger.Run, now time.Time) report.Table {
	t := report.Table{Headers: []string{"Run", "Started", "Target", "Located", "Inserted", "Skipped", "Failed", "Reparsed"}}
	for _, r := range runs {
		started := humanize.RelTime(r.StartedAt, now, "ago", "from now")
		if r.FinishedAt.IsZero() {
			started += " (unfinished)"
		}
		t.Rows = append(t.Rows, []any{r.ID, started, r.Target, r.Located, r.Inserted, r.Skipped, r.Failed, r.Reparsed})
	}
	return t
}
