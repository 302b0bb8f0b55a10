package ingest

import (
	"errors"
	"fmt"

	"github.com/roach88/swgmerchant/internal/artifact"
	"github.com/roach88/swgmerchant/internal/ledger"
	"github.com/roach88/swgmerchant/internal/mail"
)

// State is an artifact's standing in the ledger before it is processed.
type State int

const (
	// StateNew means no ingest record exists for the artifact.
	StateNew State = iota
	// StateComplete means a record exists and its terminal row is fully classified.
	StateComplete
	// StateIncomplete means a record exists but profession or category is unresolved.
	StateIncomplete
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateComplete:
		return "complete"
	case StateIncomplete:
		return "incomplete"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome is what happened to one artifact.
type Outcome string

const (
	OutcomeInserted Outcome = "inserted"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// FailureKind classifies a failed artifact.
type FailureKind string

const (
	FailureUnreadable FailureKind = "unreadable"
	FailureMalformed  FailureKind = "malformed"
	FailureStorage    FailureKind = "storage"
	FailureContract   FailureKind = "contract"
)

// Result is the per-artifact outcome, in locator order.
type Result struct {
	Path     string
	MailID   string
	State    State
	Outcome  Outcome
	Kind     mail.Kind // set when the artifact parsed
	Reparsed bool      // an incomplete record was replaced
	Failure  FailureKind
	Err      error
}

// Reason is a one-line explanation for failed artifacts.
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", r.Failure, r.Err)
}

// Summary tallies a run.
type Summary struct {
	RunID    string
	Target   string
	Located  int
	Inserted int
	Skipped  int
	Failed   int
	Reparsed int
	Results  []Result
}

func (s *Summary) add(r Result) {
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case OutcomeInserted:
		s.Inserted++
		if r.Reparsed {
			s.Reparsed++
		}
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}

func (s Summary) run() ledger.Run {
	return ledger.Run{
		ID:       s.RunID,
		Target:   s.Target,
		Located:  s.Located,
		Inserted: s.Inserted,
		Skipped:  s.Skipped,
		Failed:   s.Failed,
		Reparsed: s.Reparsed,
	}
}

// failureKind maps an error to the failure taxonomy.
func failureKind(err error) FailureKind {
	var perr *mail.ParseError
	switch {
	case errors.Is(err, artifact.ErrUnreadable):
		return FailureUnreadable
	case errors.As(err, &perr):
		return FailureMalformed
	case errors.Is(err, ledger.ErrInvalidLink),
		errors.Is(err, ledger.ErrNegativeAmount),
		errors.Is(err, ledger.ErrEmptyName):
		return FailureContract
	}
	return FailureStorage
}
