// Package ingest drives mail artifacts through parsing, classification and
// storage, recording each artifact at most once.
//
// Every located artifact is in one of three states: new (never recorded),
// complete (recorded and fully classified, skipped) or incomplete (recorded
// with an unresolved profession or category). Incomplete artifacts are
// reparsed and the old terminal row is replaced in the same transaction as
// the new insert, so an artifact is never half-recorded.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/swgmerchant/internal/artifact"
	"github.com/roach88/swgmerchant/internal/classify"
	"github.com/roach88/swgmerchant/internal/ledger"
	"github.com/roach88/swgmerchant/internal/mail"
)

// Classifier resolves profession and category for parsed events.
// *classify.Classifier and *classify.Cached satisfy it.
type Classifier interface {
	Sale(vendor, item string) classify.Result
	Purchase(item string) classify.Result
}

// Coordinator runs ingestion passes. It is not safe for concurrent use;
// runs are strictly sequential.
type Coordinator struct {
	ledger     *ledger.Ledger
	classifier Classifier
	parser     *mail.Parser
	locate     artifact.Options
	logger     *zap.Logger
	runIDs     RunIDGenerator
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithParser sets the event parser.
func WithParser(p *mail.Parser) Option {
	return func(c *Coordinator) { c.parser = p }
}

// WithLocateOptions sets how targets are expanded into artifact paths.
func WithLocateOptions(o artifact.Options) Option {
	return func(c *Coordinator) { c.locate = o }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithRunIDs sets the run id generator.
func WithRunIDs(g RunIDGenerator) Option {
	return func(c *Coordinator) { c.runIDs = g }
}

// New creates a Coordinator over a ledger and classifier.
func New(l *ledger.Ledger, cl Classifier, opts ...Option) *Coordinator {
	c := &Coordinator{
		ledger:     l,
		classifier: cl,
		parser:     mail.NewParser(mail.Options{}),
		logger:     zap.NewNop(),
		runIDs:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run ingests every artifact under target.
//
// Per-artifact failures are reported in the Summary, never returned. An error
// is returned only when the target cannot be enumerated, run bookkeeping
// fails, or ctx is cancelled; in the last case the Summary covers the
// artifacts processed so far.
func (c *Coordinator) Run(ctx context.Context, target string) (Summary, error) {
	paths, err := artifact.Locate(target, c.locate)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		RunID:   c.runIDs.Generate(),
		Target:  target,
		Located: len(paths),
		Results: make([]Result, 0, len(paths)),
	}
	log := c.logger.With(zap.String("run_id", summary.RunID))

	if _, err := c.ledger.StartRun(ctx, summary.RunID, target); err != nil {
		return summary, fmt.Errorf("ingest %s: %w", target, err)
	}

	if len(paths) == 0 {
		log.Info("no mail files found", zap.String("target", target))
	} else {
		log.Debug("located mail files", zap.String("target", target), zap.Int("count", len(paths)))
	}

	var runErr error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		res := c.ingestOne(ctx, summary.RunID, path)
		c.logResult(log, res)
		summary.add(res)
	}

	// Bookkeeping must land even when ctx was cancelled mid-run.
	if err := c.ledger.FinishRun(context.WithoutCancel(ctx), summary.run()); err != nil {
		return summary, errors.Join(runErr, fmt.Errorf("ingest %s: %w", target, err))
	}

	log.Info("ingest finished",
		zap.Int("located", summary.Located),
		zap.Int("inserted", summary.Inserted),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("reparsed", summary.Reparsed),
	)
	return summary, runErr
}

func (c *Coordinator) ingestOne(ctx context.Context, runID, path string) Result {
	res := Result{Path: path}
	fail := func(err error) Result {
		res.Outcome = OutcomeFailed
		res.Failure = failureKind(err)
		res.Err = err
		return res
	}

	a, err := artifact.Load(path)
	if err != nil {
		return fail(err)
	}
	res.MailID = a.MailID

	rec, found, err := c.ledger.FindIngest(ctx, a.MailID, a.Path)
	if err != nil {
		return fail(err)
	}
	switch {
	case !found:
		res.State = StateNew
	case rec.Incomplete:
		res.State = StateIncomplete
	default:
		res.State = StateComplete
		res.Outcome = OutcomeSkipped
		return res
	}

	// Parse before touching the ledger: a bad reparse keeps the old record.
	ev, err := c.parser.Parse(a.Content)
	if err != nil {
		return fail(err)
	}
	res.Kind = ev.Kind

	err = c.ledger.WithTx(ctx, func(tx *ledger.Tx) error {
		if res.State == StateIncomplete {
			if err := tx.Purge(ctx, rec.ID); err != nil {
				return err
			}
			// A record matched by mail id may live under another path while
			// this path still links an older row. The path record goes too.
			if err := purgePath(ctx, tx, a.Path, rec.ID); err != nil {
				return err
			}
		}
		link, err := c.insertEvent(ctx, tx, ev)
		if err != nil {
			return err
		}
		link.MailID = a.MailID
		link.FilePath = a.Path
		link.FileMTime = a.MTime
		link.RunID = runID
		_, err = tx.UpsertIngest(ctx, link)
		return err
	})
	if err != nil {
		return fail(err)
	}

	res.Outcome = OutcomeInserted
	res.Reparsed = res.State == StateIncomplete
	return res
}

func purgePath(ctx context.Context, tx *ledger.Tx, path string, purged int64) error {
	rec, found, err := tx.FindIngest(ctx, "", path)
	if err != nil || !found || rec.ID == purged {
		return err
	}
	return tx.Purge(ctx, rec.ID)
}

// insertEvent classifies and stores the terminal row, returning an ingest
// record carrying only the link.
func (c *Coordinator) insertEvent(ctx context.Context, tx *ledger.Tx, ev mail.Event) (ledger.IngestRecord, error) {
	switch ev.Kind {
	case mail.KindSale:
		cls := c.classifier.Sale(ev.Vendor, ev.Item)
		id, err := tx.InsertSale(ctx, ledger.Sale{
			SaleDate:   ev.Time,
			Vendor:     ev.Vendor,
			Item:       ev.Item,
			Customer:   ev.Customer,
			Amount:     ev.Amount,
			Profession: cls.Profession,
			Category:   cls.Category,
		})
		if err != nil {
			return ledger.IngestRecord{}, err
		}
		return ledger.IngestRecord{SaleID: id}, nil

	case mail.KindPurchase:
		cls := c.classifier.Purchase(ev.Item)
		id, err := tx.InsertPurchase(ctx, ledger.Purchase{
			SaleDate: ev.Time,
			Item:     ev.Item,
			Vendor:   ev.Vendor,
			Amount:   ev.Amount,
			Category: cls.Category,
		})
		if err != nil {
			return ledger.IngestRecord{}, err
		}
		return ledger.IngestRecord{PurchaseID: id}, nil
	}
	return ledger.IngestRecord{}, fmt.Errorf("unsupported event kind %q", ev.Kind)
}

func (c *Coordinator) logResult(log *zap.Logger, res Result) {
	fields := []zap.Field{
		zap.String("path", res.Path),
		zap.Stringer("state", res.State),
		zap.String("outcome", string(res.Outcome)),
	}
	if res.Outcome != OutcomeFailed {
		if res.Reparsed {
			fields = append(fields, zap.Bool("reparsed", true))
		}
		log.Debug("artifact processed", fields...)
		return
	}

	fields = append(fields, zap.String("failure", string(res.Failure)), zap.Error(res.Err))
	var perr *mail.ParseError
	if errors.As(res.Err, &perr) {
		fields = append(fields, zap.String("field", perr.Field))
	}
	log.Warn("artifact failed", fields...)
}
