// Package csvimport loads historical sales exported as CSV into the ledger.
//
// Expected header (column order is free, Profession and Category optional):
//
//	Date,Vendor,Customer,Item,Price,Profession,Category
//
// Dates are MM/DD/YY and are stored at midnight UTC. Prices may carry
// thousands separators ("150,000").
package csvimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/swgmerchant/internal/classify"
	"github.com/roach88/swgmerchant/internal/ledger"
)

// DateLayout is the CSV date format.
const DateLayout = "01/02/06"

var requiredColumns = []string{"Date", "Vendor", "Customer", "Item", "Price"}

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Classifier fills in profession and category when a row leaves them blank.
type Classifier interface {
	Sale(vendor, item string) classify.Result
}

// Options configures Import.
type Options struct {
	Logger *zap.Logger
	// Classifier, when set, resolves blank Profession/Category cells.
	Classifier Classifier
}

// RowError describes a skipped row. Line is the 1-based CSV record number
// including the header.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Result tallies an import.
type Result struct {
	Imported int
	Skipped  []RowError
}

// Import reads sales from r and inserts each row in its own transaction.
// Bad rows are skipped and reported; the error return is reserved for
// unreadable input, a bad header and cancellation.
func Import(ctx context.Context, l *ledger.Ledger, r io.Reader, opts Options) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("read header: %w", err)
	}
	cols, err := indexHeader(header)
	if err != nil {
		return Result{}, err
	}

	var res Result
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.skip(log, line, err)
				continue
			}
			return res, fmt.Errorf("read line %d: %w", line, err)
		}

		sale, err := cols.sale(record)
		if err != nil {
			res.skip(log, line, err)
			continue
		}
		if opts.Classifier != nil && sale.Incomplete() {
			fill(&sale, opts.Classifier.Sale(sale.Vendor, sale.Item))
		}

		err = l.WithTx(ctx, func(tx *ledger.Tx) error {
			_, err := tx.InsertSale(ctx, sale)
			return err
		})
		if err != nil {
			res.skip(log, line, err)
			continue
		}
		res.Imported++
	}

	log.Info("csv import finished", zap.Int("imported", res.Imported), zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

func (r *Result) skip(log *zap.Logger, line int, err error) {
	r.Skipped = append(r.Skipped, RowError{Line: line, Err: err})
	log.Warn("skipping csv row", zap.Int("line", line), zap.Error(err))
}

func fill(s *ledger.Sale, cls classify.Result) {
	if s.Profession == "" {
		s.Profession = cls.Profession
	}
	if s.Category == "" {
		s.Category = cls.Category
	}
}

type columns map[string]int

func indexHeader(header []string) (columns, error) {
	cols := make(columns, len(header))
	for i, h := range header {
		// Spreadsheet exports often start with a UTF-8 BOM.
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		cols[h] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return cols, nil
}

func (c columns) get(record []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (c columns) sale(record []string) (ledger.Sale, error) {
	date, err := time.ParseInLocation(DateLayout, c.get(record, "Date"), time.UTC)
	if err != nil {
		return ledger.Sale{}, fmt.Errorf("date: %w", err)
	}
	amount, err := ParsePrice(c.get(record, "Price"))
	if err != nil {
		return ledger.Sale{}, err
	}
	return ledger.Sale{
		SaleDate:   date,
		Vendor:     c.get(record, "Vendor"),
		Customer:   c.get(record, "Customer"),
		Item:       c.get(record, "Item"),
		Amount:     amount,
		Profession: c.get(record, "Profession"),
		Category:   c.get(record, "Category"),
	}, nil
}

// ParsePrice parses a credit amount such as "150,000" or "\"1,250.00\"",
// truncating any fractional part.
func ParsePrice(raw string) (int64, error) {
	s := strings.TrimSpace(strings.NewReplacer(",", "", `"`, "").Replace(raw))
	if s == "" {
		return 0, errors.New("price: empty")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("price: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return 0, fmt.Errorf("price: %q out of range", raw)
	}
	return int64(f), nil
}
