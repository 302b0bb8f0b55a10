package ledger

import (
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"
	msqlite "modernc.org/sqlite"
)

var (
	// ErrInvalidLink is returned when an ingest record would reference both a
	// sale and a purchase, or neither. It is a caller bug, checked before any write.
	ErrInvalidLink = errors.New("ingest record must reference exactly one of sale or purchase")

	// ErrNegativeAmount is returned when a sale or purchase amount is below zero.
	ErrNegativeAmount = errors.New("amount must be non-negative")

	// ErrEmptyName is returned when a customer name is blank.
	ErrEmptyName = errors.New("customer name must not be empty")

	// ErrConstraint marks a storage constraint violation (UNIQUE, CHECK,
	// FOREIGN KEY, NOT NULL). The driver error is wrapped alongside it.
	ErrConstraint = errors.New("constraint violation")

	// ErrNotFound is returned by lookups that require a row to exist.
	ErrNotFound = errors.New("not found")
)

// sqliteConstraint is the primary result code for SQLITE_CONSTRAINT.
const sqliteConstraint = 19

// dbError tags driver constraint failures with ErrConstraint so callers can
// use errors.Is regardless of which driver is active.
func dbError(err error) error {
	if err == nil {
		return nil
	}
	if isConstraint(err) {
		return fmt.Errorf("%w: %w", ErrConstraint, err)
	}
	return err
}

func isConstraint(err error) bool {
	var cgoErr sqlite3.Error
	if errors.As(err, &cgoErr) {
		return cgoErr.Code == sqlite3.ErrConstraint
	}
	var pureErr *msqlite.Error
	if errors.As(err, &pureErr) {
		return pureErr.Code()&0xff == sqliteConstraint
	}
	return false
}
