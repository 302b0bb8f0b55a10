package mail

import (
	"errors"
	"fmt"
)

// Parse failure codes. Match them with errors.Is against a *ParseError.
var (
	ErrTooFewLines      = errors.New("too few lines")
	ErrMissingTimestamp = errors.New("missing timestamp")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrUnknownEvent     = errors.New("unknown event")
	ErrBodyMismatch     = errors.New("body does not match event pattern")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// ParseError describes why an artifact could not be parsed.
type ParseError struct {
	Code  error  // one of the Err* sentinels
	Field string // the field that could not be extracted
	Line  int    // 1-based index among non-empty lines, 0 if not applicable
	Text  string // offending line, if any
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Field, e.Code)
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Text != "" {
		msg += fmt.Sprintf(" (%q)", e.Text)
	}
	return msg
}

// Unwrap returns the failure code.
func (e *ParseError) Unwrap() error {
	return e.Code
}
