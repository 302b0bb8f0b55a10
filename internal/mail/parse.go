// Package mail parses in-game mail notifications into commerce events.
//
// An artifact is plain text. Blank lines are ignored and the remaining lines
// are trimmed. By position:
//
//	1  natural identifier (mail id)
//	3  event label ("Vendor Sale Complete" or "Vendor Item Purchased")
//	4  TIMESTAMP: <unix seconds>
//	5  body
//
// At least MinLines non-empty lines are required.
package mail

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MinLines is the minimum number of non-empty lines in a parseable artifact.
const MinLines = 6

// Line positions (0-based) among non-empty lines.
const (
	idLine        = 0
	labelLine     = 2
	timestampLine = 3
	bodyLine      = 4
)

// Event labels.
const (
	SaleLabel     = "Vendor Sale Complete"
	PurchaseLabel = "Vendor Item Purchased"
)

// DefaultSuffixTags are trailing item decorations removed from sale items.
var DefaultSuffixTags = []string{"Epak"}

// Kind distinguishes sales from purchases.
type Kind string

const (
	KindSale     Kind = "sale"
	KindPurchase Kind = "purchase"
)

// Event is a parsed commerce event. Customer is empty for purchases.
type Event struct {
	Kind     Kind
	Time     time.Time // UTC
	Vendor   string
	Item     string
	Customer string
	Amount   int64
}

var (
	timestampRe = regexp.MustCompile(`(?i)TIMESTAMP:\s*(\d+)`)
	saleRe      = regexp.MustCompile(`(?i)Vendor:\s*(?P<vendor>.+?)\s+has sold\s+(?P<item>.+?)\s+to\s+(?P<customer>.+?)\s+for\s+(?P<amount>\d+)\s+credits`)
	purchaseRe  = regexp.MustCompile(`(?i)won the auction of "(?P<item>.+?)" from "(?P<vendor>.+?)" for (?P<amount>\d+) credits`)
)

// Options configures a Parser.
type Options struct {
	// SuffixTags are trimmed from the end of sale item names when written as
	// "<item> | <tag>". Nil means DefaultSuffixTags; empty disables trimming.
	SuffixTags []string
}

// Parser turns artifact content into Events. It is safe for concurrent use.
type Parser struct {
	suffix *regexp.Regexp
}

// NewParser builds a parser for the given options.
func NewParser(opts Options) *Parser {
	tags := opts.SuffixTags
	if tags == nil {
		tags = DefaultSuffixTags
	}
	p := &Parser{}
	var quoted []string
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			quoted = append(quoted, regexp.QuoteMeta(tag))
		}
	}
	if len(quoted) > 0 {
		p.suffix = regexp.MustCompile(`(?i)\s*\|\s*(?:` + strings.Join(quoted, "|") + `)\s*$`)
	}
	return p
}

// Parse parses content with default options.
func Parse(content string) (Event, error) {
	return NewParser(Options{}).Parse(content)
}

// Lines returns the trimmed non-empty lines of content.
func Lines(content string) []string {
	var lines []string
	for _, ln := range strings.Split(content, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	return lines
}

// MailID returns the natural identifier (first non-empty line), or "".
func MailID(content string) string {
	lines := Lines(content)
	if len(lines) == 0 {
		return ""
	}
	return lines[idLine]
}

// Parse extracts a sale or purchase event. Failures are *ParseError.
func (p *Parser) Parse(content string) (Event, error) {
	lines := Lines(content)
	if len(lines) < MinLines {
		return Event{}, &ParseError{
			Code:  ErrTooFewLines,
			Field: "lines",
			Text:  strconv.Itoa(len(lines)) + " of " + strconv.Itoa(MinLines),
		}
	}

	ts, err := parseTimestamp(lines[timestampLine])
	if err != nil {
		return Event{}, err
	}

	label := lines[labelLine]
	body := lines[bodyLine]
	switch {
	case strings.Contains(label, SaleLabel):
		return p.parseSale(ts, body)
	case strings.Contains(label, PurchaseLabel):
		return parsePurchase(ts, body)
	}
	return Event{}, &ParseError{Code: ErrUnknownEvent, Field: "event label", Line: labelLine + 1, Text: label}
}

func parseTimestamp(line string) (time.Time, error) {
	m := timestampRe.FindStringSubmatch(line)
	if m == nil {
		return time.Time{}, &ParseError{Code: ErrMissingTimestamp, Field: "timestamp", Line: timestampLine + 1, Text: line}
	}
	secs, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}, &ParseError{Code: ErrInvalidTimestamp, Field: "timestamp", Line: timestampLine + 1, Text: line}
	}
	return time.Unix(secs, 0).UTC(), nil
}

func (p *Parser) parseSale(ts time.Time, body string) (Event, error) {
	m := saleRe.FindStringSubmatch(body)
	if m == nil {
		return Event{}, &ParseError{Code: ErrBodyMismatch, Field: "sale body", Line: bodyLine + 1, Text: body}
	}
	amount, err := parseAmount(m[saleRe.SubexpIndex("amount")], body)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Kind:     KindSale,
		Time:     ts,
		Vendor:   strings.TrimSpace(m[saleRe.SubexpIndex("vendor")]),
		Item:     p.TrimSuffix(strings.TrimSpace(m[saleRe.SubexpIndex("item")])),
		Customer: strings.TrimSpace(m[saleRe.SubexpIndex("customer")]),
		Amount:   amount,
	}, nil
}

func parsePurchase(ts time.Time, body string) (Event, error) {
	m := purchaseRe.FindStringSubmatch(body)
	if m == nil {
		return Event{}, &ParseError{Code: ErrBodyMismatch, Field: "purchase body", Line: bodyLine + 1, Text: body}
	}
	amount, err := parseAmount(m[purchaseRe.SubexpIndex("amount")], body)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Kind:   KindPurchase,
		Time:   ts,
		Vendor: strings.TrimSpace(m[purchaseRe.SubexpIndex("vendor")]),
		Item:   strings.TrimSpace(m[purchaseRe.SubexpIndex("item")]),
		Amount: amount,
	}, nil
}

func parseAmount(s, body string) (int64, error) {
	amount, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &ParseError{Code: ErrInvalidAmount, Field: "amount", Line: bodyLine + 1, Text: body}
	}
	return amount, nil
}

// TrimSuffix removes a trailing "| <tag>" decoration from an item name.
func (p *Parser) TrimSuffix(item string) string {
	if p.suffix == nil {
		return item
	}
	return p.suffix.ReplaceAllString(item, "")
}
