package mail

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func artifact(lines ...string) string {
	return strings.Join(lines, "\n")
}

var saleArtifact = artifact(
	"778001",
	"src",
	"Vendor Sale Complete",
	"TIMESTAMP: 1700000000",
	"Vendor: Weapons has sold Wookiee Carbine to zeta for 25000 credits",
	"sold at Shop, on Tatooine",
)

func TestParse_Sale(t *testing.T) {
	ev, err := Parse(saleArtifact)
	require.NoError(t, err)

	want := Event{
		Kind:     KindSale,
		Time:     time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC),
		Vendor:   "Weapons",
		Item:     "Wookiee Carbine",
		Customer: "zeta",
		Amount:   25000,
	}
	if diff := cmp.Diff(want, ev); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Purchase(t *testing.T) {
	content := artifact(
		"  900001  ",
		"",
		"src",
		"Vendor Item Purchased",
		"TIMESTAMP:1700003600",
		`You have won the auction of "Bantha Blood" from "Mos Eisley Bazaar" for 1200 credits. The sale took place at Bestine.`,
		"",
		"footer",
	)

	ev, err := Parse(content)
	require.NoError(t, err)

	want := Event{
		Kind:   KindPurchase,
		Time:   time.Date(2023, 11, 14, 23, 13, 20, 0, time.UTC),
		Vendor: "Mos Eisley Bazaar",
		Item:   "Bantha Blood",
		Amount: 1200,
	}
	if diff := cmp.Diff(want, ev); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_CaseInsensitiveBodyAndCRLF(t *testing.T) {
	content := "id\r\nsrc\r\nVendor Sale Complete\r\ntimestamp: 1\r\nvendor: Chef HAS SOLD Pie TO Han FOR 10 CREDITS\r\nend\r\n"

	ev, err := Parse(content)
	require.NoError(t, err)
	assert.Equal(t, "Chef", ev.Vendor)
	assert.Equal(t, "Pie", ev.Item)
	assert.Equal(t, "Han", ev.Customer)
	assert.Equal(t, int64(10), ev.Amount)
}

func TestParse_SuffixTrim(t *testing.T) {
	body := "Vendor: Weapons has sold Wookiee Carbine | Epak to zeta for 5 credits"
	content := artifact("id", "src", SaleLabel, "TIMESTAMP: 1", body, "end")

	ev, err := Parse(content)
	require.NoError(t, err)
	assert.Equal(t, "Wookiee Carbine", ev.Item)

	custom := NewParser(Options{SuffixTags: []string{"Other"}})
	ev, err = custom.Parse(content)
	require.NoError(t, err)
	assert.Equal(t, "Wookiee Carbine | Epak", ev.Item)

	assert.Equal(t, "Rifle", custom.TrimSuffix("Rifle |other "))

	none := NewParser(Options{SuffixTags: []string{}})
	assert.Equal(t, "Rifle | Epak", none.TrimSuffix("Rifle | Epak"))
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    error
		field   string
		line    int
	}{
		{
			name:    "too few lines",
			content: artifact("id", "src", SaleLabel, "TIMESTAMP: 1", "body"),
			code:    ErrTooFewLines,
			field:   "lines",
		},
		{
			name:    "missing timestamp",
			content: artifact("id", "src", SaleLabel, "no time here", "body", "end"),
			code:    ErrMissingTimestamp,
			field:   "timestamp",
			line:    4,
		},
		{
			name:    "timestamp overflow",
			content: artifact("id", "src", SaleLabel, "TIMESTAMP: 99999999999999999999", "body", "end"),
			code:    ErrInvalidTimestamp,
			field:   "timestamp",
			line:    4,
		},
		{
			name:    "unknown event",
			content: artifact("id", "src", "Auction Expired", "TIMESTAMP: 1", "body", "end"),
			code:    ErrUnknownEvent,
			field:   "event label",
			line:    3,
		},
		{
			name:    "sale body mismatch",
			content: artifact("id", "src", SaleLabel, "TIMESTAMP: 1", "Vendor: X sold nothing", "end"),
			code:    ErrBodyMismatch,
			field:   "sale body",
			line:    5,
		},
		{
			name:    "purchase body mismatch",
			content: artifact("id", "src", PurchaseLabel, "TIMESTAMP: 1", "You bought something", "end"),
			code:    ErrBodyMismatch,
			field:   "purchase body",
			line:    5,
		},
		{
			name:    "amount overflow",
			content: artifact("id", "src", SaleLabel, "TIMESTAMP: 1", "Vendor: X has sold Y to Z for 99999999999999999999 credits", "end"),
			code:    ErrInvalidAmount,
			field:   "amount",
			line:    5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.content)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.code)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.field, perr.Field)
			assert.Equal(t, tt.line, perr.Line)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestMailID(t *testing.T) {
	assert.Equal(t, "778001", MailID(saleArtifact))
	assert.Equal(t, "abc", MailID("\n\n   abc  \nmore"))
	assert.Equal(t, "", MailID(" \n\t\n"))
}
