package report

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/roach88/swgmerchant/internal/ledger"
)

// maxSuggestions caps the "did you mean" list per unknown value.
const maxSuggestions = 3

// Suggest returns the known values closest to v by edit distance, best first.
// Case-insensitive equality always qualifies; otherwise the distance must be
// at most a third of the longer string (minimum 2).
func Suggest(v string, known []string) []string {
	type scored struct {
		value string
		dist  int
	}
	var hits []scored
	lv := strings.ToLower(v)
	for _, k := range known {
		d := levenshtein.Distance(lv, strings.ToLower(k), nil)
		limit := max(2, max(len(v), len(k))/3)
		if d <= limit {
			hits = append(hits, scored{k, d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].value < hits[j].value
	})

	out := make([]string, 0, maxSuggestions)
	for _, h := range hits {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, h.value)
	}
	return out
}

// CheckFilter reports filter values that match nothing in the ledger, with
// suggestions drawn from the stored professions and categories.
func CheckFilter(ctx context.Context, l *ledger.Ledger, f ledger.Filter) ([]string, error) {
	var warnings []string
	check := func(column string, values []string) error {
		if len(values) == 0 {
			return nil
		}
		known, err := l.DistinctValues(ctx, column)
		if err != nil {
			return err
		}
		for _, v := range values {
			if slices.Contains(known, v) {
				continue
			}
			msg := fmt.Sprintf("no sales with %s %q", column, v)
			if s := Suggest(v, known); len(s) > 0 {
				msg += fmt.Sprintf(" (did you mean %s?)", quoteJoin(s))
			}
			warnings = append(warnings, msg)
		}
		return nil
	}
	if err := check("profession", f.Professions); err != nil {
		return nil, err
	}
	if err := check("category", f.Categories); err != nil {
		return nil, err
	}
	return warnings, nil
}

func quoteJoin(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, " or ")
}
