// Package classify infers a (profession, category) pair for merchant events
// from an ordered, data-driven rule table.
package classify

import (
	"strings"

	"golang.org/x/text/cases"
)

// Result is a classification. Empty fields are unresolved.
type Result struct {
	Profession string
	Category   string
}

// fragmentRule is anything matched by case-folded substring fragments.
type fragmentRule interface {
	fragments() []string
}

type itemRule struct {
	match      []string
	profession string
	category   string
}

func (r itemRule) fragments() []string { return r.match }

type vendorRule struct {
	match      []string
	profession string
	category   string
	items      []itemRule
}

func (r vendorRule) fragments() []string { return r.match }

// firstMatch returns the first rule with any fragment contained in text.
// text and fragments must already be folded.
func firstMatch[R fragmentRule](rules []R, text string) (R, bool) {
	for _, r := range rules {
		for _, f := range r.fragments() {
			if strings.Contains(text, f) {
				return r, true
			}
		}
	}
	var zero R
	return zero, false
}

// Classifier evaluates a rule table. It is immutable and safe for
// concurrent use.
type Classifier struct {
	version  string
	sale     []vendorRule
	purchase []itemRule
}

// New compiles a validated table.
func New(t *Table) *Classifier {
	c := &Classifier{version: t.Version}
	for _, v := range t.Sale {
		c.sale = append(c.sale, vendorRule{
			match:      foldAll(v.Vendor),
			profession: v.Profession,
			category:   v.Category,
			items:      compileItems(v.Items),
		})
	}
	c.purchase = compileItems(t.Purchase)
	return c
}

// Default returns a classifier over the built-in rule table.
func Default() (*Classifier, error) {
	t, err := DefaultTable()
	if err != nil {
		return nil, err
	}
	return New(t), nil
}

// Version reports the rule table version.
func (c *Classifier) Version() string {
	return c.version
}

// Sale classifies a sale by vendor, then refines by item.
func (c *Classifier) Sale(vendor, item string) Result {
	v, ok := firstMatch(c.sale, fold(vendor))
	if !ok {
		return Result{}
	}
	res := Result{Profession: v.profession, Category: v.category}
	if r, ok := firstMatch(v.items, fold(item)); ok {
		res = r.apply(res)
	}
	return res
}

// Purchase classifies a purchase by item only. Purchases carry no profession.
func (c *Classifier) Purchase(item string) Result {
	r, ok := firstMatch(c.purchase, fold(item))
	if !ok {
		return Result{}
	}
	return Result{Category: r.category}
}

func (r itemRule) apply(res Result) Result {
	if r.profession != "" {
		res.Profession = r.profession
	}
	if r.category != "" {
		res.Category = r.category
	}
	return res
}

func compileItems(rules []ItemRule) []itemRule {
	out := make([]itemRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, itemRule{
			match:      foldAll(r.Match),
			profession: r.Profession,
			category:   r.Category,
		})
	}
	return out
}

func foldAll(fragments []string) []string {
	out := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f = fold(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// fold applies Unicode case folding. A Caser keeps state, so each call gets
// its own.
func fold(s string) string {
	return cases.Fold().String(s)
}
