package classify

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// ErrInvalidTable is returned when a rule table fails validation.
var ErrInvalidTable = errors.New("invalid rule table")

// Table is the versioned classification reference data.
type Table struct {
	Version  string       `yaml:"version"`
	Sale     []VendorRule `yaml:"sale"`
	Purchase []ItemRule   `yaml:"purchase"`
}

// VendorRule matches a sale's vendor name. Profession and Category are the
// defaults applied on a match; Items may refine them.
type VendorRule struct {
	Vendor     []string   `yaml:"vendor"`
	Profession string     `yaml:"profession,omitempty"`
	Category   string     `yaml:"category,omitempty"`
	Items      []ItemRule `yaml:"items,omitempty"`
}

// ItemRule matches an item name. Empty fields leave the current value alone.
type ItemRule struct {
	Match      []string `yaml:"match"`
	Profession string   `yaml:"profession,omitempty"`
	Category   string   `yaml:"category,omitempty"`
}

// DefaultTable returns the built-in rule table.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultRules)
}

// LoadTable reads a rule table from a YAML file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	t, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return t, nil
}

// ParseTable decodes and validates a YAML rule table.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks that every rule can match something and assigns something.
func (t *Table) Validate() error {
	if strings.TrimSpace(t.Version) == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidTable)
	}
	for i, v := range t.Sale {
		if !hasFragment(v.Vendor) {
			return fmt.Errorf("%w: sale rule %d has no vendor fragment", ErrInvalidTable, i)
		}
		if v.Profession == "" && v.Category == "" && len(v.Items) == 0 {
			return fmt.Errorf("%w: sale rule %d (%s) assigns nothing", ErrInvalidTable, i, v.Vendor[0])
		}
		for j, item := range v.Items {
			if err := item.validate(); err != nil {
				return fmt.Errorf("%w: sale rule %d item %d: %w", ErrInvalidTable, i, j, err)
			}
		}
	}
	for i, item := range t.Purchase {
		if err := item.validate(); err != nil {
			return fmt.Errorf("%w: purchase rule %d: %w", ErrInvalidTable, i, err)
		}
	}
	return nil
}

func (r ItemRule) validate() error {
	if !hasFragment(r.Match) {
		return errors.New("no match fragment")
	}
	if r.Profession == "" && r.Category == "" {
		return errors.New("assigns nothing")
	}
	return nil
}

func hasFragment(fragments []string) bool {
	for _, f := range fragments {
		if strings.TrimSpace(f) != "" {
			return true
		}
	}
	return false
}
