package report

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Table is a titled grid of raw values. Numbers are formatted only when
// rendered as Markdown; CSV extracts keep them raw.
type Table struct {
	Headers []string `json:"headers"`
	Rows    [][]any  `json:"rows"`
}

var printer = message.NewPrinter(language.English)

// FormatValue renders a cell for humans: integers get thousands separators,
// floats show two decimals unless they are within 0.01 of a whole number.
func FormatValue(v any) string {
	switch n := v.(type) {
	case int:
		return printer.Sprintf("%d", n)
	case int64:
		return printer.Sprintf("%d", n)
	case float64:
		if math.Abs(n-math.Round(n)) < 0.01 {
			return printer.Sprintf("%d", int64(math.Round(n)))
		}
		return printer.Sprintf("%.2f", n)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// Markdown renders the table with columns padded to their display width.
func (t Table) Markdown() string {
	cells := make([][]string, len(t.Rows))
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for r, row := range t.Rows {
		cells[r] = make([]string, len(t.Headers))
		for c := range t.Headers {
			if c < len(row) {
				cells[r][c] = FormatValue(row[c])
			}
			widths[c] = max(widths[c], runewidth.StringWidth(cells[r][c]))
		}
	}

	var sb strings.Builder
	writeRow := func(row []string) {
		sb.WriteString("|")
		for c, cell := range row {
			sb.WriteString(" ")
			sb.WriteString(cell)
			sb.WriteString(strings.Repeat(" ", widths[c]-runewidth.StringWidth(cell)))
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}

	writeRow(t.Headers)
	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	writeRow(rule)
	for _, row := range cells {
		writeRow(row)
	}
	return sb.String()
}

// WriteCSV writes the table with raw values to path, creating parent dirs.
func (t Table) WriteCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Headers); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for _, row := range t.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = fmt.Sprint(v)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
