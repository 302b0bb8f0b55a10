package report

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// DefaultWordWrap is the terminal width used by Pretty.
const DefaultWordWrap = 100

// Pretty renders Markdown for a terminal. style is a glamour standard style
// name ("dark", "light", "notty", ...); empty picks one from the terminal.
func Pretty(markdown, style string) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(DefaultWordWrap)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
