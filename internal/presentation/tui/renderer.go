package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders message markdown using
// glamour, auto-detecting light/dark terminal backgrounds.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)

	return func(markdown string) (string, error) {
		if err != nil {
			return markdown, nil
		}
		return r.Render(markdown)
	}
}
