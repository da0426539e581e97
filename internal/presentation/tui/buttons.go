package tui

import (
	"fmt"
	"strings"

	"github.com/branchwork/bramble/pkg/domain"
	"github.com/muesli/termenv"
)

// RenderButtons formats reply buttons on one line, honoring the color
// hints carried by the flow document.
func RenderButtons(buttons []domain.Button) string {
	if len(buttons) == 0 {
		return ""
	}
	p := termenv.ColorProfile()

	parts := make([]string, 0, len(buttons))
	for _, b := range buttons {
		label := fmt.Sprintf(" %s ", b.Label)
		styled := termenv.String(label)
		if b.BackgroundColor != "" {
			styled = styled.Background(p.Color(b.BackgroundColor))
		}
		if b.TextColor != "" {
			styled = styled.Foreground(p.Color(b.TextColor))
		}
		parts = append(parts, fmt.Sprintf("[%s] %s", b.Value, styled.String()))
	}
	return strings.Join(parts, "  ")
}
