package wizard

import (
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/storyreel/storyreel/internal/tui/theme"
)

// RenderHintBar renders key/description pairs as "↑↓ navigate • enter select".
// An odd number of arguments renders nothing.
func RenderHintBar(pairs ...string) string {
	if len(pairs) == 0 || len(pairs)%2 != 0 {
		return ""
	}

	t := theme.Current()
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgSubtle)).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgMuted))
	sep := " " + lipgloss.NewStyle().Foreground(lipgloss.Color(t.BorderDefault)).Render("•") + " "

	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		parts = append(parts, keyStyle.Render(pairs[i])+" "+descStyle.Render(pairs[i+1]))
	}
	return strings.Join(parts, sep)
}
