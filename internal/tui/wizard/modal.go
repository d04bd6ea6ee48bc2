package wizard

import (
	"charm.land/lipgloss/v2"
	"github.com/storyreel/storyreel/internal/tui/theme"
)

// RenderConfirmationModal renders a yes/no confirmation box.
func RenderConfirmationModal(title, message string) string {
	t := theme.Current()

	titleText := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(t.Warning)).
		Render("⚠ " + title)
	messageText := lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.FgBase)).
		Width(44).
		Render(message)
	keys := RenderHintBar("y", "확인", "n/esc", "취소")

	content := lipgloss.JoinVertical(lipgloss.Left, titleText, "", messageText, "", keys)
	return lipgloss.NewStyle().
		Width(50).
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(t.Warning)).
		Render(content)
}

// RenderErrorModal renders a failure box with a help text and key hints.
func RenderErrorModal(title, message, help string, hints ...string) string {
	t := theme.Current()

	parts := []string{
		lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(t.Error)).Render("✗ " + title),
		"",
		lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgBase)).Width(60).Render(message),
	}
	if help != "" {
		parts = append(parts, "", lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgMuted)).Width(60).Render(help))
	}
	if len(hints) > 0 {
		parts = append(parts, "", RenderHintBar(hints...))
	}

	return lipgloss.NewStyle().
		Width(66).
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(t.Error)).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
