package theme

import "charm.land/lipgloss/v2"

// Styles contains the pre-built lipgloss styles shared by the wizard screens.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Text     lipgloss.Style
	Muted    lipgloss.Style

	// Summary rows
	Label lipgloss.Style
	Value lipgloss.Style

	// Option lists
	Selected lipgloss.Style
	Cursor   lipgloss.Style
	Playing  lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	Modal      lipgloss.Style
	Box        lipgloss.Style
	BoxFocused lipgloss.Style

	BarFilled lipgloss.Style
	BarEmpty  lipgloss.Style
}
