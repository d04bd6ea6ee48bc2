// Package theme holds the color palettes and shared lipgloss styles of the
// terminal UI.
package theme

import (
	"sync"
	"sync/atomic"

	"charm.land/lipgloss/v2"
)

// Theme defines the color palette for the TUI. Colors are hex strings.
type Theme struct {
	Name   string
	IsDark bool

	Primary   string
	Secondary string
	Accent    string

	BgBase     string
	BgSurface0 string
	BgSurface1 string

	// Foreground hierarchy (dim→bright)
	FgMuted  string
	FgSubtle string
	FgBase   string
	FgBright string

	BorderDefault string
	BorderFocused string

	Success string
	Warning string
	Error   string
	Info    string

	// Lazy-built styles
	styles     *Styles
	stylesOnce sync.Once
}

var current atomic.Pointer[Theme]

func init() {
	current.Store(Reel())
}

// Current returns the active theme.
func Current() *Theme {
	return current.Load()
}

// Set activates the named theme. Unknown names keep the current theme and
// report false.
func Set(name string) bool {
	switch name {
	case "reel", "dark", "":
		current.Store(Reel())
	case "paper", "light":
		current.Store(Paper())
	default:
		return false
	}
	return true
}

// S returns the pre-built styles for this theme.
func (t *Theme) S() *Styles {
	t.stylesOnce.Do(func() {
		t.styles = t.buildStyles()
	})
	return t.styles
}

func (t *Theme) buildStyles() *Styles {
	c := lipgloss.Color
	return &Styles{
		Title: lipgloss.NewStyle().
			Foreground(c(t.Primary)).
			Bold(true),
		Subtitle: lipgloss.NewStyle().
			Foreground(c(t.FgSubtle)),
		Text: lipgloss.NewStyle().
			Foreground(c(t.FgBase)),
		Muted: lipgloss.NewStyle().
			Foreground(c(t.FgMuted)),
		Label: lipgloss.NewStyle().
			Foreground(c(t.FgMuted)).
			Width(10),
		Value: lipgloss.NewStyle().
			Foreground(c(t.FgBright)).
			Bold(true),
		Selected: lipgloss.NewStyle().
			Foreground(c(t.Secondary)).
			Bold(true),
		Cursor: lipgloss.NewStyle().
			Foreground(c(t.Primary)),
		Playing: lipgloss.NewStyle().
			Foreground(c(t.Accent)),
		Success: lipgloss.NewStyle().
			Foreground(c(t.Success)).
			Bold(true),
		Warning: lipgloss.NewStyle().
			Foreground(c(t.Warning)),
		Error: lipgloss.NewStyle().
			Foreground(c(t.Error)).
			Bold(true),
		Modal: lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(c(t.BorderDefault)),
		Box: lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(c(t.BorderDefault)),
		BoxFocused: lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(c(t.BorderFocused)),
		BarFilled: lipgloss.NewStyle().
			Foreground(c(t.Primary)),
		BarEmpty: lipgloss.NewStyle().
			Foreground(c(t.BgSurface1)),
	}
}
