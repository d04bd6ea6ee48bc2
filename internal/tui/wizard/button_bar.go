package wizard

import (
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/storyreel/storyreel/internal/tui/theme"
)

// ButtonState represents the visual state of a button.
type ButtonState int

const (
	ButtonNormal   ButtonState = iota // Normal state (enabled)
	ButtonDisabled                    // Disabled state (grayed out)
	ButtonFocused                     // Focused/highlighted state
)

// ButtonID is a button's position in its bar.
type ButtonID int

// Conventional positions in a two-button bar.
const (
	ButtonNone ButtonID = -1
	ButtonBack ButtonID = 0
	ButtonNext ButtonID = 1
)

// Button represents a single button in the button bar.
type Button struct {
	Label string
	State ButtonState
}

// ButtonBar manages a row of buttons and which one has keyboard focus.
// Disabled buttons are skipped by focus movement.
type ButtonBar struct {
	buttons []Button
	focus   int
	width   int
}

// NewButtonBar creates a new button bar with the given buttons. Nothing is
// focused initially.
func NewButtonBar(buttons []Button) *ButtonBar {
	return &ButtonBar{
		buttons: buttons,
		focus:   -1,
		width:   60,
	}
}

// SetWidth updates the width for the button bar.
func (b *ButtonBar) SetWidth(width int) {
	b.width = width
}

// SetEnabled enables or disables the button at id. Disabling the focused
// button moves focus off the bar.
func (b *ButtonBar) SetEnabled(id ButtonID, enabled bool) {
	i := int(id)
	if i < 0 || i >= len(b.buttons) {
		return
	}
	if enabled {
		if b.buttons[i].State == ButtonDisabled {
			b.buttons[i].State = ButtonNormal
		}
		return
	}
	b.buttons[i].State = ButtonDisabled
	if b.focus == i {
		b.focus = -1
	}
}

// Enabled reports whether the button at id can be activated.
func (b *ButtonBar) Enabled(id ButtonID) bool {
	i := int(id)
	return i >= 0 && i < len(b.buttons) && b.buttons[i].State != ButtonDisabled
}

func (b *ButtonBar) enabledIndices() []int {
	var out []int
	for i, btn := range b.buttons {
		if btn.State != ButtonDisabled {
			out = append(out, i)
		}
	}
	return out
}

// FocusFirst focuses the first enabled button.
func (b *ButtonBar) FocusFirst() {
	b.focus = -1
	if idx := b.enabledIndices(); len(idx) > 0 {
		b.focus = idx[0]
	}
}

// FocusLast focuses the last enabled button.
func (b *ButtonBar) FocusLast() {
	b.focus = -1
	if idx := b.enabledIndices(); len(idx) > 0 {
		b.focus = idx[len(idx)-1]
	}
}

// FocusNext moves focus right. It returns false, leaving focus unchanged,
// when there is no enabled button to the right.
func (b *ButtonBar) FocusNext() bool {
	for i := b.focus + 1; i < len(b.buttons); i++ {
		if b.buttons[i].State != ButtonDisabled {
			b.focus = i
			return true
		}
	}
	return false
}

// FocusPrev moves focus left. It returns false when there is no enabled
// button to the left.
func (b *ButtonBar) FocusPrev() bool {
	start := b.focus - 1
	if b.focus < 0 {
		start = len(b.buttons) - 1
	}
	for i := start; i >= 0; i-- {
		if b.buttons[i].State != ButtonDisabled {
			b.focus = i
			return true
		}
	}
	return false
}

// Blur removes focus from the bar.
func (b *ButtonBar) Blur() {
	b.focus = -1
}

// FocusedButton returns the focused button, or ButtonNone.
func (b *ButtonBar) FocusedButton() ButtonID {
	if b.focus < 0 {
		return ButtonNone
	}
	return ButtonID(b.focus)
}

// Render renders the buttons centered in the bar width.
func (b *ButtonBar) Render() string {
	if len(b.buttons) == 0 {
		return ""
	}

	t := theme.Current()
	base := lipgloss.NewStyle().
		Padding(0, 2).
		MarginLeft(1).
		MarginRight(1)
	normalStyle := base.
		Foreground(lipgloss.Color(t.FgBase)).
		Background(lipgloss.Color(t.BgSurface0))
	disabledStyle := base.
		Foreground(lipgloss.Color(t.FgMuted)).
		Background(lipgloss.Color(t.BgBase))
	focusedStyle := base.
		Foreground(lipgloss.Color(t.BgBase)).
		Background(lipgloss.Color(t.Secondary)).
		Bold(true)

	rendered := make([]string, 0, len(b.buttons))
	for i, btn := range b.buttons {
		switch {
		case btn.State == ButtonDisabled:
			rendered = append(rendered, disabledStyle.Render(btn.Label))
		case i == b.focus || btn.State == ButtonFocused:
			rendered = append(rendered, focusedStyle.Render(btn.Label))
		default:
			rendered = append(rendered, normalStyle.Render(btn.Label))
		}
	}

	return lipgloss.Place(b.width, 1, lipgloss.Center, lipgloss.Center, strings.Join(rendered, ""))
}

// CreateBackNextButtons creates the standard Back/Next pair.
func CreateBackNextButtons(backEnabled, nextEnabled bool, nextLabel string) []Button {
	state := func(enabled bool) ButtonState {
		if enabled {
			return ButtonNormal
		}
		return ButtonDisabled
	}
	return []Button{
		{Label: "← 이전", State: state(backEnabled)},
		{Label: nextLabel, State: state(nextEnabled)},
	}
}
