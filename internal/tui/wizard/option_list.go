package wizard

import (
	"strings"

	"github.com/storyreel/storyreel/internal/tui/theme"
)

// Option is one choice in an OptionList.
type Option struct {
	ID     string
	Title  string
	Detail string
}

// OptionList is a single-choice list with a movable cursor. The selected
// option is distinct from the cursor: moving does not change the selection.
type OptionList struct {
	options  []Option
	cursor   int
	selected int
	focused  bool
}

// NewOptionList builds a list with selectedID chosen and the cursor on it.
// An unknown id leaves the first option selected.
func NewOptionList(options []Option, selectedID string) *OptionList {
	l := &OptionList{options: options, focused: true}
	l.SelectID(selectedID)
	return l
}

// Options returns the list entries.
func (l *OptionList) Options() []Option {
	return l.options
}

// Up moves the cursor up, stopping at the top.
func (l *OptionList) Up() {
	if l.cursor > 0 {
		l.cursor--
	}
}

// Down moves the cursor down, stopping at the bottom.
func (l *OptionList) Down() {
	if l.cursor < len(l.options)-1 {
		l.cursor++
	}
}

// Cursor returns the option under the cursor.
func (l *OptionList) Cursor() Option {
	if len(l.options) == 0 {
		return Option{}
	}
	return l.options[l.cursor]
}

// Select chooses the option under the cursor and returns it.
func (l *OptionList) Select() Option {
	l.selected = l.cursor
	return l.Selected()
}

// SelectID chooses the option with id and moves the cursor to it. Reports
// whether the id exists.
func (l *OptionList) SelectID(id string) bool {
	for i, o := range l.options {
		if o.ID == id {
			l.selected = i
			l.cursor = i
			return true
		}
	}
	return false
}

// Selected returns the chosen option.
func (l *OptionList) Selected() Option {
	if len(l.options) == 0 {
		return Option{}
	}
	return l.options[l.selected]
}

// Focus shows the cursor.
func (l *OptionList) Focus() { l.focused = true }

// Blur hides the cursor.
func (l *OptionList) Blur() { l.focused = false }

// Focused reports whether the list shows its cursor.
func (l *OptionList) Focused() bool { return l.focused }

// View renders one line per option. badge, when non-nil, may return a short
// marker to append to an option (such as a playing indicator).
func (l *OptionList) View(badge func(id string) string) string {
	s := theme.Current().S()

	lines := make([]string, 0, len(l.options))
	for i, o := range l.options {
		pointer := "  "
		if l.focused && i == l.cursor {
			pointer = s.Cursor.Render("› ")
		}

		radio := s.Muted.Render("○ ")
		title := s.Text.Render(o.Title)
		if i == l.selected {
			radio = s.Selected.Render("● ")
			title = s.Selected.Render(o.Title)
		}

		line := pointer + radio + title
		if o.Detail != "" {
			line += "  " + s.Muted.Render(o.Detail)
		}
		if badge != nil {
			if b := badge(o.ID); b != "" {
				line += "  " + s.Playing.Render(b)
			}
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
