package videowizard

import (
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/storyreel/storyreel/internal/catalog"
	"github.com/storyreel/storyreel/internal/preview"
	"github.com/storyreel/storyreel/internal/session"
	"github.com/storyreel/storyreel/internal/tui/theme"
	"github.com/storyreel/storyreel/internal/tui/wizard"
)

// playingBadge marks the option being previewed.
const playingBadge = "♪ 재생 중"

// VoiceStep picks the narration voice.
type VoiceStep struct {
	list  *wizard.OptionList
	slot  *preview.Slot
	width int
}

// NewVoiceStep lists the catalog voices with current preselected.
func NewVoiceStep(cat *catalog.Catalog, current string, slot *preview.Slot) *VoiceStep {
	opts := make([]wizard.Option, 0, len(cat.Voices))
	for _, v := range cat.Voices {
		opts = append(opts, wizard.Option{ID: v.ID, Title: v.Name, Detail: v.Description})
	}
	return &VoiceStep{list: wizard.NewOptionList(opts, current), slot: slot}
}

// Init initializes the voice step.
func (s *VoiceStep) Init() tea.Cmd {
	return nil
}

// Update handles messages for the voice step.
func (s *VoiceStep) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return nil
	}
	switch key.String() {
	case "up", "k":
		s.list.Up()
	case "down", "j":
		s.list.Down()
	case "enter", " ":
		id := s.list.Select().ID
		return func() tea.Msg {
			return SelectionChangedMsg{Patch: session.Patch{TTSVoice: &id}}
		}
	case "p":
		return togglePreview(s.slot, s.list.Cursor().ID, preview.VoiceDuration)
	case "tab":
		return func() tea.Msg { return wizard.TabExitForwardMsg{} }
	case "shift+tab":
		return func() tea.Msg { return wizard.TabExitBackwardMsg{} }
	}
	return nil
}

// togglePreview flips the preview for id and schedules its expiry.
func togglePreview(slot *preview.Slot, id string, d time.Duration) tea.Cmd {
	if id == "" {
		return nil
	}
	tok, started := slot.Toggle(id)
	if !started {
		return nil
	}
	return tea.Tick(d, func(time.Time) tea.Msg {
		return previewExpiredMsg{token: tok}
	})
}

// Selected returns the chosen voice id.
func (s *VoiceStep) Selected() string {
	return s.list.Selected().ID
}

// Focus shows the list cursor.
func (s *VoiceStep) Focus() { s.list.Focus() }

// Blur hides the list cursor.
func (s *VoiceStep) Blur() { s.list.Blur() }

// SetSize updates the size of the voice step.
func (s *VoiceStep) SetSize(width, height int) {
	s.width = width
}

// View renders the voice list.
func (s *VoiceStep) View() string {
	st := theme.Current().S()
	return lipgloss.JoinVertical(lipgloss.Left,
		st.Text.Render("내레이션 목소리를 선택하세요"),
		"",
		s.list.View(func(id string) string {
			if s.slot.Playing(id) {
				return playingBadge
			}
			return ""
		}),
		"",
		wizard.RenderHintBar("↑↓", "이동", "enter", "선택", "p", "미리듣기", "tab", "버튼"),
	)
}
