package videowizard

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/glamour/v2"
	"charm.land/lipgloss/v2"
	"github.com/storyreel/storyreel/internal/catalog"
	"github.com/storyreel/storyreel/internal/session"
	"github.com/storyreel/storyreel/internal/tui/theme"
	"github.com/storyreel/storyreel/internal/tui/wizard"
)

// SettingsStep shows the manuscript analysis and the collected choices, and
// picks the video ratio.
type SettingsStep struct {
	cat      *catalog.Catalog
	sel      session.Selections
	ratios   *wizard.OptionList
	viewport viewport.Model
	width    int
}

// NewSettingsStep creates the step for the current selections.
func NewSettingsStep(cat *catalog.Catalog, sel session.Selections) *SettingsStep {
	opts := make([]wizard.Option, 0, len(cat.Ratios))
	for _, r := range cat.Ratios {
		opts = append(opts, wizard.Option{ID: r.ID, Title: r.Label, Detail: r.Description})
	}

	vp := viewport.New(
		viewport.WithWidth(60),
		viewport.WithHeight(8),
	)
	vp.MouseWheelEnabled = true

	s := &SettingsStep{
		cat:      cat,
		sel:      sel,
		ratios:   wizard.NewOptionList(opts, sel.VideoRatio),
		viewport: vp,
		width:    60,
	}
	s.render()
	return s
}

// summaryMarkdown describes the selections as markdown.
func summaryMarkdown(cat *catalog.Catalog, sel session.Selections) string {
	var b strings.Builder
	b.WriteString("### 원고 분석\n\n")
	fmt.Fprintf(&b, "- **분량**: %d자\n", sel.WordCount)
	fmt.Fprintf(&b, "- **예상 길이**: %s\n", sel.EstimatedDuration)
	if sel.ManuscriptSource == session.SourceYouTube {
		fmt.Fprintf(&b, "- **출처**: %s\n", sel.YouTubeURL)
	}
	fmt.Fprintf(&b, "- **목소리**: %s\n", cat.VoiceName(sel.TTSVoice))
	fmt.Fprintf(&b, "- **배경음악**: %s\n", cat.BGMLabel(sel.BGMGenre, sel.BGMType))

	if sel.Summary != "" {
		b.WriteString("\n### 요약\n\n")
		b.WriteString("> " + strings.ReplaceAll(sel.Summary, "\n", " ") + "\n")
	}
	if len(sel.Chapters) > 0 {
		b.WriteString("\n### 구성\n\n")
		for i, c := range sel.Chapters {
			fmt.Fprintf(&b, "%d. %s\n", i+1, c)
		}
	}
	return b.String()
}

// renderMarkdown renders content with glamour, falling back to the raw text.
func renderMarkdown(content string, width int) string {
	if width > 120 {
		width = 120
	}
	style := "dark"
	if !theme.Current().IsDark {
		style = "light"
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

func (s *SettingsStep) render() {
	s.viewport.SetContent(renderMarkdown(summaryMarkdown(s.cat, s.sel), s.width))
	s.viewport.GotoTop()
}

// Init initializes the settings step.
func (s *SettingsStep) Init() tea.Cmd {
	return nil
}

// Update handles messages for the settings step.
func (s *SettingsStep) Update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyPressMsg); ok {
		switch key.String() {
		case "up", "k":
			s.ratios.Up()
			return nil
		case "down", "j":
			s.ratios.Down()
			return nil
		case "enter", " ":
			id := s.ratios.Select().ID
			return func() tea.Msg {
				return SelectionChangedMsg{Patch: session.Patch{VideoRatio: &id}}
			}
		case "tab":
			return func() tea.Msg { return wizard.TabExitForwardMsg{} }
		case "shift+tab":
			return func() tea.Msg { return wizard.TabExitBackwardMsg{} }
		case "pgup", "pgdown":
		default:
			return nil
		}
	}

	var cmd tea.Cmd
	s.viewport, cmd = s.viewport.Update(msg)
	return cmd
}

// Selected returns the chosen ratio id.
func (s *SettingsStep) Selected() string {
	return s.ratios.Selected().ID
}

// Focus shows the ratio cursor.
func (s *SettingsStep) Focus() { s.ratios.Focus() }

// Blur hides the ratio cursor.
func (s *SettingsStep) Blur() { s.ratios.Blur() }

// SetSize updates the size of the settings step.
func (s *SettingsStep) SetSize(width, height int) {
	s.width = width
	s.viewport.SetWidth(width)
	s.viewport.SetHeight(min(max(height-10, 5), 16))
	s.render()
}

// View renders the summary and the ratio list.
func (s *SettingsStep) View() string {
	st := theme.Current().S()
	return lipgloss.JoinVertical(lipgloss.Left,
		s.viewport.View(),
		"",
		st.Text.Render("영상 비율"),
		s.ratios.View(nil),
		"",
		wizard.RenderHintBar("↑↓", "비율", "enter", "선택", "pgup/pgdn", "스크롤", "tab", "버튼"),
	)
}
