package videowizard

import (
	"fmt"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/storyreel/storyreel/internal/catalog"
	"github.com/storyreel/storyreel/internal/generation"
	"github.com/storyreel/storyreel/internal/session"
	"github.com/storyreel/storyreel/internal/tui/theme"
	"github.com/storyreel/storyreel/internal/tui/wizard"
)

// Completion buttons.
const (
	buttonOpen    wizard.ButtonID = 0
	buttonRestart wizard.ButtonID = 1
	buttonExit    wizard.ButtonID = 2
)

// CompletionStep shows the finished video with Open/Restart/Exit buttons.
type CompletionStep struct {
	cat         *catalog.Catalog
	sel         session.Selections
	result      *generation.Result
	buttonBar   *wizard.ButtonBar
	confirming  bool
	openStatus  string
	openFailure bool
	width       int
}

// NewCompletionStep creates the screen for a successful generation.
func NewCompletionStep(cat *catalog.Catalog, sel session.Selections, result *generation.Result) *CompletionStep {
	bar := wizard.NewButtonBar([]wizard.Button{
		{Label: "▶ 열기"},
		{Label: "처음부터"},
		{Label: "종료"},
	})
	bar.FocusFirst()
	return &CompletionStep{cat: cat, sel: sel, result: result, buttonBar: bar, width: 60}
}

// Init initializes the completion step.
func (s *CompletionStep) Init() tea.Cmd {
	return nil
}

// Update handles messages for the completion step.
func (s *CompletionStep) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case videoOpenedMsg:
		if msg.err != nil {
			s.openStatus = "열 수 없습니다: " + msg.err.Error()
			s.openFailure = true
		} else {
			s.openStatus = "플레이어에서 열었습니다"
			s.openFailure = false
		}
		return nil

	case tea.KeyPressMsg:
		if s.confirming {
			switch msg.String() {
			case "y", "Y":
				s.confirming = false
				return func() tea.Msg { return RestartMsg{} }
			case "n", "N", "esc":
				s.confirming = false
			}
			return nil
		}

		switch msg.String() {
		case "tab", "right":
			if !s.buttonBar.FocusNext() {
				s.buttonBar.FocusFirst()
			}
		case "shift+tab", "left":
			if !s.buttonBar.FocusPrev() {
				s.buttonBar.FocusLast()
			}
		case "o":
			return s.activate(buttonOpen)
		case "enter", " ":
			return s.activate(s.buttonBar.FocusedButton())
		}
	}
	return nil
}

func (s *CompletionStep) activate(id wizard.ButtonID) tea.Cmd {
	switch id {
	case buttonOpen:
		return func() tea.Msg { return OpenVideoMsg{} }
	case buttonRestart:
		s.confirming = true
	case buttonExit:
		return tea.Quit
	}
	return nil
}

// Confirming reports whether the restart confirmation is shown.
func (s *CompletionStep) Confirming() bool {
	return s.confirming
}

// SetSize updates the size of the completion step.
func (s *CompletionStep) SetSize(width, height int) {
	s.width = width
	s.buttonBar.SetWidth(width)
}

// formatSize renders a byte count for humans.
func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}

// View renders the completion step.
func (s *CompletionStep) View() string {
	if s.confirming {
		return wizard.RenderConfirmationModal("처음부터 다시", "원고와 모든 선택, 생성된 영상 정보가 지워집니다. 계속할까요?")
	}

	st := theme.Current().S()
	row := func(label, value string) string {
		return st.Label.Render(label) + st.Value.Render(value)
	}

	parts := []string{
		st.Success.Render("✓ 영상이 완성되었습니다!"),
		"",
		row("파일", s.result.VideoRef),
		row("크기", formatSize(s.result.Size)),
		row("목소리", s.cat.VoiceName(s.sel.TTSVoice)),
		row("배경음악", s.cat.BGMLabel(s.sel.BGMGenre, s.sel.BGMType)),
		row("비율", s.cat.RatioLabel(s.sel.VideoRatio)),
	}
	if s.openStatus != "" {
		style := st.Muted
		if s.openFailure {
			style = st.Error
		}
		parts = append(parts, "", style.Render(s.openStatus))
	}
	parts = append(parts,
		"",
		s.buttonBar.Render(),
		"",
		wizard.RenderHintBar("←→/tab", "이동", "enter", "선택", "o", "열기"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
