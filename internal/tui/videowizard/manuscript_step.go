package videowizard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/editor"
	"github.com/storyreel/storyreel/internal/logger"
	"github.com/storyreel/storyreel/internal/session"
	"github.com/storyreel/storyreel/internal/subtitles"
	"github.com/storyreel/storyreel/internal/tui/theme"
	"github.com/storyreel/storyreel/internal/tui/wizard"
)

// ManuscriptStep collects the story text, typed directly or taken from a
// YouTube video's subtitles.
type ManuscriptStep struct {
	ctx     context.Context
	checker subtitles.Checker

	source   session.Source
	textarea textarea.Model
	urlInput textinput.Model

	checking   bool
	spinner    spinner.Model
	subtitle   *subtitles.Result
	checkedURL string
	notice     string

	err    string
	width  int
	height int
}

// NewManuscriptStep creates the step, prefilled from sel when returning to it.
func NewManuscriptStep(ctx context.Context, sel session.Selections, checker subtitles.Checker) *ManuscriptStep {
	ta := textarea.New()
	ta.Placeholder = "영상으로 만들 이야기를 입력하세요 (최소 100자)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 20000
	ta.SetWidth(60)
	ta.SetHeight(10)

	ti := textinput.New()
	ti.Placeholder = "https://www.youtube.com/watch?v=..."
	ti.CharLimit = 200

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Current().Primary))),
	)

	s := &ManuscriptStep{
		ctx:      ctx,
		checker:  checker,
		source:   session.SourceText,
		textarea: ta,
		urlInput: ti,
		spinner:  sp,
	}

	if sel.ManuscriptSource == session.SourceYouTube {
		s.source = session.SourceYouTube
		s.urlInput.SetValue(sel.YouTubeURL)
		s.checkedURL = sel.YouTubeURL
		s.subtitle = &subtitles.Result{Available: true, Text: sel.Manuscript}
	} else {
		s.textarea.SetValue(sel.Manuscript)
	}
	s.Focus()
	return s
}

// Init initializes the manuscript step.
func (s *ManuscriptStep) Init() tea.Cmd {
	return textarea.Blink
}

// Source returns the active input mode.
func (s *ManuscriptStep) Source() session.Source {
	return s.source
}

// Text returns the manuscript that would be submitted.
func (s *ManuscriptStep) Text() string {
	if s.source == session.SourceYouTube {
		if s.subtitle != nil && s.checkedURL == s.url() {
			return s.subtitle.Text
		}
		return ""
	}
	return strings.TrimSpace(s.textarea.Value())
}

func (s *ManuscriptStep) url() string {
	return strings.TrimSpace(s.urlInput.Value())
}

// Ready reports whether Submit would succeed.
func (s *ManuscriptStep) Ready() bool {
	return session.ManuscriptReady(s.Text())
}

// Update handles messages for the manuscript step.
func (s *ManuscriptStep) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+t":
			return s.toggleSource()
		case "ctrl+d":
			return s.Submit()
		case "tab":
			return func() tea.Msg { return wizard.TabExitForwardMsg{} }
		case "shift+tab":
			return func() tea.Msg { return wizard.TabExitBackwardMsg{} }
		case "ctrl+e":
			if s.source == session.SourceText {
				return s.openEditor()
			}
		case "enter":
			if s.source == session.SourceYouTube {
				return s.checkSubtitles()
			}
		}
		s.err = ""

	case ManuscriptEditedMsg:
		if msg.Err != nil {
			s.err = "편집기를 열 수 없습니다: " + msg.Err.Error()
			return nil
		}
		s.textarea.SetValue(strings.TrimRight(msg.Text, "\n"))
		s.err = ""
		return nil

	case subtitlesCheckedMsg:
		return s.handleSubtitles(msg)

	case spinner.TickMsg:
		if !s.checking {
			return nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return cmd
	}

	var cmd tea.Cmd
	if s.source == session.SourceYouTube {
		s.urlInput, cmd = s.urlInput.Update(msg)
	} else {
		s.textarea, cmd = s.textarea.Update(msg)
	}
	return cmd
}

func (s *ManuscriptStep) toggleSource() tea.Cmd {
	s.err = ""
	s.notice = ""
	if s.source == session.SourceText {
		s.source = session.SourceYouTube
	} else {
		s.source = session.SourceText
	}
	s.Blur()
	return s.Focus()
}

func (s *ManuscriptStep) checkSubtitles() tea.Cmd {
	url := s.url()
	if url == "" {
		s.err = "유튜브 주소를 입력하세요"
		return nil
	}
	if s.checking {
		return nil
	}
	s.checking = true
	s.notice = ""
	s.err = ""
	s.subtitle = nil

	checker, ctx := s.checker, s.ctx
	check := func() tea.Msg {
		res, err := checker.Check(ctx, url)
		return subtitlesCheckedMsg{url: url, result: res, err: err}
	}
	return tea.Batch(s.spinner.Tick, check)
}

func (s *ManuscriptStep) handleSubtitles(msg subtitlesCheckedMsg) tea.Cmd {
	if msg.url != s.url() {
		// The URL was edited while the check ran
		s.checking = false
		return nil
	}
	s.checking = false
	s.checkedURL = msg.url

	switch {
	case errors.Is(msg.err, subtitles.ErrInvalidURL):
		s.err = "올바른 유튜브 주소가 아닙니다"
	case errors.Is(msg.err, subtitles.ErrNotConfigured):
		s.notice = "자막 서비스가 설정되지 않았습니다 (subtitle_endpoint)"
	case msg.err != nil:
		logger.Warn("Subtitle check for %s failed: %v", msg.url, msg.err)
		s.err = "자막 확인 실패: " + msg.err.Error()
	case !msg.result.Available:
		s.notice = "이 영상에는 사용할 수 있는 자막이 없습니다"
	default:
		res := msg.result
		s.subtitle = &res
	}
	return nil
}

// openEditor launches $EDITOR on the current manuscript.
func (s *ManuscriptStep) openEditor() tea.Cmd {
	tmp, err := os.CreateTemp("", "storyreel_manuscript_*.txt")
	if err != nil {
		s.err = "임시 파일을 만들 수 없습니다: " + err.Error()
		return nil
	}
	path := tmp.Name()
	_, werr := tmp.WriteString(s.textarea.Value())
	_ = tmp.Close()
	if werr != nil {
		_ = os.Remove(path)
		s.err = "임시 파일을 쓸 수 없습니다: " + werr.Error()
		return nil
	}

	cmd, err := editor.Command("storyreel", path)
	if err != nil {
		_ = os.Remove(path)
		s.err = "편집기를 열 수 없습니다: " + err.Error()
		return nil
	}

	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		defer func() { _ = os.Remove(path) }()
		if err != nil {
			return ManuscriptEditedMsg{Err: err}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return ManuscriptEditedMsg{Err: err}
		}
		return ManuscriptEditedMsg{Text: string(data)}
	})
}

// Submit validates and sends ManuscriptSubmittedMsg. Validation problems are
// shown inline.
func (s *ManuscriptStep) Submit() tea.Cmd {
	text := s.Text()
	if s.source == session.SourceYouTube && text == "" {
		s.err = "먼저 enter로 자막을 확인하세요"
		return nil
	}
	if !session.ManuscriptReady(text) {
		s.err = fmt.Sprintf("원고는 %d자 이상이어야 합니다 (현재 %d자)", session.MinManuscriptLength, utf8.RuneCountInString(text))
		return nil
	}
	s.err = ""

	msg := ManuscriptSubmittedMsg{Text: text, Source: s.source}
	if s.source == session.SourceYouTube {
		msg.YouTubeURL = s.checkedURL
	}
	return func() tea.Msg { return msg }
}

// Focus focuses the active input.
func (s *ManuscriptStep) Focus() tea.Cmd {
	if s.source == session.SourceYouTube {
		return s.urlInput.Focus()
	}
	return s.textarea.Focus()
}

// Blur blurs both inputs.
func (s *ManuscriptStep) Blur() {
	s.textarea.Blur()
	s.urlInput.Blur()
}

// SetSize updates the size of the manuscript step.
func (s *ManuscriptStep) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.textarea.SetWidth(width - 4)
	s.urlInput.SetWidth(width - 4)

	h := height - 10
	s.textarea.SetHeight(min(max(h, 5), 16))
}

// View renders the manuscript step content.
func (s *ManuscriptStep) View() string {
	st := theme.Current().S()

	tab := func(label string, active bool) string {
		if active {
			return st.Selected.Render("[ " + label + " ]")
		}
		return st.Muted.Render("  " + label + "  ")
	}
	tabs := tab("직접 입력", s.source == session.SourceText) + " " + tab("유튜브 자막", s.source == session.SourceYouTube)

	parts := []string{tabs, ""}

	if s.source == session.SourceText {
		parts = append(parts, st.BoxFocused.Render(s.textarea.View()), s.counter())
	} else {
		parts = append(parts, st.BoxFocused.Render(s.urlInput.View()), s.subtitleStatus())
	}

	if s.err != "" {
		parts = append(parts, st.Error.Render("✗ "+s.err))
	}

	hints := []string{"ctrl+t", "입력 방식", "ctrl+d", "다음", "tab", "버튼"}
	if s.source == session.SourceText {
		hints = append(hints, "ctrl+e", "편집기")
	} else {
		hints = append(hints, "enter", "자막 확인")
	}
	parts = append(parts, "", wizard.RenderHintBar(hints...))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (s *ManuscriptStep) counter() string {
	st := theme.Current().S()
	n := utf8.RuneCountInString(strings.TrimSpace(s.textarea.Value()))
	text := fmt.Sprintf("%d자 / 최소 %d자", n, session.MinManuscriptLength)
	if n >= session.MinManuscriptLength {
		return st.Success.Render("✓ " + text)
	}
	return st.Muted.Render(text)
}

func (s *ManuscriptStep) subtitleStatus() string {
	st := theme.Current().S()
	switch {
	case s.checking:
		return s.spinner.View() + " " + st.Muted.Render("자막 확인 중...")
	case s.notice != "":
		return st.Warning.Render("! " + s.notice)
	case s.subtitle != nil && s.checkedURL == s.url():
		n := utf8.RuneCountInString(s.subtitle.Text)
		if !session.ManuscriptReady(s.subtitle.Text) {
			return st.Warning.Render(fmt.Sprintf("! 자막이 너무 짧습니다 (%d자)", n))
		}
		return st.Success.Render(fmt.Sprintf("✓ 자막 확인됨 (%d자)", n))
	}
	return st.Muted.Render("주소를 입력하고 enter로 자막을 확인하세요")
}
