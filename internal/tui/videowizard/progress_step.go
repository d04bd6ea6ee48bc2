package videowizard

import (
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/storyreel/storyreel/internal/generation"
	"github.com/storyreel/storyreel/internal/tui/theme"
	"github.com/storyreel/storyreel/internal/tui/wizard"
)

// Stage timing of the progress screen.
const (
	StageInterval = 2500 * time.Millisecond
	FinishDelay   = 800 * time.Millisecond
)

// ProgressStep shows the generation stages while the request is in flight.
// The stage labels are cosmetic: they advance on a timer and stop one short
// of the final label until the service answers.
type ProgressStep struct {
	stages  []string
	stage   int
	attempt string
	spinner spinner.Model
	done    bool
	err     error
	width   int
}

// NewProgressStep creates the screen for one attempt.
func NewProgressStep(stages []string, attempt string) *ProgressStep {
	return &ProgressStep{
		stages:  stages,
		attempt: attempt,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Current().Primary))),
		),
		width: 60,
	}
}

// Init starts the spinner and the stage timer.
func (s *ProgressStep) Init() tea.Cmd {
	return tea.Batch(s.spinner.Tick, s.tick())
}

func (s *ProgressStep) tick() tea.Cmd {
	attempt := s.attempt
	return tea.Tick(StageInterval, func(time.Time) tea.Msg {
		return stageTickMsg{attempt: attempt}
	})
}

// lastWaitingStage is the furthest stage shown before the result arrives.
func (s *ProgressStep) lastWaitingStage() int {
	return max(len(s.stages)-2, 0)
}

// Update handles messages for the progress step.
func (s *ProgressStep) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case stageTickMsg:
		if msg.attempt != s.attempt || s.done || s.err != nil {
			return nil
		}
		if s.stage < s.lastWaitingStage() {
			s.stage++
		}
		if s.stage < s.lastWaitingStage() {
			return s.tick()
		}
		return nil

	case spinner.TickMsg:
		if s.done || s.err != nil {
			return nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return cmd

	case tea.KeyPressMsg:
		if s.err != nil && msg.String() == "r" {
			attempt := s.attempt
			return func() tea.Msg { return RetryGenerationMsg{Attempt: attempt} }
		}
	}
	return nil
}

// Succeed shows the final stage and schedules the move to completion.
func (s *ProgressStep) Succeed() tea.Cmd {
	s.done = true
	s.stage = max(len(s.stages)-1, 0)
	attempt := s.attempt
	return tea.Tick(FinishDelay, func(time.Time) tea.Msg {
		return showCompletionMsg{attempt: attempt}
	})
}

// Fail shows err instead of the stages.
func (s *ProgressStep) Fail(err error) {
	s.err = err
}

// Stage returns the index of the current stage label.
func (s *ProgressStep) Stage() int {
	return s.stage
}

// Failed returns the generation error, if any.
func (s *ProgressStep) Failed() error {
	return s.err
}

// SetSize updates the size of the progress step.
func (s *ProgressStep) SetSize(width, height int) {
	s.width = width
}

// failureHelp explains a generation failure by kind.
func failureHelp(err error) (title, help string) {
	switch generation.KindOf(err) {
	case generation.KindConfiguration:
		return "설정 오류", "생성 서비스 주소가 없거나 잘못되었습니다. `storyreel setup`을 실행하거나 STORYREEL_ENDPOINT를 설정하세요."
	case generation.KindNetwork:
		return "연결 실패", "생성 서비스에 연결하지 못했습니다. 네트워크와 서비스 주소를 확인하세요."
	case generation.KindService:
		return "생성 실패", "서비스가 요청을 처리하지 못했습니다. 선택을 바꾸거나 잠시 후 다시 시도하세요."
	case generation.KindProtocol:
		return "응답 오류", "서비스 응답에서 영상을 찾을 수 없습니다."
	}
	return "생성 실패", "로그에서 자세한 내용을 확인하세요."
}

// View renders the stage list or the failure.
func (s *ProgressStep) View() string {
	if s.err != nil {
		title, help := failureHelp(s.err)
		return wizard.RenderErrorModal(title, s.err.Error(), help, "r", "다시 시도", "esc", "설정으로", "ctrl+c", "종료")
	}

	st := theme.Current().S()
	lines := make([]string, 0, len(s.stages))
	for i, label := range s.stages {
		switch {
		case i < s.stage || (s.done && i == s.stage):
			lines = append(lines, st.Success.Render("✓ ")+st.Text.Render(label))
		case i == s.stage:
			lines = append(lines, s.spinner.View()+" "+st.Value.Render(label))
		default:
			lines = append(lines, st.Muted.Render("· "+label))
		}
	}

	ratio := 0.0
	if n := len(s.stages); n > 0 {
		ratio = float64(s.stage+1) / float64(n)
	}

	header := "영상을 만들고 있습니다"
	if s.done {
		header = "영상이 준비되었습니다"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		st.Text.Render(header),
		"",
		strings.Join(lines, "\n"),
		"",
		theme.ProgressBar(ratio, max(s.width-2, 10)),
	)
}
