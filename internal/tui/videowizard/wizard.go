// Package videowizard is the six-step terminal wizard: manuscript, voice,
// music, settings, progress and completion.
package videowizard

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/storyreel/storyreel/internal/catalog"
	"github.com/storyreel/storyreel/internal/generation"
	"github.com/storyreel/storyreel/internal/logger"
	"github.com/storyreel/storyreel/internal/preview"
	"github.com/storyreel/storyreel/internal/session"
	"github.com/storyreel/storyreel/internal/subtitles"
	"github.com/storyreel/storyreel/internal/tui/theme"
	"github.com/storyreel/storyreel/internal/tui/wizard"
)

// ErrCancelled is returned by Run when the user leaves before a video exists.
var ErrCancelled = errors.New("wizard cancelled by user")

// Modal layout constants
const (
	modalWidth        = 72
	modalPadding      = 2
	modalBorderWidth  = 1
	modalContentWidth = modalWidth - (modalPadding * 2) - (modalBorderWidth * 2)
)

var stepTitles = map[session.Step]string{
	session.StepManuscript: "원고",
	session.StepVoice:      "목소리",
	session.StepMusic:      "배경음악",
	session.StepSettings:   "설정",
	session.StepProgress:   "생성",
	session.StepComplete:   "완료",
}

// Options configure the wizard. Generator is required.
type Options struct {
	Catalog   *catalog.Catalog
	Session   *session.Session
	Generator *generation.Generator
	Subtitles subtitles.Checker
	// Opener plays a finished video; defaults to the system opener.
	Opener func(path string) error
}

// Model is the BubbleTea model of the wizard. Navigation state lives in the
// session; the model only mirrors it into step components.
type Model struct {
	ctx     context.Context
	cat     *catalog.Catalog
	sess    *session.Session
	gen     *generation.Generator
	checker subtitles.Checker
	opener  func(string) error

	slot   preview.Slot
	width  int
	height int

	manuscript *ManuscriptStep
	voice      *VoiceStep
	music      *MusicStep
	settings   *SettingsStep
	progress   *ProgressStep
	completion *CompletionStep

	attempt *generation.Attempt
	result  *generation.Result

	buttonBar     *wizard.ButtonBar
	buttonFocused bool

	cancelled bool
}

// New builds the model. ctx bounds the generation request.
func New(ctx context.Context, opts Options) *Model {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Session == nil {
		opts.Session = session.New(opts.Catalog.Defaults())
	}
	if opts.Subtitles == nil {
		opts.Subtitles = subtitles.NewHTTPChecker("", nil)
	}
	if opts.Opener == nil {
		opts.Opener = openInPlayer
	}
	return &Model{
		ctx:     ctx,
		cat:     opts.Catalog,
		sess:    opts.Session,
		gen:     opts.Generator,
		checker: opts.Subtitles,
		opener:  opts.Opener,
	}
}

// Run runs the wizard until the user exits and returns the generated video,
// or ErrCancelled when none was made. The in-flight request, if any, is
// cancelled when Run returns.
func Run(ctx context.Context, opts Options) (*generation.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := New(ctx, opts)
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	wm, ok := final.(*Model)
	if !ok {
		return nil, fmt.Errorf("unexpected model type")
	}
	if wm.result == nil {
		return nil, ErrCancelled
	}
	return wm.result, nil
}

// Session returns the wizard's session.
func (m *Model) Session() *session.Session {
	return m.sess
}

// Result returns the generated video, or nil.
func (m *Model) Result() *generation.Result {
	return m.result
}

// Cancelled reports whether the user quit without finishing.
func (m *Model) Cancelled() bool {
	return m.cancelled
}

// Init initializes the current step.
func (m *Model) Init() tea.Cmd {
	return m.initCurrentStep()
}

// Update handles messages for the wizard.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			m.cancelled = m.result == nil
			return m, tea.Quit
		}

		if m.buttonFocused && m.buttonBar != nil {
			switch msg.String() {
			case "tab", "right":
				if !m.buttonBar.FocusNext() {
					return m, m.focusContent()
				}
				return m, nil
			case "shift+tab", "left":
				if !m.buttonBar.FocusPrev() {
					return m, m.focusContent()
				}
				return m, nil
			case "enter", " ":
				return m.activateButton(m.buttonBar.FocusedButton())
			}
		}

		switch msg.String() {
		case "esc":
			return m.handleEsc()
		case "tab":
			if !m.buttonFocused && m.hasButtons() {
				m.focusButtons(true)
				return m, nil
			}
		case "shift+tab":
			if !m.buttonFocused && m.hasButtons() {
				m.focusButtons(false)
				return m, nil
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateCurrentStepSize()
		return m, nil

	case wizard.TabExitForwardMsg:
		m.focusButtons(true)
		return m, nil

	case wizard.TabExitBackwardMsg:
		m.focusButtons(false)
		return m, nil

	case ManuscriptSubmittedMsg:
		a := session.Analyze(msg.Text, msg.Source)
		m.sess.Update(a.Patch(msg.Text, msg.Source, msg.YouTubeURL))
		return m.advance()

	case SelectionChangedMsg:
		m.sess.Update(msg.Patch)
		return m, nil

	case previewExpiredMsg:
		m.slot.Expire(msg.token)
		return m, nil

	case generationDoneMsg:
		return m.handleGenerationDone(msg)

	case showCompletionMsg:
		if m.attempt == nil || msg.attempt != m.attempt.ID() || m.sess.Step() != session.StepProgress {
			return m, nil
		}
		return m.advance()

	case RetryGenerationMsg:
		// Only the failure on screen can be retried; repeats for an attempt
		// that was already replaced are dropped.
		if m.sess.Step() != session.StepProgress || m.progress == nil || m.progress.Failed() == nil {
			return m, nil
		}
		if m.attempt != nil && msg.Attempt != m.attempt.ID() {
			return m, nil
		}
		return m, m.startGeneration()

	case RestartMsg:
		logger.Debug("Restarting wizard")
		m.slot.Stop()
		m.sess.Reset()
		m.attempt = nil
		m.result = nil
		return m, m.changeStep()

	case OpenVideoMsg:
		if m.result == nil {
			return m, nil
		}
		open, path := m.opener, m.result.VideoRef
		return m, func() tea.Msg {
			return videoOpenedMsg{err: open(path)}
		}
	}

	return m, m.updateCurrentStep(msg)
}

func (m *Model) handleEsc() (tea.Model, tea.Cmd) {
	switch m.sess.Step() {
	case session.StepManuscript:
		m.cancelled = true
		return m, tea.Quit
	case session.StepProgress:
		// Only a failed attempt can be left; a running one is not cancellable
		if m.progress != nil && m.progress.Failed() != nil {
			return m.goBack()
		}
		return m, nil
	case session.StepComplete:
		return m, m.updateCurrentStep(tea.KeyPressMsg{Code: tea.KeyEscape})
	}
	return m.goBack()
}

func (m *Model) handleGenerationDone(msg generationDoneMsg) (tea.Model, tea.Cmd) {
	if m.attempt == nil || msg.attempt != m.attempt.ID() || m.progress == nil {
		return m, nil
	}
	if msg.err != nil {
		m.progress.Fail(msg.err)
		return m, nil
	}

	m.result = msg.result
	ref := msg.result.VideoRef
	m.sess.Update(session.Patch{VideoURL: &ref})
	return m, m.progress.Succeed()
}

// startGeneration creates a fresh attempt from the current selections and
// runs it in the background.
func (m *Model) startGeneration() tea.Cmd {
	if m.gen == nil {
		m.progress = NewProgressStep(m.cat.Stages, "")
		m.progress.Fail(errors.New("no generator configured"))
		return nil
	}

	attempt := m.gen.NewAttempt(m.sess.Selections())
	m.attempt = attempt
	m.result = nil
	m.progress = NewProgressStep(m.cat.Stages, attempt.ID())
	m.updateCurrentStepSize()

	ctx := m.ctx
	run := func() tea.Msg {
		res, err := attempt.Run(ctx)
		return generationDoneMsg{attempt: attempt.ID(), result: res, err: err}
	}
	return tea.Batch(m.progress.Init(), run)
}

func (m *Model) advance() (tea.Model, tea.Cmd) {
	m.slot.Stop()
	if _, err := m.sess.Advance(); err != nil {
		logger.Debug("Advance blocked: %v", err)
		return m, nil
	}
	return m, m.changeStep()
}

func (m *Model) goBack() (tea.Model, tea.Cmd) {
	m.slot.Stop()
	m.sess.Retreat()
	return m, m.changeStep()
}

// goNext commits the current step.
func (m *Model) goNext() (tea.Model, tea.Cmd) {
	if m.sess.Step() == session.StepManuscript {
		if m.manuscript != nil {
			return m, m.manuscript.Submit()
		}
		return m, nil
	}
	return m.advance()
}

func (m *Model) changeStep() tea.Cmd {
	m.buttonFocused = false
	m.buttonBar = nil
	return m.initCurrentStep()
}

// withDefaults shows the catalog defaults on option steps the user has not
// visited yet.
func withDefaults(sel session.Selections, d catalog.Defaults) session.Selections {
	if sel.TTSVoice == "" {
		sel.TTSVoice = d.Voice
	}
	if sel.BGMGenre == "" {
		sel.BGMGenre, sel.BGMType = d.BGMGenre, d.BGMType
	}
	if sel.VideoRatio == "" {
		sel.VideoRatio = d.Ratio
	}
	return sel
}

func (m *Model) initCurrentStep() tea.Cmd {
	sel := m.sess.Selections()
	if m.sess.Step() != session.StepManuscript {
		sel = withDefaults(sel, m.cat.Defaults())
	}

	var cmd tea.Cmd
	switch m.sess.Step() {
	case session.StepManuscript:
		m.manuscript = NewManuscriptStep(m.ctx, sel, m.checker)
		cmd = m.manuscript.Init()
	case session.StepVoice:
		m.voice = NewVoiceStep(m.cat, sel.TTSVoice, &m.slot)
	case session.StepMusic:
		m.music = NewMusicStep(m.cat, sel.BGMGenre, sel.BGMType, &m.slot)
	case session.StepSettings:
		m.settings = NewSettingsStep(m.cat, sel)
	case session.StepProgress:
		cmd = m.startGeneration()
	case session.StepComplete:
		m.completion = NewCompletionStep(m.cat, sel, m.result)
	}
	m.updateCurrentStepSize()
	return cmd
}

func (m *Model) updateCurrentStep(msg tea.Msg) tea.Cmd {
	switch m.sess.Step() {
	case session.StepManuscript:
		if m.manuscript != nil {
			return m.manuscript.Update(msg)
		}
	case session.StepVoice:
		if m.voice != nil {
			return m.voice.Update(msg)
		}
	case session.StepMusic:
		if m.music != nil {
			return m.music.Update(msg)
		}
	case session.StepSettings:
		if m.settings != nil {
			return m.settings.Update(msg)
		}
	case session.StepProgress:
		if m.progress != nil {
			return m.progress.Update(msg)
		}
	case session.StepComplete:
		if m.completion != nil {
			return m.completion.Update(msg)
		}
	}
	return nil
}

func (m *Model) contentSize() (width, height int) {
	height = min(max(m.height-4, 20), 40) - 10
	return modalContentWidth, max(height, 10)
}

func (m *Model) updateCurrentStepSize() {
	w, h := m.contentSize()
	switch m.sess.Step() {
	case session.StepManuscript:
		if m.manuscript != nil {
			m.manuscript.SetSize(w, h)
		}
	case session.StepVoice:
		if m.voice != nil {
			m.voice.SetSize(w, h)
		}
	case session.StepMusic:
		if m.music != nil {
			m.music.SetSize(w, h)
		}
	case session.StepSettings:
		if m.settings != nil {
			m.settings.SetSize(w, h)
		}
	case session.StepProgress:
		if m.progress != nil {
			m.progress.SetSize(w, h)
		}
	case session.StepComplete:
		if m.completion != nil {
			m.completion.SetSize(w, h)
		}
	}
}

func (m *Model) hasButtons() bool {
	step := m.sess.Step()
	return step >= session.StepManuscript && step <= session.StepSettings
}

// ensureButtonBar builds the Back/Next bar for the current step and keeps
// its enabled state current.
func (m *Model) ensureButtonBar() {
	step := m.sess.Step()
	nextEnabled := true
	if step == session.StepManuscript && m.manuscript != nil {
		nextEnabled = m.manuscript.Ready()
	}

	if m.buttonBar == nil {
		label := "다음 →"
		if step == session.StepSettings {
			label = "영상 생성 →"
		}
		m.buttonBar = wizard.NewButtonBar(wizard.CreateBackNextButtons(step > session.StepManuscript, nextEnabled, label))
		m.buttonBar.SetWidth(modalContentWidth)
	}
	m.buttonBar.SetEnabled(wizard.ButtonNext, nextEnabled)
}

func (m *Model) focusButtons(first bool) {
	m.ensureButtonBar()
	if first {
		m.buttonBar.FocusFirst()
	} else {
		m.buttonBar.FocusLast()
	}
	if m.buttonBar.FocusedButton() == wizard.ButtonNone {
		return
	}
	m.buttonFocused = true
	m.blurStepContent()
}

func (m *Model) focusContent() tea.Cmd {
	m.buttonFocused = false
	if m.buttonBar != nil {
		m.buttonBar.Blur()
	}
	switch m.sess.Step() {
	case session.StepManuscript:
		if m.manuscript != nil {
			return m.manuscript.Focus()
		}
	case session.StepVoice:
		if m.voice != nil {
			m.voice.Focus()
		}
	case session.StepMusic:
		if m.music != nil {
			m.music.Focus()
		}
	case session.StepSettings:
		if m.settings != nil {
			m.settings.Focus()
		}
	}
	return nil
}

func (m *Model) blurStepContent() {
	switch m.sess.Step() {
	case session.StepManuscript:
		if m.manuscript != nil {
			m.manuscript.Blur()
		}
	case session.StepVoice:
		if m.voice != nil {
			m.voice.Blur()
		}
	case session.StepMusic:
		if m.music != nil {
			m.music.Blur()
		}
	case session.StepSettings:
		if m.settings != nil {
			m.settings.Blur()
		}
	}
}

func (m *Model) activateButton(id wizard.ButtonID) (tea.Model, tea.Cmd) {
	switch id {
	case wizard.ButtonBack:
		return m.goBack()
	case wizard.ButtonNext:
		return m.goNext()
	}
	return m, nil
}

// View renders the wizard centered on an alt screen.
func (m *Model) View() tea.View {
	var view tea.View
	view.AltScreen = true

	if m.width == 0 || m.height == 0 {
		view.Content = lipgloss.NewLayer("")
		return view
	}

	centered := lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.renderCurrentStep())

	canvas := uv.NewScreenBuffer(m.width, m.height)
	uv.NewStyledString(centered).Draw(canvas, uv.Rectangle{
		Min: uv.Position{X: 0, Y: 0},
		Max: uv.Position{X: m.width, Y: m.height},
	})
	view.Content = lipgloss.NewLayer(canvas.Render())
	return view
}

// renderStepIndicator renders "● ● ○ ○ ○ ○  3/6 배경음악".
func renderStepIndicator(current session.Step) string {
	st := theme.Current().S()
	dots := make([]string, 0, len(session.Steps()))
	for _, step := range session.Steps() {
		if step <= current {
			dots = append(dots, st.Selected.Render("●"))
		} else {
			dots = append(dots, st.Muted.Render("○"))
		}
	}
	return strings.Join(dots, " ") + "  " +
		st.Muted.Render(fmt.Sprintf("%d/%d ", current, session.LastStep)) +
		st.Text.Render(stepTitles[current])
}

func (m *Model) renderCurrentStep() string {
	t := theme.Current()
	st := t.S()
	step := m.sess.Step()

	var content string
	switch step {
	case session.StepManuscript:
		if m.manuscript != nil {
			content = m.manuscript.View()
		}
	case session.StepVoice:
		if m.voice != nil {
			content = m.voice.View()
		}
	case session.StepMusic:
		if m.music != nil {
			content = m.music.View()
		}
	case session.StepSettings:
		if m.settings != nil {
			content = m.settings.View()
		}
	case session.StepProgress:
		if m.progress != nil {
			content = m.progress.View()
		}
	case session.StepComplete:
		if m.completion != nil {
			content = m.completion.View()
		}
	}

	// Self-rendered modals replace the frame
	if (step == session.StepProgress && m.progress != nil && m.progress.Failed() != nil) ||
		(step == session.StepComplete && m.completion != nil && m.completion.Confirming()) {
		return content
	}

	parts := []string{
		st.Title.Render("스토리 영상 만들기"),
		renderStepIndicator(step),
		"",
		content,
	}
	if m.hasButtons() {
		m.ensureButtonBar()
		parts = append(parts, "", m.buttonBar.Render())
	}

	return lipgloss.NewStyle().
		Width(modalWidth).
		Padding(1, modalPadding).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(t.BorderDefault)).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// openInPlayer hands path to the platform's default opener.
func openInPlayer(path string) error {
	if strings.HasPrefix(path, generation.MemoryScheme) {
		return fmt.Errorf("%s is held in memory and cannot be opened", path)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
