package videowizard

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/storyreel/storyreel/internal/catalog"
	"github.com/storyreel/storyreel/internal/generation"
	"github.com/storyreel/storyreel/internal/session"
	"github.com/storyreel/storyreel/internal/tui/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSubmitter replies with errs in order, then with video.
type fakeSubmitter struct {
	mu    sync.Mutex
	errs  []error
	reqs  []generation.Request
	video []byte
}

func (f *fakeSubmitter) Submit(ctx context.Context, req generation.Request) (*generation.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return &generation.Payload{Video: f.video, Metadata: map[string]any{"duration": 42.0}}, nil
}

func newTestModel(t *testing.T, sub *fakeSubmitter) *Model {
	t.Helper()
	if sub.video == nil {
		sub.video = []byte("fake mp4")
	}
	gen := generation.NewGenerator(sub, generation.NewMemoryStore())
	m := New(context.Background(), Options{Generator: gen})
	m.Init()
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

// send feeds msg to the model and returns its command without running it.
// Commands may be timers, so tests run only the ones they expect.
func send(m *Model, msg tea.Msg) tea.Cmd {
	_, cmd := m.Update(msg)
	return cmd
}

// runGeneration performs the model's current attempt and delivers its outcome.
func runGeneration(t *testing.T, m *Model) {
	t.Helper()
	require.NotNil(t, m.attempt)
	res, err := m.attempt.Run(context.Background())
	send(m, generationDoneMsg{attempt: m.attempt.ID(), result: res, err: err})
}

// walkToSettings submits story and accepts each option step's default.
func walkToSettings(t *testing.T, m *Model) {
	t.Helper()
	send(m, ManuscriptSubmittedMsg{Text: story, Source: session.SourceText})
	require.Equal(t, session.StepVoice, m.sess.Step())
	m.goNext()
	m.goNext()
	require.Equal(t, session.StepSettings, m.sess.Step())
}

func TestModel_FullFlow(t *testing.T) {
	sub := &fakeSubmitter{}
	m := newTestModel(t, sub)
	assert.Contains(t, ansi.Strip(m.renderCurrentStep()), "1/6 원고")

	send(m, ManuscriptSubmittedMsg{Text: story, Source: session.SourceText})
	assert.Equal(t, session.StepVoice, m.sess.Step())
	sel := m.sess.Selections()
	assert.Equal(t, 140, sel.WordCount)
	assert.NotEmpty(t, sel.EstimatedDuration)

	// Pick the second voice
	send(m, keyPress("down"))
	cmd := send(m, keyPress("enter"))
	require.NotNil(t, cmd)
	send(m, cmd())
	assert.Equal(t, "ko-KR-Wavenet-b", m.sess.Selections().TTSVoice)

	// Next through the button bar
	send(m, keyPress("tab"))
	assert.True(t, m.buttonFocused)
	assert.Equal(t, wizard.ButtonBack, m.buttonBar.FocusedButton())
	send(m, keyPress("right"))
	send(m, keyPress("enter"))
	assert.Equal(t, session.StepMusic, m.sess.Step())
	assert.False(t, m.buttonFocused)

	// Leave music untouched and take the default
	m.goNext()
	assert.Equal(t, session.StepSettings, m.sess.Step())
	assert.Equal(t, catalog.NoMusic, m.sess.Selections().BGMGenre)

	send(m, keyPress("down"))
	send(m, send(m, keyPress("enter"))())
	assert.Equal(t, "1024x1536", m.sess.Selections().VideoRatio)
	assert.Contains(t, ansi.Strip(m.renderCurrentStep()), "영상 생성 →")

	m.goNext()
	require.Equal(t, session.StepProgress, m.sess.Step())
	require.NotNil(t, m.progress)
	runGeneration(t, m)
	require.NotNil(t, m.Result())
	assert.Equal(t, m.Result().VideoRef, m.sess.Selections().VideoURL)
	assert.Equal(t, session.StepProgress, m.sess.Step(), "completion waits for the finish delay")

	send(m, showCompletionMsg{attempt: m.attempt.ID()})
	assert.Equal(t, session.StepComplete, m.sess.Step())
	assert.Contains(t, ansi.Strip(m.renderCurrentStep()), "영상이 완성되었습니다")

	require.Len(t, sub.reqs, 1)
	req := sub.reqs[0]
	assert.Equal(t, "ko-KR-Wavenet-b", req.TTSVoice)
	assert.Equal(t, catalog.NoMusic, req.BGMGenre)
	assert.Equal(t, "1024x1536", req.VideoRatio)
	assert.Equal(t, "text", string(req.ManuscriptSource))
	assert.False(t, m.Cancelled())
}

func TestModel_ManuscriptGate(t *testing.T) {
	m := newTestModel(t, &fakeSubmitter{})

	m.ensureButtonBar()
	assert.False(t, m.buttonBar.Enabled(wizard.ButtonNext), "next is disabled until the manuscript is long enough")
	assert.False(t, m.buttonBar.Enabled(wizard.ButtonBack))

	send(m, ManuscriptSubmittedMsg{Text: "짧다", Source: session.SourceText})
	assert.Equal(t, session.StepManuscript, m.sess.Step())

	m.manuscript.Update(ManuscriptEditedMsg{Text: story})
	m.ensureButtonBar()
	assert.True(t, m.buttonBar.Enabled(wizard.ButtonNext))

	_, cmd := m.goNext()
	require.NotNil(t, cmd)
	send(m, cmd())
	assert.Equal(t, session.StepVoice, m.sess.Step())
}

func TestModel_EscNavigation(t *testing.T) {
	m := newTestModel(t, &fakeSubmitter{})
	walkToSettings(t, m)

	send(m, keyPress("esc"))
	assert.Equal(t, session.StepMusic, m.sess.Step())
	send(m, keyPress("esc"))
	send(m, keyPress("esc"))
	assert.Equal(t, session.StepManuscript, m.sess.Step())
	assert.True(t, m.manuscript.Ready(), "manuscript is kept when going back")

	cmd := send(m, keyPress("esc"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.Cancelled())
}

func TestModel_FailureAndRetry(t *testing.T) {
	sub := &fakeSubmitter{errs: []error{&generation.Error{Kind: generation.KindService, Message: "no voice"}}}
	m := newTestModel(t, sub)
	walkToSettings(t, m)

	m.goNext()
	first := m.attempt.ID()
	runGeneration(t, m)
	require.Error(t, m.progress.Failed())
	assert.Nil(t, m.Result())
	assert.Contains(t, ansi.Strip(m.renderCurrentStep()), "no voice")

	// A late result for the failed attempt is ignored after retrying
	cmd := send(m, keyPress("r"))
	require.NotNil(t, cmd)
	send(m, cmd())
	require.NotEqual(t, first, m.attempt.ID(), "retry uses a new attempt")
	send(m, generationDoneMsg{attempt: first, err: errors.New("stale")})
	assert.NoError(t, m.progress.Failed())

	runGeneration(t, m)
	require.NotNil(t, m.Result())
	assert.Len(t, sub.reqs, 2)
}

func TestModel_EscAfterFailure(t *testing.T) {
	sub := &fakeSubmitter{errs: []error{&generation.Error{Kind: generation.KindNetwork, Message: "refused"}}}
	m := newTestModel(t, sub)
	walkToSettings(t, m)
	m.goNext()

	send(m, keyPress("esc"))
	assert.Equal(t, session.StepProgress, m.sess.Step(), "a running generation cannot be left")

	runGeneration(t, m)
	send(m, keyPress("esc"))
	assert.Equal(t, session.StepSettings, m.sess.Step())
	assert.Equal(t, "1536x1024", m.settings.Selected(), "settings keep the chosen ratio")
}

func TestModel_DuplicateRunIgnored(t *testing.T) {
	sub := &fakeSubmitter{}
	m := newTestModel(t, sub)
	walkToSettings(t, m)
	m.goNext()

	runGeneration(t, m)
	_, err := m.attempt.Run(context.Background())
	assert.ErrorIs(t, err, generation.ErrDuplicateSubmission)
	assert.Len(t, sub.reqs, 1)
}

func TestModel_RepeatedRetryStartsOneAttempt(t *testing.T) {
	sub := &fakeSubmitter{errs: []error{&generation.Error{Kind: generation.KindNetwork, Message: "refused"}}}
	m := newTestModel(t, sub)
	walkToSettings(t, m)
	m.goNext()
	runGeneration(t, m)
	require.Error(t, m.progress.Failed())

	// Both key presses land before either retry is handled
	first := send(m, keyPress("r"))
	second := send(m, keyPress("r"))
	require.NotNil(t, first)
	require.NotNil(t, second)

	require.NotNil(t, send(m, first()))
	retry := m.attempt
	assert.Nil(t, send(m, second()), "second retry is dropped")
	assert.Same(t, retry, m.attempt)

	runGeneration(t, m)
	require.NotNil(t, m.Result())
	assert.Len(t, sub.reqs, 2, "one failed call and one retry")

	// A retry after success does nothing
	assert.Nil(t, send(m, RetryGenerationMsg{Attempt: retry.ID()}))
	assert.Len(t, sub.reqs, 2)
}

func TestModel_RestartAndOpen(t *testing.T) {
	sub := &fakeSubmitter{}
	m := newTestModel(t, sub)
	var opened []string
	m.opener = func(path string) error {
		opened = append(opened, path)
		return nil
	}
	walkToSettings(t, m)
	m.goNext()
	runGeneration(t, m)
	send(m, showCompletionMsg{attempt: m.attempt.ID()})
	require.Equal(t, session.StepComplete, m.sess.Step())

	cmd := send(m, OpenVideoMsg{})
	require.NotNil(t, cmd)
	send(m, cmd())
	assert.Equal(t, []string{m.Result().VideoRef}, opened)
	assert.Contains(t, ansi.Strip(m.renderCurrentStep()), "플레이어에서 열었습니다")

	send(m, keyPress("esc"))
	assert.Equal(t, session.StepComplete, m.sess.Step(), "esc does not leave completion")

	send(m, RestartMsg{})
	assert.Equal(t, session.StepManuscript, m.sess.Step())
	assert.True(t, m.sess.Selections().IsZero())
	assert.Nil(t, m.Result())
	assert.False(t, m.manuscript.Ready())
}

func TestModel_StepChangeStopsPreview(t *testing.T) {
	m := newTestModel(t, &fakeSubmitter{})
	send(m, ManuscriptSubmittedMsg{Text: story, Source: session.SourceText})

	send(m, keyPress("p"))
	require.NotEmpty(t, m.slot.Active())
	m.goNext()
	assert.Empty(t, m.slot.Active())
}

func TestModel_View(t *testing.T) {
	m := New(context.Background(), Options{Generator: generation.NewGenerator(&fakeSubmitter{}, generation.NewMemoryStore())})
	v := m.View()
	assert.True(t, v.AltScreen)

	m.Init()
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	out := ansi.Strip(m.renderCurrentStep())
	assert.Contains(t, out, "스토리 영상 만들기")
	assert.Contains(t, out, "직접 입력")
	assert.Contains(t, out, "다음 →")
}

func TestOpenInPlayer_MemoryRef(t *testing.T) {
	err := openInPlayer(generation.MemoryScheme + "abc")
	assert.Error(t, err)
}

func TestWithDefaults(t *testing.T) {
	d := catalog.Default().Defaults()
	sel := withDefaults(session.Selections{TTSVoice: "ko-KR-Wavenet-a"}, d)
	assert.Equal(t, "ko-KR-Wavenet-a", sel.TTSVoice)
	assert.Equal(t, d.BGMGenre, sel.BGMGenre)
	assert.Equal(t, d.BGMType, sel.BGMType)
	assert.Equal(t, d.Ratio, sel.VideoRatio)
}
