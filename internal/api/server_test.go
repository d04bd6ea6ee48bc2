package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/storyreel/storyreel/internal/catalog"
	"github.com/storyreel/storyreel/internal/events"
	"github.com/storyreel/storyreel/internal/generation"
	"github.com/storyreel/storyreel/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testVideo = []byte("\x00\x00\x00\x18ftypmp42 fake video")

// genService fakes the generation backend. Responses are served in order; the
// last one repeats.
type genService struct {
	*httptest.Server
	calls     atomic.Int32
	responses []string
}

func newGenService(t *testing.T, responses ...string) *genService {
	t.Helper()
	g := &genService{responses: responses}
	g.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(g.calls.Add(1)) - 1
		if n >= len(g.responses) {
			n = len(g.responses) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(g.responses[n]))
	}))
	t.Cleanup(g.Close)
	return g
}

func successBody() string {
	return `{"status":"success","result":{"output_video_base64":"` +
		base64.StdEncoding.EncodeToString(testVideo) + `","output_video_size":21}}`
}

type testEnv struct {
	api   *httptest.Server
	gen   *genService
	store *generation.MemoryStore
}

func newTestEnv(t *testing.T, deps Deps, responses ...string) *testEnv {
	t.Helper()
	gen := newGenService(t, responses...)
	client, err := generation.NewClient(gen.URL)
	require.NoError(t, err)

	store := generation.NewMemoryStore()
	deps.Submitter = client
	deps.Store = store
	srv := New(deps)

	api := httptest.NewServer(srv.Handler())
	t.Cleanup(api.Close)
	return &testEnv{api: api, gen: gen, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.api.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		if len(data) > 0 {
			require.NoError(t, json.Unmarshal(data, out), string(data))
		}
	}
	return resp.StatusCode
}

func (e *testEnv) createSession(t *testing.T) sessionView {
	t.Helper()
	var v sessionView
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/sessions", nil, &v))
	require.NotEmpty(t, v.ID)
	return v
}

// walkToProgress fills the manuscript and advances to the progress step.
func (e *testEnv) walkToProgress(t *testing.T, id string) {
	t.Helper()
	manuscript := strings.Repeat("이야기 ", 40)
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPatch, "/api/sessions/"+id+"/selections",
		map[string]any{"manuscript": manuscript, "manuscript_source": "text", "tts_voice": "ko-KR-Wavenet-c"}, nil))
	for i := 0; i < 4; i++ {
		var v sessionView
		require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/sessions/"+id+"/advance", nil, &v))
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, Deps{}, successBody())
	v := env.createSession(t)
	assert.Equal(t, session.StepManuscript, v.Step)
	assert.False(t, v.CanAdvance)
	assert.Equal(t, genIdle, v.Generation.State)

	base := "/api/sessions/" + v.ID

	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, base+"/advance", nil, &errResp))
	assert.Equal(t, KindValidation, errResp.Kind)

	env.walkToProgress(t, v.ID)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, base, nil, &v))
	assert.Equal(t, session.StepProgress, v.Step)
	assert.Equal(t, 160, v.Selections.WordCount, "word count derived from the manuscript")
	assert.Equal(t, "1분 예상", v.Selections.EstimatedDuration)
	assert.Equal(t, "ko-KR-Wavenet-c", v.Selections.TTSVoice)
	assert.Equal(t, catalog.NoMusic, v.Selections.BGMGenre, "defaults fill skipped steps")
	assert.Equal(t, "1536x1024", v.Selections.VideoRatio)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, base+"/generate", nil, &v))
	assert.Equal(t, session.StepComplete, v.Step)
	assert.Equal(t, genSucceeded, v.Generation.State)
	assert.Equal(t, base+"/video", v.Generation.VideoURL)
	assert.Equal(t, len(testVideo), v.Generation.Size)
	assert.True(t, strings.HasPrefix(v.Selections.VideoURL, generation.MemoryScheme))

	resp, err := http.Get(env.api.URL + base + "/video")
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "video/mp4", resp.Header.Get("Content-Type"))
	assert.Equal(t, testVideo, data)

	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, base+"/generate", nil, &errResp))
	assert.Equal(t, int32(1), env.gen.calls.Load())

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, base+"/reset", nil, &v))
	assert.Equal(t, session.StepManuscript, v.Step)
	assert.True(t, v.Selections.IsZero())
	assert.Equal(t, genIdle, v.Generation.State)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, base+"/video", nil, &errResp))
}

func TestGenerate_WrongStep(t *testing.T) {
	env := newTestEnv(t, Deps{}, successBody())
	v := env.createSession(t)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, "/api/sessions/"+v.ID+"/generate", nil, &errResp))
	assert.Equal(t, KindConflict, errResp.Kind)
	assert.Equal(t, int32(0), env.gen.calls.Load())
}

func TestGenerate_FailureThenRetry(t *testing.T) {
	env := newTestEnv(t, Deps{}, `{"status":"error","error":"no voice"}`, successBody())
	v := env.createSession(t)
	base := "/api/sessions/" + v.ID
	env.walkToProgress(t, v.ID)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadGateway, env.do(t, http.MethodPost, base+"/generate", nil, &errResp))
	assert.Equal(t, "service", errResp.Kind)
	assert.Equal(t, "no voice", errResp.Error)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, base, nil, &v))
	assert.Equal(t, genFailed, v.Generation.State)
	assert.Equal(t, generation.KindService, v.Generation.Kind)
	assert.Equal(t, session.StepProgress, v.Step)

	// A fresh attempt may be made after a failure
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, base+"/generate", nil, &v))
	assert.Equal(t, genSucceeded, v.Generation.State)
	assert.Equal(t, int32(2), env.gen.calls.Load())
}

func TestGenerate_ProtocolError(t *testing.T) {
	env := newTestEnv(t, Deps{}, `{"status":"success","result":{}}`)
	v := env.createSession(t)
	env.walkToProgress(t, v.ID)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadGateway, env.do(t, http.MethodPost, "/api/sessions/"+v.ID+"/generate", nil, &errResp))
	assert.Equal(t, "protocol", errResp.Kind)
}

func TestGenerate_Unconfigured(t *testing.T) {
	_, cfgErr := generation.NewClient("")
	srv := New(Deps{Submitter: generation.Unavailable(cfgErr)})
	api := httptest.NewServer(srv.Handler())
	defer api.Close()
	env := &testEnv{api: api}

	v := env.createSession(t)
	env.walkToProgress(t, v.ID)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusFailedDependency, env.do(t, http.MethodPost, "/api/sessions/"+v.ID+"/generate", nil, &errResp))
	assert.Equal(t, "configuration", errResp.Kind)
}

func TestPatch_Validation(t *testing.T) {
	env := newTestEnv(t, Deps{}, successBody())
	v := env.createSession(t)
	base := "/api/sessions/" + v.ID

	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPatch, base+"/selections", map[string]any{"manuscript_source": "pdf"}, &errResp))
	assert.Equal(t, KindValidation, errResp.Kind)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPatch, base+"/selections", map[string]any{"video_url": "/etc/passwd", "bgm_genre": "calm", "bgm_type": "B"}, &v))
	assert.Empty(t, v.Selections.VideoURL, "clients cannot set the video reference")
	assert.Equal(t, "calm", v.Selections.BGMGenre)

	rejected := []map[string]any{
		{"tts_voice": "{{ratio}}"},
		{"video_ratio": "$(touch x)"},
		{"bgm_genre": "jazz"},
		{"bgm_type": "Z"},
	}
	for _, body := range rejected {
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPatch, base+"/selections", body, &errResp), "%v", body)
		assert.Equal(t, KindValidation, errResp.Kind)
	}

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPatch, base+"/selections", map[string]any{"bgm_genre": "nature"}, &v))
	assert.Equal(t, "빗소리", v.Selections.BGMType, "genre alone takes its first type")
}

func TestRetreat(t *testing.T) {
	env := newTestEnv(t, Deps{}, successBody())
	v := env.createSession(t)
	env.walkToProgress(t, v.ID)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/sessions/"+v.ID+"/retreat", nil, &v))
	assert.Equal(t, session.StepSettings, v.Step)
}

func TestUnknownSession(t *testing.T) {
	env := newTestEnv(t, Deps{}, successBody())

	var errResp ErrorResponse
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/sessions/nope", nil, &errResp))
	assert.Equal(t, KindNotFound, errResp.Kind)

	v := env.createSession(t)
	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/sessions/"+v.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/sessions/"+v.ID, nil, &errResp))
}

func TestCatalogEndpoint(t *testing.T) {
	env := newTestEnv(t, Deps{}, successBody())

	var c catalog.Catalog
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/catalog", nil, &c))
	assert.Equal(t, catalog.Default().Voices, c.Voices)
	assert.Equal(t, "1536x1024", c.Defaults().Ratio)
}

func TestSubtitleCheck(t *testing.T) {
	env := newTestEnv(t, Deps{}, successBody())

	var res subtitleCheckResponse
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/subtitles/check", map[string]string{"url": "https://youtu.be/dQw4w9WgXcQ"}, &res))
	assert.False(t, res.Available)
	assert.Equal(t, "dQw4w9WgXcQ", res.VideoID)
	assert.NotEmpty(t, res.Reason)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/subtitles/check", map[string]string{"url": "https://vimeo.com/1"}, &errResp))
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/subtitles/check", map[string]string{}, &errResp))
}

func TestEventsStream(t *testing.T) {
	bus, err := events.Start(context.Background())
	require.NoError(t, err)
	defer bus.Close()

	env := newTestEnv(t, Deps{Bus: bus}, successBody())
	v := env.createSession(t)
	env.walkToProgress(t, v.ID)

	wsURL := "ws" + strings.TrimPrefix(env.api.URL, "http") + "/api/sessions/" + v.ID + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Equal(t, http.StatusAccepted, env.do(t, http.MethodPost, "/api/sessions/"+v.ID+"/generate?async=true", nil, &v))

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var kinds []events.Kind
	for len(kinds) < 2 {
		var ev events.Event
		require.NoError(t, conn.ReadJSON(&ev))
		assert.Equal(t, v.ID, ev.Session)
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []events.Kind{events.KindSubmitted, events.KindSucceeded}, kinds)

	require.Eventually(t, func() bool {
		var got sessionView
		env.do(t, http.MethodGet, "/api/sessions/"+v.ID, nil, &got)
		return got.Step == session.StepComplete
	}, 3*time.Second, 20*time.Millisecond)
}

func TestEventsStream_DisabledWithoutBus(t *testing.T) {
	env := newTestEnv(t, Deps{}, successBody())
	v := env.createSession(t)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/api/sessions/"+v.ID+"/events", nil, &errResp))
}
