package generation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/storyreel/storyreel/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSelections() session.Selections {
	return session.Selections{
		Manuscript:       strings.Repeat("옛날 옛적에 ", 20),
		ManuscriptSource: session.SourceYouTube,
		YouTubeURL:       "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Summary:          "A quiet story about rain",
		TTSVoice:         "ko-KR-Wavenet-a",
		BGMGenre:         "nature",
		BGMType:          "빗소리",
		VideoRatio:       "1024x1536",
	}
}

// fakeService serves a fixed body and counts calls.
type fakeService struct {
	*httptest.Server
	calls atomic.Int32
	last  atomic.Value // map[string]any
}

func newFakeService(t *testing.T, status int, body string) *fakeService {
	t.Helper()
	fs := &fakeService{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.calls.Add(1)
		var got map[string]any
		_ = json.NewDecoder(r.Body).Decode(&got)
		fs.last.Store(got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(fs.Close)
	return fs
}

func newGenerator(t *testing.T, endpoint string, store MediaStore) *Generator {
	t.Helper()
	client, err := NewClient(endpoint)
	require.NoError(t, err)
	return NewGenerator(client, store)
}

func TestBuildRequest_WireNames(t *testing.T) {
	sel := testSelections()
	data, err := json.Marshal(BuildRequest(sel))
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))

	assert.Equal(t, map[string]any{
		"manuscript":        sel.Manuscript,
		"manuscript_source": "youtube",
		"youtube_url":       sel.YouTubeURL,
		"tts_voice":         sel.TTSVoice,
		"bgm_genre":         sel.BGMGenre,
		"bgm_type":          sel.BGMType,
		"video_ratio":       sel.VideoRatio,
	}, wire)
}

func TestBuildRequest_TextSourceSendsEmptyURL(t *testing.T) {
	sel := testSelections()
	sel.ManuscriptSource = session.SourceText
	sel.YouTubeURL = ""

	data, err := json.Marshal(BuildRequest(sel))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"youtube_url":""`)
	require.NoError(t, BuildRequest(sel).Validate())
}

func TestRequest_Validate(t *testing.T) {
	err := Request{Manuscript: "x", ManuscriptSource: "youtube"}.Validate()
	require.ErrorIs(t, err, ErrIncompleteRequest)
	for _, field := range []string{"tts_voice", "bgm_genre", "bgm_type", "video_ratio", "youtube_url"} {
		assert.Contains(t, err.Error(), field)
	}
	assert.NotContains(t, err.Error(), "manuscript_source")
}

func TestNewClient_ConfigurationErrors(t *testing.T) {
	for _, endpoint := range []string{"", "   ", "ftp://example.com/run", "http://", "://nope", "example.com/run"} {
		t.Run(endpoint, func(t *testing.T) {
			_, err := NewClient(endpoint)
			require.ErrorIs(t, err, ErrConfiguration)
			assert.Equal(t, KindConfiguration, KindOf(err))
		})
	}

	c, err := NewClient(" https://gen.example.com/create ")
	require.NoError(t, err)
	assert.Equal(t, "https://gen.example.com/create", c.Endpoint())
}

func TestGenerate_Success(t *testing.T) {
	video := []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0xff}
	body := `{"status":"success","result":{"output_video_base64":"` + base64.StdEncoding.EncodeToString(video) +
		`","output_video_size":13,"output_video_path":"/tmp/out.mp4","chapters_json_path":"/tmp/ch.json"}}`
	svc := newFakeService(t, http.StatusOK, body)

	store := NewMemoryStore()
	res, err := newGenerator(t, svc.URL, store).Generate(context.Background(), testSelections())
	require.NoError(t, err)

	got, ok := store.Open(res.VideoRef)
	require.True(t, ok)
	assert.Equal(t, video, got)
	assert.Equal(t, len(video), res.Size)
	assert.True(t, strings.HasPrefix(res.VideoRef, MemoryScheme))

	assert.Equal(t, "/tmp/out.mp4", res.Metadata["output_video_path"])
	assert.EqualValues(t, 13, res.Metadata["output_video_size"])
	assert.NotContains(t, res.Metadata, PayloadField)

	sent := svc.last.Load().(map[string]any)
	assert.Equal(t, "ko-KR-Wavenet-a", sent["tts_voice"])
	assert.Equal(t, int32(1), svc.calls.Load())
}

func TestGenerate_FileStore(t *testing.T) {
	video := []byte("not really an mp4")
	svc := newFakeService(t, http.StatusOK,
		`{"status":"success","result":{"output_video_base64":"`+base64.StdEncoding.EncodeToString(video)+`"}}`)

	dir := filepath.Join(t.TempDir(), "videos")
	res, err := newGenerator(t, svc.URL, NewFileStore(dir)).Generate(context.Background(), testSelections())
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(res.VideoRef))
	assert.True(t, strings.HasPrefix(filepath.Base(res.VideoRef), "a-quiet-story-about-rain-"))
	data, err := os.ReadFile(res.VideoRef)
	require.NoError(t, err)
	assert.Equal(t, video, data)
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    *Error
		message string
	}{
		{"service error with message", 200, `{"status":"error","error":"no voice"}`, ErrService, "no voice"},
		{"service error without message", 200, `{"status":"error"}`, ErrService, DefaultServiceMessage},
		{"service error object", 200, `{"status":"failed","error":{"message":"quota"}}`, ErrService, "quota"},
		{"http 500 with envelope", 500, `{"status":"error","error":"boom"}`, ErrService, "boom"},
		{"http 502 html", 502, `<html>bad gateway</html>`, ErrService, "service returned 502 Bad Gateway"},
		{"missing payload", 200, `{"status":"success","result":{}}`, ErrProtocol, ""},
		{"missing result", 200, `{"status":"success"}`, ErrProtocol, ""},
		{"empty payload", 200, `{"status":"success","result":{"output_video_base64":""}}`, ErrProtocol, ""},
		{"payload not a string", 200, `{"status":"success","result":{"output_video_base64":42}}`, ErrProtocol, ""},
		{"bad base64", 200, `{"status":"success","result":{"output_video_base64":"***"}}`, ErrProtocol, ""},
		{"unparsable body", 200, `not json`, ErrProtocol, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService(t, tt.status, tt.body)
			store := NewMemoryStore()

			res, err := newGenerator(t, svc.URL, store).Generate(context.Background(), testSelections())
			require.Nil(t, res, "no partial results")
			require.ErrorIs(t, err, tt.kind)

			var gerr *Error
			require.True(t, errors.As(err, &gerr))
			if tt.message != "" {
				assert.Equal(t, tt.message, gerr.Message)
			}
			if tt.kind == ErrProtocol {
				assert.False(t, errors.Is(err, ErrService), "protocol errors are not service errors")
			}
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestGenerate_NetworkError(t *testing.T) {
	svc := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := svc.URL
	svc.Close()

	_, err := newGenerator(t, url, NewMemoryStore()).Generate(context.Background(), testSelections())
	require.ErrorIs(t, err, ErrNetwork)
}

func TestGenerate_Timeout(t *testing.T) {
	release := make(chan struct{})
	svc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer svc.Close()
	defer close(release)

	client, err := NewClient(svc.URL, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = NewGenerator(client, NewMemoryStore()).Generate(context.Background(), testSelections())
	require.ErrorIs(t, err, ErrNetwork)
}

func TestNewClient_OptionOrder(t *testing.T) {
	custom := &http.Client{}

	client, err := NewClient("http://localhost:9000", WithTimeout(time.Second), WithHTTPClient(custom))
	require.NoError(t, err)
	assert.Equal(t, time.Second, client.http.Timeout, "timeout survives a later client")
	assert.Zero(t, custom.Timeout, "caller's client is left alone")

	client, err = NewClient("http://localhost:9000", WithHTTPClient(nil), WithTimeout(time.Second))
	require.NoError(t, err)
	require.NotNil(t, client.http)
	assert.Equal(t, time.Second, client.http.Timeout)
}

func TestGenerate_IncompleteSelectionsSendNothing(t *testing.T) {
	svc := newFakeService(t, http.StatusOK, `{"status":"success"}`)

	sel := testSelections()
	sel.TTSVoice = ""
	_, err := newGenerator(t, svc.URL, NewMemoryStore()).Generate(context.Background(), sel)
	require.ErrorIs(t, err, ErrIncompleteRequest)
	assert.Equal(t, int32(0), svc.calls.Load())
}

func TestUnavailable_NoNetwork(t *testing.T) {
	_, cfgErr := NewClient("")
	gen := NewGenerator(Unavailable(cfgErr), NewMemoryStore())

	_, err := gen.Generate(context.Background(), testSelections())
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestAttempt_RunsOnce(t *testing.T) {
	video := base64.StdEncoding.EncodeToString([]byte("v"))
	svc := newFakeService(t, http.StatusOK, `{"status":"success","result":{"output_video_base64":"`+video+`"}}`)
	attempt := newGenerator(t, svc.URL, NewMemoryStore()).NewAttempt(testSelections())

	var (
		wg         sync.WaitGroup
		successes  atomic.Int32
		duplicates atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := attempt.Run(context.Background())
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrDuplicateSubmission):
				duplicates.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), svc.calls.Load(), "exactly one network call")
	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(7), duplicates.Load())
	assert.True(t, attempt.Started())

	res, err := attempt.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, attempt.ID(), res.AttemptID)
}

func TestAttempt_DuplicateAfterFailure(t *testing.T) {
	svc := newFakeService(t, http.StatusOK, `{"status":"error","error":"no voice"}`)
	attempt := newGenerator(t, svc.URL, NewMemoryStore()).NewAttempt(testSelections())

	_, err := attempt.Run(context.Background())
	require.ErrorIs(t, err, ErrService)

	_, err = attempt.Run(context.Background())
	require.ErrorIs(t, err, ErrDuplicateSubmission)
	assert.Equal(t, int32(1), svc.calls.Load())
}

func TestAttempt_WaitHonorsContext(t *testing.T) {
	attempt := NewGenerator(Unavailable(errors.New("x")), NewMemoryStore()).NewAttempt(testSelections())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := attempt.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingObserver) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recordingObserver) Submitted(string, Request)  { r.add("submitted") }
func (r *recordingObserver) Succeeded(string, *Result)  { r.add("succeeded") }
func (r *recordingObserver) Failed(_ string, err error) { r.add("failed:" + string(KindOf(err))) }

func TestGenerator_Observers(t *testing.T) {
	ok := newFakeService(t, http.StatusOK,
		`{"status":"success","result":{"output_video_base64":"`+base64.StdEncoding.EncodeToString([]byte("v"))+`"}}`)
	bad := newFakeService(t, http.StatusOK, `{"status":"success","result":{}}`)

	obs := &recordingObserver{}
	gen := newGenerator(t, ok.URL, NewMemoryStore())
	gen.Observe(obs)
	_, err := gen.Generate(context.Background(), testSelections())
	require.NoError(t, err)

	gen = newGenerator(t, bad.URL, NewMemoryStore())
	gen.Observe(obs)
	_, err = gen.Generate(context.Background(), testSelections())
	require.Error(t, err)

	assert.Equal(t, []string{"submitted", "succeeded", "submitted", "failed:protocol"}, obs.events)
}

func TestFileName(t *testing.T) {
	name := FileName("Hello, World!...")
	assert.True(t, strings.HasPrefix(name, "hello-world-"), name)
	assert.True(t, strings.HasSuffix(name, ".mp4"))

	assert.True(t, strings.HasPrefix(FileName(""), "storyreel-"))
	assert.LessOrEqual(t, len(FileName(strings.Repeat("long title ", 20))), maxSlugLength+len("-12345678.mp4"))
	assert.NotEqual(t, FileName("same"), FileName("same"))
}

func TestErrorString(t *testing.T) {
	err := &Error{Kind: KindNetwork, Message: "generation request failed", Err: errors.New("dial tcp: refused")}
	assert.Equal(t, "generation request failed: dial tcp: refused", err.Error())
	assert.Equal(t, "service error", (&Error{Kind: KindService}).Error())
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
