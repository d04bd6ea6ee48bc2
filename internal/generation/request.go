package generation

import (
	"fmt"
	"strings"

	"github.com/storyreel/storyreel/internal/session"
)

// Request is the body POSTed to the generation service. Field names are the
// service's wire contract.
type Request struct {
	Manuscript       string `json:"manuscript"`
	ManuscriptSource string `json:"manuscript_source"`
	YouTubeURL       string `json:"youtube_url"`
	TTSVoice         string `json:"tts_voice"`
	BGMGenre         string `json:"bgm_genre"`
	BGMType          string `json:"bgm_type"`
	VideoRatio       string `json:"video_ratio"`
}

// BuildRequest maps selections onto the wire request.
func BuildRequest(sel session.Selections) Request {
	return Request{
		Manuscript:       sel.Manuscript,
		ManuscriptSource: string(sel.ManuscriptSource),
		YouTubeURL:       sel.YouTubeURL,
		TTSVoice:         sel.TTSVoice,
		BGMGenre:         sel.BGMGenre,
		BGMType:          sel.BGMType,
		VideoRatio:       sel.VideoRatio,
	}
}

// Validate checks that every required field is present. Values are not
// checked; the service decides what it accepts.
func (r Request) Validate() error {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"manuscript", r.Manuscript},
		{"manuscript_source", r.ManuscriptSource},
		{"tts_voice", r.TTSVoice},
		{"bgm_genre", r.BGMGenre},
		{"bgm_type", r.BGMType},
		{"video_ratio", r.VideoRatio},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if r.ManuscriptSource == string(session.SourceYouTube) && r.YouTubeURL == "" {
		missing = append(missing, "youtube_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteRequest, strings.Join(missing, ", "))
	}
	return nil
}
