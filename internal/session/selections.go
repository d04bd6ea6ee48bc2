package session

import (
	"fmt"
	"math"
	"unicode/utf8"
)

// Source says where the manuscript came from.
type Source string

const (
	SourceText    Source = "text"
	SourceYouTube Source = "youtube"
)

// MinManuscriptLength is the shortest manuscript, in characters, that may
// leave the manuscript step.
const MinManuscriptLength = 100

// Selections is everything the user has chosen so far.
type Selections struct {
	Manuscript        string   `json:"manuscript"`
	ManuscriptSource  Source   `json:"manuscript_source"`
	YouTubeURL        string   `json:"youtube_url"`
	WordCount         int      `json:"word_count"`
	EstimatedDuration string   `json:"estimated_duration"`
	Summary           string   `json:"summary"`
	Chapters          []string `json:"chapters"`
	TTSVoice          string   `json:"tts_voice"`
	BGMGenre          string   `json:"bgm_genre"`
	BGMType           string   `json:"bgm_type"`
	VideoRatio        string   `json:"video_ratio"`
	// VideoURL is a local reference to the generated video. Empty until a
	// generation succeeds.
	VideoURL string `json:"video_url"`
}

// IsZero reports whether nothing has been selected.
func (s Selections) IsZero() bool {
	return s.Manuscript == "" && s.ManuscriptSource == "" && s.YouTubeURL == "" &&
		s.WordCount == 0 && s.EstimatedDuration == "" && s.Summary == "" &&
		len(s.Chapters) == 0 && s.TTSVoice == "" && s.BGMGenre == "" &&
		s.BGMType == "" && s.VideoRatio == "" && s.VideoURL == ""
}

// Clone returns a copy that shares no memory with s.
func (s Selections) Clone() Selections {
	if s.Chapters != nil {
		s.Chapters = append([]string(nil), s.Chapters...)
	}
	return s
}

// Patch is a partial update. Nil fields are left alone.
type Patch struct {
	Manuscript        *string  `json:"manuscript,omitempty"`
	ManuscriptSource  *Source  `json:"manuscript_source,omitempty"`
	YouTubeURL        *string  `json:"youtube_url,omitempty"`
	WordCount         *int     `json:"word_count,omitempty"`
	EstimatedDuration *string  `json:"estimated_duration,omitempty"`
	Summary           *string  `json:"summary,omitempty"`
	Chapters          []string `json:"chapters,omitempty"`
	TTSVoice          *string  `json:"tts_voice,omitempty"`
	BGMGenre          *string  `json:"bgm_genre,omitempty"`
	BGMType           *string  `json:"bgm_type,omitempty"`
	VideoRatio        *string  `json:"video_ratio,omitempty"`
	VideoURL          *string  `json:"video_url,omitempty"`
}

// Apply merges p into s. Empty values never clear a populated field; only
// VideoURL may be cleared, and only by an explicit empty string.
func (s *Selections) Apply(p Patch) {
	setString(&s.Manuscript, p.Manuscript)
	if p.ManuscriptSource != nil && *p.ManuscriptSource != "" {
		s.ManuscriptSource = *p.ManuscriptSource
	}
	setString(&s.YouTubeURL, p.YouTubeURL)
	if p.WordCount != nil && *p.WordCount > 0 {
		s.WordCount = *p.WordCount
	}
	setString(&s.EstimatedDuration, p.EstimatedDuration)
	setString(&s.Summary, p.Summary)
	if len(p.Chapters) > 0 {
		s.Chapters = append([]string(nil), p.Chapters...)
	}
	setString(&s.TTSVoice, p.TTSVoice)
	setString(&s.BGMGenre, p.BGMGenre)
	setString(&s.BGMType, p.BGMType)
	setString(&s.VideoRatio, p.VideoRatio)
	if p.VideoURL != nil {
		s.VideoURL = *p.VideoURL
	}
}

func setString(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}

// ManuscriptReady reports whether text is long enough to leave the
// manuscript step. Length counts characters, not bytes.
func ManuscriptReady(text string) bool {
	return utf8.RuneCountInString(text) >= MinManuscriptLength
}

// Analysis is the derived metadata shown on the settings step.
type Analysis struct {
	WordCount         int
	EstimatedDuration string
	Summary           string
	Chapters          []string
}

const summaryLength = 100

// Analyze derives the settings-step metadata for a manuscript.
func Analyze(text string, source Source) Analysis {
	n := utf8.RuneCountInString(text)

	if source == SourceYouTube {
		return Analysis{
			WordCount:         n,
			EstimatedDuration: "약 3분",
			Summary:           "유튜브에서 추출한 자막을 기반으로 한 스토리 영상 생성",
			Chapters:          []string{"인트로", "본문 1", "본문 2", "마무리"},
		}
	}

	summary := text
	if n > summaryLength {
		summary = string([]rune(text)[:summaryLength])
	}

	return Analysis{
		WordCount:         n,
		EstimatedDuration: fmt.Sprintf("%d분 예상", EstimatedMinutes(n)),
		Summary:           summary + "...",
		Chapters:          []string{"챕터 1", "챕터 2", "챕터 3", "챕터 4"},
	}
}

// EstimatedMinutes is the rough narration length for n characters.
func EstimatedMinutes(n int) int {
	return int(math.Ceil(float64(n) / 2000))
}

// Patch returns the patch that records a submitted manuscript.
func (a Analysis) Patch(text string, source Source, youtubeURL string) Patch {
	p := Patch{
		Manuscript:        &text,
		ManuscriptSource:  &source,
		WordCount:         &a.WordCount,
		EstimatedDuration: &a.EstimatedDuration,
		Summary:           &a.Summary,
		Chapters:          a.Chapters,
	}
	if youtubeURL != "" {
		p.YouTubeURL = &youtubeURL
	}
	return p
}
