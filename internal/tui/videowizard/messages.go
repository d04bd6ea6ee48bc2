package videowizard

import (
	"github.com/storyreel/storyreel/internal/generation"
	"github.com/storyreel/storyreel/internal/preview"
	"github.com/storyreel/storyreel/internal/session"
	"github.com/storyreel/storyreel/internal/subtitles"
)

// ManuscriptSubmittedMsg is sent when the manuscript step is complete.
type ManuscriptSubmittedMsg struct {
	Text       string
	Source     session.Source
	YouTubeURL string
}

// SelectionChangedMsg carries a choice made on an option step.
type SelectionChangedMsg struct {
	Patch session.Patch
}

// ManuscriptEditedMsg is sent when the external editor returns.
type ManuscriptEditedMsg struct {
	Text string
	Err  error
}

// previewExpiredMsg ends the preview started with token, unless a newer one
// replaced it.
type previewExpiredMsg struct {
	token preview.Token
}

type subtitlesCheckedMsg struct {
	url    string
	result subtitles.Result
	err    error
}

// stageTickMsg advances the progress stage label for attempt.
type stageTickMsg struct {
	attempt string
}

type generationDoneMsg struct {
	attempt string
	result  *generation.Result
	err     error
}

// showCompletionMsg moves from the finished progress screen to completion.
type showCompletionMsg struct {
	attempt string
}

// RetryGenerationMsg starts a new attempt after Attempt failed.
type RetryGenerationMsg struct {
	Attempt string
}

// RestartMsg resets the wizard to an empty first step.
type RestartMsg struct{}

// OpenVideoMsg asks for the finished video to be opened in the system player.
type OpenVideoMsg struct{}

type videoOpenedMsg struct {
	err error
}
