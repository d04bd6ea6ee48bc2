// Package session holds one user's pass through the video wizard: the
// selections made so far and the step they are on.
package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/storyreel/storyreel/internal/catalog"
)

// Reasons a step cannot be left. These are reported inline, never as fatal
// errors.
var (
	ErrManuscriptTooShort = errors.New("manuscript must be at least 100 characters")
	ErrNotGenerated       = errors.New("video has not been generated yet")
	ErrFinished           = errors.New("wizard is complete; reset to start over")
)

// Session is safe for concurrent use.
type Session struct {
	id       string
	defaults catalog.Defaults

	mu  sync.Mutex
	nav Navigator
	sel Selections
}

// New starts an empty session. defaults fill the voice, music and ratio steps
// when the user leaves them without choosing.
func New(defaults catalog.Defaults) *Session {
	return &Session{
		id:       uuid.NewString(),
		defaults: defaults,
		nav:      NewNavigator(),
	}
}

// ID returns the session's unique id.
func (s *Session) ID() string {
	return s.id
}

// Step returns the current step.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Current()
}

// Selections returns a snapshot of the current selections.
func (s *Session) Selections() Selections {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.Clone()
}

// Update merges a partial update into the selections.
func (s *Session) Update(p Patch) Selections {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Apply(p)
	return s.sel.Clone()
}

// CanAdvance reports whether the current step may be left, and why not.
func (s *Session) CanAdvance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkAdvance()
}

func (s *Session) checkAdvance() error {
	switch s.nav.Current() {
	case StepManuscript:
		if !ManuscriptReady(s.sel.Manuscript) {
			return ErrManuscriptTooShort
		}
	case StepProgress:
		if s.sel.VideoURL == "" {
			return ErrNotGenerated
		}
	case StepComplete:
		return ErrFinished
	}
	return nil
}

// Advance leaves the current step. Option steps left without a choice take
// their default.
func (s *Session) Advance() (Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAdvance(); err != nil {
		return s.nav.Current(), err
	}

	switch s.nav.Current() {
	case StepVoice:
		if s.sel.TTSVoice == "" {
			s.sel.TTSVoice = s.defaults.Voice
		}
	case StepMusic:
		if s.sel.BGMGenre == "" {
			s.sel.BGMGenre = s.defaults.BGMGenre
			s.sel.BGMType = s.defaults.BGMType
		}
	case StepSettings:
		if s.sel.VideoRatio == "" {
			s.sel.VideoRatio = s.defaults.Ratio
		}
	}

	return s.nav.Advance(), nil
}

// Retreat goes back one step.
func (s *Session) Retreat() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Retreat()
}

// Reset clears every selection and returns to the first step.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel = Selections{}
	s.nav.Reset()
}
