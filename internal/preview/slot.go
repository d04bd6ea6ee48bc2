// Package preview tracks the single voice or music sample that may be playing
// at a time.
package preview

import "time"

// Preview lengths.
const (
	VoiceDuration = 2 * time.Second
	MusicDuration = 3 * time.Second
)

// Token identifies one started preview. An expiry carrying an older token is
// stale and ignored.
type Token uint64

// Slot holds at most one active preview. The zero value is an idle slot.
type Slot struct {
	active string
	token  Token
}

// Toggle flips the preview for id. Toggling the active item stops it.
// Toggling any other item replaces the active one and returns the token its
// expiry must present. started is false when the call stopped a preview.
func (s *Slot) Toggle(id string) (tok Token, started bool) {
	s.token++
	if s.active == id {
		s.active = ""
		return s.token, false
	}
	s.active = id
	return s.token, true
}

// Expire ends the active preview if tok is still current. Reports whether
// anything stopped.
func (s *Slot) Expire(tok Token) bool {
	if tok != s.token || s.active == "" {
		return false
	}
	s.active = ""
	return true
}

// Stop ends any preview and invalidates outstanding tokens.
func (s *Slot) Stop() {
	s.token++
	s.active = ""
}

// Active returns the id being previewed, or "".
func (s *Slot) Active() string {
	return s.active
}

// Playing reports whether id is being previewed.
func (s *Slot) Playing(id string) bool {
	return id != "" && s.active == id
}
