package api

import (
	"sync"

	"github.com/storyreel/storyreel/internal/generation"
	"github.com/storyreel/storyreel/internal/session"
)

// genState is where a session's generation stands.
type genState string

const (
	genIdle      genState = "idle"
	genRunning   genState = "running"
	genSucceeded genState = "succeeded"
	genFailed    genState = "failed"
)

// entry is one wizard session served over HTTP.
type entry struct {
	sess *session.Session
	gen  *generation.Generator

	mu      sync.Mutex
	attempt *generation.Attempt
	state   genState
	result  *generation.Result
	err     error
}

type generationView struct {
	State     genState        `json:"state"`
	AttemptID string          `json:"attempt_id,omitempty"`
	VideoURL  string          `json:"video_url,omitempty"`
	Size      int             `json:"size,omitempty"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
	Error     string          `json:"error,omitempty"`
	Kind      generation.Kind `json:"kind,omitempty"`
}

// sessionView is the JSON shape of a session.
type sessionView struct {
	ID         string             `json:"id"`
	Step       session.Step       `json:"step"`
	StepName   string             `json:"step_name"`
	CanAdvance bool               `json:"can_advance"`
	Blocked    string             `json:"blocked,omitempty"`
	Selections session.Selections `json:"selections"`
	Generation generationView     `json:"generation"`
}

func (e *entry) view() sessionView {
	step := e.sess.Step()
	v := sessionView{
		ID:         e.sess.ID(),
		Step:       step,
		StepName:   step.String(),
		Selections: e.sess.Selections(),
	}
	if err := e.sess.CanAdvance(); err != nil {
		v.Blocked = err.Error()
	} else {
		v.CanAdvance = true
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	v.Generation.State = e.state
	if e.attempt != nil {
		v.Generation.AttemptID = e.attempt.ID()
	}
	if e.result != nil {
		v.Generation.VideoURL = "/api/sessions/" + v.ID + "/video"
		v.Generation.Size = e.result.Size
		v.Generation.Metadata = e.result.Metadata
	}
	if e.err != nil {
		v.Generation.Error = e.err.Error()
		v.Generation.Kind = generation.KindOf(e.err)
	}
	return v
}

// reset forgets the generation along with the session's selections.
func (e *entry) reset() {
	e.sess.Reset()
	e.mu.Lock()
	e.attempt = nil
	e.state = genIdle
	e.result = nil
	e.err = nil
	e.mu.Unlock()
}

// registry holds live sessions. Nothing is persisted.
type registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*entry)}
}

func (r *registry) add(e *entry) {
	r.mu.Lock()
	r.sessions[e.sess.ID()] = e
	r.mu.Unlock()
}

func (r *registry) get(id string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	return e, ok
}

func (r *registry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
