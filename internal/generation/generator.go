// Package generation submits wizard selections to the external video
// generation service and turns its response into a playable local video.
//
// The protocol is a single JSON POST. The response envelope carries a status,
// a result holding the base64 video on success, or an error message. Failures
// are classified as configuration, network, service or protocol errors (see
// Kind) and are never retried.
package generation

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/storyreel/storyreel/internal/logger"
	"github.com/storyreel/storyreel/internal/session"
)

// Submitter sends one request to the generation service.
type Submitter interface {
	Submit(ctx context.Context, req Request) (*Payload, error)
}

// Unavailable returns a Submitter that fails every call with err without
// touching the network. Used when the client could not be configured.
func Unavailable(err error) Submitter {
	return unavailable{err: err}
}

type unavailable struct{ err error }

func (u unavailable) Submit(context.Context, Request) (*Payload, error) {
	return nil, u.err
}

// Result is a finished generation.
type Result struct {
	AttemptID string         `json:"attempt_id"`
	VideoRef  string         `json:"video_ref"`
	Size      int            `json:"size"`
	Metadata  map[string]any `json:"metadata"`
}

// Observer is told about each attempt's lifecycle. Calls happen on the
// goroutine running the attempt.
type Observer interface {
	Submitted(attemptID string, req Request)
	Succeeded(attemptID string, res *Result)
	Failed(attemptID string, err error)
}

// Generator builds, submits and stores generations.
type Generator struct {
	submitter Submitter
	store     MediaStore
	observers []Observer
}

// NewGenerator wires a submitter to a media store.
func NewGenerator(submitter Submitter, store MediaStore, observers ...Observer) *Generator {
	return &Generator{
		submitter: submitter,
		store:     store,
		observers: observers,
	}
}

// Observe adds an observer. Not safe to call while attempts are running.
func (g *Generator) Observe(o Observer) {
	g.observers = append(g.observers, o)
}

// Generate runs a fresh attempt for sel.
func (g *Generator) Generate(ctx context.Context, sel session.Selections) (*Result, error) {
	return g.NewAttempt(sel).Run(ctx)
}

// NewAttempt prepares a one-shot generation for sel. The request is built now,
// so later changes to the session do not affect it.
func (g *Generator) NewAttempt(sel session.Selections) *Attempt {
	return &Attempt{
		id:    uuid.NewString(),
		gen:   g,
		req:   BuildRequest(sel),
		title: sel.Summary,
		done:  make(chan struct{}),
	}
}

func (g *Generator) run(ctx context.Context, a *Attempt) (*Result, error) {
	if err := a.req.Validate(); err != nil {
		g.failed(a.id, err)
		return nil, err
	}

	for _, o := range g.observers {
		o.Submitted(a.id, a.req)
	}

	payload, err := g.submitter.Submit(ctx, a.req)
	if err != nil {
		g.failed(a.id, err)
		return nil, err
	}

	ref, err := g.store.Save(ctx, a.title, payload.Video)
	if err != nil {
		err = fmt.Errorf("storing video: %w", err)
		g.failed(a.id, err)
		return nil, err
	}

	res := &Result{
		AttemptID: a.id,
		VideoRef:  ref,
		Size:      len(payload.Video),
		Metadata:  payload.Metadata,
	}
	logger.Info("Generation %s finished: %s (%d bytes)", a.id, ref, res.Size)

	for _, o := range g.observers {
		o.Succeeded(a.id, res)
	}
	return res, nil
}

func (g *Generator) failed(id string, err error) {
	logger.Error("Generation %s failed: %v", id, err)
	for _, o := range g.observers {
		o.Failed(id, err)
	}
}

// Attempt is a single generation that may be run at most once. A second Run,
// from any goroutine, returns ErrDuplicateSubmission without sending anything.
type Attempt struct {
	id    string
	gen   *Generator
	req   Request
	title string

	started atomic.Bool
	done    chan struct{}
	result  *Result
	err     error
}

// ID returns the attempt id.
func (a *Attempt) ID() string {
	return a.id
}

// Request returns the request this attempt sends.
func (a *Attempt) Request() Request {
	return a.req
}

// Started reports whether Run has been called.
func (a *Attempt) Started() bool {
	return a.started.Load()
}

// Run submits the request. Only the first call does anything.
func (a *Attempt) Run(ctx context.Context) (*Result, error) {
	if !a.started.CompareAndSwap(false, true) {
		logger.Debug("Generation %s already submitted, ignoring duplicate run", a.id)
		return nil, ErrDuplicateSubmission
	}
	defer close(a.done)

	a.result, a.err = a.gen.run(ctx, a)
	return a.result, a.err
}

// Wait blocks until the first Run finishes and returns its outcome.
func (a *Attempt) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-a.done:
		return a.result, a.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
