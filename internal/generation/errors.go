package generation

import (
	"errors"
	"fmt"
)

// Kind classifies a generation failure.
type Kind string

const (
	// KindConfiguration means the endpoint is missing or malformed. Nothing was sent.
	KindConfiguration Kind = "configuration"
	// KindNetwork means the request never got a response.
	KindNetwork Kind = "network"
	// KindService means the service answered with a non-success status.
	KindService Kind = "service"
	// KindProtocol means the service claimed success but the payload was unusable.
	KindProtocol Kind = "protocol"
)

// Error is a classified generation failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind) + " error"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels below, so errors.Is(err, ErrService) works for
// any service failure regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrNetwork       = &Error{Kind: KindNetwork}
	ErrService       = &Error{Kind: KindService}
	ErrProtocol      = &Error{Kind: KindProtocol}
)

// ErrDuplicateSubmission is returned when an attempt is run a second time.
// No request is sent.
var ErrDuplicateSubmission = errors.New("generation already submitted for this attempt")

// ErrIncompleteRequest is returned when required selections are missing.
var ErrIncompleteRequest = errors.New("incomplete generation request")

// DefaultServiceMessage is used when the service fails without saying why.
const DefaultServiceMessage = "video generation service reported an error"

// KindOf returns the kind of a generation error, or "" for anything else.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return ""
}

func configurationError(msg string, err error) *Error {
	return &Error{Kind: KindConfiguration, Message: msg, Err: err}
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: "generation request failed", Err: err}
}

func serviceError(msg string) *Error {
	if msg == "" {
		msg = DefaultServiceMessage
	}
	return &Error{Kind: KindService, Message: msg}
}

func protocolError(msg string, err error) *Error {
	return &Error{Kind: KindProtocol, Message: msg, Err: err}
}
