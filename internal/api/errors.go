package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storyreel/storyreel/internal/generation"
	"github.com/storyreel/storyreel/internal/session"
	"github.com/storyreel/storyreel/internal/subtitles"
)

// Error kinds reported in the "kind" field of error bodies, alongside the
// generation kinds.
const (
	KindValidation = "validation"
	KindNotFound   = "not_found"
	KindConflict   = "conflict"
	KindInternal   = "internal"
	KindBadRequest = "bad_request"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// classify maps an error to its HTTP status and kind.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrManuscriptTooShort),
		errors.Is(err, generation.ErrIncompleteRequest),
		errors.Is(err, subtitles.ErrInvalidURL):
		return http.StatusBadRequest, KindValidation
	case errors.Is(err, session.ErrNotGenerated),
		errors.Is(err, session.ErrFinished),
		errors.Is(err, generation.ErrDuplicateSubmission),
		errors.Is(err, errWrongStep),
		errors.Is(err, errAlreadyGenerated):
		return http.StatusConflict, KindConflict
	case errors.Is(err, generation.ErrConfiguration):
		return http.StatusFailedDependency, string(generation.KindConfiguration)
	case errors.Is(err, generation.ErrNetwork):
		return http.StatusBadGateway, string(generation.KindNetwork)
	case errors.Is(err, generation.ErrService):
		return http.StatusBadGateway, string(generation.KindService)
	case errors.Is(err, generation.ErrProtocol):
		return http.StatusBadGateway, string(generation.KindProtocol)
	}
	return http.StatusInternalServerError, KindInternal
}

func abortWithError(c *gin.Context, err error) {
	status, kind := classify(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Kind: kind})
}

func abortWith(c *gin.Context, status int, kind, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, Kind: kind})
}

var (
	errWrongStep        = errors.New("generation starts from the progress step")
	errAlreadyGenerated = errors.New("video already generated; reset to start over")
)
