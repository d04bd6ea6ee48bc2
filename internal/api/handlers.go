package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/storyreel/storyreel/internal/generation"
	"github.com/storyreel/storyreel/internal/hooks"
	"github.com/storyreel/storyreel/internal/logger"
	"github.com/storyreel/storyreel/internal/session"
	"github.com/storyreel/storyreel/internal/subtitles"
)

const entryKey = "entry"

func (s *Server) getCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Catalog)
}

type subtitleCheckRequest struct {
	URL string `json:"url" binding:"required"`
}

type subtitleCheckResponse struct {
	subtitles.Result
	Reason string `json:"reason,omitempty"`
}

func (s *Server) checkSubtitles(c *gin.Context) {
	var req subtitleCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, http.StatusBadRequest, KindBadRequest, "body must be {\"url\": \"...\"}")
		return
	}

	res, err := s.deps.Subtitles.Check(c.Request.Context(), req.URL)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, subtitleCheckResponse{Result: res})
	case errors.Is(err, subtitles.ErrNotConfigured):
		c.JSON(http.StatusOK, subtitleCheckResponse{Result: res, Reason: err.Error()})
	case errors.Is(err, subtitles.ErrInvalidURL):
		abortWithError(c, err)
	default:
		logger.Warn("Subtitle check failed for %s: %v", req.URL, err)
		abortWith(c, http.StatusBadGateway, KindInternal, err.Error())
	}
}

func (s *Server) createSession(c *gin.Context) {
	sess := session.New(s.deps.Catalog.Defaults())

	observers := []generation.Observer{}
	if s.deps.Bus != nil {
		observers = append(observers, s.deps.Bus.Observer(sess.ID()))
	}
	if s.deps.Hooks != nil {
		observers = append(observers, hooks.NewObserver(s.deps.Hooks, s.deps.WorkDir, sess.ID(), func(out string) {
			logger.Info("on_video_ready output for %s:\n%s", sess.ID(), out)
		}))
	}

	e := &entry{
		sess:  sess,
		gen:   generation.NewGenerator(s.deps.Submitter, s.deps.Store, observers...),
		state: genIdle,
	}
	s.sessions.add(e)
	logger.Info("Created session %s", sess.ID())

	c.JSON(http.StatusCreated, e.view())
}

// loadSession resolves :id for every per-session route.
func (s *Server) loadSession(c *gin.Context) {
	e, ok := s.sessions.get(c.Param("id"))
	if !ok {
		abortWith(c, http.StatusNotFound, KindNotFound, "session not found")
		return
	}
	c.Set(entryKey, e)
	c.Next()
}

func current(c *gin.Context) *entry {
	return c.MustGet(entryKey).(*entry)
}

func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, current(c).view())
}

func (s *Server) deleteSession(c *gin.Context) {
	s.sessions.remove(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) patchSelections(c *gin.Context) {
	var p session.Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		abortWith(c, http.StatusBadRequest, KindBadRequest, "invalid selections: "+err.Error())
		return
	}
	if p.ManuscriptSource != nil && *p.ManuscriptSource != session.SourceText && *p.ManuscriptSource != session.SourceYouTube {
		abortWith(c, http.StatusBadRequest, KindValidation, "manuscript_source must be \"text\" or \"youtube\"")
		return
	}
	// The video reference is owned by generation
	p.VideoURL = nil

	e := current(c)
	if err := s.checkChoices(&p, e.sess.Selections()); err != nil {
		abortWith(c, http.StatusBadRequest, KindValidation, err.Error())
		return
	}
	if p.Manuscript != nil && p.WordCount == nil {
		source := session.SourceText
		if p.ManuscriptSource != nil {
			source = *p.ManuscriptSource
		} else if sel := e.sess.Selections(); sel.ManuscriptSource != "" {
			source = sel.ManuscriptSource
		}
		a := session.Analyze(*p.Manuscript, source)
		derived := a.Patch(*p.Manuscript, source, "")
		derived.YouTubeURL = p.YouTubeURL
		p = mergePatch(derived, p)
	}

	e.sess.Update(p)
	c.JSON(http.StatusOK, e.view())
}

// checkChoices rejects voice, music and ratio ids the catalog does not list.
// A genre given without a type gets the genre's first type.
func (s *Server) checkChoices(p *session.Patch, sel session.Selections) error {
	cat := s.deps.Catalog
	if p.TTSVoice != nil {
		if _, ok := cat.Voice(*p.TTSVoice); !ok {
			return fmt.Errorf("unknown voice %q", *p.TTSVoice)
		}
	}

	if p.BGMGenre != nil || p.BGMType != nil {
		genreID := sel.BGMGenre
		if p.BGMGenre != nil {
			genreID = *p.BGMGenre
		}
		genre, ok := cat.Genre(genreID)
		if !ok {
			if genreID == "" {
				return fmt.Errorf("bgm_type needs bgm_genre")
			}
			return fmt.Errorf("unknown music genre %q", genreID)
		}
		if p.BGMType == nil {
			p.BGMType = &genre.Types[0]
		}
		if !cat.HasBGM(genreID, *p.BGMType) {
			return fmt.Errorf("music genre %q has no type %q", genreID, *p.BGMType)
		}
	}

	if p.VideoRatio != nil {
		if _, ok := cat.Ratio(*p.VideoRatio); !ok {
			return fmt.Errorf("unknown video ratio %q", *p.VideoRatio)
		}
	}
	return nil
}

// mergePatch lays explicit over base.
func mergePatch(base, explicit session.Patch) session.Patch {
	out := base
	if explicit.ManuscriptSource != nil {
		out.ManuscriptSource = explicit.ManuscriptSource
	}
	if explicit.EstimatedDuration != nil {
		out.EstimatedDuration = explicit.EstimatedDuration
	}
	if explicit.Summary != nil {
		out.Summary = explicit.Summary
	}
	if len(explicit.Chapters) > 0 {
		out.Chapters = explicit.Chapters
	}
	out.TTSVoice = explicit.TTSVoice
	out.BGMGenre = explicit.BGMGenre
	out.BGMType = explicit.BGMType
	out.VideoRatio = explicit.VideoRatio
	return out
}

func (s *Server) advance(c *gin.Context) {
	e := current(c)
	if _, err := e.sess.Advance(); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, e.view())
}

func (s *Server) retreat(c *gin.Context) {
	e := current(c)
	e.mu.Lock()
	running := e.state == genRunning
	e.mu.Unlock()
	if running {
		abortWith(c, http.StatusConflict, KindConflict, "generation in progress")
		return
	}

	e.sess.Retreat()
	c.JSON(http.StatusOK, e.view())
}

func (s *Server) reset(c *gin.Context) {
	e := current(c)
	e.reset()
	c.JSON(http.StatusOK, e.view())
}

// generate submits the session. With ?async=true it returns 202 immediately
// and the outcome arrives over the events stream.
func (s *Server) generate(c *gin.Context) {
	e := current(c)

	if e.sess.Step() != session.StepProgress {
		abortWithError(c, errWrongStep)
		return
	}

	e.mu.Lock()
	switch e.state {
	case genRunning:
		e.mu.Unlock()
		abortWithError(c, generation.ErrDuplicateSubmission)
		return
	case genSucceeded:
		e.mu.Unlock()
		abortWithError(c, errAlreadyGenerated)
		return
	}
	attempt := e.gen.NewAttempt(e.sess.Selections())
	e.attempt = attempt
	e.state = genRunning
	e.err = nil
	e.mu.Unlock()

	if c.Query("async") == "true" {
		go s.runAttempt(context.Background(), e, attempt)
		c.JSON(http.StatusAccepted, e.view())
		return
	}

	if err := s.runAttempt(c.Request.Context(), e, attempt); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, e.view())
}

// runAttempt runs attempt and records the outcome on e. A success moves the
// session to the completion step.
func (s *Server) runAttempt(ctx context.Context, e *entry, attempt *generation.Attempt) error {
	res, err := attempt.Run(ctx)

	e.mu.Lock()
	stale := e.attempt != attempt
	if !stale {
		if err != nil {
			e.state = genFailed
			e.err = err
		} else {
			e.state = genSucceeded
			e.result = res
		}
	}
	e.mu.Unlock()

	if err != nil || stale {
		return err
	}

	ref := res.VideoRef
	e.sess.Update(session.Patch{VideoURL: &ref})
	if _, advErr := e.sess.Advance(); advErr != nil {
		logger.Warn("Session %s could not advance after generation: %v", e.sess.ID(), advErr)
	}
	return nil
}

// memoryOpener is implemented by stores that keep videos in memory.
type memoryOpener interface {
	Open(ref string) ([]byte, bool)
}

func (s *Server) video(c *gin.Context) {
	e := current(c)
	e.mu.Lock()
	res := e.result
	e.mu.Unlock()

	if res == nil {
		abortWith(c, http.StatusNotFound, KindNotFound, "no video generated yet")
		return
	}

	if strings.HasPrefix(res.VideoRef, generation.MemoryScheme) {
		opener, ok := s.deps.Store.(memoryOpener)
		if !ok {
			abortWith(c, http.StatusInternalServerError, KindInternal, "video store cannot serve this reference")
			return
		}
		data, found := opener.Open(res.VideoRef)
		if !found {
			abortWith(c, http.StatusGone, KindNotFound, "video is no longer available")
			return
		}
		c.Data(http.StatusOK, "video/mp4", data)
		return
	}

	if _, err := os.Stat(res.VideoRef); err != nil {
		abortWith(c, http.StatusGone, KindNotFound, "video is no longer available")
		return
	}
	c.File(res.VideoRef)
}
