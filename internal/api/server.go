// Package api serves the video wizard over HTTP: sessions, navigation,
// generation and a WebSocket stream of generation events.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storyreel/storyreel/internal/catalog"
	"github.com/storyreel/storyreel/internal/events"
	"github.com/storyreel/storyreel/internal/generation"
	"github.com/storyreel/storyreel/internal/hooks"
	"github.com/storyreel/storyreel/internal/logger"
	"github.com/storyreel/storyreel/internal/subtitles"
)

// Deps are the collaborators the server needs. Bus and Hooks are optional.
type Deps struct {
	Catalog   *catalog.Catalog
	Submitter generation.Submitter
	Store     generation.MediaStore
	Subtitles subtitles.Checker
	Bus       *events.Bus
	Hooks     *hooks.Config
	WorkDir   string
}

// Server is the HTTP front end.
type Server struct {
	deps     Deps
	sessions *registry
	engine   *gin.Engine
	http     *http.Server
}

// New builds a server and its routes.
func New(deps Deps) *Server {
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	if deps.Store == nil {
		deps.Store = generation.NewMemoryStore()
	}
	if deps.Subtitles == nil {
		deps.Subtitles = subtitles.NewHTTPChecker("", nil)
	}

	s := &Server{deps: deps, sessions: newRegistry()}
	s.engine = s.routes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	api := r.Group("/api")
	api.GET("/catalog", s.getCatalog)
	api.POST("/subtitles/check", s.checkSubtitles)

	sessions := api.Group("/sessions")
	sessions.POST("", s.createSession)

	one := sessions.Group("/:id", s.loadSession)
	one.GET("", s.getSession)
	one.DELETE("", s.deleteSession)
	one.PATCH("/selections", s.patchSelections)
	one.POST("/advance", s.advance)
	one.POST("/retreat", s.retreat)
	one.POST("/reset", s.reset)
	one.POST("/generate", s.generate)
	one.GET("/video", s.video)
	one.GET("/events", s.events)

	r.NoRoute(func(c *gin.Context) {
		abortWith(c, http.StatusNotFound, KindNotFound, "route not found")
	})
	return r
}

// requestLogger logs each request through the application logger instead of
// gin's stdout writer.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("Shutting down HTTP API")
		return s.http.Shutdown(shutdownCtx)
	}
}
