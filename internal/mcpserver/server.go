// Package mcpserver exposes the video wizard to agents as MCP tools over
// streamable HTTP: catalog lookup, subtitle checks, manuscript analysis and
// one-shot video generation.
package mcpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/mark3labs/mcp-go/server"
	"github.com/storyreel/storyreel/internal/catalog"
	"github.com/storyreel/storyreel/internal/generation"
	"github.com/storyreel/storyreel/internal/logger"
	"github.com/storyreel/storyreel/internal/subtitles"
)

// Deps are the collaborators the tools run against. Observers is optional and
// is asked for the observers of each generated session.
type Deps struct {
	Catalog   *catalog.Catalog
	Submitter generation.Submitter
	Store     generation.MediaStore
	Subtitles subtitles.Checker
	Observers func(sessionID string) []generation.Observer
}

// Server manages the embedded MCP HTTP server.
type Server struct {
	deps       Deps
	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
	stdServer  *http.Server
	addr       string
	mu         sync.Mutex
}

// New creates a server. It does not listen until Start is called.
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
	if deps.Submitter == nil {
		_, err := generation.NewClient("")
		deps.Submitter = generation.Unavailable(err)
	}

	s := &Server{deps: deps}
	s.mcpServer = server.NewMCPServer(
		"storyreel",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// Start listens on addr ("127.0.0.1:0" when empty) and serves /mcp in the
// background. It returns the bound address.
func (s *Server) Start(ctx context.Context, addr string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdServer != nil {
		return "", fmt.Errorf("server already started")
	}
	if addr == "" {
		addr = "127.0.0.1:0"
	}

	// Listen first so the returned address is the one being served
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.addr = listener.Addr().String()

	mux := http.NewServeMux()
	s.httpServer = server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithStateLess(true),
	)
	mux.Handle("/mcp", s.httpServer)
	s.stdServer = &http.Server{Handler: mux}

	stdServer := s.stdServer
	go func() {
		if err := stdServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("MCP server error: %v", err)
		}
	}()

	logger.Info("MCP server listening on %s", s.addr)
	return s.addr, nil
}

// Stop shuts the HTTP server down. Stopping a stopped server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdServer == nil {
		return nil
	}

	logger.Debug("Stopping MCP server")
	if err := s.stdServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	s.stdServer = nil
	s.httpServer = nil
	return nil
}

// ServeStdio serves the tools on stdin and stdout until stdin closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// URL returns the MCP endpoint URL.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("http://%s/mcp", s.addr)
}
