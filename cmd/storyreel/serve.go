package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/storyreel/storyreel/internal/api"
	"github.com/storyreel/storyreel/internal/events"
	"github.com/storyreel/storyreel/internal/generation"
	"github.com/storyreel/storyreel/internal/logger"
	"github.com/storyreel/storyreel/internal/mcpserver"
)

var serveFlags struct {
	addr     string
	noEvents bool
	withMCP  bool
	debug    bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the wizard as an HTTP API",
	Long: `Serve the wizard as an HTTP API so a browser front end can drive it.

Each session walks the same six steps as the terminal wizard. Generation
events are published on an embedded NATS server and streamed to clients
over WebSocket at /api/sessions/:id/events.

Use --mcp to also serve the MCP tools on mcp_addr.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.addr, "addr", "a", "", "Listen address (default: listen_addr from config)")
	serveCmd.Flags().BoolVar(&serveFlags.noEvents, "no-events", false, "Do not start the embedded event bus")
	serveCmd.Flags().BoolVar(&serveFlags.withMCP, "mcp", false, "Also serve the MCP tools")
	serveCmd.Flags().BoolVar(&serveFlags.debug, "debug", false, "Run gin in debug mode")
}

// logToStderr sends log lines to stderr unless a log file is configured.
func logToStderr(e *env) {
	if e.cfg.LogFile == "" {
		logger.Default.SetOutput(os.Stderr)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	logToStderr(e)

	if !serveFlags.debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var bus *events.Bus
	if !serveFlags.noEvents {
		bus, err = events.Start(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := bus.Close(); err != nil {
				logger.Warn("Event bus shutdown: %v", err)
			}
		}()
	}

	if serveFlags.withMCP {
		mcp := mcpserver.New(mcpserver.Deps{
			Catalog:   e.catalog,
			Submitter: e.submitter,
			Store:     e.store,
			Subtitles: e.subtitles,
			Observers: sessionObservers(e, bus),
		})
		if _, err := mcp.Start(ctx, e.cfg.MCPAddr); err != nil {
			return fmt.Errorf("failed to start MCP server: %w", err)
		}
		defer func() { _ = mcp.Stop(cmd.Context()) }()
	}

	addr := serveFlags.addr
	if addr == "" {
		addr = e.cfg.ListenAddr
	}

	srv := api.New(api.Deps{
		Catalog:   e.catalog,
		Submitter: e.submitter,
		Store:     e.store,
		Subtitles: e.subtitles,
		Bus:       bus,
		Hooks:     e.hooks,
		WorkDir:   e.workDir,
	})
	fmt.Fprintf(cmd.ErrOrStderr(), "Serving on http://%s (videos in %s)\n", addr, e.cfg.OutputDir)
	return srv.ListenAndServe(ctx, addr)
}

// sessionObservers returns the observers each MCP session reports to.
func sessionObservers(e *env, bus *events.Bus) func(string) []generation.Observer {
	return func(sessionID string) []generation.Observer {
		observers := []generation.Observer{e.hookObserver(sessionID)}
		if bus != nil {
			observers = append(observers, bus.Observer(sessionID))
		}
		return observers
	}
}
