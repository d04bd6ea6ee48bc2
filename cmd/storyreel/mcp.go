package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/storyreel/storyreel/internal/events"
	"github.com/storyreel/storyreel/internal/logger"
	"github.com/storyreel/storyreel/internal/mcpserver"
)

var mcpFlags struct {
	addr   string
	stdio  bool
	events bool
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the wizard as MCP tools",
	Long: `Serve the wizard as MCP tools so an agent can list the options, check
YouTube subtitles, analyze a manuscript and generate a video.

By default the tools are served over streamable HTTP at http://<addr>/mcp.
Use --stdio when the agent host launches storyreel itself.`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVarP(&mcpFlags.addr, "addr", "a", "", "Listen address (default: mcp_addr from config)")
	mcpCmd.Flags().BoolVar(&mcpFlags.stdio, "stdio", false, "Serve over stdin/stdout instead of HTTP")
	mcpCmd.Flags().BoolVar(&mcpFlags.events, "events", false, "Publish generation events on an embedded NATS server")
}

func runMCP(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	// stdout belongs to the protocol in stdio mode
	if !mcpFlags.stdio {
		logToStderr(e)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var bus *events.Bus
	if mcpFlags.events {
		bus, err = events.Start(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = bus.Close() }()
	}

	srv := mcpserver.New(mcpserver.Deps{
		Catalog:   e.catalog,
		Submitter: e.submitter,
		Store:     e.store,
		Subtitles: e.subtitles,
		Observers: sessionObservers(e, bus),
	})

	if mcpFlags.stdio {
		return srv.ServeStdio()
	}

	addr := mcpFlags.addr
	if addr == "" {
		addr = e.cfg.MCPAddr
	}
	if _, err := srv.Start(ctx, addr); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "MCP tools at %s\n", srv.URL())

	<-ctx.Done()
	logger.Info("Shutting down MCP server")
	return srv.Stop(cmd.Context())
}
