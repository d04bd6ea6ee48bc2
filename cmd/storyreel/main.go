package main

import (
	"context"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/storyreel/storyreel/internal/logger"
	"github.com/storyreel/storyreel/internal/tui/theme"
)

const (
	logoText1 = "█▀ ▀█▀ █▀█ █▀█ █▄█ █▀█ █▀▀ █▀▀ █  "
	logoText2 = "▄█  █  █▄█ █▀▄  █  █▀▄ ██▄ ██▄ █▄▄"
)

// Version set via ldflags during build
var version = "dev"

func main() {
	// Ensure logger is closed on exit
	defer func() { _ = logger.Close() }()

	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(version)); err != nil {
		logger.Error("Command execution failed: %v", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "storyreel",
	Short: "Turn a story into a narrated video",
	RunE:  runWizard,
}

// renderLogo creates the logo with gradient colors
func renderLogo() string {
	t := theme.Reel()
	line1 := theme.ApplyGradient(logoText1, t.Primary, t.Secondary)
	line2 := theme.ApplyGradient(logoText2, t.Primary, t.Secondary)
	return strings.Join([]string{line1, line2}, "\n")
}

func init() {
	rootCmd.Long = renderLogo() + `

storyreel turns a written story, or the subtitles of a YouTube video, into a
narrated video. The wizard walks through six steps: manuscript, narration
voice, background music, settings, generation and the finished video.

Run without a subcommand to start the wizard. The same flow is available as a
one-shot command (generate), an HTTP API (serve) and an MCP server (mcp).`

	rootCmd.PersistentFlags().StringVar(&rootFlags.theme, "theme", "", "Color theme: reel (dark) or paper (light)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(doctorCmd)
}
