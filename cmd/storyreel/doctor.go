package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/storyreel/storyreel/internal/catalog"
	"github.com/storyreel/storyreel/internal/config"
	"github.com/storyreel/storyreel/internal/generation"
	"github.com/storyreel/storyreel/internal/hooks"
	"github.com/storyreel/storyreel/internal/tui/theme"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and service endpoints",
	RunE:  runDoctor,
}

// check is one doctor result. warn marks a problem that does not block
// generation.
type check struct {
	name   string
	detail string
	ok     bool
	warn   bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	wd, _ := os.Getwd()
	checks := diagnose(cfg, wd)
	failed := printChecks(cmd.OutOrStdout(), checks)
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func diagnose(cfg *config.Config, workDir string) []check {
	var checks []check

	switch {
	case config.Exists():
		checks = append(checks, check{name: "config", detail: "found", ok: true})
	default:
		checks = append(checks, check{name: "config", detail: "no file, using env and defaults (run 'storyreel setup')", warn: true})
	}

	if _, err := generation.NewClient(cfg.Endpoint); err != nil {
		checks = append(checks, check{name: "endpoint", detail: err.Error()})
	} else {
		checks = append(checks, check{name: "endpoint", detail: cfg.Endpoint, ok: true})
	}

	if cfg.SubtitleEndpoint == "" {
		checks = append(checks, check{name: "subtitles", detail: "not configured, YouTube input disabled", warn: true})
	} else {
		checks = append(checks, check{name: "subtitles", detail: cfg.SubtitleEndpoint, ok: true})
	}

	if err := writable(cfg.OutputDir); err != nil {
		checks = append(checks, check{name: "output", detail: err.Error()})
	} else {
		checks = append(checks, check{name: "output", detail: cfg.OutputDir, ok: true})
	}

	if _, err := catalog.Load(cfg.CatalogFile); err != nil {
		checks = append(checks, check{name: "catalog", detail: err.Error()})
	} else if cfg.CatalogFile != "" {
		checks = append(checks, check{name: "catalog", detail: cfg.CatalogFile, ok: true})
	} else {
		checks = append(checks, check{name: "catalog", detail: "built-in", ok: true})
	}

	hooksCfg, err := hooks.LoadConfig(workDir)
	switch {
	case err != nil:
		checks = append(checks, check{name: "hooks", detail: err.Error()})
	case hooksCfg == nil:
		checks = append(checks, check{name: "hooks", detail: "none", ok: true})
	default:
		checks = append(checks, check{name: "hooks", detail: fmt.Sprintf("%d on_video_ready", len(hooksCfg.Hooks.OnVideoReady)), ok: true})
	}
	return checks
}

// writable creates dir if needed and checks a file can be written in it.
func writable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(filepath.Clean(name))
}

// printChecks writes one line per check and returns the number of failures.
func printChecks(w io.Writer, checks []check) int {
	s := theme.Current().S()
	failed := 0
	for _, c := range checks {
		var mark string
		switch {
		case c.ok:
			mark = s.Success.Render("✓")
		case c.warn:
			mark = s.Warning.Render("!")
		default:
			mark = s.Error.Render("✗")
			failed++
		}
		fmt.Fprintf(w, "%s %s %s\n", mark, s.Label.Render(c.name), c.detail)
	}
	return failed
}
