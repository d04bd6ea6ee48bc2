package main

import (
	"fmt"
	"os"

	"github.com/storyreel/storyreel/internal/catalog"
	"github.com/storyreel/storyreel/internal/config"
	"github.com/storyreel/storyreel/internal/generation"
	"github.com/storyreel/storyreel/internal/hooks"
	"github.com/storyreel/storyreel/internal/logger"
	"github.com/storyreel/storyreel/internal/state"
	"github.com/storyreel/storyreel/internal/subtitles"
	"github.com/storyreel/storyreel/internal/tui/theme"
)

var rootFlags struct {
	theme string
}

// env is everything a command needs to generate videos.
type env struct {
	cfg       *config.Config
	catalog   *catalog.Catalog
	submitter generation.Submitter
	store     generation.MediaStore
	subtitles subtitles.Checker
	hooks     *hooks.Config
	workDir   string
}

// loadEnv loads config, configures the logger and builds the service
// clients. A missing or invalid endpoint is not fatal here: the submitter
// reports it as a configuration error when a generation is attempted.
func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Configure(cfg.LogLevel, cfg.LogFile); err != nil {
		return nil, fmt.Errorf("failed to configure logger: %w", err)
	}

	if err := applyTheme(rootFlags.theme); err != nil {
		return nil, err
	}

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	var submitter generation.Submitter
	client, err := generation.NewClient(cfg.Endpoint, generation.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		logger.Warn("Generation disabled: %v", err)
		submitter = generation.Unavailable(err)
	} else {
		submitter = client
	}

	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	hooksCfg, err := hooks.LoadConfig(workDir)
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:       cfg,
		catalog:   cat,
		submitter: submitter,
		store:     generation.NewFileStore(cfg.OutputDir),
		subtitles: subtitles.NewHTTPChecker(cfg.SubtitleEndpoint, nil),
		hooks:     hooksCfg,
		workDir:   workDir,
	}, nil
}

// applyTheme sets name as the theme and remembers it. An empty name restores
// the remembered theme.
func applyTheme(name string) error {
	dir := state.Dir()
	if name == "" {
		if !theme.Set(state.Load(dir).Theme) {
			theme.Set("")
		}
		return nil
	}

	if !theme.Set(name) {
		return fmt.Errorf("unknown theme %q (use reel or paper)", name)
	}
	if err := state.Save(dir, &state.UIState{Theme: name}); err != nil {
		logger.Warn("Could not remember theme: %v", err)
	}
	return nil
}

// generator wires the env for one session. Hook output goes to the log.
func (r *env) generator(sessionID string, extra ...generation.Observer) *generation.Generator {
	observers := append([]generation.Observer{r.hookObserver(sessionID)}, extra...)
	return generation.NewGenerator(r.submitter, r.store, observers...)
}

func (r *env) hookObserver(sessionID string) generation.Observer {
	return hooks.NewObserver(r.hooks, r.workDir, sessionID, func(out string) {
		logger.Info("on_video_ready: %s", out)
	})
}
