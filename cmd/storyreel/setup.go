package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/storyreel/storyreel/internal/config"
	"github.com/storyreel/storyreel/internal/generation"
)

var setupFlags struct {
	project          bool
	force            bool
	endpoint         string
	subtitleEndpoint string
	outputDir        string
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create storyreel configuration file",
	Long: `Create a storyreel configuration file with sensible defaults.

By default, creates a global config at ~/.config/storyreel/storyreel.yml.
Use --project to create a project-local config in the current directory.`,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().BoolVarP(&setupFlags.project, "project", "p", false, "Create config in current directory instead of global location")
	setupCmd.Flags().BoolVarP(&setupFlags.force, "force", "f", false, "Overwrite existing config file")
	setupCmd.Flags().StringVarP(&setupFlags.endpoint, "endpoint", "e", "", "Video generation service URL")
	setupCmd.Flags().StringVar(&setupFlags.subtitleEndpoint, "subtitle-endpoint", "", "YouTube subtitle service URL")
	setupCmd.Flags().StringVarP(&setupFlags.outputDir, "output-dir", "o", "", "Directory for generated videos")
}

func runSetup(cmd *cobra.Command, args []string) error {
	// Determine target path
	targetPath := config.GlobalPath()
	if setupFlags.project {
		targetPath = config.ProjectPath()
	}

	if !setupFlags.force && fileExists(targetPath) {
		return fmt.Errorf("config file already exists at %s\n\nUse --force to overwrite", targetPath)
	}

	// An endpoint given here must at least be a usable URL
	if setupFlags.endpoint != "" {
		if _, err := generation.NewClient(setupFlags.endpoint); err != nil {
			return err
		}
	}

	outputDir := setupFlags.outputDir
	if outputDir == "" {
		outputDir = config.DefaultOutputDir()
	}

	cfg := &config.Config{
		Endpoint:         setupFlags.endpoint,
		SubtitleEndpoint: setupFlags.subtitleEndpoint,
		RequestTimeout:   60 * time.Minute,
		OutputDir:        outputDir,
		LogLevel:         "info",
		ListenAddr:       "127.0.0.1:8787",
		MCPAddr:          "127.0.0.1:8788",
	}

	var err error
	if setupFlags.project {
		err = config.WriteProject(cfg)
	} else {
		err = config.WriteGlobal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Config written to: %s\n\n", targetPath)
	if cfg.Endpoint == "" {
		fmt.Println("Set endpoint in the file (or STORYREEL_ENDPOINT) before generating.")
	}
	fmt.Println("Run 'storyreel' to start the wizard.")
	return nil
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
