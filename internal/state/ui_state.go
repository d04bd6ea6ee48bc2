// Package state persists UI preferences between runs.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/storyreel/storyreel/internal/logger"
)

const fileName = "ui-state.json"

// UIState holds persistent UI preferences that carry across runs.
type UIState struct {
	// Theme is the last theme chosen with --theme.
	Theme string `json:"theme"`
}

// DefaultUIState returns the state used when nothing has been saved.
func DefaultUIState() *UIState {
	return &UIState{Theme: "reel"}
}

// Dir returns $XDG_STATE_HOME/storyreel, or ~/.local/state/storyreel.
func Dir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "storyreel")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "storyreel")
}

// Load reads the UI state from dataDir.
// Returns default state if the file doesn't exist or on error.
func Load(dataDir string) *UIState {
	path := filepath.Join(dataDir, fileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read UI state file: %v", err)
		}
		return DefaultUIState()
	}

	state := DefaultUIState()
	if err := json.Unmarshal(data, state); err != nil {
		logger.Warn("Failed to parse UI state JSON: %v", err)
		return DefaultUIState()
	}
	return state
}

// Save writes the UI state to dataDir, creating it if needed.
func Save(dataDir string, state *UIState) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling UI state: %w", err)
	}

	path := filepath.Join(dataDir, fileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing UI state file: %w", err)
	}

	logger.Debug("UI state saved to %s", path)
	return nil
}
