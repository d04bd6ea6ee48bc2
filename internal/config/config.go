// Package config provides centralized configuration management using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration values for storyreel.
type Config struct {
	Endpoint         string        `mapstructure:"endpoint" yaml:"endpoint"`
	SubtitleEndpoint string        `mapstructure:"subtitle_endpoint" yaml:"subtitle_endpoint"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	OutputDir        string        `mapstructure:"output_dir" yaml:"output_dir"`
	CatalogFile      string        `mapstructure:"catalog_file" yaml:"catalog_file"`
	LogLevel         string        `mapstructure:"log_level" yaml:"log_level"`
	LogFile          string        `mapstructure:"log_file" yaml:"log_file"`
	ListenAddr       string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	MCPAddr          string        `mapstructure:"mcp_addr" yaml:"mcp_addr"`
}

// keys lists every config key with its environment variable.
var keys = map[string]string{
	"endpoint":          "STORYREEL_ENDPOINT",
	"subtitle_endpoint": "STORYREEL_SUBTITLE_ENDPOINT",
	"request_timeout":   "STORYREEL_REQUEST_TIMEOUT",
	"output_dir":        "STORYREEL_OUTPUT_DIR",
	"catalog_file":      "STORYREEL_CATALOG_FILE",
	"log_level":         "STORYREEL_LOG_LEVEL",
	"log_file":          "STORYREEL_LOG_FILE",
	"listen_addr":       "STORYREEL_LISTEN_ADDR",
	"mcp_addr":          "STORYREEL_MCP_ADDR",
}

// DefaultOutputDir is where decoded videos are written when output_dir is unset.
func DefaultOutputDir() string {
	return filepath.Join(os.TempDir(), "storyreel")
}

// Load loads configuration with full precedence:
// CLI flags > ENV vars (.env included) > project config > XDG global config > defaults
func Load() (*Config, error) {
	// .env never overrides variables that are already set
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("storyreel")

	// Endpoint has no default; generation refuses to start without it
	v.SetDefault("endpoint", "")
	v.SetDefault("subtitle_endpoint", "")
	v.SetDefault("request_timeout", "60m")
	v.SetDefault("output_dir", DefaultOutputDir())
	v.SetDefault("catalog_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("listen_addr", "127.0.0.1:8787")
	v.SetDefault("mcp_addr", "127.0.0.1:8788")

	v.SetEnvPrefix("STORYREEL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, env := range keys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s env: %w", key, err)
		}
	}

	globalPath := GlobalPath()
	if fileExists(globalPath) {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	projectPath := ProjectPath()
	if fileExists(projectPath) {
		v.SetConfigFile(projectPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.RequestTimeout < 0 {
		return nil, fmt.Errorf("request_timeout must be non-negative, got %s", cfg.RequestTimeout)
	}

	return &cfg, nil
}

// Exists returns true if any config file exists (global or project).
func Exists() bool {
	return fileExists(GlobalPath()) || fileExists(ProjectPath())
}

// GlobalPath returns the XDG global config path.
// Returns ~/.config/storyreel/storyreel.yml or $XDG_CONFIG_HOME/storyreel/storyreel.yml.
func GlobalPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "storyreel", "storyreel.yml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "storyreel", "storyreel.yml")
}

// ProjectPath returns the project-local config path.
func ProjectPath() string {
	return "storyreel.yml"
}

// WriteGlobal writes the config to the XDG global location.
func WriteGlobal(cfg *Config) error {
	path := GlobalPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return write(path, cfg)
}

// WriteProject writes the config to the project-local location.
func WriteProject(cfg *Config) error {
	return write(ProjectPath(), cfg)
}

func write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
