package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// isolate points XDG and the working directory at a fresh temp dir and clears
// any STORYREEL_ variables from the developer environment.
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "config"))
	for _, env := range keys {
		t.Setenv(env, "")
		_ = os.Unsetenv(env)
	}
	return tmpDir
}

func TestGlobalPath(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		require.Equal(t, "/custom/config/storyreel/storyreel.yml", GlobalPath())
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		got := GlobalPath()
		require.True(t, filepath.IsAbs(got), "GlobalPath() should be absolute, got %s", got)
		require.Equal(t, "storyreel.yml", filepath.Base(got))
	})
}

func TestProjectPath(t *testing.T) {
	if got := ProjectPath(); got != "storyreel.yml" {
		t.Errorf("ProjectPath() = %v, want storyreel.yml", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	require.Empty(t, cfg.Endpoint, "endpoint has no default")
	require.Equal(t, 60*time.Minute, cfg.RequestTimeout)
	require.Equal(t, DefaultOutputDir(), cfg.OutputDir)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "127.0.0.1:8787", cfg.ListenAddr)
	require.Equal(t, "127.0.0.1:8788", cfg.MCPAddr)
}

func TestLoad_Precedence(t *testing.T) {
	tmpDir := isolate(t)

	globalPath := GlobalPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(globalPath), 0755))
	require.NoError(t, os.WriteFile(globalPath, []byte("endpoint: https://global.example/run\nlog_level: warn\n"), 0644))

	// Project config overrides the global endpoint but leaves log_level alone
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ProjectPath()), []byte("endpoint: https://project.example/run\nrequest_timeout: 90s\n"), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://project.example/run", cfg.Endpoint)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, 90*time.Second, cfg.RequestTimeout)

	// ENV beats both files
	t.Setenv("STORYREEL_ENDPOINT", "https://env.example/run")
	cfg, err = Load()
	require.NoError(t, err)
	require.Equal(t, "https://env.example/run", cfg.Endpoint)
}

func TestLoad_DotEnv(t *testing.T) {
	tmpDir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".env"), []byte("STORYREEL_SUBTITLE_ENDPOINT=http://subs.local/check\n"), 0644))
	t.Cleanup(func() { _ = os.Unsetenv("STORYREEL_SUBTITLE_ENDPOINT") })

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://subs.local/check", cfg.SubtitleEndpoint)
}

func TestLoad_NegativeTimeout(t *testing.T) {
	isolate(t)
	t.Setenv("STORYREEL_REQUEST_TIMEOUT", "-5s")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "request_timeout")
}

func TestExists(t *testing.T) {
	tmpDir := isolate(t)

	require.False(t, Exists())

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ProjectPath()), []byte("endpoint: x\n"), 0644))
	require.True(t, Exists())
}

func TestWriteGlobal(t *testing.T) {
	isolate(t)

	cfg := &Config{
		Endpoint:       "https://gen.example/run",
		RequestTimeout: 0,
		OutputDir:      "/tmp/videos",
		LogLevel:       "debug",
		ListenAddr:     ":9000",
	}
	require.NoError(t, WriteGlobal(cfg))

	data, err := os.ReadFile(GlobalPath())
	require.NoError(t, err)

	content := string(data)
	for _, field := range []string{
		"endpoint: https://gen.example/run",
		"output_dir: /tmp/videos",
		"log_level: debug",
		"listen_addr: :9000",
	} {
		require.True(t, strings.Contains(content, field), "missing %q in:\n%s", field, content)
	}
}

func TestWriteProject_RoundTrip(t *testing.T) {
	isolate(t)

	require.NoError(t, WriteProject(&Config{
		Endpoint:  "https://gen.example/run",
		LogLevel:  "error",
		OutputDir: "out",
	}))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://gen.example/run", cfg.Endpoint)
	require.Equal(t, "error", cfg.LogLevel)
	require.Equal(t, "out", cfg.OutputDir)
}
