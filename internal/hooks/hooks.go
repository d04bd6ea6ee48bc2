package hooks

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/storyreel/storyreel/internal/generation"
	"github.com/storyreel/storyreel/internal/logger"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the hooks configuration file.
const ConfigFileName = ".storyreel.hooks.yml"

// LoadConfig loads the hooks configuration from the working directory.
// Returns nil if the config file doesn't exist (hooks are optional).
// Returns an error only if the file exists but cannot be parsed.
func LoadConfig(workDir string) (*Config, error) {
	configPath := filepath.Join(workDir, ConfigFileName)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("No hooks config found at %s", configPath)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read hooks config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse hooks config: %w", err)
	}

	logger.Debug("Loaded hooks config from %s (version: %d, %d on_video_ready)", configPath, cfg.Version, len(cfg.Hooks.OnVideoReady))
	return &cfg, nil
}

// Variables holds template variables that can be expanded in hook commands.
type Variables struct {
	VideoPath string
	Voice     string
	BGM       string
	Ratio     string
	Session   string
}

// Execute runs a hook command and returns its output.
// Template variables in the command ({{video_path}}, {{voice}}, {{bgm}},
// {{ratio}}, {{session}}) are expanded before execution. Values are shell
// quoted.
// On error, returns an error message as output and nil error (graceful degradation).
// Only returns error for context cancellation.
func Execute(ctx context.Context, hook *HookConfig, workDir string, vars Variables) (string, error) {
	if hook == nil || hook.Command == "" {
		return "", nil
	}

	command := expandVariables(hook.Command, vars)
	logger.Debug("Executing hook command: %s", command)

	timeout := hook.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = workDir
	// Children that inherit stdout must not hold Run open past the timeout
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if execCtx.Err() == context.DeadlineExceeded {
		logger.Warn("Hook command timed out after %ds: %s", timeout, command)
		return fmt.Sprintf("[Hook timed out after %ds]\nPartial output:\n%s", timeout, stdout.String()), nil
	}

	if err != nil {
		logger.Warn("Hook command failed: %v", err)
		output := stdout.String()
		if stderr.Len() > 0 {
			output += "\n[stderr]\n" + stderr.String()
		}
		return fmt.Sprintf("[Hook command failed: %v]\n%s", err, output), nil
	}

	output := stdout.String()
	if stderr.Len() > 0 {
		logger.Debug("Hook stderr: %s", stderr.String())
		output += "\n[stderr]\n" + stderr.String()
	}

	logger.Debug("Hook executed successfully, output length: %d bytes", len(output))
	return output, nil
}

// ExecuteAll runs hooks in order and joins their non-empty output with blank
// lines. Stops early only if ctx is cancelled.
func ExecuteAll(ctx context.Context, hooks []*HookConfig, workDir string, vars Variables) (string, error) {
	var outputs []string
	for _, hook := range hooks {
		out, err := Execute(ctx, hook, workDir, vars)
		if err != nil {
			return strings.Join(outputs, "\n"), err
		}
		if out != "" {
			outputs = append(outputs, out)
		}
	}
	return strings.Join(outputs, "\n"), nil
}

// expandVariables replaces {{variable}} placeholders in the command string
// in a single pass, so substituted values are never expanded again.
func expandVariables(command string, vars Variables) string {
	r := strings.NewReplacer(
		"{{video_path}}", shellQuote(vars.VideoPath),
		"{{voice}}", shellQuote(vars.Voice),
		"{{bgm}}", shellQuote(vars.BGM),
		"{{ratio}}", shellQuote(vars.Ratio),
		"{{session}}", shellQuote(vars.Session),
	)
	return r.Replace(command)
}

// shellQuote wraps s in single quotes unless it is made only of safe characters.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./:=@+,", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Observer runs on_video_ready hooks after each successful generation. The
// request seen at submission supplies the voice, music and ratio variables.
type Observer struct {
	cfg     *Config
	workDir string
	session string
	output  func(string)

	mu       sync.Mutex
	requests map[string]generation.Request
}

// NewObserver returns an observer for session. output receives each hook run's
// combined output and may be nil.
func NewObserver(cfg *Config, workDir, session string, output func(string)) *Observer {
	return &Observer{
		cfg:      cfg,
		workDir:  workDir,
		session:  session,
		output:   output,
		requests: make(map[string]generation.Request),
	}
}

func (o *Observer) Submitted(attemptID string, req generation.Request) {
	o.mu.Lock()
	o.requests[attemptID] = req
	o.mu.Unlock()
}

func (o *Observer) Succeeded(attemptID string, res *generation.Result) {
	req := o.take(attemptID)
	if o.cfg == nil || len(o.cfg.Hooks.OnVideoReady) == 0 {
		return
	}

	vars := Variables{
		VideoPath: res.VideoRef,
		Voice:     req.TTSVoice,
		BGM:       req.BGMGenre + "-" + req.BGMType,
		Ratio:     req.VideoRatio,
		Session:   o.session,
	}

	out, err := ExecuteAll(context.Background(), o.cfg.Hooks.OnVideoReady, o.workDir, vars)
	if err != nil {
		logger.Warn("on_video_ready hooks interrupted: %v", err)
	}
	if o.output != nil && out != "" {
		o.output(out)
	}
}

func (o *Observer) Failed(attemptID string, _ error) {
	o.take(attemptID)
}

func (o *Observer) take(attemptID string) generation.Request {
	o.mu.Lock()
	defer o.mu.Unlock()
	req := o.requests[attemptID]
	delete(o.requests, attemptID)
	return req
}
