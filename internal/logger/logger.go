// Package logger writes leveled lines for storyreel. Nothing is written until a
// log file or writer is attached: the wizard owns the terminal, so by default
// every line is dropped.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level orders log lines by severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel accepts a level name in any case; "warning" is an alias for warn.
func ParseLevel(s string) (Level, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "WARNING" {
		return LevelWarn, nil
	}
	for l, n := range levelNames {
		if n == name {
			return Level(l), nil
		}
	}
	return LevelInfo, fmt.Errorf("invalid log level: %s", s)
}

// TimeFormat prefixes every line.
const TimeFormat = "2006-01-02 15:04:05"

// Logger writes "<time> [LEVEL] message" lines at or above its level.
type Logger struct {
	mu    sync.Mutex
	level Level
	out   io.Writer
	file  *os.File
	now   func() time.Time
}

// Default is the logger behind the package-level functions.
var Default = New()

// New returns a logger configured from STORYREEL_LOG_LEVEL and
// STORYREEL_LOG_FILE, discarding output when no file is named.
func New() *Logger {
	l := &Logger{level: LevelInfo, out: io.Discard, now: time.Now}
	_ = l.Configure(os.Getenv("STORYREEL_LOG_LEVEL"), os.Getenv("STORYREEL_LOG_FILE"))
	return l
}

// Configure applies the log_level and log_file settings. Empty values keep
// the current ones. A bad level is returned as an error, but a file is still
// attached.
func (l *Logger) Configure(level, file string) error {
	var levelErr error
	if level != "" {
		if parsed, err := ParseLevel(level); err != nil {
			levelErr = err
		} else {
			l.SetLevel(parsed)
		}
	}
	if file == "" {
		return levelErr
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	l.mu.Lock()
	l.closeFileLocked()
	l.file = f
	l.out = f
	l.mu.Unlock()
	return levelErr
}

func (l *Logger) closeFileLocked() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Close releases the log file, if any, and goes back to discarding.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.closeFileLocked()
	l.out = io.Discard
	return err
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetOutput sends lines to w. serve uses it to log to stderr when no file is
// configured. A file opened by Configure stays open until Close.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	l.out = w
	l.mu.Unlock()
}

// Enabled reports whether lines at level would be written.
func (l *Logger) Enabled(level Level) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level && l.out != io.Discard
}

func (l *Logger) Debug(format string, v ...any) { l.logf(LevelDebug, format, v...) }
func (l *Logger) Info(format string, v ...any)  { l.logf(LevelInfo, format, v...) }
func (l *Logger) Warn(format string, v ...any)  { l.logf(LevelWarn, format, v...) }
func (l *Logger) Error(format string, v ...any) { l.logf(LevelError, format, v...) }

func (l *Logger) logf(level Level, format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level || l.out == io.Discard {
		return
	}
	msg := strings.TrimRight(fmt.Sprintf(format, v...), "\n")
	fmt.Fprintf(l.out, "%s [%s] %s\n", l.now().Format(TimeFormat), level, msg)
}

// Configure applies level and file to Default.
func Configure(level, file string) error { return Default.Configure(level, file) }

func Debug(format string, v ...any) { Default.Debug(format, v...) }
func Info(format string, v ...any)  { Default.Info(format, v...) }
func Warn(format string, v ...any)  { Default.Warn(format, v...) }
func Error(format string, v ...any) { Default.Error(format, v...) }

// Close releases Default's log file.
func Close() error { return Default.Close() }
