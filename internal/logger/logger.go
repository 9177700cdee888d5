// Package logger is the process-wide leveled logger for casebrief.
//
// Lines are written to stderr as "[LEVEL] message". Warnings and errors are
// shown by default; --verbose or CASEBRIEF_LOG_LEVEL=debug adds the trace of
// token refresh, aggregation and generation.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level orders log severities. Messages below the current level are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// EnvLevel names the environment variable read by LevelFromEnv.
const EnvLevel = "CASEBRIEF_LOG_LEVEL"

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// ParseLevel accepts debug, info, warn/warning and error in any case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelWarn, fmt.Errorf("unknown log level %q", s)
}

var (
	mu         sync.RWMutex
	level      = LevelWarn
	output     io.Writer = os.Stderr
	timestamps bool
	now        = time.Now
)

// SetLevel sets the minimum level that is written.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// LevelFromEnv applies EnvLevel when set. An unparseable value is reported
// and otherwise ignored.
func LevelFromEnv() {
	v, ok := os.LookupEnv(EnvLevel)
	if !ok || v == "" {
		return
	}
	l, err := ParseLevel(v)
	if err != nil {
		Warn("%s: %v", EnvLevel, err)
		return
	}
	SetLevel(l)
}

// SetVerbose lowers the level to debug, or restores the warn default.
func SetVerbose(v bool) {
	if v {
		SetLevel(LevelDebug)
	} else {
		SetLevel(LevelWarn)
	}
}

// IsVerbose reports whether debug messages are written.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return level <= LevelDebug
}

// SetOutput sets the writer for log lines. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// SetTimestamps prefixes each line with an RFC3339 time, for long-running
// commands such as refresh --watch.
func SetTimestamps(on bool) {
	mu.Lock()
	defer mu.Unlock()
	timestamps = on
}

func logf(l Level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if l < level {
		return
	}
	var sb strings.Builder
	if timestamps {
		sb.WriteString(now().UTC().Format(time.RFC3339))
		sb.WriteByte(' ')
	}
	sb.WriteByte('[')
	sb.WriteString(l.String())
	sb.WriteString("] ")
	fmt.Fprintf(&sb, format, args...)
	sb.WriteByte('\n')
	_, _ = io.WriteString(output, sb.String())
}

func Debug(format string, args ...any) { logf(LevelDebug, format, args...) }
func Info(format string, args ...any)  { logf(LevelInfo, format, args...) }
func Warn(format string, args ...any)  { logf(LevelWarn, format, args...) }
func Error(format string, args ...any) { logf(LevelError, format, args...) }

// Section prints a banner at debug level to separate pipeline stages.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if level <= LevelDebug {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// MaskToken hides all but the last four characters of a secret.
func MaskToken(token string) string {
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", 8) + token[len(token)-4:]
}
