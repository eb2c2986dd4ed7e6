// Package diag is the diagnostic sink for the emulator core: level-gated
// logging plus a once-per-key helper for runtime anomalies that should be
// reported exactly once (undocumented opcodes, writes to ROM-backed CHR).
package diag

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type Level int

const (
	LevelOff Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
)

// Logger is a small, level-tagged logger. The zero value discards
// everything, so packages can hold a *Logger field that is nil-safe.
type Logger struct {
	mu     sync.Mutex
	level  Level
	writer io.Writer
	seen   map[string]bool
}

// New returns a Logger writing to w at the given level. A nil w defaults
// to os.Stderr.
func New(level Level, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{level: level, writer: w, seen: make(map[string]bool)}
}

// Discard is a Logger that drops everything, for tests and headless use.
var Discard = &Logger{level: LevelOff, writer: io.Discard}

func (l *Logger) log(level Level, tag, format string, args ...any) {
	if l == nil || level > l.level || level == LevelOff {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ts := time.Now().Format("15:04:05.000")
	fmt.Fprintf(l.writer, "[%s] %s: %s\n", ts, tag, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, "ERROR", format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, "WARN", format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, "INFO", format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, "DEBUG", format, args...) }

// Once logs at Warn level the first time it is called with a given key on
// this logger, and is silent on every subsequent call with that key. Used
// for per-unique-opcode diagnostics and the CHR-ROM write warning, which
// would otherwise flood the log once per frame.
func (l *Logger) Once(key, format string, args ...any) {
	if l == nil || l.level < LevelWarn {
		return
	}
	l.mu.Lock()
	if l.seen[key] {
		l.mu.Unlock()
		return
	}
	l.seen[key] = true
	l.mu.Unlock()
	l.log(LevelWarn, "WARN", format, args...)
}
