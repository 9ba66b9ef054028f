package logx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "debug"
	}
}

// ParseLevel maps a config value to a Level. Unknown values yield LevelWarn.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "error":
		return LevelError
	default:
		return LevelWarn
	}
}

// Fields carries structured context attached to a log line.
type Fields map[string]any

var (
	mu       sync.RWMutex
	minLevel           = LevelWarn
	out      io.Writer = io.Discard
	secrets            = make([]string, 0)
	verbose  bool
)

// SetOutput sets the destination for logs. nil discards.
func SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	mu.Lock()
	out = w
	mu.Unlock()
}

// SetMinLevel sets the minimum level to emit.
func SetMinLevel(l Level) { mu.Lock(); minLevel = l; mu.Unlock() }

// SetVerbose toggles verbose output (no truncation of large fields/messages).
func SetVerbose(v bool) { mu.Lock(); verbose = v; mu.Unlock() }

// Verbose returns whether verbose output is enabled.
func Verbose() bool { mu.RLock(); defer mu.RUnlock(); return verbose }

// RegisterSecret adds a string to be redacted in outputs, e.g. the POESESSID.
func RegisterSecret(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	mu.Lock()
	secrets = append(secrets, s)
	mu.Unlock()
}

// StdlogWriter wraps writes as structured JSON lines at a fixed level.
// Useful as the target of log.SetOutput for libraries that log through the
// standard logger.
func StdlogWriter(level Level, w io.Writer) io.Writer {
	if w == nil {
		w = os.Stderr
	}
	return &stdlogWriter{level: level, w: w}
}

type stdlogWriter struct {
	level Level
	w     io.Writer
}

func (sw *stdlogWriter) Write(p []byte) (int, error) {
	written := 0
	for _, line := range bytes.Split(p, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		if err := emit(sw.w, sw.level, string(line), nil); err != nil {
			return written, err
		}
		written += len(line) + 1
	}
	return written, nil
}

func current() io.Writer { mu.RLock(); defer mu.RUnlock(); return out }

// Debugf logs a debug message.
func Debugf(format string, args ...any) {
	_ = emit(current(), LevelDebug, fmt.Sprintf(format, args...), nil)
}

// Infof logs an info message.
func Infof(format string, args ...any) {
	_ = emit(current(), LevelInfo, fmt.Sprintf(format, args...), nil)
}

// Warnf logs a warning message.
func Warnf(format string, args ...any) {
	_ = emit(current(), LevelWarn, fmt.Sprintf(format, args...), nil)
}

// Errorf logs an error message.
func Errorf(format string, args ...any) {
	_ = emit(current(), LevelError, fmt.Sprintf(format, args...), nil)
}

// Log emits msg with structured fields at the given level.
func Log(lvl Level, msg string, fields Fields) {
	var cp map[string]any
	if len(fields) > 0 {
		cp = make(map[string]any, len(fields))
		for k, v := range fields {
			cp[k] = v
		}
	}
	_ = emit(current(), lvl, msg, cp)
}

type entry struct {
	TS     string         `json:"ts"`
	Level  string         `json:"level"`
	Msg    string         `json:"msg"`
	Fields map[string]any `json:"fields,omitempty"`
}

const truncateLimit = 2 * 1024

func emit(w io.Writer, lvl Level, msg string, fields map[string]any) error {
	mu.RLock()
	ml := minLevel
	v := verbose
	mu.RUnlock()
	if lvl < ml {
		return nil
	}
	msg = redact(msg)
	if !v {
		msg = truncate(msg, truncateLimit)
	}
	for k, val := range fields {
		switch x := val.(type) {
		case string:
			x = redact(x)
			if !v {
				x = truncate(x, truncateLimit)
			}
			fields[k] = x
		case error:
			fields[k] = redact(x.Error())
		}
	}
	e := entry{
		TS:     time.Now().Format(time.RFC3339Nano),
		Level:  lvl.String(),
		Msg:    msg,
		Fields: fields,
	}
	b, err := json.Marshal(e)
	if err != nil {
		_, err2 := io.WriteString(w, msg+"\n")
		return err2
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

func redact(s string) string {
	mu.RLock()
	defer mu.RUnlock()
	for _, sec := range secrets {
		if sec == "" {
			continue
		}
		s = strings.ReplaceAll(s, sec, "[REDACTED]")
	}
	return s
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	// keep the last 10 bytes for context
	suffix := "… [truncated]"
	if limit > len(suffix)+10 {
		return s[:limit-len(suffix)-10] + suffix + s[len(s)-10:]
	}
	return s[:limit]
}
