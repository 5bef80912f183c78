// Package logger provides the leveled, structured logger shared by every
// crashfs subcommand: a thin severity layer over log/slog with text or json
// output, selected by format.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/crashfs/crashfs/internal/clock"
)

// Severity mirrors the fixed level set crashfs exposes on --log-level.
type Severity int

const (
	OFF Severity = iota
	ERROR
	WARNING
	INFO
	DEBUG
	TRACE
)

// slog doesn't have TRACE/WARNING natively; map our severities onto custom
// slog.Level values spaced around the standard ones.
const (
	levelTrace = slog.Level(-8)
	levelDebug = slog.LevelDebug
	levelInfo  = slog.LevelInfo
	levelWarn  = slog.LevelWarn
	levelError = slog.LevelError
	levelOff   = slog.Level(64)
)

func (s Severity) slogLevel() slog.Level {
	switch s {
	case TRACE:
		return levelTrace
	case DEBUG:
		return levelDebug
	case INFO:
		return levelInfo
	case WARNING:
		return levelWarn
	case ERROR:
		return levelError
	default:
		return levelOff
	}
}

func (s Severity) name() string {
	switch s {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	default:
		return "OFF"
	}
}

type factory struct {
	format string // "text" or "json"
	level  *slog.LevelVar
	prefix string
	clock  clock.Clock
}

var defaultLoggerFactory = &factory{format: "text", level: new(slog.LevelVar), clock: clock.Real()}
var defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(os.Stderr, defaultLoggerFactory.level, ""))

// Init (re)configures the default logger. fsName is prefixed to every
// message, matching the teacher's per-mount log prefixing
// (logger.NewLegacyLogger(..., fsName)).
func Init(format string, level Severity, fsName string) {
	defaultLoggerFactory.format = format
	defaultLoggerFactory.prefix = fsName
	defaultLoggerFactory.level.Set(level.slogLevel())
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(os.Stderr, defaultLoggerFactory.level, prefixOf(fsName)))
}

func prefixOf(fsName string) string {
	if fsName == "" {
		return ""
	}
	return fsName + ": "
}

func (f *factory) createJsonOrTextHandler(w io.Writer, level *slog.LevelVar, prefix string) slog.Handler {
	c := f.clock
	if c == nil {
		c = clock.Real()
	}
	return &severityHandler{w: w, level: level, format: f.format, prefix: prefix, clock: c}
}

// severityHandler renders records as either:
//
//	time="..." severity=LEVEL message="prefix: msg"
//
// or:
//
//	{"timestamp":{"seconds":N,"nanos":N},"severity":"LEVEL","message":"prefix: msg"}
type severityHandler struct {
	w      io.Writer
	level  *slog.LevelVar
	format string
	prefix string
	clock  clock.Clock
}

func (h *severityHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle stamps the record with h.clock rather than r.Time, so tests can
// inject a fake clock instead of depending on wall-clock time.
func (h *severityHandler) Handle(_ context.Context, r slog.Record) error {
	msg := h.prefix + r.Message
	sev := severityName(r.Level)
	now := h.clock.Now()

	var line string
	if h.format == "json" {
		line = fmt.Sprintf(
			"{\"timestamp\":{\"seconds\":%d,\"nanos\":%d},\"severity\":%q,\"message\":%q}\n",
			now.Unix(), now.Nanosecond(), sev, msg)
	} else {
		line = fmt.Sprintf("time=%q severity=%s message=%q\n", now.Format(time.RFC3339Nano), sev, msg)
	}
	_, err := io.WriteString(h.w, line)
	return err
}

func (h *severityHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *severityHandler) WithGroup(_ string) slog.Handler      { return h }

func severityName(l slog.Level) string {
	switch {
	case l <= levelTrace:
		return "TRACE"
	case l <= levelDebug:
		return "DEBUG"
	case l <= levelInfo:
		return "INFO"
	case l <= levelWarn:
		return "WARNING"
	default:
		return "ERROR"
	}
}

func log(level slog.Level, format string, v ...interface{}) {
	defaultLogger.Log(context.Background(), level, fmt.Sprintf(format, v...))
}

func Tracef(format string, v ...interface{}) { log(levelTrace, format, v...) }
func Debugf(format string, v ...interface{}) { log(levelDebug, format, v...) }
func Infof(format string, v ...interface{})  { log(levelInfo, format, v...) }
func Warnf(format string, v ...interface{})  { log(levelWarn, format, v...) }
func Errorf(format string, v ...interface{}) { log(levelError, format, v...) }
