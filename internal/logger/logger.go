// Package logger wraps zerolog behind a small key-value API shared by the
// library, the CLI, and the examples.
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger with variadic key-value helpers.
type Logger struct {
	zl zerolog.Logger
}

// Log is the package-level logger. Defaults to console output at info
// level; call Setup to change level or format.
var Log *Logger

func init() {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	Log = &Logger{zl: zerolog.New(w).Level(zerolog.InfoLevel).With().Timestamp().Logger()}
}

// Setup reconfigures the package logger.
//
// level is one of trace, debug, info, warn, error; format is "console" or
// "json". Unknown values fall back to info/console.
func Setup(level, format string) {
	lvl := parseLevel(level)

	var zl zerolog.Logger
	if strings.EqualFold(format, "json") {
		zl = zerolog.New(os.Stderr)
	} else {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}

	Log = &Logger{zl: zl.Level(lvl).With().Timestamp().Logger()}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug logs at debug level with alternating key-value fields.
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	addFields(l.zl.Debug(), keysAndValues...).Msg(msg)
}

// Info logs at info level with alternating key-value fields.
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	addFields(l.zl.Info(), keysAndValues...).Msg(msg)
}

// Warn logs at warn level with alternating key-value fields.
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	addFields(l.zl.Warn(), keysAndValues...).Msg(msg)
}

// Error logs at error level with alternating key-value fields.
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	addFields(l.zl.Error(), keysAndValues...).Msg(msg)
}

func addFields(ev *zerolog.Event, keysAndValues ...interface{}) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, keysAndValues[i+1])
	}
	return ev
}
