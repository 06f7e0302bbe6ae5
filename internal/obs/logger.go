package obs

import (
	"github.com/rs/zerolog"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is a minimal logging interface for observability.
type Logger interface {
	Logf(level Level, format string, args ...interface{})
}

// NopLogger discards all logs.
type NopLogger struct{}

func (NopLogger) Logf(level Level, format string, args ...interface{}) {}

// ZeroLogger adapts a zerolog.Logger. Level filtering is left to the
// zerolog logger itself.
type ZeroLogger struct {
	L zerolog.Logger
}

func (z ZeroLogger) Logf(level Level, format string, args ...interface{}) {
	z.L.WithLevel(level.zerolog()).Msgf(format, args...)
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case Debug:
		return zerolog.DebugLevel
	case Info:
		return zerolog.InfoLevel
	case Warn:
		return zerolog.WarnLevel
	case Error:
		return zerolog.ErrorLevel
	default:
		return zerolog.NoLevel
	}
}

// With returns a Logger that tags every line with key=value. Loggers that
// cannot carry fields get the pair as a message prefix.
func With(l Logger, key, value string) Logger {
	switch v := l.(type) {
	case nil:
		return NopLogger{}
	case NopLogger:
		return v
	case ZeroLogger:
		return ZeroLogger{L: v.L.With().Str(key, value).Logger()}
	default:
		return prefixLogger{next: l, prefix: key + "=" + value + " "}
	}
}

type prefixLogger struct {
	next   Logger
	prefix string
}

func (p prefixLogger) Logf(level Level, format string, args ...interface{}) {
	p.next.Logf(level, p.prefix+format, args...)
}
