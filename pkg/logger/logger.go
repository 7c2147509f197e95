package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level aliases zerolog's level type so callers configure the wrapper
// without importing zerolog directly.
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

type Config struct {
	Level      Level
	TimeFormat string
	Output     io.Writer
}

// Logger is a thin zerolog facade. Variadic fields on the log methods are
// alternating key/value pairs; a trailing key without a value is dropped.
type Logger struct {
	zl zerolog.Logger
}

func NewLogger(cfg *Config) *Logger {
	if cfg == nil {
		cfg = &Config{Level: InfoLevel}
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}

	zl := zerolog.New(zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: cfg.TimeFormat}).
		Level(cfg.Level).
		With().
		Timestamp().
		Logger()
	return &Logger{zl: zl}
}

// Component returns a logger scoped with a component name, so every line
// from a subsystem carries its origin.
func (l *Logger) Component(name string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", name).Logger()}
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{zl: l.zl.With().Fields(fields).Logger()}
}

func (l *Logger) Debug(msg string, kv ...interface{}) {
	l.emit(l.zl.Debug(), msg, kv)
}

func (l *Logger) Info(msg string, kv ...interface{}) {
	l.emit(l.zl.Info(), msg, kv)
}

func (l *Logger) Warn(msg string, kv ...interface{}) {
	l.emit(l.zl.Warn(), msg, kv)
}

func (l *Logger) Error(err error, msg string, kv ...interface{}) {
	l.emit(l.zl.Error().Err(err), msg, kv)
}

func (l *Logger) Fatal(err error, msg string, kv ...interface{}) {
	l.emit(l.zl.Fatal().Err(err), msg, kv)
}

func (l *Logger) emit(ev *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
