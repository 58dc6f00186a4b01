// Package log is a thin zerolog wrapper exposing package-level leveled
// logging with key-value fields.
package log

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = newLogger(zerolog.InfoLevel)
)

func newLogger(level zerolog.Level) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// SetLevel sets the minimum level from a string ("debug", "info", "warn",
// "error"). Unknown values keep the current level.
func SetLevel(level string) {
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		Warn("unknown log level", "level", level)
		return
	}
	mu.Lock()
	logger = newLogger(l)
	mu.Unlock()
}

// Debug logs at debug level with alternating key-value fields.
func Debug(msg string, kv ...any) { emit(zerolog.DebugLevel, msg, nil, kv) }

// Info logs at info level with alternating key-value fields.
func Info(msg string, kv ...any) { emit(zerolog.InfoLevel, msg, nil, kv) }

// Warn logs at warn level with alternating key-value fields.
func Warn(msg string, kv ...any) { emit(zerolog.WarnLevel, msg, nil, kv) }

// Error logs an error with alternating key-value fields.
func Error(msg string, err error, kv ...any) { emit(zerolog.ErrorLevel, msg, err, kv) }

func emit(level zerolog.Level, msg string, err error, kv []any) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	ev := l.WithLevel(level)
	if err != nil {
		ev = ev.Err(err)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
