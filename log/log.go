// Package log wraps zerolog with the defaults used by the archiver.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type Options struct {
	Level  string
	Format string
	Writer io.Writer
}

type Logger = zerolog.Logger

var (
	once sync.Once
	root atomic.Pointer[zerolog.Logger]
	run  atomic.Pointer[zerolog.Logger]
)

// FromEnv reads LOG_LEVEL and LOG_FORMAT.
func FromEnv() Options {
	return Options{
		Level:  strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))),
		Format: strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))),
	}
}

// Init builds the root logger. Only the first call has any effect.
func Init(opt Options) {
	once.Do(func() {
		root.Store(build(opt))
	})
}

func build(opt Options) *zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var w io.Writer = os.Stderr
	if opt.Writer != nil {
		w = opt.Writer
	}

	if opt.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "2006-01-02 15:04:05"}
	}

	l := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp().Logger()

	return &l
}

func Get() *Logger {
	if l := run.Load(); l != nil {
		return l
	}

	if l := root.Load(); l != nil {
		return l
	}

	Init(FromEnv())

	return root.Load()
}

// SetRun tags all subsequent log entries with the invocation id.
func SetRun(id string) {
	if root.Load() == nil {
		Init(FromEnv())
	}

	l := root.Load().With().Str("run", id).Logger()
	run.Store(&l)
}

// Named returns a child logger tagged with a component.
func Named(component string) *Logger {
	l := Get().With().Str("component", component).Logger()
	return &l
}

func parseLevel(s string) zerolog.Level {
	switch s {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func Debugf(format string, args ...any) {
	Get().Debug().Msg(fmt.Sprintf(format, args...))
}

func Infof(format string, args ...any) {
	Get().Info().Msg(fmt.Sprintf(format, args...))
}

func Warnf(format string, args ...any) {
	Get().Warn().Msg(fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...any) {
	Get().Error().Msg(fmt.Sprintf(format, args...))
}
