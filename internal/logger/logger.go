// Package logger builds the zerolog loggers used across ksites
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the logger
type Options struct {
	Level     string
	Format    string
	Component string
	Writer    io.Writer
}

// Logger is zerolog's logger, aliased so callers needn't import zerolog for the type
type Logger = zerolog.Logger

var (
	once sync.Once
	root atomic.Pointer[zerolog.Logger]
)

// New builds a logger from opt. Output goes to stderr unless a Writer is set.
// The console format is for people at a terminal and has no timestamps,
// the json format is for everything else
func New(opt Options) Logger {
	var w io.Writer = os.Stderr
	if opt.Writer != nil {
		w = opt.Writer
	}

	var ctx zerolog.Context
	if strings.EqualFold(opt.Format, "json") {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		ctx = zerolog.New(w).With().Timestamp()
	} else {
		ctx = zerolog.New(zerolog.ConsoleWriter{
			Out:          w,
			NoColor:      true,
			PartsExclude: []string{zerolog.TimestampFieldName},
		}).With()
	}

	if opt.Component != "" {
		ctx = ctx.Str("component", opt.Component)
	}

	return ctx.Logger().Level(parseLevel(opt.Level))
}

// Init sets the process-wide root logger, only the first call has an effect
func Init(opt Options) {
	once.Do(func() {
		log := New(opt)
		root.Store(&log)
	})
}

// Get returns the root logger, an info-level console logger if Init wasn't called
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(Options{Level: "info", Format: "console"})
	return root.Load()
}

// Named returns a child of the root logger with a component field
func Named(component string) Logger {
	if component == "" {
		return *Get()
	}
	return Get().With().Str("component", component).Logger()
}

type ctxKey struct{}

// WithRequest stores a request id on ctx for C
func WithRequest(ctx context.Context, reqID string) context.Context {
	if reqID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, reqID)
}

// C returns a child of l carrying the request id stored on ctx, if any
func C(ctx context.Context, l Logger) Logger {
	if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
		return l.With().Str("request_id", id).Logger()
	}
	return l
}

// parseLevel maps a level name to a zerolog level, info when unrecognized
func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
