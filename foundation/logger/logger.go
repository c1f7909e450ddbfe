// Package logger provides a convenience function to constructing a
// logger for use.
package logger

import (
	"context"

	"github.com/nilotic/blockchain/foundation/web"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TraceIDFn represents a function that can return the trace id from
// the specified context.
type TraceIDFn func(ctx context.Context) string

// New constructs a Sugared Logger that writes to stdout and provides
// human readable timestamps.
func New(service string) (*zap.SugaredLogger, error) {
	return New2(service, func(ctx context.Context) string { return web.GetTraceID(ctx) })
}

// New2 constructs the same production Sugared Logger as New. The
// traceIDFn argument is not used: log entries carry no trace id taken
// from it.
func New2(service string, traceIDFn TraceIDFn) (*zap.SugaredLogger, error) {
	return newLogger(service, false)
}

// NewWithLevel constructs a Sugared Logger the same way New does, but
// switches to zap's development config (console encoding, debug
// level) when debug is true, for the node's --debug flag. Stack traces
// are disabled in both modes.
func NewWithLevel(service string, debug bool) (*zap.SugaredLogger, error) {
	return newLogger(service, debug)
}

func newLogger(service string, debug bool) (*zap.SugaredLogger, error) {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}

	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.TimeKey = "date"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	config.InitialFields = map[string]any{
		"service": service,
	}

	log, err := config.Build(zap.WithCaller(true))
	if err != nil {
		return nil, err
	}

	return log.Sugar(), nil
}

// NewWithEvents adapts a Sugared Logger into the printf-style event
// handler func signature threaded through the blockchain packages
// (Ledger, Producer, PoRC, ...) as their evHandler.
func NewWithEvents(log *zap.SugaredLogger) func(v string, args ...any) {
	return func(v string, args ...any) {
		log.Infof(v, args...)
	}
}
