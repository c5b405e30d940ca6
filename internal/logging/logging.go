// Package logging defines the small logger interface the release engine's
// components depend on, and a zap-backed implementation. Components never
// import zap directly, mirroring the teacher's habit (cmd/autobuilder's
// logWriter) of hiding the concrete logger type behind a thin adapter.
package logging

import "go.uber.org/zap"

// Logger is the structured-logging surface every component uses. Keys are
// always passed as alternating key/value pairs, as with zap's SugaredLogger.
type Logger interface {
	Debugw(msg string, kv ...interface{})
	Infow(msg string, kv ...interface{})
	Errorw(msg string, kv ...interface{})
	// With returns a Logger with the given key/value pairs attached to every
	// subsequent entry, e.g. With("repo", key.String()).
	With(kv ...interface{}) Logger
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// New builds a production zap logger wrapped as a Logger.
func New() (Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &zapLogger{s: z.Sugar()}, nil
}

// NewNop returns a Logger that discards everything, for tests.
func NewNop() Logger {
	return &zapLogger{s: zap.NewNop().Sugar()}
}

func (l *zapLogger) Debugw(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Infow(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l *zapLogger) Errorw(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }

func (l *zapLogger) With(kv ...interface{}) Logger {
	return &zapLogger{s: l.s.With(kv...)}
}
