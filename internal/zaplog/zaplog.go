// Package zaplog adapts a go.uber.org/zap.SugaredLogger to core.Logger, so
// the CLI front-end can drive siteloom with structured, leveled logging
// instead of the stdlib-backed internal/core.StdLogger.
package zaplog

import (
	"go.uber.org/zap"

	"github.com/kjhansen/siteloom/internal/core"
)

// Logger wraps a *zap.SugaredLogger to satisfy core.Logger.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New builds a production zap.Logger (JSON encoding, info level and above)
// and wraps it.
func New() (*Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: z.Sugar()}, nil
}

// NewDevelopment builds a console-friendly, debug-level zap.Logger, for use
// under --verbose.
func NewDevelopment() (*Logger, error) {
	z, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: z.Sugar()}, nil
}

func (l *Logger) Info(args ...interface{})                  { l.sugar.Info(args...) }
func (l *Logger) Infof(format string, a ...interface{})     { l.sugar.Infof(format, a...) }
func (l *Logger) Warn(args ...interface{})                  { l.sugar.Warn(args...) }
func (l *Logger) Warnf(format string, a ...interface{})     { l.sugar.Warnf(format, a...) }
func (l *Logger) Error(args ...interface{})                 { l.sugar.Error(args...) }
func (l *Logger) Errorf(format string, a ...interface{})    { l.sugar.Errorf(format, a...) }
func (l *Logger) Critical(args ...interface{})              { l.sugar.Error(args...) }
func (l *Logger) Criticalf(format string, a ...interface{}) { l.sugar.Errorf(format, a...) }

// Sync flushes any buffered log entries; callers should defer it after New.
func (l *Logger) Sync() error { return l.sugar.Sync() }

var _ core.Logger = (*Logger)(nil)
