// Package logx provides the structured logger used throughout docengine.
//
// It exposes a four-level call surface (Debug/Info/Warn/Error, each
// accepting a printf-style format) backed by zap, so call sites get
// leveled, allocation-light structured logging for free.
package logx

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger wraps a zap.SugaredLogger behind the engine's preferred call shape.
type Logger struct {
	s      *zap.SugaredLogger
	prefix string
}

// New builds a Logger with the given prefix (e.g. a collection name).
func New(prefix string) *Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	z, err := cfg.Build()
	if err != nil {
		z = zap.NewNop()
	}
	return &Logger{s: z.Sugar(), prefix: prefix}
}

// Nop returns a Logger that discards everything, for tests and in-memory
// collections that were not given an explicit logger.
func Nop() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

// With returns a child logger scoped to an additional prefix.
func (l *Logger) With(prefix string) *Logger {
	if l.prefix == "" {
		return &Logger{s: l.s, prefix: prefix}
	}
	return &Logger{s: l.s, prefix: l.prefix + "." + prefix}
}

func (l *Logger) format(format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if l.prefix == "" {
		return msg
	}
	return "[" + l.prefix + "] " + msg
}

func (l *Logger) Debug(format string, args ...interface{}) { l.s.Debug(l.format(format, args...)) }
func (l *Logger) Info(format string, args ...interface{})  { l.s.Info(l.format(format, args...)) }
func (l *Logger) Warn(format string, args ...interface{})  { l.s.Warn(l.format(format, args...)) }
func (l *Logger) Error(format string, args ...interface{}) { l.s.Error(l.format(format, args...)) }

// Sync flushes any buffered log entries; call before process exit.
func (l *Logger) Sync() error {
	return l.s.Sync()
}
