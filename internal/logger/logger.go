// Package logger provides leveled, printf-style logging for unetbench.
//
// The package exposes a small facade (Debug/Info/Warn/Error) over an
// underlying zap logger so call sites stay terse while output remains
// structured and timestamped. Debug output is suppressed unless verbose
// mode is enabled via SetVerbose.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.Mutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	log   = newLogger()
)

// newLogger builds the process-wide sugared logger.
//
// Console encoding is used rather than JSON because the primary consumer is
// a human watching a benchmark sweep; timestamps matter when correlating
// with instance logs.
func newLogger() *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = level
	cfg.DisableStacktrace = true
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// zap.NewDevelopmentConfig only fails on invalid user
		// customization, none of which is applied here.
		panic(err)
	}
	return l.Sugar()
}

// SetVerbose enables or disables debug-level output.
func SetVerbose(verbose bool) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		level.SetLevel(zapcore.DebugLevel)
	} else {
		level.SetLevel(zapcore.InfoLevel)
	}
}

// Debug logs a formatted message at debug level.
// Debug messages are only emitted in verbose mode.
func Debug(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// Info logs a formatted message at info level.
func Info(format string, args ...interface{}) {
	log.Infof(format, args...)
}

// Warn logs a formatted message at warn level.
func Warn(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

// Error logs a formatted message at error level.
func Error(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

// Sync flushes any buffered log entries. It is registered as an exit hook
// by the CLI entry point.
func Sync() {
	_ = log.Sync()
}
