// Package ttlog provides the structured logger injected into every engine
// component. It generalizes the teacher's global log.Printf/log.Fatalf
// calls into a dependency-injected *zap.SugaredLogger (grounded on
// noah-isme-sma-adp-api's pkg/logger/logger.go), so no engine holds
// process-wide mutable logging state (spec.md §9: "Loggers are the only
// permitted side channel").
package ttlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level mirrors the small set of verbosities the engine ever logs at.
type Level int

const (
	LevelInfo Level = iota
	LevelDebug
)

// New builds a console-encoded zap logger at the requested level. Search
// progress logging (spec.md §4.3 search parameters) and per-generation GA
// summaries (§4.6) both go through loggers built here.
func New(level Level) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if level == LevelInfo {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		// Building a console logger from a static config cannot fail in
		// practice; fall back to a no-op rather than panic a library call.
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// Nop returns a logger that discards everything, the default for engine
// components constructed without an explicit logger.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
