// Package logging builds the logr loggers used across horizon.
package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels for logr's V(). Info-level logs use V(0).
const (
	DEBUG = 1 // per-stage detail
	TRACE = 2 // per-iteration optimizer progress
)

// NewLogger returns a production zap logger behind the logr API.
// verbosity is the highest V() level that is emitted.
func NewLogger(verbosity int) (logr.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-1 * verbosity))
	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zl), nil
}

// ParseLevel maps a level name to a verbosity: "info", "debug" or "trace".
func ParseLevel(name string) int {
	switch name {
	case "debug":
		return DEBUG
	case "trace":
		return TRACE
	default:
		return 0
	}
}
