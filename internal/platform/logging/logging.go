// Package logging builds the zap loggers used by boardgate binaries.
package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New constructs the process logger.
//
// Production config by default; debug switches to the development encoder.
// Stacktraces are disabled below fatal to keep WARN/INFO lines readable.
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339))
	}
	return cfg.Build()
}

// NewNop returns a logger that discards everything. Handy default for
// components that treat logging as optional.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
