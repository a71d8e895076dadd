package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger for the given environment. Local and development
// get a human-readable console encoder with debug level; everything else
// gets production JSON output.
func New(env string) *zap.Logger {
	switch env {
	case "local", "development":
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		log, err := cfg.Build()
		if err != nil {
			return zap.NewNop()
		}
		return log
	default:
		log, err := zap.NewProduction()
		if err != nil {
			return zap.NewNop()
		}
		return log
	}
}
