package logger

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey struct{}

var levels = map[string]zapcore.Level{
	"DEBUG":    zapcore.DebugLevel,
	"INFO":     zapcore.InfoLevel,
	"WARNING":  zapcore.WarnLevel,
	"ERROR":    zapcore.ErrorLevel,
	"CRITICAL": zapcore.DPanicLevel,
}

// ParseLevel maps a config level name to a zap level, INFO when unknown.
func ParseLevel(name string) zapcore.Level {
	if lvl, ok := levels[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return lvl
	}
	return zapcore.InfoLevel
}

// NewLogger builds a production logger. When fileName is set, logs go to the file too.
func NewLogger(level string, fileName string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if fileName != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, fileName)
		cfg.ErrorOutputPaths = append(cfg.ErrorOutputPaths, fileName)
	}
	return cfg.Build()
}

func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}
