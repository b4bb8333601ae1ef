// Package logger holds the process-wide zap logger and carries request-scoped
// loggers through context.Context.
//
// Initialize once at startup:
//
//	logger.Init(logger.Config{Env: cfg.Environment, Level: cfg.LogLevel})
//	defer logger.Sync()
//
// Inside request handling code, prefer the scoped logger:
//
//	logger.From(ctx).Info("consent revoked", logger.UserID(id))
package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the encoder and minimum level.
type Config struct {
	// Env is "production" for JSON output; anything else logs to the console.
	Env string
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string
}

var (
	once     sync.Once
	instance *zap.Logger
)

// Init builds the process logger. Only the first call has an effect.
func Init(cfg Config) {
	once.Do(func() {
		instance = build(cfg)
	})
}

// L returns the process logger, building a development logger if Init was
// never called.
func L() *zap.Logger {
	Init(Config{Level: "info"})
	return instance
}

// Named returns the process logger with a component name.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Sync flushes buffered entries.
func Sync() error {
	if instance != nil {
		return instance.Sync()
	}
	return nil
}

func build(cfg Config) *zap.Logger {
	level := parseLevel(cfg.Level)

	var zcfg zap.Config
	if strings.EqualFold(cfg.Env, "production") {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		zcfg.DisableStacktrace = true
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	l, err := zcfg.Build()
	if err != nil {
		return zap.NewExample()
	}
	return l
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
