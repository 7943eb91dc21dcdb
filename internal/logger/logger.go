package logger

import (
	"fmt"
	"strings"

	"github.com/sorteops/relatorio/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a structured zap.Logger using the provided level (info, warn, debug, error).
func New(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	if level == "" {
		level = "info"
	}

	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(logger)
	return logger, nil
}

// NewFromConfig creates a zap logger from Config, tagged with service identity,
// and replaces globals.
func NewFromConfig(appCfg config.Config) (*zap.Logger, error) {
	logger, err := New(appCfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger = logger.With(
		zap.String("service", strings.TrimSpace(appCfg.AppName)),
		zap.String("env", appCfg.Environment),
		zap.String("version", appCfg.AppVersion),
	)
	zap.ReplaceGlobals(logger)
	return logger, nil
}
