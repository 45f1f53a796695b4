package cli

import (
	"fmt"
	"strings"

	"botdash/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the process logger. Console format uses zap's
// development config; anything else is production JSON. When cfg.File is
// set, entries are also written as JSON to a rotating file. The returned
// func flushes the logger and closes the file.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, func(), error) {
	zcfg := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Format, "console") {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("parse log level: %w", err)
		}
		zcfg.Level = level
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}

	if cfg.File == "" {
		return logger, func() { _ = logger.Sync() }, nil
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.FileMaxMB,
		MaxBackups: cfg.FileBackups,
		MaxAge:     cfg.FileMaxAge,
	}
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(rotator),
		zcfg.Level,
	)
	logger = logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))

	return logger, func() {
		_ = logger.Sync()
		_ = rotator.Close()
	}, nil
}
