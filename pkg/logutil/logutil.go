package logutil

import (
	"strings"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const DefaultLogLevel = "info"

// Config is the logging setup of one process.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string
	// File writes logs to the given path instead of stderr when set.
	File string
	// Format is "text" (default) or "json".
	Format string
}

// InitLogger replaces the global logger of github.com/pingcap/log.
func InitLogger(cfg *Config) error {
	level := strings.ToLower(strings.TrimSpace(cfg.Level))
	if level == "" {
		level = DefaultLogLevel
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return errors.Annotatef(err, "invalid log level %s", cfg.Level)
	}
	format := cfg.Format
	if format == "" {
		format = "text"
	}

	logger, props, err := log.InitLogger(&log.Config{
		Level:  lvl.String(),
		Format: format,
		File: log.FileLogConfig{
			Filename: cfg.File,
		},
	})
	if err != nil {
		return errors.Annotate(err, "failed to initialize logger")
	}
	log.ReplaceGlobals(logger, props)
	log.Debug("Logger initialized", zap.String("level", lvl.String()), zap.String("file", cfg.File))
	return nil
}
