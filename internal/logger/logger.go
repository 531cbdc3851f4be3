// Package logger builds the zap logger shared by the CLI and the scheduler.
package logger

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/baiirun/bidtrack/internal/config"
)

// New returns a production logger at the configured level, or a
// development logger when cfg.Development is set. Output goes to stderr
// so command output on stdout stays clean.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	atom, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level %q: %w", level, err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = atom
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return l, nil
}

// WithProject tags log lines with the project they concern.
func WithProject(l *zap.Logger, id int64, number string) *zap.Logger {
	return l.With(zap.Int64("project_id", id), zap.String("project_number", number))
}
