package app

import (
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// NewLogger builds a production zap logger writing to the configured file.
// The terminal belongs to the UI, so nothing may log to stdout or stderr.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, errors.Wrap(err, "create log directory")
	}

	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{cfg.LogFile}
	zcfg.ErrorOutputPaths = []string{cfg.LogFile}

	lg, err := zcfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return lg, nil
}
