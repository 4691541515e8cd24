package main

import (
	"fmt"

	"github.com/care-engine/care/internal/config"
	"github.com/care-engine/care/internal/logging"
)

// loadEngineConfig loads layered configuration and builds its logger,
// following the same config -> logger construction order as the teacher's
// daemon entry point.
func loadEngineConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logCfg := logging.NewDefaultConfig()
	logCfg.Format = cfg.Logging.Format
	if level, lerr := logging.LevelFromString(cfg.Logging.Level); lerr == nil {
		logCfg.Level = level
	}

	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("constructing logger: %w", err)
	}
	return cfg, logger, nil
}
