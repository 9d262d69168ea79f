package pipeline

import (
	"context"

	"github.com/thep200/github-stats-pipeline/cfg"
	"github.com/thep200/github-stats-pipeline/pkg/log"
)

// Bootstrap loads configuration from configDir (cfg/yaml when empty) and builds
// the console logger at the configured level. Edits to log_level in the file
// apply while the process runs.
func Bootstrap(configDir string) (*cfg.Config, *log.CslLogger, error) {
	var paths []string
	if configDir != "" {
		paths = append(paths, configDir)
	}
	viperLoader, err := cfg.NewViperLoader(paths...)
	if err != nil {
		return nil, nil, err
	}
	loader, err := cfg.NewLoader(viperLoader)
	if err != nil {
		return nil, nil, err
	}
	config, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}

	logger, err := log.NewCslLogger()
	if err != nil {
		return nil, nil, err
	}
	logger.SetLevel(log.ParseLevel(config.App.LogLevel))
	viperLoader.RegisterConfigChangeCallback(func(updated *cfg.Config) {
		level := log.ParseLevel(updated.App.LogLevel)
		logger.SetLevel(level)
		logger.Notice(context.Background(), "Log level is now %s", level)
	})
	return config, logger, nil
}
