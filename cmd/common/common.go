// Package common implements common portal command options.
package common

import (
	"fmt"
	"io"
	"os"

	"github.com/MShafiMalik/lumio-portal-backend/config"
	"github.com/MShafiMalik/lumio-portal-backend/log"
	"github.com/MShafiMalik/lumio-portal-backend/metrics"
	"github.com/MShafiMalik/lumio-portal-backend/storage"
	"github.com/MShafiMalik/lumio-portal-backend/storage/postgres"
)

var rootLogger = log.NewDefaultLogger("portal")

// Init initializes the common environment.
func Init(cfg *config.Config) error {
	var w io.Writer = os.Stdout
	format := log.FmtJSON
	level := log.LevelDebug

	if cfg.Log != nil {
		var err error
		if w, err = getLoggingStream(cfg.Log); err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		if cfg.Log.Format != "" {
			if err := format.Set(cfg.Log.Format); err != nil {
				return err
			}
		}
		if cfg.Log.Level != "" {
			if err := level.Set(cfg.Log.Level); err != nil {
				return err
			}
		}
	}
	logger, err := log.NewLogger("portal", w, format, level)
	if err != nil {
		return err
	}
	rootLogger = logger

	// Initialize Prometheus service.
	if cfg.Metrics != nil {
		promServer, err := metrics.NewPullService(cfg.Metrics.PullEndpoint, rootLogger)
		if err != nil {
			rootLogger.Error("failed to initialize metrics", "err", err)
			return err
		}
		promServer.StartInstrumentation()
	}
	return nil
}

// Logger returns the logger defined by logging flags.
func Logger() *log.Logger {
	return rootLogger
}

func getLoggingStream(cfg *config.LogConfig) (io.Writer, error) {
	if cfg == nil || cfg.File == "" {
		return os.Stdout, nil
	}
	w, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// NewClient creates a new client to target storage.
func NewClient(cfg *config.StorageConfig, logger *log.Logger) (storage.TargetStorage, error) {
	return postgres.NewClient(cfg.Endpoint, logger)
}
