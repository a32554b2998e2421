package logger_test

import (
	"errors"

	"github.com/wonny/fundquant/pkg/config"
	"github.com/wonny/fundquant/pkg/logger"
)

// Example_basic demonstrates basic logger usage
func Example_basic() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "console",
	}

	// Create logger (SSOT)
	log := logger.New(cfg)

	log.Debug("This won't appear (level is info)")
	log.Info("Batch started")
	log.Infof("Analysing %d funds", 1200)
}

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}
	log := logger.New(cfg)

	log.WithCode("110022").Info("Fund analysed")

	log.WithFields(map[string]interface{}{
		"run_id":    "5f0c2b1e",
		"succeeded": 1180,
		"failed":    20,
	}).Info("Batch completed")
}

// Example_withError demonstrates error logging
func Example_withError() {
	log := logger.New(&config.Config{Env: "production", LogLevel: "error", LogFormat: "json"})

	err := errors.New("insufficient data")
	log.WithError(err).
		WithFields(map[string]interface{}{
			"code":       "000001",
			"error_kind": "insufficient_data",
		}).
		Error("Instrument failed")
}
