package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"hypermatrix/internal/config"
	"hypermatrix/internal/logging"
	"hypermatrix/internal/rules"
	"hypermatrix/internal/scan"
	"hypermatrix/internal/storage"
)

// engine bundles everything a command needs: the loaded config, the open
// database, the scan manager and the rules store.
type engine struct {
	cfg    *config.Config
	logger *logging.Logger
	db     *storage.DB
	scans  *scan.Manager
	rules  *rules.Store
}

// openEngine loads the workspace configuration and opens its database.
// Callers must Close when done.
func openEngine() (*engine, error) {
	root := workspaceRoot()

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	logger := logging.NewLogger(logging.Config{
		Format: logFormat(cfg),
		Level:  logLevel(cfg),
	})

	dbPath := cfg.Storage.DatabasePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(root, dbPath)
	}
	db, err := storage.Open(dbPath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	rulesStore, err := rules.NewStore(filepath.Join(root, config.ConfigDirName))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading rules: %w", err)
	}

	return &engine{
		cfg:    cfg,
		logger: logger,
		db:     db,
		scans:  scan.NewManager(db, cfg, logger),
		rules:  rulesStore,
	}, nil
}

func (e *engine) Close() {
	if e.db != nil {
		e.db.Close()
	}
}

// logFormat resolves the log format: flag, then env, then config file.
func logFormat(cfg *config.Config) logging.Format {
	if v := viper.GetString("log-format"); v != "" {
		return logging.Format(v)
	}
	if cfg.Logging.Format != "" {
		return logging.Format(cfg.Logging.Format)
	}
	return logging.HumanFormat
}

// logLevel resolves the log level the same way.
func logLevel(cfg *config.Config) logging.LogLevel {
	if v := viper.GetString("log-level"); v != "" {
		return logging.LogLevel(v)
	}
	if cfg.Logging.Level != "" {
		return logging.LogLevel(cfg.Logging.Level)
	}
	return logging.InfoLevel
}
