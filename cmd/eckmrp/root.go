package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xelth-com/eckmrpgo/internal/config"
	"github.com/xelth-com/eckmrpgo/internal/database"
	"github.com/xelth-com/eckmrpgo/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "eckmrp",
	Short:         "Production processes, BOMs, routes and manufacturing orders",
	SilenceUsage:  true,
}

// app holds what every command needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *database.DB
}

// bootstrap loads the configuration, builds the logger and, when withDB is
// set, connects and migrates the database.
func bootstrap(withDB bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	if !withDB {
		return a, nil
	}

	db, err := database.Connect(cfg.Database, logger)
	if err != nil {
		logger.Sync()
		return nil, err
	}
	if err := db.AutoMigrate(); err != nil {
		db.Close()
		logger.Sync()
		return nil, err
	}
	a.db = db
	return a, nil
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Database close error", zap.Error(err))
		}
	}
	a.logger.Sync()
}
