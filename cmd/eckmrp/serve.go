package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xelth-com/eckmrpgo/internal/buildinfo"
	"github.com/xelth-com/eckmrpgo/internal/catalog"
	"github.com/xelth-com/eckmrpgo/internal/handlers"
	"github.com/xelth-com/eckmrpgo/internal/manufacturing"
	"github.com/xelth-com/eckmrpgo/internal/process"
	"github.com/xelth-com/eckmrpgo/internal/services/erp"
	"github.com/xelth-com/eckmrpgo/internal/websocket"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, websocket events and scheduled ERP sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(true)
		if err != nil {
			return err
		}
		defer a.close()

		hub := websocket.NewHub(a.logger)
		go hub.Run()

		processes := process.NewService(a.db.DB, a.logger, hub)
		production := manufacturing.NewService(a.db.DB, a.logger, hub)
		products := catalog.NewService(a.db.DB, a.logger)

		var syncService *erp.SyncService
		if a.cfg.ERP.Enabled() {
			syncService = erp.NewSyncService(a.db.DB, a.cfg.ERP, a.logger, hub)
			if err := syncService.Start(); err != nil {
				return err
			}
		}

		router := handlers.NewRouter(handlers.Deps{
			Processes:     processes,
			Catalog:       products,
			Manufacturing: production,
			Sync:          syncService,
			Hub:           hub,
			Logger:        a.logger,
			JWTSecret:     a.cfg.JWTSecret,
			PublicURL:     a.cfg.PublicURL,
			Version:       buildinfo.Version(),
		})

		port := a.cfg.Port
		if servePort != "" {
			port = servePort
		}
		server := &http.Server{
			Addr:              ":" + port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		serveErr := make(chan error, 1)

		go func() {
			a.logger.Info("Server starting", zap.String("port", port), zap.String("env", a.cfg.NodeEnv))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()

		select {
		case sig := <-shutdown:
			a.logger.Info("Received signal, shutting down gracefully", zap.String("signal", sig.String()))
		case err := <-serveErr:
			a.logger.Error("Server failed", zap.Error(err))
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			a.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
		if syncService != nil {
			syncService.Stop()
		}
		hub.Stop()

		a.logger.Info("Shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Listen port (default PORT or 3001)")
	rootCmd.AddCommand(serveCmd)
}
