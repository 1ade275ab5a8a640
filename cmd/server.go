package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/vzahanych/weather-dashboard/internal/config"
	"github.com/vzahanych/weather-dashboard/internal/server"
	"github.com/vzahanych/weather-dashboard/internal/server/handlers"
	"go.uber.org/zap"
)

func serverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the dashboard server",
		Long:  `Start the HTTP server that renders the dashboard and accepts map clicks and place searches.`,
		RunE:  runServer,
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()

	log.Info("Starting weather dashboard server",
		zap.String("config_path", configPath),
		zap.String("environment", cfg.Environment),
		zap.Bool("telemetry_enabled", cfg.Telemetry.Enabled),
		zap.Int("server_port", cfg.Server.Port))

	deps, err := newCollaborators(cfg)
	if err != nil {
		return err
	}

	metrics := handlers.NewMetricsHandler(log)
	ctrl := deps.controller(cmd.Context(), cfg, metrics)
	defer ctrl.Close()
	ctrl.Mount()

	srv := server.NewServer(cfg.Server, ctrl, metrics, log, tele,
		handlers.ReadinessCheck{Name: "weather", Check: deps.weather.Ready})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			log.Error("Server error", zap.Error(err))
		}
		return err
	case <-cmd.Context().Done():
		log.Info("Shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Error during server shutdown", zap.Error(err))
			return err
		}

		log.Info("Server shutdown complete")
		return nil
	}
}
