package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/vzahanych/weather-dashboard/internal/config"
	"github.com/vzahanych/weather-dashboard/internal/dashboard"
	"github.com/vzahanych/weather-dashboard/internal/geocoding"
	"github.com/vzahanych/weather-dashboard/internal/geolocation"
	"github.com/vzahanych/weather-dashboard/internal/weather"
	"github.com/vzahanych/weather-dashboard/pkg/logger"
	"github.com/vzahanych/weather-dashboard/pkg/telemetry"
	"go.uber.org/zap"
)

var (
	configPath string
	log        *zap.Logger
	tele       *telemetry.Telemetry
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weather-dashboard",
		Short: "Location-driven weather dashboard",
		Long:  `A dashboard that keeps a map, a 7-day forecast, a weekly summary and a place name in step with one selected location.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeServices(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return shutdownServices()
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default: ./config.yaml)")

	cmd.AddCommand(serverCmd())
	cmd.AddCommand(showCmd())

	return cmd
}

func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			if log != nil {
				log.Info("Received shutdown signal", zap.String("signal", sig.String()))
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	return rootCmd().ExecuteContext(ctx)
}

func initializeServices(ctx context.Context) error {
	// 1. .env first so it can feed WDASH_* variables
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	// 2. Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 3. Set config
	// Having config in atomic allows changing it during runtime
	config.SetConfig(cfg)

	// 4. Initialize logger
	log, err = logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	tele, err = telemetry.New(ctx, cfg.Telemetry, cfg.Version)
	if err != nil {
		log.Warn("Failed to initialize telemetry", zap.Error(err))
	}

	return nil
}

func shutdownServices() error {
	if log != nil {
		defer log.Sync() //nolint:errcheck
	}
	if err := tele.Shutdown(context.Background()); err != nil {
		log.Warn("Failed to shut down telemetry", zap.Error(err))
	}
	return nil
}

// collaborators holds the outbound clients a Controller needs.
type collaborators struct {
	weather  *weather.Client
	geocoder *geocoding.Client
	locator  geolocation.Provider
}

func newCollaborators(cfg *config.Config) (*collaborators, error) {
	locator, err := geolocation.NewProviderWithConfig(cfg.Geolocation, log, tele)
	if err != nil {
		return nil, fmt.Errorf("geolocation provider: %w", err)
	}

	return &collaborators{
		weather:  weather.NewClientWithConfig(cfg.Weather, log, tele),
		geocoder: geocoding.NewClientWithConfig(cfg.Geocoding, log, tele),
		locator:  locator,
	}, nil
}

func (c *collaborators) controller(ctx context.Context, cfg *config.Config, metrics dashboard.MetricsRecorder) *dashboard.Controller {
	return dashboard.NewController(ctx, dashboard.Dependencies{
		Weather:  c.weather,
		Geocoder: c.geocoder,
		Locator:  c.locator,
		Map:      cfg.Map,
		Metrics:  metrics,
	}, log)
}
