package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vzahanych/weather-dashboard/internal/config"
	"github.com/vzahanych/weather-dashboard/internal/dashboard"
	"github.com/vzahanych/weather-dashboard/internal/location"
	"go.uber.org/zap"
)

type showOptions struct {
	lat   float64
	lng   float64
	query string
}

func showCmd() *cobra.Command {
	opts := &showOptions{}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the dashboard for one location",
		Long: `Resolve a location from --lat/--lng, a --query search or, with neither,
the configured geolocation provider, then print the forecast and summary.`,
		Example: `  weather-dashboard show --lat 51.5 --lng -0.1
  weather-dashboard show --query Berlin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, opts)
		},
	}

	cmd.Flags().Float64Var(&opts.lat, "lat", 0, "latitude of the location")
	cmd.Flags().Float64Var(&opts.lng, "lng", 0, "longitude of the location")
	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "place to search for")
	cmd.MarkFlagsRequiredTogether("lat", "lng")
	cmd.MarkFlagsMutuallyExclusive("lat", "query")
	cmd.MarkFlagsMutuallyExclusive("lng", "query")

	return cmd
}

func runShow(cmd *cobra.Command, opts *showOptions) error {
	cfg := config.GetConfig()

	deps, err := newCollaborators(cfg)
	if err != nil {
		return err
	}

	ctrl := deps.controller(cmd.Context(), cfg, nil)
	defer ctrl.Close()

	switch {
	case cmd.Flags().Changed("lat"):
		loc, err := location.New(opts.lat, opts.lng)
		if err != nil {
			return err
		}
		ctrl.SetLocation(loc)
	case opts.query != "":
		if _, err := ctrl.Search(cmd.Context(), opts.query); err != nil {
			if errors.Is(err, dashboard.ErrEmptyQuery) {
				return fmt.Errorf("--query must not be blank")
			}
			return err
		}
	default:
		ctrl.Mount()
	}

	ctrl.Wait()

	snap := ctrl.Snapshot()
	log.Debug("Dashboard settled",
		zap.Uint64("generation", snap.Generation),
		zap.Bool("forecast_loaded", !snap.Forecast.Loading),
		zap.Bool("summary_loaded", !snap.Summary.Loading))

	return dashboard.WriteText(cmd.OutOrStdout(), snap)
}
