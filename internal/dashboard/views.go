package dashboard

import (
	"context"
	"strconv"
	"sync"

	"github.com/vzahanych/weather-dashboard/internal/geocoding"
	"github.com/vzahanych/weather-dashboard/internal/location"
	"github.com/vzahanych/weather-dashboard/internal/weather"
	"go.uber.org/zap"
)

const cardDateLayout = "02.01.2006"

// Card is the display form of one forecast day.
type Card struct {
	Date        string       `json:"date"`
	Icon        weather.Icon `json:"icon"`
	Glyph       string       `json:"glyph"`
	Temperature string       `json:"temperature"`
	Energy      string       `json:"energy"`
}

// NewCard formats day for display. Unparseable dates are shown verbatim.
func NewCard(day weather.ForecastDay) Card {
	date := day.Date
	if t, err := day.Day(); err == nil {
		date = t.Format(cardDateLayout)
	}

	icon := day.Icon()
	return Card{
		Date:        date,
		Icon:        icon,
		Glyph:       icon.Glyph(),
		Temperature: formatNumber(day.MaxTemperature) + "°C / " + formatNumber(day.MinTemperature) + "°C",
		Energy:      formatNumber(day.EstimatedEnergy) + " kWh",
	}
}

type ForecastState struct {
	// Loading is true while there is nothing to show yet.
	Loading bool                  `json:"loading"`
	Pending bool                  `json:"pending"`
	For     *location.Location    `json:"for,omitempty"`
	Days    []weather.ForecastDay `json:"days"`
	Cards   []Card                `json:"cards"`
}

// ForecastView fetches the forecast on every location change and keeps the
// last successful answer for the newest location.
type ForecastView struct {
	res *resource[[]weather.ForecastDay]
}

func NewForecastView(source WeatherSource, tasks *sync.WaitGroup, logger *zap.Logger, metrics MetricsRecorder) *ForecastView {
	return &ForecastView{
		res: newResource(KindForecast, source.Forecast, tasks, logger, metrics),
	}
}

func (v *ForecastView) LocationChanged(ctx context.Context, loc location.Location) {
	v.res.LocationChanged(ctx, loc)
}

func (v *ForecastView) State() ForecastState {
	s := v.res.state()

	days := append([]weather.ForecastDay(nil), s.value...)
	cards := make([]Card, 0, len(days))
	for _, day := range days {
		cards = append(cards, NewCard(day))
	}

	return ForecastState{
		Loading: len(days) == 0,
		Pending: s.pending,
		For:     s.loc,
		Days:    days,
		Cards:   cards,
	}
}

type SummaryState struct {
	Loading bool                   `json:"loading"`
	Pending bool                   `json:"pending"`
	For     *location.Location     `json:"for,omitempty"`
	Summary *weather.WeeklySummary `json:"summary,omitempty"`
	Lines   []string               `json:"lines,omitempty"`
}

type SummaryView struct {
	res *resource[weather.WeeklySummary]
}

func NewSummaryView(source WeatherSource, tasks *sync.WaitGroup, logger *zap.Logger, metrics MetricsRecorder) *SummaryView {
	return &SummaryView{
		res: newResource(KindSummary, source.Summary, tasks, logger, metrics),
	}
}

func (v *SummaryView) LocationChanged(ctx context.Context, loc location.Location) {
	v.res.LocationChanged(ctx, loc)
}

func (v *SummaryView) State() SummaryState {
	s := v.res.state()
	if !s.has {
		return SummaryState{Loading: true, Pending: s.pending}
	}

	summary := s.value
	return SummaryState{
		Pending: s.pending,
		For:     s.loc,
		Summary: &summary,
		Lines:   SummaryLines(summary),
	}
}

// SummaryLines renders the aggregate fields verbatim with their units.
func SummaryLines(s weather.WeeklySummary) []string {
	return []string{
		"Min Temperature: " + formatNumber(s.MinTemperature) + "°C",
		"Max Temperature: " + formatNumber(s.MaxTemperature) + "°C",
		"Average Pressure: " + formatNumber(s.AvgPressure) + " hPa",
		"Average Sun Exposure: " + formatNumber(s.AvgSunExposure) + " hours",
		"Comment: " + s.Comment,
	}
}

// placeView keeps the reverse-geocoded label of the current location. A
// failed lookup resets the label to the fallback instead of keeping the old
// place's name.
type placeView struct {
	res *resource[string]
}

func newPlaceView(geocoder Geocoder, tasks *sync.WaitGroup, logger *zap.Logger, metrics MetricsRecorder) *placeView {
	fetch := func(ctx context.Context, loc location.Location) (string, error) {
		addr, err := geocoder.Reverse(ctx, loc)
		if err != nil {
			return "", err
		}
		return addr.PlaceName(), nil
	}

	res := newResource(KindReverseGeocode, fetch, tasks, logger, metrics)
	res.onError = func(error) (string, bool) {
		return geocoding.FallbackPlaceName, true
	}
	return &placeView{res: res}
}

func (v *placeView) LocationChanged(ctx context.Context, loc location.Location) {
	v.res.LocationChanged(ctx, loc)
}

// Name is the label for current. Until a lookup for current has finished,
// that is the fallback.
func (v *placeView) Name(current location.Location) string {
	s := v.res.state()
	if !s.has || s.loc == nil || !s.loc.Equal(current) {
		return geocoding.FallbackPlaceName
	}
	return s.value
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
