package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzahanych/weather-dashboard/internal/config"
	"github.com/vzahanych/weather-dashboard/internal/geocoding"
	"github.com/vzahanych/weather-dashboard/internal/geolocation"
	"github.com/vzahanych/weather-dashboard/internal/location"
	"github.com/vzahanych/weather-dashboard/internal/weather"
	"go.uber.org/zap/zaptest"
)

var (
	london = location.MustNew(51.5, -0.1)
	warsaw = location.MustNew(52.2297, 21.0122)
)

// fakeWeather answers per location. A gated location blocks until its gate
// is closed and deliberately ignores cancellation, like a server that keeps
// answering after the client lost interest.
type fakeWeather struct {
	mu            sync.Mutex
	gates         map[string]chan struct{}
	forecastErr   map[string]error
	forecastCalls []location.Location
	summaryCalls  []location.Location
}

func newFakeWeather() *fakeWeather {
	return &fakeWeather{
		gates:       make(map[string]chan struct{}),
		forecastErr: make(map[string]error),
	}
}

func (f *fakeWeather) gate(loc location.Location) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[loc.String()] = ch
	return ch
}

func (f *fakeWeather) wait(loc location.Location) {
	f.mu.Lock()
	ch := f.gates[loc.String()]
	f.mu.Unlock()
	if ch != nil {
		<-ch
	}
}

func (f *fakeWeather) Forecast(ctx context.Context, loc location.Location) ([]weather.ForecastDay, error) {
	f.mu.Lock()
	f.forecastCalls = append(f.forecastCalls, loc)
	err := f.forecastErr[loc.String()]
	f.mu.Unlock()

	f.wait(loc)
	if err != nil {
		return nil, err
	}
	return forecastFor(loc, 7), nil
}

func (f *fakeWeather) Summary(ctx context.Context, loc location.Location) (weather.WeeklySummary, error) {
	f.mu.Lock()
	f.summaryCalls = append(f.summaryCalls, loc)
	f.mu.Unlock()

	f.wait(loc)
	return weather.WeeklySummary{
		MinTemperature: loc.Lat() - 10,
		MaxTemperature: loc.Lat(),
		AvgPressure:    1013,
		AvgSunExposure: 4.5,
		Comment:        "summary for " + loc.String(),
	}, nil
}

func (f *fakeWeather) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.forecastCalls), len(f.summaryCalls)
}

func forecastFor(loc location.Location, n int) []weather.ForecastDay {
	days := make([]weather.ForecastDay, n)
	for i := range days {
		days[i] = weather.ForecastDay{
			Date:            fmt.Sprintf("2025-01-%02d", 13+i),
			WeatherCode:     i,
			MinTemperature:  loc.Lat() - 5,
			MaxTemperature:  loc.Lat() + float64(i),
			EstimatedEnergy: 1.5,
		}
	}
	return days
}

type fakeGeocoder struct {
	mu          sync.Mutex
	places      map[string][]geocoding.Place
	addresses   map[string]geocoding.Address
	reverseErr  error
	reverseGate chan struct{}
	searchGate  chan struct{}
	searchCalls []string
}

func newFakeGeocoder() *fakeGeocoder {
	return &fakeGeocoder{
		places:    make(map[string][]geocoding.Place),
		addresses: make(map[string]geocoding.Address),
	}
}

func (g *fakeGeocoder) Reverse(ctx context.Context, loc location.Location) (geocoding.Address, error) {
	g.mu.Lock()
	gate := g.reverseGate
	err := g.reverseErr
	addr := g.addresses[loc.String()]
	g.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return geocoding.Address{}, err
	}
	return addr, nil
}

func (g *fakeGeocoder) Search(ctx context.Context, query string) ([]geocoding.Place, error) {
	g.mu.Lock()
	g.searchCalls = append(g.searchCalls, query)
	gate := g.searchGate
	places := g.places[query]
	g.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return places, nil
}

type countingMetrics struct {
	mu       sync.Mutex
	ok       map[string]int
	failed   map[string]int
	discards map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{ok: map[string]int{}, failed: map[string]int{}, discards: map[string]int{}}
}

func (m *countingMetrics) RecordFetch(_ context.Context, kind string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.ok[kind]++
	} else {
		m.failed[kind]++
	}
}

func (m *countingMetrics) RecordStaleDiscard(_ context.Context, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discards[kind]++
}

type gatedLocator struct {
	loc  location.Location
	gate chan struct{}
}

func (l *gatedLocator) Name() string { return "gated" }

func (l *gatedLocator) Locate(ctx context.Context) (location.Location, error) {
	<-l.gate
	return l.loc, nil
}

type fixture struct {
	ctrl     *Controller
	weather  *fakeWeather
	geocoder *fakeGeocoder
	metrics  *countingMetrics
}

func newFixture(t *testing.T, locator geolocation.Provider) *fixture {
	t.Helper()

	f := &fixture{
		weather:  newFakeWeather(),
		geocoder: newFakeGeocoder(),
		metrics:  newCountingMetrics(),
	}
	f.ctrl = NewController(context.Background(), Dependencies{
		Weather:  f.weather,
		Geocoder: f.geocoder,
		Locator:  locator,
		Map:      config.MapConfig{MinZoom: 2, MaxZoom: 18, InitialZoom: 2, FlyToStep: 5},
		Metrics:  f.metrics,
	}, zaptest.NewLogger(t))
	t.Cleanup(f.ctrl.Close)
	return f
}

func TestController_NoStaleOverwrite_OldAnswersLast(t *testing.T) {
	f := newFixture(t, nil)
	gate := f.weather.gate(london)

	require.True(t, f.ctrl.SetLocation(london))
	require.True(t, f.ctrl.SetLocation(warsaw))

	require.Eventually(t, func() bool {
		return !f.ctrl.Snapshot().Forecast.Loading && !f.ctrl.Snapshot().Summary.Loading
	}, time.Second, 5*time.Millisecond)

	close(gate)
	f.ctrl.Wait()

	snap := f.ctrl.Snapshot()
	require.NotNil(t, snap.Forecast.For)
	assert.True(t, snap.Forecast.For.Equal(warsaw))
	assert.Equal(t, warsaw.Lat()-5, snap.Forecast.Days[0].MinTemperature)
	require.NotNil(t, snap.Summary.Summary)
	assert.Equal(t, "summary for "+warsaw.String(), snap.Summary.Summary.Comment)

	assert.Equal(t, 1, f.metrics.discards[KindForecast])
	assert.Equal(t, 1, f.metrics.discards[KindSummary])
}

func TestController_NoStaleOverwrite_OldAnswersFirst(t *testing.T) {
	f := newFixture(t, nil)
	gateLondon := f.weather.gate(london)
	gateWarsaw := f.weather.gate(warsaw)

	f.ctrl.SetLocation(london)
	f.ctrl.SetLocation(warsaw)

	close(gateLondon)
	time.Sleep(20 * time.Millisecond)
	assert.True(t, f.ctrl.Snapshot().Forecast.Loading, "London's late answer must not be shown")

	close(gateWarsaw)
	f.ctrl.Wait()

	snap := f.ctrl.Snapshot()
	require.NotNil(t, snap.Forecast.For)
	assert.True(t, snap.Forecast.For.Equal(warsaw))
	assert.True(t, snap.Summary.For.Equal(warsaw))
}

func TestController_SameLocationFetchesOnce(t *testing.T) {
	f := newFixture(t, nil)

	assert.True(t, f.ctrl.SetLocation(london))
	assert.False(t, f.ctrl.SetLocation(location.MustNew(51.5, -0.1)))
	f.ctrl.Wait()

	forecasts, summaries := f.weather.calls()
	assert.Equal(t, 1, forecasts)
	assert.Equal(t, 1, summaries)
	assert.Equal(t, uint64(1), f.ctrl.Snapshot().Generation)
}

func TestController_SevenDayForecastRendersSevenCards(t *testing.T) {
	f := newFixture(t, nil)

	f.ctrl.SetLocation(london)
	f.ctrl.Wait()

	snap := f.ctrl.Snapshot()
	assert.False(t, snap.Forecast.Loading)
	require.Len(t, snap.Forecast.Days, 7)
	assert.Len(t, snap.Forecast.Cards, len(snap.Forecast.Days))
	assert.Equal(t, "13.01.2025", snap.Forecast.Cards[0].Date)
	assert.Equal(t, "19.01.2025", snap.Forecast.Cards[6].Date)
}

func TestController_InitialSnapshotIsLoading(t *testing.T) {
	f := newFixture(t, nil)

	snap := f.ctrl.Snapshot()
	assert.Nil(t, snap.Location)
	assert.Empty(t, snap.PlaceName)
	assert.True(t, snap.Forecast.Loading)
	assert.True(t, snap.Summary.Loading)
	assert.Nil(t, snap.Map.Marker)
}

func TestController_FetchFailureKeepsPreviousForecast(t *testing.T) {
	f := newFixture(t, nil)
	f.weather.forecastErr[warsaw.String()] = errors.New("backend down")

	f.ctrl.SetLocation(london)
	f.ctrl.Wait()
	f.ctrl.SetLocation(warsaw)
	f.ctrl.Wait()

	snap := f.ctrl.Snapshot()
	assert.False(t, snap.Forecast.Loading)
	assert.True(t, snap.Forecast.For.Equal(london))
	assert.False(t, snap.Forecast.Pending)
	assert.True(t, snap.Summary.For.Equal(warsaw))
	assert.Equal(t, 1, f.metrics.failed[KindForecast])
}

func TestController_PlaceName(t *testing.T) {
	f := newFixture(t, nil)
	f.geocoder.addresses[london.String()] = geocoding.Address{City: "London"}

	f.ctrl.SetLocation(london)
	f.ctrl.Wait()
	assert.Equal(t, "London", f.ctrl.Snapshot().PlaceName)

	// no address fields at all
	f.ctrl.SetLocation(location.MustNew(0, -30))
	f.ctrl.Wait()
	assert.Equal(t, "your location", f.ctrl.Snapshot().PlaceName)
}

func TestController_PlaceNameFallbackOnError(t *testing.T) {
	f := newFixture(t, nil)
	f.geocoder.addresses[london.String()] = geocoding.Address{City: "London"}

	f.ctrl.SetLocation(london)
	f.ctrl.Wait()

	f.geocoder.mu.Lock()
	f.geocoder.reverseErr = errors.New("geocoder unreachable")
	f.geocoder.mu.Unlock()

	f.ctrl.SetLocation(warsaw)
	f.ctrl.Wait()

	assert.Equal(t, geocoding.FallbackPlaceName, f.ctrl.Snapshot().PlaceName)
}

func TestController_PlaceNameNotCarriedOverWhileLookupPending(t *testing.T) {
	f := newFixture(t, nil)
	f.geocoder.addresses[london.String()] = geocoding.Address{City: "London"}
	f.geocoder.addresses[warsaw.String()] = geocoding.Address{City: "Warsaw"}

	f.ctrl.SetLocation(london)
	f.ctrl.Wait()
	require.Equal(t, "London", f.ctrl.Snapshot().PlaceName)

	gate := make(chan struct{})
	f.geocoder.mu.Lock()
	f.geocoder.reverseGate = gate
	f.geocoder.mu.Unlock()

	f.ctrl.SetLocation(warsaw)
	assert.Equal(t, geocoding.FallbackPlaceName, f.ctrl.Snapshot().PlaceName)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, f.ctrl.Snapshot()))
	assert.NotContains(t, buf.String(), "London")

	close(gate)
	f.ctrl.Wait()
	assert.Equal(t, "Warsaw", f.ctrl.Snapshot().PlaceName)
}

func TestController_BlankSearchIsNoop(t *testing.T) {
	f := newFixture(t, nil)

	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := f.ctrl.Search(context.Background(), q)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	}

	assert.Empty(t, f.geocoder.searchCalls)
	_, ok := f.ctrl.Location()
	assert.False(t, ok)
}

func TestController_SearchWithoutResultsKeepsLocation(t *testing.T) {
	f := newFixture(t, nil)
	f.ctrl.SetLocation(london)

	_, err := f.ctrl.Search(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, geocoding.ErrNoResults)

	loc, ok := f.ctrl.Location()
	require.True(t, ok)
	assert.True(t, loc.Equal(london))
}

func TestController_SearchUsesFirstResult(t *testing.T) {
	f := newFixture(t, nil)
	f.geocoder.places["Berlin"] = []geocoding.Place{
		{Lat: "52.5170365", Lon: "13.3888599"},
		{Lat: "44.0", Lon: "-72.0"},
	}

	loc, err := f.ctrl.Search(context.Background(), " Berlin ")
	require.NoError(t, err)
	assert.True(t, loc.Equal(location.MustNew(52.5170365, 13.3888599)))

	f.ctrl.Wait()
	snap := f.ctrl.Snapshot()
	assert.True(t, snap.Location.Equal(loc))
	assert.True(t, snap.Map.Marker.Equal(loc))
	assert.Equal(t, 7, snap.Map.Viewport.Zoom)
}

func TestController_SearchSupersededByClick(t *testing.T) {
	f := newFixture(t, nil)
	gate := make(chan struct{})
	f.geocoder.searchGate = gate
	f.geocoder.places["Berlin"] = []geocoding.Place{{Lat: "52.52", Lon: "13.39"}}

	done := make(chan error, 1)
	go func() {
		_, err := f.ctrl.Search(context.Background(), "Berlin")
		done <- err
	}()

	require.Eventually(t, func() bool {
		f.geocoder.mu.Lock()
		defer f.geocoder.mu.Unlock()
		return len(f.geocoder.searchCalls) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := f.ctrl.Click(48.8566, 2.3522)
	require.NoError(t, err)
	close(gate)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	loc, _ := f.ctrl.Location()
	assert.True(t, loc.Equal(location.MustNew(48.8566, 2.3522)))
}

func TestController_LateGeolocationDoesNotSupersedeSearch(t *testing.T) {
	locator := &gatedLocator{loc: warsaw, gate: make(chan struct{})}
	f := newFixture(t, locator)
	searchGate := make(chan struct{})
	f.geocoder.searchGate = searchGate
	f.geocoder.places["Berlin"] = []geocoding.Place{{Lat: "52.52", Lon: "13.39"}}

	f.ctrl.Mount()

	done := make(chan error, 1)
	go func() {
		_, err := f.ctrl.Search(context.Background(), "Berlin")
		done <- err
	}()

	require.Eventually(t, func() bool {
		f.geocoder.mu.Lock()
		defer f.geocoder.mu.Unlock()
		return len(f.geocoder.searchCalls) == 1
	}, time.Second, 5*time.Millisecond)

	close(locator.gate)
	require.Eventually(t, func() bool {
		loc, ok := f.ctrl.Location()
		return ok && loc.Equal(warsaw)
	}, time.Second, 5*time.Millisecond)

	close(searchGate)
	require.NoError(t, <-done)
	f.ctrl.Wait()

	berlin := location.MustNew(52.52, 13.39)
	loc, _ := f.ctrl.Location()
	assert.True(t, loc.Equal(berlin))
	assert.True(t, f.ctrl.Snapshot().Forecast.For.Equal(berlin))
}

func TestController_MountSetsGeolocation(t *testing.T) {
	f := newFixture(t, geolocation.NewStaticProvider(warsaw))

	f.ctrl.Mount()
	f.ctrl.Wait()

	loc, ok := f.ctrl.Location()
	require.True(t, ok)
	assert.True(t, loc.Equal(warsaw))

	forecasts, _ := f.weather.calls()
	assert.Equal(t, 1, forecasts, "root and map lookups agree, one fetch")
}

func TestController_LateGeolocationDoesNotOverrideClick(t *testing.T) {
	locator := &gatedLocator{loc: warsaw, gate: make(chan struct{})}
	f := newFixture(t, locator)

	f.ctrl.Mount()
	_, err := f.ctrl.Click(london.Lat(), london.Lng())
	require.NoError(t, err)

	close(locator.gate)
	f.ctrl.Wait()

	loc, _ := f.ctrl.Location()
	assert.True(t, loc.Equal(london))
}

func TestController_MountUnsupported(t *testing.T) {
	f := newFixture(t, geolocation.Unsupported{})

	f.ctrl.Mount()
	f.ctrl.Wait()

	_, ok := f.ctrl.Location()
	assert.False(t, ok)
	assert.Nil(t, f.ctrl.Snapshot().Map.Marker)
}

func TestController_RapidChangesSettleOnLast(t *testing.T) {
	f := newFixture(t, nil)

	var last location.Location
	for i := 0; i < 20; i++ {
		last = location.MustNew(float64(i), float64(i))
		f.ctrl.SetLocation(last)
	}
	f.ctrl.Wait()

	snap := f.ctrl.Snapshot()
	assert.True(t, snap.Forecast.For.Equal(last))
	assert.True(t, snap.Summary.For.Equal(last))
	assert.Equal(t, uint64(20), snap.Generation)
}

func TestWriteText(t *testing.T) {
	f := newFixture(t, nil)
	f.geocoder.addresses[london.String()] = geocoding.Address{Town: "Westminster"}

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, f.ctrl.Snapshot()))
	assert.Contains(t, buf.String(), "No location selected.")
	assert.Contains(t, buf.String(), "Loading forecast...")
	assert.Contains(t, buf.String(), "Loading summary...")

	f.ctrl.SetLocation(london)
	f.ctrl.Wait()

	buf.Reset()
	require.NoError(t, WriteText(&buf, f.ctrl.Snapshot()))
	out := buf.String()
	assert.Contains(t, out, "Weather for Westminster")
	assert.Contains(t, out, "13.01.2025")
	assert.Contains(t, out, "51.5°C / 46.5°C")
	assert.Contains(t, out, "1.5 kWh")
	assert.Contains(t, out, "Average Pressure: 1013 hPa")
}

func TestNewCard_UnknownWeatherCode(t *testing.T) {
	var card Card
	require.NotPanics(t, func() {
		card = NewCard(weather.ForecastDay{Date: "2025-02-01", WeatherCode: 42, MinTemperature: -1, MaxTemperature: 3.5, EstimatedEnergy: 0.25})
	})

	assert.Equal(t, weather.IconUnknown, card.Icon)
	assert.Equal(t, "?", card.Glyph)
	assert.Equal(t, "01.02.2025", card.Date)
	assert.Equal(t, "3.5°C / -1°C", card.Temperature)
	assert.Equal(t, "0.25 kWh", card.Energy)
}

func TestNewCard_UnparseableDateKeptVerbatim(t *testing.T) {
	card := NewCard(weather.ForecastDay{Date: "someday"})
	assert.Equal(t, "someday", card.Date)
}

func TestController_BurstOfChangesKeepsBreakerClosed(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(100 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		switch r.URL.Path {
		case "/api/weather/forecast":
			w.Write([]byte(`[{"date":"2025-01-13","weatherCode":0,"minTemperature":1,"maxTemperature":5,"estimatedEnergy":1}]`))
		case "/api/weather/summary":
			w.Write([]byte(`{"minTemperature":1,"maxTemperature":5,"averagePressure":1010,"averageSunExposure":2,"weekSummary":"Mild"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(backend.Close)

	logger := zaptest.NewLogger(t)
	cfg := config.NewDefaultConfig().Weather
	cfg.BaseURL = backend.URL
	cfg.CacheTTL = 0
	client := weather.NewClientWithConfig(cfg, logger, nil)

	ctrl := NewController(context.Background(), Dependencies{
		Weather:  client,
		Geocoder: newFakeGeocoder(),
		Map:      config.MapConfig{MinZoom: 2, MaxZoom: 18, InitialZoom: 2, FlyToStep: 5},
	}, logger)
	t.Cleanup(ctrl.Close)

	for i := 0; i < 2*int(cfg.Breaker.MaxFailures); i++ {
		ctrl.SetLocation(location.MustNew(float64(i), 1))
		time.Sleep(10 * time.Millisecond)
	}

	final := location.MustNew(10, 10)
	ctrl.SetLocation(final)
	ctrl.Wait()

	assert.NoError(t, client.Ready(context.Background()))

	snap := ctrl.Snapshot()
	require.NotNil(t, snap.Forecast.For)
	assert.True(t, snap.Forecast.For.Equal(final))
	require.NotNil(t, snap.Summary.For)
	assert.True(t, snap.Summary.For.Equal(final))
	assert.Equal(t, "Comment: Mild", snap.Summary.Lines[4])
}
