package geolocation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzahanych/weather-dashboard/internal/config"
	"github.com/vzahanych/weather-dashboard/internal/location"
	"github.com/vzahanych/weather-dashboard/pkg/telemetry"
	"go.uber.org/zap/zaptest"
)

func newIPProvider(t *testing.T, handler http.HandlerFunc) *IPProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewIPProvider(srv.URL, srv.Client(), zaptest.NewLogger(t), &telemetry.Telemetry{})
}

func TestIPProvider_Success(t *testing.T) {
	p := newIPProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","lat":52.2297,"lon":21.0122,"city":"Warsaw"}`))
	})

	loc, err := p.Locate(context.Background())
	require.NoError(t, err)
	assert.True(t, loc.Equal(location.MustNew(52.2297, 21.0122)))
}

func TestIPProvider_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"api failure", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
		}},
		{"bad status", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}},
		{"garbage", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		}},
		{"out of range", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"success","lat":123,"lon":0}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newIPProvider(t, tt.handler).Locate(context.Background())
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestNewProviderWithConfig(t *testing.T) {
	logger := zaptest.NewLogger(t)
	tele := &telemetry.Telemetry{}

	p, err := NewProviderWithConfig(config.GeolocationConfig{Provider: "static", Latitude: 51.5, Longitude: -0.1}, logger, tele)
	require.NoError(t, err)
	loc, err := p.Locate(context.Background())
	require.NoError(t, err)
	assert.True(t, loc.Equal(location.MustNew(51.5, -0.1)))

	p, err = NewProviderWithConfig(config.GeolocationConfig{Provider: "none"}, logger, tele)
	require.NoError(t, err)
	_, err = p.Locate(context.Background())
	assert.ErrorIs(t, err, ErrUnsupported)

	p, err = NewProviderWithConfig(config.GeolocationConfig{Provider: "ip", BaseURL: "http://127.0.0.1:0", Timeout: 1}, logger, tele)
	require.NoError(t, err)
	assert.Equal(t, "ip", p.Name())

	_, err = NewProviderWithConfig(config.GeolocationConfig{Provider: "gps"}, logger, tele)
	assert.Error(t, err)

	_, err = NewProviderWithConfig(config.GeolocationConfig{Provider: "static", Latitude: 100}, logger, tele)
	assert.ErrorIs(t, err, location.ErrOutOfRange)
}
