package handlers

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/weather-dashboard/internal/server/middlewares"
	"go.uber.org/zap"
)

// HTTPStatsSource is implemented by middlewares.MetricsMiddleware.
type HTTPStatsSource interface {
	Stats() middlewares.HTTPStats
}

// MetricsHandler collects collaborator metrics from the dashboard and
// exposes them, together with the HTTP counters, in Prometheus text format.
type MetricsHandler struct {
	logger *zap.Logger

	mutex         sync.RWMutex
	fetchCalls    map[string]int64
	fetchErrors   map[string]int64
	staleDiscards map[string]int64
	httpStats     HTTPStatsSource
}

func NewMetricsHandler(logger *zap.Logger) *MetricsHandler {
	return &MetricsHandler{
		logger:        logger,
		fetchCalls:    make(map[string]int64),
		fetchErrors:   make(map[string]int64),
		staleDiscards: make(map[string]int64),
	}
}

// SetHTTPStats attaches the HTTP middleware counters.
func (h *MetricsHandler) SetHTTPStats(src HTTPStatsSource) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.httpStats = src
}

// RecordFetch records one collaborator call of the given kind.
func (h *MetricsHandler) RecordFetch(ctx context.Context, kind string, success bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.fetchCalls[kind]++
	if !success {
		h.fetchErrors[kind]++
	}
}

// RecordStaleDiscard records a result dropped because the location moved on.
func (h *MetricsHandler) RecordStaleDiscard(ctx context.Context, kind string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.staleDiscards[kind]++
}

func (h *MetricsHandler) ServeMetrics(c *gin.Context) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	var b strings.Builder

	if h.httpStats != nil {
		stats := h.httpStats.Stats()

		b.WriteString("# HELP http_requests_total Total number of HTTP requests\n")
		b.WriteString("# TYPE http_requests_total counter\n")
		for _, key := range sortedKeys(stats.RequestsTotal) {
			b.WriteString("http_requests_total{route_status=\"" + key + "\"} " + strconv.FormatInt(stats.RequestsTotal[key], 10) + "\n")
		}

		b.WriteString("\n# HELP http_request_duration_seconds_avg Average duration of HTTP requests\n")
		b.WriteString("# TYPE http_request_duration_seconds_avg gauge\n")
		b.WriteString("http_request_duration_seconds_avg " + strconv.FormatFloat(stats.AvgDuration, 'f', 6, 64) + "\n")

		b.WriteString("\n# HELP http_active_requests Number of active HTTP requests\n")
		b.WriteString("# TYPE http_active_requests gauge\n")
		b.WriteString("http_active_requests " + strconv.FormatInt(stats.ActiveRequests, 10) + "\n\n")
	}

	writeCounter(&b, "dashboard_fetch_total", "Total collaborator fetches", h.fetchCalls)
	writeCounter(&b, "dashboard_fetch_errors_total", "Total failed collaborator fetches", h.fetchErrors)
	writeCounter(&b, "dashboard_stale_discards_total", "Results discarded because the location changed", h.staleDiscards)

	c.Header("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	c.String(http.StatusOK, b.String())
}

func writeCounter(b *strings.Builder, name, help string, values map[string]int64) {
	b.WriteString("# HELP " + name + " " + help + "\n")
	b.WriteString("# TYPE " + name + " counter\n")
	for _, kind := range sortedKeys(values) {
		b.WriteString(name + "{kind=\"" + kind + "\"} " + strconv.FormatInt(values[kind], 10) + "\n")
	}
	b.WriteString("\n")
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
