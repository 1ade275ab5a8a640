package middlewares

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxDurationSamples = 1000

// HTTPStats is a point-in-time copy of the request counters.
type HTTPStats struct {
	RequestsTotal  map[string]int64
	AvgDuration    float64
	ActiveRequests int64
}

type MetricsMiddleware struct {
	logger *zap.Logger

	mutex            sync.RWMutex
	requestsTotal    map[string]int64
	requestDurations []float64
	activeRequests   int64
}

func NewMetricsMiddleware(logger *zap.Logger) *MetricsMiddleware {
	return &MetricsMiddleware{
		logger:           logger,
		requestsTotal:    make(map[string]int64),
		requestDurations: make([]float64, 0, maxDurationSamples),
	}
}

func (m *MetricsMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		m.mutex.Lock()
		m.activeRequests++
		m.mutex.Unlock()

		c.Next()

		duration := time.Since(start).Seconds()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		key := c.Request.Method + " " + route + "_" + strconv.Itoa(c.Writer.Status())

		m.mutex.Lock()
		m.requestsTotal[key]++
		m.requestDurations = append(m.requestDurations, duration)
		m.activeRequests--

		if len(m.requestDurations) > maxDurationSamples {
			m.requestDurations = m.requestDurations[len(m.requestDurations)-maxDurationSamples:]
		}
		m.mutex.Unlock()

		if ce := m.logger.Check(zap.DebugLevel, "HTTP metrics recorded"); ce != nil {
			ce.Write(zap.String("key", key), zap.Float64("duration", duration))
		}
	}
}

// Stats returns the counters for the metrics endpoint.
func (m *MetricsMiddleware) Stats() HTTPStats {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stats := HTTPStats{
		RequestsTotal:  make(map[string]int64, len(m.requestsTotal)),
		ActiveRequests: m.activeRequests,
	}
	for k, v := range m.requestsTotal {
		stats.RequestsTotal[k] = v
	}
	if len(m.requestDurations) > 0 {
		sum := 0.0
		for _, d := range m.requestDurations {
			sum += d
		}
		stats.AvgDuration = sum / float64(len(m.requestDurations))
	}
	return stats
}
