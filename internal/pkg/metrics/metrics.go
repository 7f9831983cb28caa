package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routegate",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "routegate",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "routegate",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Upstream calls
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routegate",
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Total outbound calls to the traffic provider and routing engine",
	}, []string{"upstream", "outcome"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "routegate",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Outbound call latency in seconds",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"upstream"})

	// Pipeline
	ExclusionPoints = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "routegate",
		Subsystem: "pipeline",
		Name:      "exclusion_points",
		Help:      "Exclusion points sent to the routing engine per request",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
	})

	PolylineDecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "routegate",
		Subsystem: "pipeline",
		Name:      "polyline_decode_errors_total",
		Help:      "Routing engine shapes that failed to decode",
	})

	DebugSinkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routegate",
		Subsystem: "debug",
		Name:      "sink_errors_total",
		Help:      "Failed writes of the outgoing routing payload",
	}, []string{"sink"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "routegate",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// ObserveUpstream records the outcome and latency of one outbound call.
func ObserveUpstream(upstream, outcome string, started time.Time) {
	UpstreamRequests.WithLabelValues(upstream, outcome).Inc()
	UpstreamDuration.WithLabelValues(upstream).Observe(time.Since(started).Seconds())
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
