package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPCollector records request counts and latencies for the HTTP API.
type HTTPCollector struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDurations *prometheus.HistogramVec
}

// NewHTTPCollector registers HTTP metrics against reg (global when nil).
func NewHTTPCollector(reg prometheus.Registerer) (*HTTPCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wsn_http_requests_total",
		Help: "Handled HTTP requests, labeled by method, route template and status code.",
	}, []string{"method", "route", "code"}), "wsn_http_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wsn_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method", "route"}), "wsn_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &HTTPCollector{RequestsTotal: requests, RequestDurations: durations}, nil
}

// Middleware records every request served by a gin engine. Unmatched
// routes are folded into a single "unmatched" label to bound cardinality.
func (c *HTTPCollector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		if c == nil {
			return
		}
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.RequestDurations.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
