// Package metrics declares the Prometheus collectors exported by the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tophive"

var (
	// BriefingLoads counts briefing reads by outcome.
	// Labels: result (ok, fallback, not_found, error)
	BriefingLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "briefings",
			Name:      "loads_total",
			Help:      "Total number of briefing loads by outcome",
		},
		[]string{"result"},
	)

	// BriefingRequests counts generation requests by outcome.
	// Labels: result (completed, enqueued, request_failed, generation_failed, retried)
	BriefingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "briefings",
			Name:      "requests_total",
			Help:      "Total number of briefing requests by outcome",
		},
		[]string{"result"},
	)

	// GenerationDuration tracks how long content generation takes.
	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "briefings",
			Name:      "generation_duration_seconds",
			Help:      "Duration of briefing content generation in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 3, 5, 10, 30, 60},
		},
	)

	// StaleRequests is the number of requests stuck in generating state
	// found by the last scan.
	StaleRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "briefings",
			Name:      "stale_requests",
			Help:      "Briefing requests left in generating state past the stale threshold",
		},
	)

	// LookupQueries counts company lookups.
	// Labels: result (delivered, superseded, empty, error)
	LookupQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "companies",
			Name:      "lookups_total",
			Help:      "Total number of company lookups by outcome",
		},
		[]string{"result"},
	)

	// LookupCache counts lookup cache accesses.
	// Labels: result (hit, miss, error)
	LookupCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "companies",
			Name:      "cache_total",
			Help:      "Company lookup cache accesses by result",
		},
		[]string{"result"},
	)

	// AuthEvents counts session changes and failures.
	// Labels: event (sign_in, sign_up, sign_out, oauth, failure)
	AuthEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Authentication events by type",
		},
		[]string{"event"},
	)

	// GuardDecisions counts route guard outcomes.
	// Labels: decision (allow, redirect, placeholder)
	GuardDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "guard_decisions_total",
			Help:      "Route guard decisions",
		},
		[]string{"decision"},
	)

	// StreamMessages counts redis stream traffic.
	// Labels: direction (published, consumed), result (ok, error)
	StreamMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "streams",
			Name:      "messages_total",
			Help:      "Redis stream messages by direction and result",
		},
		[]string{"direction", "result"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Middleware records request durations labelled by the matched route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
