package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for journey
type Metrics struct {
	// Email counters
	EmailsSentTotal   *prometheus.CounterVec
	EmailsFailedTotal *prometheus.CounterVec

	// Subscriber lifecycle
	SignupsTotal      *prometheus.CounterVec
	UnsubscribesTotal *prometheus.CounterVec

	// Broadcasts
	BroadcastsTotal          *prometheus.CounterVec
	BroadcastRecipients      *prometheus.HistogramVec
	BroadcastDurationSeconds *prometheus.HistogramVec

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec
	APIErrorsTotal            *prometheus.CounterVec

	// Rate limiting
	RateLimitExceededTotal *prometheus.CounterVec

	// Geo cache
	GeoCacheTotal *prometheus.CounterVec

	// System metrics
	UptimeSeconds prometheus.Gauge
	Goroutines    prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		EmailsSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journey_emails_sent_total",
				Help: "Total number of emails accepted by the mail provider",
			},
			[]string{"kind"},
		),
		EmailsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journey_emails_failed_total",
				Help: "Total number of emails the mail provider rejected",
			},
			[]string{"kind"},
		),

		SignupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journey_signups_total",
				Help: "Total number of signup attempts by outcome",
			},
			[]string{"list", "result"},
		),
		UnsubscribesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journey_unsubscribes_total",
				Help: "Total number of unsubscribe requests",
			},
			[]string{"list", "result"},
		),

		BroadcastsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journey_broadcasts_total",
				Help: "Total number of notification broadcasts",
			},
			[]string{"list"},
		),
		BroadcastRecipients: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "journey_broadcast_recipients",
				Help:    "Number of recipients per broadcast",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"list"},
		),
		BroadcastDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "journey_broadcast_duration_seconds",
				Help:    "Broadcast duration in seconds",
				Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"list"},
		),

		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journey_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "journey_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		APIErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journey_api_errors_total",
				Help: "Total number of API errors",
			},
			[]string{"error_type"},
		),

		RateLimitExceededTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journey_ratelimit_exceeded_total",
				Help: "Total number of rate limited requests",
			},
			[]string{"scope"},
		),

		GeoCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journey_geo_cache_total",
				Help: "Autocomplete cache lookups by result",
			},
			[]string{"result"},
		),

		UptimeSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "journey_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
		Goroutines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "journey_goroutines",
				Help: "Number of active goroutines",
			},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.EmailsSentTotal,
		m.EmailsFailedTotal,
		m.SignupsTotal,
		m.UnsubscribesTotal,
		m.BroadcastsTotal,
		m.BroadcastRecipients,
		m.BroadcastDurationSeconds,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		m.APIErrorsTotal,
		m.RateLimitExceededTotal,
		m.GeoCacheTotal,
		m.UptimeSeconds,
		m.Goroutines,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// IncEmailsSent increments the sent email counter
func IncEmailsSent(kind string) {
	if m := Global(); m != nil {
		m.EmailsSentTotal.WithLabelValues(kind).Inc()
	}
}

// IncEmailsFailed increments the failed email counter
func IncEmailsFailed(kind string) {
	if m := Global(); m != nil {
		m.EmailsFailedTotal.WithLabelValues(kind).Inc()
	}
}

// IncSignups counts a signup outcome: created, reactivated, conflict, error
func IncSignups(list, result string) {
	if m := Global(); m != nil {
		m.SignupsTotal.WithLabelValues(list, result).Inc()
	}
}

// IncUnsubscribes counts an unsubscribe outcome: unsubscribed, unknown, error
func IncUnsubscribes(list, result string) {
	if m := Global(); m != nil {
		m.UnsubscribesTotal.WithLabelValues(list, result).Inc()
	}
}

// ObserveBroadcast records a finished broadcast
func ObserveBroadcast(list string, recipients int, seconds float64) {
	if m := Global(); m != nil {
		m.BroadcastsTotal.WithLabelValues(list).Inc()
		m.BroadcastRecipients.WithLabelValues(list).Observe(float64(recipients))
		m.BroadcastDurationSeconds.WithLabelValues(list).Observe(seconds)
	}
}

// IncRateLimitExceeded increments rate limit exceeded counter
func IncRateLimitExceeded(scope string) {
	if m := Global(); m != nil {
		m.RateLimitExceededTotal.WithLabelValues(scope).Inc()
	}
}

// IncGeoCache counts an autocomplete cache hit or miss
func IncGeoCache(result string) {
	if m := Global(); m != nil {
		m.GeoCacheTotal.WithLabelValues(result).Inc()
	}
}
