// Package metrics provides Prometheus metrics for the lead generation pipeline.
//
// Every method is safe to call on a nil *Manager, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leadgen"

// Manager owns a private registry and the collectors registered on it.
type Manager struct {
	registry *prometheus.Registry

	// Pipeline
	sessionsByStatus *prometheus.CounterVec
	rawRecords       prometheus.Counter
	duplicates       prometheus.Counter
	dropped          prometheus.Counter
	fetchFailures    prometheus.Counter
	retries          *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	sessionsStored   prometheus.Gauge

	// Enrichment and export
	lookups *prometheus.CounterVec
	exports *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager registers every collector on a fresh registry.
func NewManager() *Manager {
	reg := prometheus.NewRegistry()
	auto := promauto.With(reg)

	m := &Manager{registry: reg}

	m.sessionsByStatus = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_total",
		Help:      "Sessions reaching a terminal scrape or enrichment status",
	}, []string{"status"})

	m.rawRecords = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "raw_records_total",
		Help:      "Raw records received from the scrape source",
	})

	m.duplicates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "duplicate_records_total",
		Help:      "Raw records discarded as duplicates",
	})

	m.dropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dropped_records_total",
		Help:      "Raw records dropped because they could not be normalized",
	})

	m.fetchFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_failures_total",
		Help:      "Page fetches that failed after exhausting retries",
	})

	m.retries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retries_total",
		Help:      "Retried outbound operations",
	}, []string{"operation"})

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stages",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"stage"})

	m.sessionsStored = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_stored",
		Help:      "Sessions currently held in the session store",
	})

	m.lookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "enrichment_lookups_total",
		Help:      "Enrichment lookups by result",
	}, []string{"result"})

	m.exports = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exports_total",
		Help:      "Exports produced by format",
	}, []string{"format"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"method", "route", "code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) SessionFinished(status string) {
	if m == nil {
		return
	}
	m.sessionsByStatus.WithLabelValues(status).Inc()
}

// ScrapeCounts records the record-level outcome of one scrape.
func (m *Manager) ScrapeCounts(raw, duplicates, dropped, failedFetches int) {
	if m == nil {
		return
	}
	m.rawRecords.Add(float64(raw))
	m.duplicates.Add(float64(duplicates))
	m.dropped.Add(float64(dropped))
	m.fetchFailures.Add(float64(failedFetches))
}

func (m *Manager) Retry(operation string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(operation).Inc()
}

// ObserveStage records how long a stage (scrape, enrich, export) took.
func (m *Manager) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Manager) SetSessionsStored(n int) {
	if m == nil {
		return
	}
	m.sessionsStored.Set(float64(n))
}

// Lookup records one enrichment lookup; result is matched, unmatched or failed.
func (m *Manager) Lookup(result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(result).Inc()
}

func (m *Manager) Export(format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format).Inc()
}

// HTTPRequest records one served request.
func (m *Manager) HTTPRequest(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
