package perf

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EntryKind distinguishes request vs query entries.
type EntryKind uint8

const (
	KindRequest EntryKind = iota
	KindQuery
)

// Entry is a single timing observation.
type Entry struct {
	Kind       EntryKind
	Path       string // route pattern or store operation
	Method     string // HTTP method, empty for queries
	StatusCode int    // HTTP status (0 for queries)
	DurationMs float64
	Timestamp  time.Time
}

// Collector owns the service's Prometheus registry: request and query
// latency histograms plus the gym-floor counters.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	requests  *prometheus.HistogramVec
	queries   *prometheus.HistogramVec
	checkIns  prometheus.Counter
	checkOuts prometheus.Counter
	payments  *prometheus.CounterVec
	open      prometheus.Gauge

	count atomic.Int64
}

// NewCollector creates a collector backed by a private registry.
// POST: Go runtime and process collectors are registered alongside the gymdesk metrics
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gymdesk",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		queries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gymdesk",
			Name:      "db_query_duration_seconds",
			Help:      "SQLite call latency by operation.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"op"}),
		checkIns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gymdesk",
			Name:      "attendance_check_ins_total",
			Help:      "Check-ins recorded.",
		}),
		checkOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gymdesk",
			Name:      "attendance_check_outs_total",
			Help:      "Check-outs recorded.",
		}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gymdesk",
			Name:      "payments_total",
			Help:      "Membership payments by outcome.",
		}, []string{"status"}),
		open: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gymdesk",
			Name:      "attendance_open_sessions",
			Help:      "Members currently checked in.",
		}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.requests, c.queries, c.checkIns, c.checkOuts, c.payments, c.open,
	)
	return c
}

// Record observes a timing entry.
// PRE: e.Kind is KindRequest or KindQuery
// POST: the matching histogram is updated and TotalRecorded incremented
func (c *Collector) Record(e Entry) {
	if c == nil {
		return
	}
	seconds := e.DurationMs / 1000
	switch e.Kind {
	case KindRequest:
		c.requests.WithLabelValues(e.Method, e.Path, strconv.Itoa(e.StatusCode)).Observe(seconds)
	case KindQuery:
		c.queries.WithLabelValues(e.Path).Observe(seconds)
	}
	c.count.Add(1)
}

// TotalRecorded returns the number of timing entries observed.
func (c *Collector) TotalRecorded() int64 {
	if c == nil {
		return 0
	}
	return c.count.Load()
}

// CheckedIn counts a check-in and raises the open-session gauge.
func (c *Collector) CheckedIn() {
	if c == nil {
		return
	}
	c.checkIns.Inc()
	c.open.Inc()
}

// CheckedOut counts a check-out and lowers the open-session gauge.
func (c *Collector) CheckedOut() {
	if c == nil {
		return
	}
	c.checkOuts.Inc()
	c.open.Dec()
}

// SetOpenSessions resets the open-session gauge, used at startup.
func (c *Collector) SetOpenSessions(n int) {
	if c == nil {
		return
	}
	c.open.Set(float64(n))
}

// PaymentRecorded counts a payment attempt by outcome.
func (c *Collector) PaymentRecorded(status string) {
	if c == nil {
		return
	}
	c.payments.WithLabelValues(status).Inc()
}

// Registry exposes the underlying registry for tests and extra collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
