// Package metrics exposes crawl-progress counters and gauges over
// Prometheus, mirroring the request/error/duration metric shapes the
// teacher's render service tracks, adapted to a page-crawl's outcome
// space instead of a render pipeline's.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the crawl's Prometheus instrumentation.
type Metrics struct {
	pagesTotal         *prometheus.CounterVec
	pageDuration       prometheus.Histogram
	cookiesFound       prometheus.Histogram
	candidatesFound    *prometheus.CounterVec
	browserRestarts    prometheus.Counter
	activeWorkers      prometheus.Gauge
	viewportContention prometheus.Histogram

	server *http.Server
}

// New builds a Metrics collector registered against registerer.
func New(namespace string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{}

	m.pagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Total number of pages processed, by outcome",
		},
		[]string{"outcome"}, // completed, failed, skipped, stopped_waiting
	)

	m.pageDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_duration_seconds",
			Help:      "Time taken to fully process one page",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		},
	)

	m.cookiesFound = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cookies_found",
			Help:      "Number of cookies observed per page",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	m.candidatesFound = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notice_candidates_total",
			Help:      "Total notice candidates found, by strategy",
		},
		[]string{"strategy"}, // rules, fixed-parent, full-width-parent
	)

	m.browserRestarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "browser_restarts_total",
			Help:      "Total number of browser instance restarts",
		},
	)

	m.activeWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_workers",
			Help:      "Number of crawl workers currently processing a page",
		},
	)

	m.viewportContention = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "viewport_arbiter_wait_seconds",
			Help:      "Time a worker spent waiting to enter the foreground viewport",
			Buckets:   prometheus.DefBuckets,
		},
	)

	registerer.MustRegister(
		m.pagesTotal,
		m.pageDuration,
		m.cookiesFound,
		m.candidatesFound,
		m.browserRestarts,
		m.activeWorkers,
		m.viewportContention,
	)

	return m
}

// RecordPage records a completed page's outcome and processing time.
func (m *Metrics) RecordPage(outcome string, seconds float64) {
	m.pagesTotal.WithLabelValues(outcome).Inc()
	m.pageDuration.Observe(seconds)
}

// RecordCookies records how many cookies one page carried.
func (m *Metrics) RecordCookies(count int) {
	m.cookiesFound.Observe(float64(count))
}

// RecordCandidate records one notice candidate found by a strategy.
func (m *Metrics) RecordCandidate(strategy string) {
	m.candidatesFound.WithLabelValues(strategy).Inc()
}

// RecordBrowserRestart records a browser instance restart.
func (m *Metrics) RecordBrowserRestart() {
	m.browserRestarts.Inc()
}

// IncActiveWorkers/DecActiveWorkers track in-flight worker count.
func (m *Metrics) IncActiveWorkers() { m.activeWorkers.Inc() }
func (m *Metrics) DecActiveWorkers() { m.activeWorkers.Dec() }

// RecordViewportWait records how long a worker waited to enter the
// foreground viewport via the arbiter.
func (m *Metrics) RecordViewportWait(seconds float64) {
	m.viewportContention.Observe(seconds)
}

// Serve starts a debug HTTP server exposing /metrics on addr. It
// returns immediately; call Shutdown to stop it.
func (m *Metrics) Serve(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	m.server = &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
}

// Shutdown gracefully stops the metrics HTTP server, if running.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
