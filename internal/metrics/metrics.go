// Package metrics provides Prometheus instrumentation for the economy.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TradesTotal counts completed ledger operations by kind.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moolah_trades_total",
		Help: "Total completed economy operations",
	}, []string{"kind"})

	// TradeFailures counts rejected operations by reason.
	TradeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moolah_trade_failures_total",
		Help: "Economy operations rejected by validation",
	}, []string{"kind", "reason"})

	// PoolAmount tracks the community pool balance.
	PoolAmount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "moolah_pool_amount",
		Help: "Current community pool balance",
	})

	// JobRunsTotal counts periodic job executions by job and outcome.
	JobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moolah_job_runs_total",
		Help: "Periodic job executions",
	}, []string{"job", "outcome"})

	// AssetsRepriced counts assets updated by the pricing driver.
	AssetsRepriced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moolah_assets_repriced_total",
		Help: "Assets repriced by the daily pricing driver",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moolah_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moolah_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
