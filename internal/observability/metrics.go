// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"contrarian-lab/internal/backtest"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "contrarian_lab"

// Metrics holds the Prometheus collectors of the application. It implements
// backtest.Recorder.
type Metrics struct {
	// Signal metrics
	Candidates *prometheus.CounterVec
	Drops      *prometheus.CounterVec
	Skips      *prometheus.CounterVec

	// Portfolio metrics
	Cohorts     *prometheus.CounterVec
	CohortGross prometheus.Histogram
	Trades      prometheus.Counter

	// Run metrics
	Runs        *prometheus.CounterVec
	RunDuration prometheus.Histogram
	LastSuccess prometheus.Gauge

	// Ingestion metrics
	PointsIngested *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

var _ backtest.Recorder = (*Metrics)(nil)

// NewMetrics creates and registers the collectors with reg.
// A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		Candidates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "generated_total",
			Help:      "Sized trade candidates by frequency label",
		}, []string{"frequency"}),
		Drops: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "dropped_total",
			Help:      "Signals dropped before sizing by frequency label and reason",
		}, []string{"frequency", "reason"}),
		Skips: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "symbols_skipped_total",
			Help:      "Symbols skipped for insufficient history by frequency label",
		}, []string{"frequency"}),

		Cohorts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "cohorts_total",
			Help:      "Entry cohorts allocated, split by whether the gross cap applied",
		}, []string{"delevered"}),
		CohortGross: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "cohort_gross_exposure",
			Help:      "Gross exposure of each cohort before de-levering",
			Buckets:   []float64{0.1, 0.25, 0.5, 0.75, 1, 1.5, 2, 3, 5},
		}),
		Trades: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "trades_executed_total",
			Help:      "Total number of cost-adjusted trades",
		}),

		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Backtest runs by status",
		}, []string{"status"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Backtest run duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "last_success_timestamp",
			Help:      "Unix timestamp of the last successful run",
		}),

		PointsIngested: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "points_total",
			Help:      "Price points written by dataset",
		}, []string{"dataset"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of failed database operations",
		}, []string{"database", "operation"}),
	}
}

// SignalsGenerated counts sized candidates of one series.
func (m *Metrics) SignalsGenerated(frequency string, n int) {
	m.Candidates.WithLabelValues(frequency).Add(float64(n))
}

// SignalsDropped counts dropped signals.
func (m *Metrics) SignalsDropped(frequency, reason string, n int) {
	m.Drops.WithLabelValues(frequency, reason).Add(float64(n))
}

// SymbolSkipped counts a series skipped for short history.
func (m *Metrics) SymbolSkipped(frequency string) {
	m.Skips.WithLabelValues(frequency).Inc()
}

// CohortAllocated records one entry cohort.
func (m *Metrics) CohortAllocated(gross float64, delevered bool) {
	label := "false"
	if delevered {
		label = "true"
	}
	m.Cohorts.WithLabelValues(label).Inc()
	m.CohortGross.Observe(gross)
}

// TradesExecuted counts executed trades.
func (m *Metrics) TradesExecuted(n int) {
	m.Trades.Add(float64(n))
}

// RunCompleted records a finished run.
func (m *Metrics) RunCompleted(status string, elapsed time.Duration) {
	m.Runs.WithLabelValues(status).Inc()
	m.RunDuration.Observe(elapsed.Seconds())
	if status == backtest.StatusSuccess {
		m.LastSuccess.SetToCurrentTime()
	}
}

// RecordIngest counts points written to a dataset.
func (m *Metrics) RecordIngest(dataset string, points int) {
	m.PointsIngested.WithLabelValues(dataset).Add(float64(points))
}

// RecordDBQuery records database operation metrics.
func (m *Metrics) RecordDBQuery(database, operation string, elapsed time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(elapsed.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// Handler returns an HTTP handler for the /metrics endpoint of g.
// A nil g uses the default gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// NewServer returns a server exposing /metrics and /health on addr.
func NewServer(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Serve runs srv until it is shut down. A closed server is not an error.
func Serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
