// Package telemetry exposes the engine's Prometheus metrics. Every registry
// is self-contained so tests and embedded uses never collide on the global
// default registerer.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all fxengine metrics.
type Registry struct {
	reg *prometheus.Registry

	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	AnalysisDuration *prometheus.HistogramVec
	SignalsEmitted   *prometheus.CounterVec

	ScanSweeps     prometheus.Counter
	BacktestTrades *prometheus.CounterVec
}

// NewRegistry creates and registers the full metric set.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxengine_provider_requests_total",
				Help: "Market-data requests by provider and result",
			},
			[]string{"provider", "result"},
		),

		ProviderLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fxengine_provider_latency_seconds",
				Help:    "Market-data fetch latency in seconds",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"provider"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxengine_cache_hits_total",
				Help: "Series cache hits by timeframe",
			},
			[]string{"timeframe"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxengine_cache_misses_total",
				Help: "Series cache misses by timeframe",
			},
			[]string{"timeframe"},
		),

		AnalysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fxengine_analysis_duration_seconds",
				Help:    "Duration of analysis operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"operation"},
		),

		SignalsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxengine_signals_total",
				Help: "Signals emitted by direction",
			},
			[]string{"direction"},
		),

		ScanSweeps: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fxengine_scan_sweeps_total",
				Help: "Multi-pair sweeps completed",
			},
		),

		BacktestTrades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxengine_backtest_trades_total",
				Help: "Simulated trades by result",
			},
			[]string{"result"},
		),
	}

	r.reg.MustRegister(
		r.ProviderRequests,
		r.ProviderLatency,
		r.CacheHits,
		r.CacheMisses,
		r.AnalysisDuration,
		r.SignalsEmitted,
		r.ScanSweeps,
		r.BacktestTrades,
	)
	return r
}

// Handler serves this registry over HTTP for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveAnalysis times one analysis operation.
func (r *Registry) ObserveAnalysis(operation string, start time.Time) {
	r.AnalysisDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
