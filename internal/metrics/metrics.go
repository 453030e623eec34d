package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics. A nil *Registry records nothing.
type Registry struct {
	*prometheus.Registry

	backtestsTotal   *prometheus.CounterVec
	backtestDuration prometheus.Histogram
	assetsTotal      *prometheus.CounterVec
	barsSimulated    prometheus.Counter
	tradesTotal      *prometheus.CounterVec
	fetchDuration    *prometheus.HistogramVec
	lastTotalReturn  prometheus.Gauge
	lastMaxDrawdown  prometheus.Gauge
	lastSharpe       prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		backtestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradesim_backtests_total",
				Help: "Total number of backtest runs",
			},
			[]string{"status"},
		),

		backtestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tradesim_backtest_duration_seconds",
				Help:    "Backtest run duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
		),

		assetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradesim_assets_total",
				Help: "Assets processed by outcome",
			},
			[]string{"outcome"},
		),

		barsSimulated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tradesim_bars_simulated_total",
				Help: "Total number of bars replayed by the simulator",
			},
		),

		tradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradesim_trades_total",
				Help: "Total number of simulated trades",
			},
			[]string{"side"},
		),

		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradesim_fetch_duration_seconds",
				Help:    "Historical bar fetch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "status"},
		),
	}

	r.lastTotalReturn = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tradesim_last_run_total_return_percent",
		Help: "Total return of the most recent run",
	})
	r.lastMaxDrawdown = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tradesim_last_run_max_drawdown_percent",
		Help: "Maximum drawdown of the most recent run",
	})
	r.lastSharpe = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tradesim_last_run_sharpe_ratio",
		Help: "Sharpe ratio of the most recent run",
	})

	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.assetsTotal)
	reg.MustRegister(r.barsSimulated)
	reg.MustRegister(r.tradesTotal)
	reg.MustRegister(r.fetchDuration)
	reg.MustRegister(r.lastTotalReturn)
	reg.MustRegister(r.lastMaxDrawdown)
	reg.MustRegister(r.lastSharpe)

	return r
}

// RecordBacktest records a backtest completion.
func (r *Registry) RecordBacktest(status string, duration float64) {
	if r == nil {
		return
	}
	r.backtestsTotal.WithLabelValues(status).Inc()
	r.backtestDuration.Observe(duration)
}

// RecordAsset records an asset outcome ("simulated" or "skipped") and its bar count.
func (r *Registry) RecordAsset(outcome string, bars int) {
	if r == nil {
		return
	}
	r.assetsTotal.WithLabelValues(outcome).Inc()
	r.barsSimulated.Add(float64(bars))
}

// RecordTrades adds simulated trades for a side ("BUY" or "SELL").
func (r *Registry) RecordTrades(side string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.tradesTotal.WithLabelValues(side).Add(float64(n))
}

// RecordFetch records one provider call.
func (r *Registry) RecordFetch(provider string, ok bool, duration float64) {
	if r == nil {
		return
	}
	r.fetchDuration.WithLabelValues(provider, fetchStatus(ok)).Observe(duration)
}

// SetLastRun publishes headline figures of the most recent run.
func (r *Registry) SetLastRun(totalReturn, maxDrawdown, sharpe float64) {
	if r == nil {
		return
	}
	r.lastTotalReturn.Set(totalReturn)
	r.lastMaxDrawdown.Set(maxDrawdown)
	r.lastSharpe.Set(sharpe)
}

// WriteTextfile writes all metrics in the node_exporter textfile format.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Registry)
}

func fetchStatus(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
