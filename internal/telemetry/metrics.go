// Package telemetry exposes run and trial metrics in the Prometheus format.
package telemetry

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"aquaculture-risk/internal/models"
)

// Metrics holds the collectors of one process. Each instance owns its own
// registry so that tests and repeated runs never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	TrialsTotal   prometheus.Counter
	TrialFailures prometheus.Counter
	TrialDuration prometheus.Histogram
	RunDuration   prometheus.Gauge

	MeanProfit  prometheus.Gauge
	VaR95       prometheus.Gauge
	ProbLoss    prometheus.Gauge
	SharpeRatio prometheus.Gauge
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		TrialsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "aquarisk_trials_total",
			Help: "Total simulation trials executed.",
		}),
		TrialFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "aquarisk_trial_failures_total",
			Help: "Total simulation trials that produced unusable numbers.",
		}),
		TrialDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "aquarisk_trial_duration_seconds",
			Help:    "Wall time of a single trial in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aquarisk_run_duration_seconds",
			Help: "Wall time of the last completed run in seconds.",
		}),
		MeanProfit: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aquarisk_mean_profit",
			Help: "Mean profit of the last completed run.",
		}),
		VaR95: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aquarisk_var_95",
			Help: "95% value at risk of the last completed run.",
		}),
		ProbLoss: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aquarisk_prob_loss",
			Help: "Probability of loss of the last completed run.",
		}),
		SharpeRatio: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aquarisk_sharpe_ratio",
			Help: "Sharpe ratio of the last completed run.",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveTrial records one trial. It is safe for concurrent use.
func (m *Metrics) ObserveTrial(_ int, elapsed time.Duration, err error) {
	m.TrialsTotal.Inc()
	m.TrialDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.TrialFailures.Inc()
	}
}

// ObserveRun records the headline numbers of a completed run.
func (m *Metrics) ObserveRun(summary models.SummaryStatistics, elapsed time.Duration) {
	m.RunDuration.Set(elapsed.Seconds())
	m.MeanProfit.Set(summary.MeanProfit)
	m.VaR95.Set(summary.VaR95)
	m.ProbLoss.Set(summary.ProbLoss)
	m.SharpeRatio.Set(summary.SharpeRatio)
}

// WriteTextfile writes all metrics to path for the node exporter textfile
// collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
