package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricNameStepDuration        = "wl_fixtures_step_duration_seconds"
	MetricNameStepErrors          = "wl_fixtures_step_errors_total"
	MetricNameAccountsProvisioned = "wl_fixtures_accounts_provisioned_total"
	MetricNameFixturesExported    = "wl_fixtures_fixtures_exported_total"
	MetricNameRunSuccess          = "wl_fixtures_run_success"

	MetricLabelStep      = "step"
	MetricLabelVariant   = "variant"
	MetricLabelErrorType = "error_type"
	MetricLabelKind      = "kind"
)

// Metrics of a provisioning run. A run is short-lived, so metrics are written to a node-exporter
// textfile instead of being scraped.
type Metrics struct {
	StepDuration        *prometheus.HistogramVec
	StepErrors          *prometheus.CounterVec
	AccountsProvisioned *prometheus.CounterVec
	FixturesExported    prometheus.Counter
	RunSuccess          prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricNameStepDuration,
			Help:    "Duration of provisioning steps",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{MetricLabelStep, MetricLabelVariant}),
		StepErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: MetricNameStepErrors,
			Help: "Number of failed provisioning steps",
		}, []string{MetricLabelStep, MetricLabelErrorType}),
		AccountsProvisioned: factory.NewCounterVec(prometheus.CounterOpts{
			Name: MetricNameAccountsProvisioned,
			Help: "Number of accounts added to the registry",
		}, []string{MetricLabelKind}),
		FixturesExported: factory.NewCounter(prometheus.CounterOpts{
			Name: MetricNameFixturesExported,
			Help: "Number of fixture files written",
		}),
		RunSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: MetricNameRunSuccess,
			Help: "1 if the last run completed, 0 otherwise",
		}),
	}
}

func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
