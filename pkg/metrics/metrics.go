// Package metrics provides run-scoped Prometheus collectors for an analysis run.
// Each run owns its registry, so a batch can be exported to a node_exporter
// textfile without leaking series between runs.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "resource_advisor"

// Stream names used as the "stream" label
const (
	StreamMetrics = "metrics"
	StreamHealth  = "health"
)

// Recorder holds the collectors of one run. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	LinesTotal           *prometheus.CounterVec
	UnstableServices     prometheus.Gauge
	RecommendationsTotal *prometheus.CounterVec
	ForecastFailures     prometheus.Counter
	FitDurationSeconds   *prometheus.HistogramVec
	RecommendedValue     *prometheus.GaugeVec
}

// NewRecorder creates a recorder backed by a fresh registry
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		// outcome: parsed | skipped
		LinesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lines_total",
				Help:      "Input lines by stream and outcome.",
			},
			[]string{"stream", "outcome"},
		),

		UnstableServices: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "unstable_services",
				Help:      "Services flagged as unstable in the last run.",
			},
		),

		RecommendationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recommendations_total",
				Help:      "Recommendations produced by resource type.",
			},
			[]string{"resource"},
		),

		ForecastFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecast_failures_total",
				Help:      "Services whose forecast failed or timed out.",
			},
		),

		FitDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fit_duration_seconds",
				Help:      "Time spent forecasting one service.",
				// 1ms .. ~16s
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
			},
			[]string{"outcome"},
		),

		RecommendedValue: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "recommended_value",
				Help:      "Recommended size in canonical units (millicores, Mi).",
			},
			[]string{"service", "resource"},
		),
	}
}

// Registry exposes the run registry for gathering
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveLines records parsed and skipped counts for one stream
func (r *Recorder) ObserveLines(stream string, total, parsed int) {
	if r == nil {
		return
	}
	r.LinesTotal.WithLabelValues(stream, "parsed").Add(float64(parsed))
	r.LinesTotal.WithLabelValues(stream, "skipped").Add(float64(total - parsed))
}

// SetUnstable records the number of flagged services
func (r *Recorder) SetUnstable(n int) {
	if r == nil {
		return
	}
	r.UnstableServices.Set(float64(n))
}

// ObserveFit records one service fit
func (r *Recorder) ObserveFit(elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failed"
		r.ForecastFailures.Inc()
	}
	r.FitDurationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveRecommendation records one produced recommendation
func (r *Recorder) ObserveRecommendation(service, resource string, value float64) {
	if r == nil {
		return
	}
	r.RecommendationsTotal.WithLabelValues(resource).Inc()
	r.RecommendedValue.WithLabelValues(service, resource).Set(value)
}

// WriteToTextfile writes the run metrics in the node_exporter textfile format
func (r *Recorder) WriteToTextfile(path string) error {
	if r == nil {
		return fmt.Errorf("no metrics recorded")
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
