package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the Prometheus counters and histograms for an assessment run.
type Metrics struct {
	GaugesAssessed      prometheus.Counter
	StageFetchErrors    prometheus.Counter
	ForecastFetchErrors prometheus.Counter
	AssessmentsByRisk   *prometheus.CounterVec // label: level={UNKNOWN,LOW,MEDIUM,HIGH}

	ProviderRequestDuration *prometheus.HistogramVec // labels: provider={usgs,nws}, operation
	RunDuration             prometheus.Histogram
}

// NewMetrics creates and registers all run metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		GaugesAssessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "gauges_assessed_total",
			Help:      "Total gauges processed, including gauges with ingestion errors.",
		}),
		StageFetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "stage_fetch_errors_total",
			Help:      "Total per-gauge stage ingestion failures.",
		}),
		ForecastFetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "forecast_fetch_errors_total",
			Help:      "Total per-gauge forecast ingestion failures.",
		}),
		AssessmentsByRisk: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "assessments_total",
			Help:      "Assessments produced, by overall risk level.",
		}, []string{"level"}),
		ProviderRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flood_risk",
			Name:      "provider_request_duration_seconds",
			Help:      "Upstream API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider", "operation"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flood_risk",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete assessment run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}

	prometheus.MustRegister(
		m.GaugesAssessed,
		m.StageFetchErrors,
		m.ForecastFetchErrors,
		m.AssessmentsByRisk,
		m.ProviderRequestDuration,
		m.RunDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		GaugesAssessed:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_risk", Name: "gauges_assessed_total"}),
		StageFetchErrors:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_risk", Name: "stage_fetch_errors_total"}),
		ForecastFetchErrors:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_risk", Name: "forecast_fetch_errors_total"}),
		AssessmentsByRisk:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_risk", Name: "assessments_total"}, []string{"level"}),
		ProviderRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "flood_risk", Name: "provider_request_duration_seconds"}, []string{"provider", "operation"}),
		RunDuration:             prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "flood_risk", Name: "run_duration_seconds"}),
	}
}

// PushMetrics sends everything in the default registry to a Prometheus
// Pushgateway. The process is one-shot, so pushing at the end of a run is
// the exposition path; there is no serving endpoint.
func PushMetrics(gatewayURL, job string) error {
	if err := push.New(gatewayURL, job).Gatherer(prometheus.DefaultGatherer).Push(); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
