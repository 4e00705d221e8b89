// Package assess orchestrates a single flood-risk assessment run: for each
// configured gauge it fetches the current river reading and precipitation
// forecast, accumulates the 72-hour rainfall outlook, and classifies risk.
// Upstream failures are isolated per gauge and per source so one bad site
// never sinks a run.
package assess

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/flood-risk-etl/internal/domain"
	"github.com/couchcryptid/flood-risk-etl/internal/observability"
)

// rainfallWindowHours is the forward accumulation window for the rainfall
// signal.
const rainfallWindowHours = 72

// StageFetcher retrieves the latest river reading for a site.
type StageFetcher interface {
	FetchObservation(ctx context.Context, siteID string) (domain.StageObservation, error)
}

// ForecastFetcher retrieves the precipitation forecast covering a coordinate.
type ForecastFetcher interface {
	FetchForecast(ctx context.Context, lat, lon float64) (domain.Forecast, error)
}

// GaugeResult carries everything a run produced for one gauge. The error
// fields record which source failed; a failed source leaves its data field
// nil and the affected sub-risk UNKNOWN.
type GaugeResult struct {
	Gauge       domain.Gauge             `json:"gauge"`
	Assessment  domain.RiskAssessment    `json:"assessment"`
	Observation *domain.StageObservation `json:"observation,omitempty"`
	Rainfall    *domain.RainfallEstimate `json:"rainfall,omitempty"`

	StageError    string `json:"stage_error,omitempty"`
	ForecastError string `json:"forecast_error,omitempty"`
}

// Report is the output of one assessment run. Gauges is keyed by gauge ID
// and always contains an entry for every configured gauge.
type Report struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Gauges      map[string]GaugeResult `json:"gauges"`
}

// Runner executes assessment runs against a fixed gauge set.
type Runner struct {
	stages     StageFetcher
	forecasts  ForecastFetcher
	thresholds domain.Thresholds
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(stages StageFetcher, forecasts ForecastFetcher, thresholds domain.Thresholds, metrics *observability.Metrics, logger *slog.Logger) *Runner {
	return &Runner{
		stages:     stages,
		forecasts:  forecasts,
		thresholds: thresholds,
		metrics:    metrics,
		logger:     logger,
	}
}

// Run assesses every gauge and returns the combined report. Run never
// fails; per-gauge problems are recorded in the result entries.
func (r *Runner) Run(ctx context.Context, gauges []domain.Gauge) *Report {
	start := time.Now()
	report := &Report{
		GeneratedAt: domain.Now(),
		Gauges:      make(map[string]GaugeResult, len(gauges)),
	}

	window := domain.NextHours(rainfallWindowHours)
	for _, gauge := range gauges {
		result := r.assessGauge(ctx, gauge, window)
		report.Gauges[gauge.ID] = result

		r.metrics.GaugesAssessed.Inc()
		r.metrics.AssessmentsByRisk.WithLabelValues(result.Assessment.Risk.String()).Inc()
	}

	r.metrics.RunDuration.Observe(time.Since(start).Seconds())
	r.logger.Info("assessment run complete",
		"gauges", len(gauges),
		"duration", time.Since(start),
	)
	return report
}

func (r *Runner) assessGauge(ctx context.Context, gauge domain.Gauge, window domain.AccumulationWindow) GaugeResult {
	result := GaugeResult{Gauge: gauge}

	obs, err := r.stages.FetchObservation(ctx, gauge.ID)
	if err != nil {
		result.StageError = err.Error()
		r.metrics.StageFetchErrors.Inc()
		r.logger.Warn("stage fetch failed", "gauge", gauge.ID, "error", err)
	} else {
		result.Observation = &obs
	}

	forecast, err := r.forecasts.FetchForecast(ctx, gauge.Latitude, gauge.Longitude)
	if err != nil {
		result.ForecastError = err.Error()
		r.metrics.ForecastFetchErrors.Inc()
		r.logger.Warn("forecast fetch failed", "gauge", gauge.ID, "error", err)
	} else {
		rain := domain.AccumulateRainfall(forecast.QPF, window)
		result.Rainfall = &domain.RainfallEstimate{
			GaugeID:    gauge.ID,
			RainMM72h:  rain,
			QPFPeriods: len(forecast.QPF),
			POPMaxPct:  domain.MaxProbability(forecast.POP, window),
		}
		if len(forecast.QPF) == 0 {
			r.logger.Warn("forecast carried no precipitation periods", "gauge", gauge.ID)
		}
	}

	var stageFt *float64
	if result.Observation != nil {
		stageFt = result.Observation.StageFt
	}
	var rainMM *float64
	if result.Rainfall != nil {
		rainMM = &result.Rainfall.RainMM72h
	}

	result.Assessment = domain.Classify(gauge.ID, stageFt, gauge.FloodStageFt, rainMM, r.thresholds)

	r.logger.Info("gauge assessed",
		"gauge", gauge.ID,
		"risk", result.Assessment.Risk.String(),
		"rain_risk", result.Assessment.RainRisk.String(),
		"stage_risk", result.Assessment.StageRisk.String(),
	)
	return result
}
