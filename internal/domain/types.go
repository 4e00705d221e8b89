package domain

import "time"

// Gauge is a configured monitoring point: a USGS site with coordinates and
// an optional flood stage. Loaded once from configuration, never mutated.
type Gauge struct {
	ID           string   `json:"id" mapstructure:"id"`
	Name         string   `json:"name,omitempty" mapstructure:"name"`
	Latitude     float64  `json:"latitude" mapstructure:"latitude"`
	Longitude    float64  `json:"longitude" mapstructure:"longitude"`
	FloodStageFt *float64 `json:"flood_stage_ft,omitempty" mapstructure:"flood_stage_ft"`
}

// StageObservation is the latest stage/discharge reading for a gauge.
// A nil field means the upstream carried no data for that parameter, which
// is distinct from a failed fetch.
type StageObservation struct {
	GaugeID      string    `json:"gauge_id"`
	Timestamp    time.Time `json:"timestamp,omitzero"`
	StageFt      *float64  `json:"stage_ft"`
	DischargeCFS *float64  `json:"discharge_cfs"`
}

// PrecipitationPeriod is a forecast interval with its expected
// water-equivalent precipitation. Periods may be non-uniform in length and
// may partially overlap an accumulation window.
type PrecipitationPeriod struct {
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
	ValueMM  float64       `json:"value_mm"`
}

// ProbabilityPeriod is a forecast interval with a probability-of-precipitation
// percentage. Nil Percent means the upstream reported no value.
type ProbabilityPeriod struct {
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
	Percent  *float64      `json:"percent"`
}

// Forecast holds the parsed gridpoint forecast for one location.
type Forecast struct {
	QPF []PrecipitationPeriod `json:"qpf"`
	POP []ProbabilityPeriod   `json:"pop"`
}

// RainfallEstimate is the accumulated 72-hour rainfall outlook for a gauge.
type RainfallEstimate struct {
	GaugeID    string   `json:"gauge_id"`
	RainMM72h  float64  `json:"rain_72h_mm"`
	QPFPeriods int      `json:"qpf_periods"`
	POPMaxPct  *float64 `json:"pop_max_pct,omitempty"`
}
