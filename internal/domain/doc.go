// Package domain models river-gauge telemetry and flood-risk classification.
//
// # Data Sources
//
// Stage and discharge observations come from the USGS Water Services
// instantaneous-values API (https://waterservices.usgs.gov/nwis/iv/).
// Parameter codes follow USGS conventions:
//
//	00065  gage height (stage), feet
//	00060  discharge, cubic feet per second
//
// A response carries one time series per parameter, each with a list of
// timestamped samples. Only the chronologically latest sample per parameter
// is used; selection is by timestamp, never by array position, because the
// upstream ordering is not guaranteed.
//
// Precipitation forecasts come from the NWS gridpoint API
// (https://api.weather.gov). Coordinates resolve to a forecast grid via
// /points/{lat},{lon}, and the grid's quantitativePrecipitation values carry
// a validity interval of the form "<RFC3339 start>/<ISO-8601 duration>" and
// a water-equivalent amount in millimeters (kg/m² ≈ mm).
//
// # Rainfall Accumulation
//
// The 72-hour rainfall total assumes precipitation is evenly distributed
// across each forecast interval. Intervals overlapping the accumulation
// window contribute their amount pro-rated by overlapping hours; intervals
// with zero or negative duration are skipped. Missing intervals contribute
// zero — there is no gap-filling or interpolation. The window starts at the
// package clock's "now", so tests freeze time via [SetClock].
//
// # Risk Bands
//
// Two independent band triplets {low, medium, high} classify the 72-hour
// rainfall total and the stage-to-flood-stage ratio:
//
//	value <= low              LOW
//	value <= medium           MEDIUM
//	value >= high             HIGH
//	medium < value < high     MEDIUM
//
// The high cut is inclusive: at exactly flood stage (ratio 1.0 with
// high = 1.0) the stage risk is HIGH. A missing input yields UNKNOWN, which
// ranks below every known level when the two signals are combined.
package domain
