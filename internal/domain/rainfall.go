package domain

import "time"

// AccumulationWindow is a half-open time interval [Start, End).
type AccumulationWindow struct {
	Start time.Time
	End   time.Time
}

// NextHours returns the accumulation window from the package clock's "now"
// extending the given number of hours into the future.
func NextHours(hours int) AccumulationWindow {
	start := clock.Now().UTC()
	return AccumulationWindow{
		Start: start,
		End:   start.Add(time.Duration(hours) * time.Hour),
	}
}

// AccumulateRainfall sums the expected precipitation across the window.
// Each period contributes its amount pro-rated by the fraction of the
// period overlapping the window; periods with zero or negative duration or
// no overlap contribute nothing. The result is a pure function of the
// period set and the window, and is always non-negative.
func AccumulateRainfall(periods []PrecipitationPeriod, window AccumulationWindow) float64 {
	var totalMM float64
	for _, p := range periods {
		if p.Duration <= 0 {
			continue
		}
		end := p.Start.Add(p.Duration)

		overlapStart := maxTime(p.Start, window.Start)
		overlapEnd := minTime(end, window.End)
		if !overlapStart.Before(overlapEnd) {
			continue
		}

		overlap := overlapEnd.Sub(overlapStart)
		totalMM += p.ValueMM * (overlap.Hours() / p.Duration.Hours())
	}
	return totalMM
}

// MaxProbability returns the highest probability-of-precipitation among
// periods overlapping the window, or nil when no overlapping period carries
// a value.
func MaxProbability(periods []ProbabilityPeriod, window AccumulationWindow) *float64 {
	var maxPct *float64
	for _, p := range periods {
		if p.Percent == nil || p.Duration <= 0 {
			continue
		}
		end := p.Start.Add(p.Duration)
		if !p.Start.Before(window.End) || !end.After(window.Start) {
			continue
		}
		if maxPct == nil || *p.Percent > *maxPct {
			pct := *p.Percent
			maxPct = &pct
		}
	}
	return maxPct
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
