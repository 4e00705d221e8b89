package domain

import (
	"encoding/json"
	"fmt"
)

// RiskLevel is a flood-risk severity. The zero value is RiskUnknown, which
// ranks below every known level when two signals are combined.
type RiskLevel int

const (
	RiskUnknown RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
)

var riskNames = map[RiskLevel]string{
	RiskUnknown: "UNKNOWN",
	RiskLow:     "LOW",
	RiskMedium:  "MEDIUM",
	RiskHigh:    "HIGH",
}

func (r RiskLevel) String() string {
	if name, ok := riskNames[r]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalJSON encodes the level as its upper-case name.
func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes an upper-case level name.
func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for level, name := range riskNames {
		if name == s {
			*r = level
			return nil
		}
	}
	return fmt.Errorf("unknown risk level %q", s)
}

// MaxRisk returns the more severe of two levels. RiskUnknown is the floor,
// so a known signal always wins over an unknown one.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b > a {
		return b
	}
	return a
}

// Bands holds ascending classification cut points for one signal.
type Bands struct {
	Low    float64 `json:"low"`
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// Thresholds groups the two independent band sets.
type Thresholds struct {
	RainfallMM72h   Bands `json:"rainfall_mm_72h"`
	RiverStageRatio Bands `json:"river_stage_ratio"`
}

// classifyBand maps a value onto a band triplet. The high cut is inclusive:
// at exactly the high cut the value classifies HIGH (see the package doc for
// the boundary policy).
func classifyBand(v float64, b Bands) RiskLevel {
	switch {
	case v <= b.Low:
		return RiskLow
	case v <= b.Medium:
		return RiskMedium
	case v >= b.High:
		return RiskHigh
	default:
		return RiskMedium
	}
}

// RainRisk classifies a 72-hour rainfall total. A nil total (forecast
// unavailable) yields RiskUnknown.
func RainRisk(rainMM *float64, b Bands) RiskLevel {
	if rainMM == nil {
		return RiskUnknown
	}
	return classifyBand(*rainMM, b)
}

// StageRisk classifies the stage-to-flood-stage ratio. A missing stage,
// missing flood stage, or zero flood stage yields RiskUnknown.
func StageRisk(stageFt, floodStageFt *float64, b Bands) RiskLevel {
	ratio := stageRatio(stageFt, floodStageFt)
	if ratio == nil {
		return RiskUnknown
	}
	return classifyBand(*ratio, b)
}

func stageRatio(stageFt, floodStageFt *float64) *float64 {
	if stageFt == nil || floodStageFt == nil || *floodStageFt == 0 {
		return nil
	}
	ratio := *stageFt / *floodStageFt
	return &ratio
}

// RiskInputs echoes the raw classification inputs into the assessment.
type RiskInputs struct {
	StageFt      *float64 `json:"stage_ft"`
	FloodStageFt *float64 `json:"flood_stage_ft"`
	RainMM72h    *float64 `json:"rain_mm_72h"`
}

// RiskAssessment is the classification outcome for one gauge. Produced
// fresh each run and never mutated after construction.
type RiskAssessment struct {
	GaugeID    string     `json:"gauge_id"`
	Risk       RiskLevel  `json:"risk"`
	RainRisk   RiskLevel  `json:"rain_risk"`
	StageRisk  RiskLevel  `json:"stage_risk"`
	StageRatio *float64   `json:"stage_ratio,omitempty"`
	Inputs     RiskInputs `json:"inputs"`
}

// Classify combines the rainfall and stage signals for one gauge. The
// overall risk is the more severe sub-risk; when both are unknown the
// result is unknown.
func Classify(gaugeID string, stageFt, floodStageFt, rainMM *float64, th Thresholds) RiskAssessment {
	rainRisk := RainRisk(rainMM, th.RainfallMM72h)
	stageRisk := StageRisk(stageFt, floodStageFt, th.RiverStageRatio)

	return RiskAssessment{
		GaugeID:    gaugeID,
		Risk:       MaxRisk(rainRisk, stageRisk),
		RainRisk:   rainRisk,
		StageRisk:  stageRisk,
		StageRatio: stageRatio(stageFt, floodStageFt),
		Inputs: RiskInputs{
			StageFt:      stageFt,
			FloodStageFt: floodStageFt,
			RainMM72h:    rainMM,
		},
	}
}
