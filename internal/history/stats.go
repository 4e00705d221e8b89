package history

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
)

// MonthlyStageStats summarizes archived stage for one calendar month.
type MonthlyStageStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std"`
	Median float64 `json:"median"`
}

// MonthlyDischargeStats summarizes archived discharge for one calendar month.
type MonthlyDischargeStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std"`
}

// Stats holds the decision-support statistics for one gauge's archive.
// An empty archive yields the zero value.
type Stats struct {
	MonthlyStage     map[time.Month]MonthlyStageStats     `json:"monthly_stage,omitempty"`
	MonthlyDischarge map[time.Month]MonthlyDischargeStats `json:"monthly_discharge,omitempty"`
	StagePercentiles map[string]float64                   `json:"stage_percentiles,omitempty"`
}

// Compute derives per-calendar-month mean/stddev/median of stage, monthly
// mean/stddev of discharge when present, and global stage percentile
// markers. Empty input yields an empty Stats, never an error.
func Compute(readings []DailyReading) Stats {
	if len(readings) == 0 {
		return Stats{}
	}

	stageByMonth := make(map[time.Month][]float64)
	dischargeByMonth := make(map[time.Month][]float64)
	var allStage []float64

	for _, r := range readings {
		month := r.Date.Month()
		if r.StageFt != nil {
			stageByMonth[month] = append(stageByMonth[month], *r.StageFt)
			allStage = append(allStage, *r.StageFt)
		}
		if r.DischargeCFS != nil {
			dischargeByMonth[month] = append(dischargeByMonth[month], *r.DischargeCFS)
		}
	}

	s := Stats{}
	if len(stageByMonth) > 0 {
		s.MonthlyStage = make(map[time.Month]MonthlyStageStats, len(stageByMonth))
		for month, values := range stageByMonth {
			s.MonthlyStage[month] = MonthlyStageStats{
				Mean:   stat.Mean(values, nil),
				StdDev: stat.StdDev(values, nil),
				Median: quantile(values, 0.5),
			}
		}
	}
	if len(dischargeByMonth) > 0 {
		s.MonthlyDischarge = make(map[time.Month]MonthlyDischargeStats, len(dischargeByMonth))
		for month, values := range dischargeByMonth {
			s.MonthlyDischarge[month] = MonthlyDischargeStats{
				Mean:   stat.Mean(values, nil),
				StdDev: stat.StdDev(values, nil),
			}
		}
	}
	if len(allStage) > 0 {
		s.StagePercentiles = map[string]float64{
			"p50": quantile(allStage, 0.50),
			"p85": quantile(allStage, 0.85),
			"p95": quantile(allStage, 0.95),
		}
	}
	return s
}

// quantile sorts a copy of the values, as stat.Quantile requires sorted
// input.
func quantile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// ArchiveStats is the per-gauge outcome of a directory scan: either
// statistics or an error marker, mirroring the per-gauge error isolation of
// the live run.
type ArchiveStats struct {
	Stats
	Error string `json:"error,omitempty"`
}

const archiveSuffix = "_daily.csv"

// ComputeAll computes statistics for every *_daily.csv archive in dir,
// keyed by gauge ID. A file that fails to parse gets an error entry; the
// scan continues.
func ComputeAll(dir string, logger *slog.Logger) (map[string]ArchiveStats, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+archiveSuffix))
	if err != nil {
		return nil, fmt.Errorf("scan archive dir %s: %w", dir, err)
	}

	results := make(map[string]ArchiveStats, len(paths))
	for _, path := range paths {
		gaugeID := strings.TrimSuffix(filepath.Base(path), archiveSuffix)

		readings, err := ReadArchive(path)
		if err != nil {
			logger.Error("archive read failed", "gauge", gaugeID, "error", err)
			results[gaugeID] = ArchiveStats{Error: err.Error()}
			continue
		}
		results[gaugeID] = ArchiveStats{Stats: Compute(readings)}
		logger.Info("computed archive stats", "gauge", gaugeID, "days", len(readings))
	}
	return results, nil
}
