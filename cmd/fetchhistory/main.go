// Command fetchhistory downloads daily stage/discharge history for every
// configured gauge from the USGS daily-values service and writes one CSV
// archive per gauge. Archives feed the histstats command.
//
// Usage:
//
//	fetchhistory -gauges config/gauges.yaml -out-dir data/history -years 10
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/couchcryptid/flood-risk-etl/internal/adapter/usgs"
	"github.com/couchcryptid/flood-risk-etl/internal/config"
	"github.com/couchcryptid/flood-risk-etl/internal/domain"
	"github.com/couchcryptid/flood-risk-etl/internal/history"
	"github.com/couchcryptid/flood-risk-etl/internal/observability"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	gaugesPath := flag.String("gauges", "config/gauges.yaml", "path to the gauges YAML file")
	outDir := flag.String("out-dir", "data/history", "directory for per-gauge CSV archives")
	years := flag.Int("years", 10, "years of history to fetch")
	flag.Parse()

	if *years <= 0 {
		return fmt.Errorf("-years must be positive, got %d", *years)
	}

	gauges, err := config.LoadGauges(*gaugesPath)
	if err != nil {
		return err
	}
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(settings.LogLevel, settings.LogFormat)
	metrics := observability.NewMetrics()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	client := usgs.NewClient(
		settings.USGSBaseURL,
		settings.USGSDailyBaseURL,
		settings.HistoryTimeout,
		metrics,
		logger,
	)

	end := domain.Now()
	start := end.AddDate(-*years, 0, 0)
	ctx := context.Background()

	var failures int
	for _, gauge := range gauges {
		readings, err := client.FetchDailyHistory(ctx, gauge.ID, start, end)
		if err != nil {
			logger.Error("history fetch failed", "gauge", gauge.ID, "error", err)
			failures++
			continue
		}

		path := filepath.Join(*outDir, gauge.ID+"_daily.csv")
		if err := history.WriteArchive(path, readings); err != nil {
			logger.Error("archive write failed", "gauge", gauge.ID, "error", err)
			failures++
			continue
		}
		logger.Info("archive written", "gauge", gauge.ID, "rows", len(readings), "path", path)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d gauges failed", failures, len(gauges))
	}
	return nil
}
