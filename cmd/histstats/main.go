// Command histstats computes monthly and percentile statistics from the CSV
// archives written by fetchhistory and prints them as JSON keyed by gauge ID.
//
// Usage:
//
//	histstats -archive-dir data/history
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/couchcryptid/flood-risk-etl/internal/config"
	"github.com/couchcryptid/flood-risk-etl/internal/history"
	"github.com/couchcryptid/flood-risk-etl/internal/observability"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	archiveDir := flag.String("archive-dir", "data/history", "directory containing per-gauge CSV archives")
	flag.Parse()

	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(settings.LogLevel, settings.LogFormat)

	stats, err := history.ComputeAll(*archiveDir, logger)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(stats)
}
