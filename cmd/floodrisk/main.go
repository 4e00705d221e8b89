// Command floodrisk runs a single flood-risk assessment over the configured
// gauges and writes the combined report as JSON to stdout. Kafka publishing
// and Pushgateway metrics are feature-flagged through the environment.
//
// Usage:
//
//	floodrisk -gauges config/gauges.yaml -thresholds config/thresholds.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	kafkaadapter "github.com/couchcryptid/flood-risk-etl/internal/adapter/kafka"
	"github.com/couchcryptid/flood-risk-etl/internal/adapter/nws"
	"github.com/couchcryptid/flood-risk-etl/internal/adapter/usgs"
	"github.com/couchcryptid/flood-risk-etl/internal/assess"
	"github.com/couchcryptid/flood-risk-etl/internal/config"
	"github.com/couchcryptid/flood-risk-etl/internal/observability"
)

func main() {
	gaugesPath := flag.String("gauges", "config/gauges.yaml", "path to the gauges YAML file")
	thresholdsPath := flag.String("thresholds", "config/thresholds.yaml", "path to the thresholds YAML file")
	logLevel := flag.String("log-level", "", "override the configured log level")
	flag.Parse()

	cfg, err := config.Load(*gaugesPath, *thresholdsPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level := cfg.Settings.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	logger := observability.NewLogger(level, cfg.Settings.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stages := usgs.NewClient(
		cfg.Settings.USGSBaseURL,
		cfg.Settings.USGSDailyBaseURL,
		cfg.Settings.FetchTimeout,
		metrics,
		logger,
	)
	forecasts := nws.NewClient(cfg.Settings.NWSPointsBaseURL, cfg.Settings.FetchTimeout, metrics, logger)

	runner := assess.NewRunner(stages, forecasts, cfg.Thresholds, metrics, logger)
	report := runner.Run(ctx, cfg.Gauges)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		logger.Error("failed to write report", "error", err)
		os.Exit(1)
	}

	if cfg.Settings.KafkaEnabled() {
		publisher := kafkaadapter.NewPublisher(cfg.Settings.KafkaBrokers, cfg.Settings.KafkaTopic, logger)
		if err := publisher.PublishReport(ctx, report); err != nil {
			logger.Error("kafka publish failed", "error", err)
		}
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	if cfg.Settings.PushEnabled() {
		if err := observability.PushMetrics(cfg.Settings.PushgatewayURL, cfg.Settings.PushJob); err != nil {
			logger.Error("metrics push failed", "error", err)
		}
	}
}
