// Package config loads the gauge list, threshold bands, and operational
// settings. The two YAML documents are required; operational settings come
// from FLOODRISK_-prefixed environment variables with defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/couchcryptid/flood-risk-etl/internal/domain"
)

// Config holds everything a run needs: the configured gauges, the
// classification thresholds, and operational settings.
type Config struct {
	Gauges     []domain.Gauge
	Thresholds domain.Thresholds
	Settings   Settings
}

// Settings are operational knobs sourced from the environment.
type Settings struct {
	USGSBaseURL      string
	USGSDailyBaseURL string
	NWSPointsBaseURL string
	FetchTimeout     time.Duration
	HistoryTimeout   time.Duration
	LogLevel         string
	LogFormat        string
	KafkaBrokers     []string
	KafkaTopic       string
	PushgatewayURL   string
	PushJob          string
}

// KafkaEnabled reports whether assessments should be published to Kafka.
func (s Settings) KafkaEnabled() bool { return len(s.KafkaBrokers) > 0 }

// PushEnabled reports whether run metrics should be pushed to a Pushgateway.
func (s Settings) PushEnabled() bool { return s.PushgatewayURL != "" }

// Load reads and validates the full configuration. Any error here is fatal
// to the run.
func Load(gaugesPath, thresholdsPath string) (*Config, error) {
	gauges, err := LoadGauges(gaugesPath)
	if err != nil {
		return nil, err
	}

	thresholds, err := LoadThresholds(thresholdsPath)
	if err != nil {
		return nil, err
	}

	settings, err := LoadSettings()
	if err != nil {
		return nil, err
	}

	return &Config{
		Gauges:     gauges,
		Thresholds: thresholds,
		Settings:   settings,
	}, nil
}

// LoadGauges reads the gauge list YAML. Numeric gauge IDs are coerced to
// strings so USGS site IDs may be written unquoted.
func LoadGauges(path string) ([]domain.Gauge, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read gauge config: %w", err)
	}

	var doc struct {
		Gauges []domain.Gauge `mapstructure:"gauges"`
	}
	if err := v.Unmarshal(&doc, weaklyTyped); err != nil {
		return nil, fmt.Errorf("parse gauge config: %w", err)
	}

	if len(doc.Gauges) == 0 {
		return nil, fmt.Errorf("gauge config %s contains no gauges", path)
	}
	for i, g := range doc.Gauges {
		if g.ID == "" {
			return nil, fmt.Errorf("gauge config %s: entry %d is missing an id", path, i)
		}
	}
	return doc.Gauges, nil
}

// bandsDoc mirrors a band triplet with optional fields so missing keys can
// be reported instead of silently defaulting to zero.
type bandsDoc struct {
	Low    *float64 `mapstructure:"low"`
	Medium *float64 `mapstructure:"medium"`
	High   *float64 `mapstructure:"high"`
}

// LoadThresholds reads the thresholds YAML. Every cut point of both band
// triplets is required, and each triplet must be ascending.
func LoadThresholds(path string) (domain.Thresholds, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return domain.Thresholds{}, fmt.Errorf("read thresholds config: %w", err)
	}

	var doc struct {
		RainfallMM72h   bandsDoc `mapstructure:"rainfall_mm_72h"`
		RiverStageRatio bandsDoc `mapstructure:"river_stage_ratio"`
	}
	if err := v.Unmarshal(&doc, weaklyTyped); err != nil {
		return domain.Thresholds{}, fmt.Errorf("parse thresholds config: %w", err)
	}

	rainfall, err := validateBands("rainfall_mm_72h", doc.RainfallMM72h)
	if err != nil {
		return domain.Thresholds{}, err
	}
	stageRatio, err := validateBands("river_stage_ratio", doc.RiverStageRatio)
	if err != nil {
		return domain.Thresholds{}, err
	}

	return domain.Thresholds{
		RainfallMM72h:   rainfall,
		RiverStageRatio: stageRatio,
	}, nil
}

func validateBands(name string, doc bandsDoc) (domain.Bands, error) {
	for key, value := range map[string]*float64{"low": doc.Low, "medium": doc.Medium, "high": doc.High} {
		if value == nil {
			return domain.Bands{}, fmt.Errorf("thresholds: %s.%s is required", name, key)
		}
	}
	b := domain.Bands{Low: *doc.Low, Medium: *doc.Medium, High: *doc.High}
	if b.Low > b.Medium || b.Medium > b.High {
		return domain.Bands{}, fmt.Errorf("thresholds: %s cut points must be ascending", name)
	}
	return b, nil
}

// LoadSettings reads operational settings from the environment, applying
// defaults where unset.
func LoadSettings() (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("FLOODRISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	s := Settings{
		USGSBaseURL:      v.GetString("usgs.base_url"),
		USGSDailyBaseURL: v.GetString("usgs.daily_base_url"),
		NWSPointsBaseURL: v.GetString("nws.points_base_url"),
		FetchTimeout:     v.GetDuration("fetch.timeout"),
		HistoryTimeout:   v.GetDuration("history.timeout"),
		LogLevel:         v.GetString("log.level"),
		LogFormat:        v.GetString("log.format"),
		KafkaTopic:       v.GetString("kafka.topic"),
		PushgatewayURL:   v.GetString("pushgateway.url"),
		PushJob:          v.GetString("push.job"),
	}
	if brokers := v.GetString("kafka.brokers"); brokers != "" {
		s.KafkaBrokers = strings.Split(brokers, ",")
	}

	if s.FetchTimeout <= 0 {
		return Settings{}, errors.New("FLOODRISK_FETCH_TIMEOUT must be a positive duration")
	}
	if s.HistoryTimeout <= 0 {
		return Settings{}, errors.New("FLOODRISK_HISTORY_TIMEOUT must be a positive duration")
	}
	if !validLogLevels[s.LogLevel] {
		return Settings{}, fmt.Errorf("FLOODRISK_LOG_LEVEL %q must be one of debug, info, warn, error", s.LogLevel)
	}
	if s.LogFormat != "json" && s.LogFormat != "text" {
		return Settings{}, fmt.Errorf("FLOODRISK_LOG_FORMAT %q must be json or text", s.LogFormat)
	}
	if s.KafkaEnabled() && s.KafkaTopic == "" {
		return Settings{}, errors.New("FLOODRISK_KAFKA_BROKERS is set but FLOODRISK_KAFKA_TOPIC is empty")
	}

	return s, nil
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

func setDefaults(v *viper.Viper) {
	v.SetDefault("usgs.base_url", "https://waterservices.usgs.gov/nwis/iv/")
	v.SetDefault("usgs.daily_base_url", "https://waterservices.usgs.gov/nwis/dv/")
	v.SetDefault("nws.points_base_url", "https://api.weather.gov")
	v.SetDefault("fetch.timeout", "10s")
	v.SetDefault("history.timeout", "20s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "flood-risk-assessments")
	v.SetDefault("pushgateway.url", "")
	v.SetDefault("push.job", "floodrisk")
}

// weaklyTyped lets mapstructure coerce YAML scalars, so unquoted numeric
// site IDs decode into the string Gauge.ID field.
func weaklyTyped(dc *mapstructure.DecoderConfig) {
	dc.WeaklyTypedInput = true
}
