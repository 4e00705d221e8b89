// Package usgs fetches river telemetry from the USGS Water Services APIs:
// the instantaneous-values service for current stage and discharge, and the
// daily-values service for historical archives.
package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/couchcryptid/flood-risk-etl/internal/domain"
	"github.com/couchcryptid/flood-risk-etl/internal/history"
	"github.com/couchcryptid/flood-risk-etl/internal/observability"
)

// USGS parameter codes: 00065 is gage height in feet, 00060 is discharge in
// cubic feet per second.
const (
	paramStage     = "00065"
	paramDischarge = "00060"
	paramCodes     = paramDischarge + "," + paramStage
)

// Client queries the USGS Water Services APIs.
type Client struct {
	baseURL      string // instantaneous-values service
	dailyBaseURL string // daily-values service
	httpClient   *http.Client
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewClient creates a USGS client with a bounded request timeout.
func NewClient(baseURL, dailyBaseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:      baseURL,
		dailyBaseURL: dailyBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// FetchObservation retrieves the most recent stage and discharge reading
// for a site. A parameter absent from the response leaves the matching
// field nil; a response with no time series at all is an error.
func (c *Client) FetchObservation(ctx context.Context, siteID string) (domain.StageObservation, error) {
	params := url.Values{
		"sites":       {siteID},
		"parameterCd": {paramCodes},
		"format":      {"json"},
		"siteStatus":  {"all"},
	}

	var payload ivResponse
	if err := c.getJSON(ctx, c.baseURL+"?"+params.Encode(), "observation", &payload); err != nil {
		return domain.StageObservation{}, err
	}

	if len(payload.Value.TimeSeries) == 0 {
		return domain.StageObservation{}, fmt.Errorf("usgs: no time series for site %s", siteID)
	}

	obs := domain.StageObservation{GaugeID: siteID}
	for _, series := range payload.Value.TimeSeries {
		code := series.parameterCode()
		if code != paramStage && code != paramDischarge {
			continue
		}

		sample, ok := latestSample(series)
		if !ok {
			continue
		}
		if sample.at.After(obs.Timestamp) {
			obs.Timestamp = sample.at
		}

		value := sample.value
		switch code {
		case paramStage:
			obs.StageFt = &value
		case paramDischarge:
			obs.DischargeCFS = &value
		}
	}

	c.logger.Debug("usgs observation fetched",
		"site", siteID,
		"stage_ft", obs.StageFt,
		"discharge_cfs", obs.DischargeCFS,
	)
	return obs, nil
}

// FetchDailyHistory retrieves daily stage/discharge values for a site over
// [start, end], merging the two parameters by date.
func (c *Client) FetchDailyHistory(ctx context.Context, siteID string, start, end time.Time) ([]history.DailyReading, error) {
	params := url.Values{
		"sites":       {siteID},
		"parameterCd": {paramCodes},
		"format":      {"json"},
		"startDT":     {start.Format("2006-01-02")},
		"endDT":       {end.Format("2006-01-02")},
	}

	var payload ivResponse
	if err := c.getJSON(ctx, c.dailyBaseURL+"?"+params.Encode(), "daily_history", &payload); err != nil {
		return nil, err
	}

	byDate := make(map[time.Time]*history.DailyReading)
	for _, series := range payload.Value.TimeSeries {
		code := series.parameterCode()
		if code != paramStage && code != paramDischarge {
			continue
		}
		for _, block := range series.Values {
			for _, s := range block.Value {
				at, err := parseTimestamp(s.DateTime)
				if err != nil {
					continue
				}
				value, err := strconv.ParseFloat(s.Value, 64)
				if err != nil {
					continue
				}
				date := at.Truncate(24 * time.Hour)
				reading, ok := byDate[date]
				if !ok {
					reading = &history.DailyReading{Date: date}
					byDate[date] = reading
				}
				v := value
				switch code {
				case paramStage:
					reading.StageFt = &v
				case paramDischarge:
					reading.DischargeCFS = &v
				}
			}
		}
	}

	readings := make([]history.DailyReading, 0, len(byDate))
	for _, r := range byDate {
		readings = append(readings, *r)
	}
	sort.Slice(readings, func(i, j int) bool { return readings[i].Date.Before(readings[j].Date) })

	if len(readings) == 0 {
		c.logger.Warn("no daily history rows parsed", "site", siteID)
	}
	return readings, nil
}

func (c *Client) getJSON(ctx context.Context, fullURL, operation string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ProviderRequestDuration.WithLabelValues("usgs", operation).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("usgs %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("usgs API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode usgs response: %w", err)
	}
	return nil
}

// timedSample is a parsed {value, timestamp} pair.
type timedSample struct {
	value float64
	at    time.Time
}

// latestSample selects the chronologically latest parseable sample across
// all value blocks of a series. Selection is by timestamp rather than array
// position so upstream ordering does not matter; a sample without a
// parseable timestamp is used only when no timestamped sample exists.
func latestSample(series timeSeries) (timedSample, bool) {
	var best timedSample
	var fallback *float64
	found := false

	for _, block := range series.Values {
		for _, s := range block.Value {
			value, err := strconv.ParseFloat(s.Value, 64)
			if err != nil {
				continue
			}
			at, err := parseTimestamp(s.DateTime)
			if err != nil {
				v := value
				fallback = &v
				continue
			}
			if !found || at.After(best.at) {
				best = timedSample{value: value, at: at}
				found = true
			}
		}
	}

	if found {
		return best, true
	}
	if fallback != nil {
		return timedSample{value: *fallback}, true
	}
	return timedSample{}, false
}

// timestampLayouts covers the instantaneous-values service (RFC3339 with
// offset) and the daily-values service (no offset, midnight local).
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if at, err := time.Parse(layout, s); err == nil {
			return at.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// USGS Water Services response types.

type ivResponse struct {
	Value struct {
		TimeSeries []timeSeries `json:"timeSeries"`
	} `json:"value"`
}

type timeSeries struct {
	Variable struct {
		VariableCode []struct {
			Value string `json:"value"`
		} `json:"variableCode"`
	} `json:"variable"`
	Values []struct {
		Value []sample `json:"value"`
	} `json:"values"`
}

func (s timeSeries) parameterCode() string {
	if len(s.Variable.VariableCode) == 0 {
		return ""
	}
	return s.Variable.VariableCode[0].Value
}

type sample struct {
	Value    string `json:"value"`
	DateTime string `json:"dateTime"`
}
