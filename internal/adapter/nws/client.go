// Package nws fetches quantitative precipitation forecasts from the
// National Weather Service gridpoint API. Resolution is two-step:
// coordinates resolve to a forecast grid via /points/{lat},{lon}, then the
// grid's forecastGridData endpoint carries the QPF series.
package nws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/couchcryptid/flood-risk-etl/internal/domain"
	"github.com/couchcryptid/flood-risk-etl/internal/observability"
)

// validTimeRe splits an NWS validTime like
// "2024-02-10T00:00:00+00:00/PT6H" into its start and duration halves.
var validTimeRe = regexp.MustCompile(`^(.+)/(P.+)$`)

// isoDurationRe matches the duration encodings NWS emits: days, hours, and
// minutes, e.g. "PT6H", "PT30M", "P1D", "P1DT6H".
var isoDurationRe = regexp.MustCompile(`^P(?:(\d+(?:\.\d+)?)D)?(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?)?$`)

// Gridpoint identifies the forecast grid covering a coordinate.
type Gridpoint struct {
	GridID      string `json:"grid_id"`
	GridX       int    `json:"grid_x"`
	GridY       int    `json:"grid_y"`
	ForecastURL string `json:"forecast_url"`
}

// Client queries the NWS API.
type Client struct {
	pointsBaseURL string
	httpClient    *http.Client
	metrics       *observability.Metrics
	logger        *slog.Logger
}

// NewClient creates an NWS client with a bounded request timeout.
func NewClient(pointsBaseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		pointsBaseURL: pointsBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// FetchForecast resolves the grid for a coordinate and returns its parsed
// precipitation forecast.
func (c *Client) FetchForecast(ctx context.Context, lat, lon float64) (domain.Forecast, error) {
	grid, err := c.ResolveGridpoint(ctx, lat, lon)
	if err != nil {
		return domain.Forecast{}, err
	}
	return c.FetchGridForecast(ctx, grid.ForecastURL)
}

// ResolveGridpoint resolves NWS grid metadata for a coordinate. Incomplete
// metadata (missing grid fields or forecast URL) is an error.
func (c *Client) ResolveGridpoint(ctx context.Context, lat, lon float64) (Gridpoint, error) {
	u := fmt.Sprintf("%s/points/%.4f,%.4f", c.pointsBaseURL, lat, lon)

	var payload pointsResponse
	if err := c.getJSON(ctx, u, "points", &payload); err != nil {
		return Gridpoint{}, err
	}

	p := payload.Properties
	if p.GridID == "" || p.GridX == nil || p.GridY == nil || p.ForecastGridData == "" {
		return Gridpoint{}, fmt.Errorf("nws: incomplete point metadata for (%.4f,%.4f)", lat, lon)
	}

	return Gridpoint{
		GridID:      p.GridID,
		GridX:       *p.GridX,
		GridY:       *p.GridY,
		ForecastURL: p.ForecastGridData,
	}, nil
}

// FetchGridForecast fetches a gridpoint endpoint and parses its QPF and
// probability-of-precipitation series. Entries with missing values or
// unparseable intervals are skipped; zero usable QPF periods is not an
// error, only a warning.
func (c *Client) FetchGridForecast(ctx context.Context, forecastURL string) (domain.Forecast, error) {
	var payload gridResponse
	if err := c.getJSON(ctx, forecastURL, "gridpoint", &payload); err != nil {
		return domain.Forecast{}, err
	}

	forecast := domain.Forecast{}
	for _, entry := range payload.Properties.QuantitativePrecipitation.Values {
		if entry.Value == nil {
			continue
		}
		start, duration, err := parseValidTime(entry.ValidTime)
		if err != nil {
			c.logger.Debug("skipping unparseable QPF interval", "valid_time", entry.ValidTime, "error", err)
			continue
		}
		forecast.QPF = append(forecast.QPF, domain.PrecipitationPeriod{
			Start:    start,
			Duration: duration,
			ValueMM:  *entry.Value,
		})
	}

	for _, entry := range payload.Properties.ProbabilityOfPrecipitation.Values {
		start, duration, err := parseValidTime(entry.ValidTime)
		if err != nil {
			continue
		}
		forecast.POP = append(forecast.POP, domain.ProbabilityPeriod{
			Start:    start,
			Duration: duration,
			Percent:  entry.Value,
		})
	}

	if len(forecast.QPF) == 0 {
		c.logger.Warn("no usable QPF periods in gridpoint forecast", "url", forecastURL)
	}
	return forecast, nil
}

func (c *Client) getJSON(ctx context.Context, fullURL, operation string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ProviderRequestDuration.WithLabelValues("nws", operation).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("nws %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("nws API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode nws response: %w", err)
	}
	return nil
}

// parseValidTime splits an NWS validity interval into its start instant and
// duration, normalizing the duration to a time.Duration.
func parseValidTime(validTime string) (time.Time, time.Duration, error) {
	m := validTimeRe.FindStringSubmatch(validTime)
	if m == nil {
		return time.Time{}, 0, fmt.Errorf("malformed validTime %q", validTime)
	}

	start, err := time.Parse(time.RFC3339, m[1])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("parse validTime start %q: %w", m[1], err)
	}

	duration, err := parseISODuration(m[2])
	if err != nil {
		return time.Time{}, 0, err
	}
	return start.UTC(), duration, nil
}

// parseISODuration converts an ISO-8601 duration with day/hour/minute
// components into hours. Seconds never appear in NWS QPF intervals.
func parseISODuration(s string) (time.Duration, error) {
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil || (m[1] == "" && m[2] == "" && m[3] == "") {
		return 0, fmt.Errorf("unsupported ISO-8601 duration %q", s)
	}

	var hours float64
	if m[1] != "" {
		days, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("parse duration days %q: %w", m[1], err)
		}
		hours += days * 24
	}
	if m[2] != "" {
		h, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return 0, fmt.Errorf("parse duration hours %q: %w", m[2], err)
		}
		hours += h
	}
	if m[3] != "" {
		minutes, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			return 0, fmt.Errorf("parse duration minutes %q: %w", m[3], err)
		}
		hours += minutes / 60
	}
	return time.Duration(hours * float64(time.Hour)), nil
}

// NWS API response types.

type pointsResponse struct {
	Properties struct {
		GridID           string `json:"gridId"`
		GridX            *int   `json:"gridX"`
		GridY            *int   `json:"gridY"`
		ForecastGridData string `json:"forecastGridData"`
	} `json:"properties"`
}

type gridResponse struct {
	Properties struct {
		QuantitativePrecipitation  gridLayer `json:"quantitativePrecipitation"`
		ProbabilityOfPrecipitation gridLayer `json:"probabilityOfPrecipitation"`
	} `json:"properties"`
}

type gridLayer struct {
	UOM    string      `json:"uom"`
	Values []gridValue `json:"values"`
}

type gridValue struct {
	ValidTime string   `json:"validTime"`
	Value     *float64 `json:"value"`
}
