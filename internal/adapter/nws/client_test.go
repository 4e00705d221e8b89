package nws

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-risk-etl/internal/observability"
)

func testClient(pointsBaseURL string) *Client {
	return NewClient(
		pointsBaseURL,
		5*time.Second,
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func geoJSONServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveGridpoint(t *testing.T) {
	srv := geoJSONServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/points/38.5816,-121.4944", r.URL.Path)
		fmt.Fprint(w, `{"properties": {
			"gridId": "STO",
			"gridX": 40,
			"gridY": 65,
			"forecastGridData": "https://api.weather.gov/gridpoints/STO/40,65"
		}}`)
	})

	c := testClient(srv.URL)
	grid, err := c.ResolveGridpoint(context.Background(), 38.5816, -121.4944)
	require.NoError(t, err)

	assert.Equal(t, "STO", grid.GridID)
	assert.Equal(t, 40, grid.GridX)
	assert.Equal(t, 65, grid.GridY)
	assert.Equal(t, "https://api.weather.gov/gridpoints/STO/40,65", grid.ForecastURL)
}

func TestResolveGridpoint_IncompleteMetadata(t *testing.T) {
	srv := geoJSONServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"properties": {"gridId": "STO"}}`)
	})

	c := testClient(srv.URL)
	_, err := c.ResolveGridpoint(context.Background(), 38.5816, -121.4944)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete point metadata")
}

func TestFetchGridForecast_ParsesPeriods(t *testing.T) {
	srv := geoJSONServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"properties": {
			"quantitativePrecipitation": {"uom": "wmoUnit:mm", "values": [
				{"validTime": "2024-02-10T00:00:00+00:00/PT6H", "value": 4.0},
				{"validTime": "2024-02-10T06:00:00+00:00/PT30M", "value": 1.5},
				{"validTime": "2024-02-11T00:00:00+00:00/P1D", "value": 12.0},
				{"validTime": "2024-02-12T00:00:00+00:00/PT6H", "value": null},
				{"validTime": "garbage", "value": 3.0}
			]},
			"probabilityOfPrecipitation": {"uom": "wmoUnit:percent", "values": [
				{"validTime": "2024-02-10T00:00:00+00:00/PT12H", "value": 70}
			]}
		}}`)
	})

	c := testClient(srv.URL)
	fc, err := c.FetchGridForecast(context.Background(), srv.URL+"/gridpoints/STO/40,65")
	require.NoError(t, err)

	require.Len(t, fc.QPF, 3, "null value and malformed interval are skipped")
	assert.Equal(t, time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC), fc.QPF[0].Start)
	assert.Equal(t, 6*time.Hour, fc.QPF[0].Duration)
	assert.Equal(t, 4.0, fc.QPF[0].ValueMM)
	assert.Equal(t, 30*time.Minute, fc.QPF[1].Duration)
	assert.Equal(t, 24*time.Hour, fc.QPF[2].Duration)

	require.Len(t, fc.POP, 1)
	assert.Equal(t, 12*time.Hour, fc.POP[0].Duration)
	require.NotNil(t, fc.POP[0].Percent)
	assert.Equal(t, 70.0, *fc.POP[0].Percent)
}

func TestFetchGridForecast_NoUsablePeriods(t *testing.T) {
	srv := geoJSONServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"properties": {
			"quantitativePrecipitation": {"values": [
				{"validTime": "2024-02-10T00:00:00+00:00/PT6H", "value": null}
			]},
			"probabilityOfPrecipitation": {"values": []}
		}}`)
	})

	c := testClient(srv.URL)
	fc, err := c.FetchGridForecast(context.Background(), srv.URL+"/gridpoints/STO/40,65")
	require.NoError(t, err, "empty forecast is degraded data, not a failure")
	assert.Empty(t, fc.QPF)
	assert.Empty(t, fc.POP)
}

func TestFetchGridForecast_ServerError(t *testing.T) {
	srv := geoJSONServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	})

	c := testClient(srv.URL)
	_, err := c.FetchGridForecast(context.Background(), srv.URL+"/gridpoints/STO/40,65")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestFetchForecast_ResolvesThenFetches(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/points/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"properties": {
			"gridId": "STO", "gridX": 40, "gridY": 65,
			"forecastGridData": "%s/gridpoints/STO/40,65"
		}}`, srv.URL)
	})
	mux.HandleFunc("/gridpoints/STO/40,65", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"properties": {
			"quantitativePrecipitation": {"values": [
				{"validTime": "2024-02-10T00:00:00+00:00/PT6H", "value": 2.5}
			]},
			"probabilityOfPrecipitation": {"values": []}
		}}`)
	})

	c := testClient(srv.URL)
	fc, err := c.FetchForecast(context.Background(), 38.5816, -121.4944)
	require.NoError(t, err)
	require.Len(t, fc.QPF, 1)
	assert.Equal(t, 2.5, fc.QPF[0].ValueMM)
}

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "PT6H", want: 6 * time.Hour},
		{in: "PT30M", want: 30 * time.Minute},
		{in: "P1D", want: 24 * time.Hour},
		{in: "P1DT6H", want: 30 * time.Hour},
		{in: "PT1H30M", want: 90 * time.Minute},
		{in: "P", wantErr: true},
		{in: "6H", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseISODuration(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
