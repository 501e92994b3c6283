package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarjala/species-atlas/internal/chart"
)

func writeSpeedCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "speeds.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGetSpeedChart(t *testing.T) {
	c, e := newTestController(t)

	csv := "Animal,Average Speed (km/h),Diet\n" +
		"Cheetah,120,Carnivore\n" +
		",50,Herbivore\n" +
		"Ostrich,70,Omnivore\n"
	c.ChartLoader = chart.NewLoader(writeSpeedCSV(t, csv), 5*time.Second)

	ctx, rec := newJSONContext(e, http.MethodGet, "/api/v2/charts/speed", "", "curator")
	require.NoError(t, c.GetSpeedChart(ctx))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SpeedChartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 2, "blank-name row is dropped")
	assert.Equal(t, "Cheetah", resp.Rows[0].Name)
	assert.Equal(t, 3, resp.RowsTotal)
	assert.Equal(t, 1, resp.RowsDropped)
}

func TestGetSpeedChartSourceUnavailable(t *testing.T) {
	c, e := newTestController(t)
	c.ChartLoader = chart.NewLoader(filepath.Join(t.TempDir(), "missing.csv"), 5*time.Second)

	ctx, rec := newJSONContext(e, http.MethodGet, "/api/v2/charts/speed", "", "curator")
	require.NoError(t, c.GetSpeedChart(ctx))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetSpeedChartSVG(t *testing.T) {
	c, e := newTestController(t)

	csv := "Animal,Average Speed (km/h),Diet\nCheetah,120,Carnivore\n"
	c.ChartLoader = chart.NewLoader(writeSpeedCSV(t, csv), 5*time.Second)

	ctx, rec := newJSONContext(e, http.MethodGet, "/api/v2/charts/speed.svg", "", "curator")
	require.NoError(t, c.GetSpeedChartSVG(ctx))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Cheetah")
}

func TestGetSpeedChartSVGEmptyDataset(t *testing.T) {
	c, e := newTestController(t)

	csv := "Animal,Average Speed (km/h),Diet\n"
	c.ChartLoader = chart.NewLoader(writeSpeedCSV(t, csv), 5*time.Second)

	ctx, rec := newJSONContext(e, http.MethodGet, "/api/v2/charts/speed.svg", "", "curator")
	require.NoError(t, c.GetSpeedChartSVG(ctx))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}
