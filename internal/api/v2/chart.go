// internal/api/v2/chart.go
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mkarjala/species-atlas/internal/chart"
)

// SpeedChartResponse carries the animal speed dataset plus load statistics.
type SpeedChartResponse struct {
	Rows        []chart.Row `json:"rows"`
	RowsTotal   int         `json:"rows_total"`
	RowsDropped int         `json:"rows_dropped"`
}

// initChartRoutes registers chart data endpoints
func (c *Controller) initChartRoutes() {
	group := c.Group.Group("/charts", c.GetAuthMiddleware())
	group.GET("/speed", c.GetSpeedChart)
	group.GET("/speed.svg", c.GetSpeedChartSVG)
}

// GetSpeedChart handles GET /api/v2/charts/speed and returns the filtered
// dataset as JSON.
func (c *Controller) GetSpeedChart(ctx echo.Context) error {
	rows, stats, err := c.loadSpeedRows(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load speed data", http.StatusBadGateway)
	}

	return ctx.JSON(http.StatusOK, SpeedChartResponse{
		Rows:        rows,
		RowsTotal:   stats.RowsTotal,
		RowsDropped: stats.RowsDropped,
	})
}

// GetSpeedChartSVG handles GET /api/v2/charts/speed.svg and returns the
// rendered chart. An empty dataset yields an empty 204 response.
func (c *Controller) GetSpeedChartSVG(ctx echo.Context) error {
	rows, _, err := c.loadSpeedRows(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load speed data", http.StatusBadGateway)
	}

	svg := chart.RenderSVG(rows)
	if svg == "" {
		return ctx.NoContent(http.StatusNoContent)
	}

	return ctx.Blob(http.StatusOK, "image/svg+xml", []byte(svg))
}

func (c *Controller) loadSpeedRows(ctx echo.Context) ([]chart.Row, chart.LoadStats, error) {
	if c.ChartLoader == nil {
		return nil, chart.LoadStats{}, nil
	}

	rows, stats, err := c.ChartLoader.Load(ctx.Request().Context())
	if err != nil {
		return nil, stats, err
	}

	if c.metrics != nil {
		c.metrics.RecordChartRows(stats.RowsTotal, stats.RowsDropped)
	}

	return rows, stats, nil
}
