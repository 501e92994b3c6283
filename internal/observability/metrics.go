// Package observability wires Prometheus metrics for the HTTP surface and the
// domain operations worth watching.
package observability

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the shared metrics instance handed to the server and API.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SpeciesWritesTotal  *prometheus.CounterVec
	ChartRowsTotal      prometheus.Counter
	ChartRowsDropped    prometheus.Counter
}

// NewMetrics creates and registers all collectors on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "species_atlas_http_requests_total",
			Help: "Total HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "species_atlas_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		SpeciesWritesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "species_atlas_species_writes_total",
			Help: "Species create/update operations by outcome.",
		}, []string{"operation", "outcome"}),
		ChartRowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "species_atlas_chart_rows_total",
			Help: "CSV rows seen while building the speed chart.",
		}),
		ChartRowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "species_atlas_chart_rows_dropped_total",
			Help: "CSV rows dropped for a blank name or bad speed.",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SpeciesWritesTotal,
		m.ChartRowsTotal,
		m.ChartRowsDropped,
	)
	return m
}

// Handler returns an echo handler serving the metrics endpoint.
func (m *Metrics) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}

// Middleware records request counts and latency per route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)

			m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
			m.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// RecordSpeciesWrite counts a create/update attempt and its outcome.
func (m *Metrics) RecordSpeciesWrite(operation string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.SpeciesWritesTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordChartRows accounts for one chart parse pass.
func (m *Metrics) RecordChartRows(total, dropped int) {
	m.ChartRowsTotal.Add(float64(total))
	m.ChartRowsDropped.Add(float64(dropped))
}
