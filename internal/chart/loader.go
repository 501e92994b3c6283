// Package chart loads the animal speed dataset from CSV and renders it as a
// standalone SVG bar chart. The dataset is ephemeral: parsed per request and
// discarded afterwards.
package chart

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mkarjala/species-atlas/internal/errors"
	"github.com/mkarjala/species-atlas/internal/logging"
)

// Diet is the category used for bar coloring.
type Diet string

const (
	DietHerbivore Diet = "Herbivore"
	DietOmnivore  Diet = "Omnivore"
	DietCarnivore Diet = "Carnivore"
	DietUnknown   Diet = "Unknown"
)

// Expected CSV column headers.
const (
	columnAnimal = "Animal"
	columnSpeed  = "Average Speed (km/h)"
	columnDiet   = "Diet"
)

// Row is one parsed dataset entry.
type Row struct {
	Name  string  `json:"name"`
	Speed float64 `json:"speed"`
	Diet  Diet    `json:"diet"`
}

// LoadStats reports how parsing went, for metrics and logging.
type LoadStats struct {
	RowsTotal   int
	RowsDropped int
}

// Loader fetches and parses the speed CSV from an HTTP URL or a local file.
type Loader struct {
	Source string
	Client *http.Client
	logger *slog.Logger
}

// NewLoader creates a loader for the given source with the given fetch
// timeout applied to HTTP sources.
func NewLoader(source string, fetchTimeout time.Duration) *Loader {
	return &Loader{
		Source: source,
		Client: &http.Client{Timeout: fetchTimeout},
		logger: logging.ForService("chart"),
	}
}

// Load fetches the CSV and parses it into rows. Rows with a blank animal name
// or a non-finite speed are silently dropped per the chart contract.
func (l *Loader) Load(ctx context.Context) ([]Row, LoadStats, error) {
	reader, closer, err := l.open(ctx)
	if err != nil {
		return nil, LoadStats{}, err
	}
	defer func() {
		if closer != nil {
			_ = closer.Close()
		}
	}()

	rows, stats, err := Parse(reader)
	if err != nil {
		return nil, stats, err
	}
	if stats.RowsDropped > 0 {
		l.logger.Debug("Dropped malformed chart rows",
			"source", l.Source,
			"dropped", stats.RowsDropped,
			"total", stats.RowsTotal,
		)
	}
	return rows, stats, nil
}

func (l *Loader) open(ctx context.Context) (io.Reader, io.Closer, error) {
	if strings.HasPrefix(l.Source, "http://") || strings.HasPrefix(l.Source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.Source, http.NoBody)
		if err != nil {
			return nil, nil, errors.New(err).
				Category(errors.CategoryNetwork).
				Context("source", l.Source).
				Component("chart").
				Build()
		}
		resp, err := l.Client.Do(req)
		if err != nil {
			return nil, nil, errors.New(err).
				Category(errors.CategoryNetwork).
				Context("source", l.Source).
				Component("chart").
				Build()
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, nil, errors.Newf("unexpected status %d fetching chart data", resp.StatusCode).
				Category(errors.CategoryHTTP).
				Context("source", l.Source).
				Context("status", resp.StatusCode).
				Component("chart").
				Build()
		}
		return resp.Body, resp.Body, nil
	}

	file, err := os.Open(l.Source)
	if err != nil {
		return nil, nil, errors.New(err).
			Category(errors.CategoryFileParsing).
			Context("source", l.Source).
			Component("chart").
			Build()
	}
	return file, file, nil
}

// Parse reads CSV data with an Animal/Speed/Diet header and returns the valid
// rows. Column order is taken from the header, not assumed.
func Parse(r io.Reader) ([]Row, LoadStats, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			// An empty file is an empty dataset, not an error.
			return nil, LoadStats{}, nil
		}
		return nil, LoadStats{}, errors.New(err).
			Category(errors.CategoryFileParsing).
			Component("chart").
			Build()
	}

	nameIdx, speedIdx, dietIdx := -1, -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case columnAnimal:
			nameIdx = i
		case columnSpeed:
			speedIdx = i
		case columnDiet:
			dietIdx = i
		}
	}
	if nameIdx < 0 || speedIdx < 0 || dietIdx < 0 {
		return nil, LoadStats{}, errors.Newf("missing expected CSV columns, got header %v", header).
			Category(errors.CategoryFileParsing).
			Component("chart").
			Build()
	}

	var rows []Row
	stats := LoadStats{}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A malformed record is filtered like any other bad row.
			stats.RowsTotal++
			stats.RowsDropped++
			continue
		}
		stats.RowsTotal++

		name := strings.TrimSpace(record[nameIdx])
		speed, parseErr := strconv.ParseFloat(strings.TrimSpace(record[speedIdx]), 64)
		if name == "" || parseErr != nil || math.IsNaN(speed) || math.IsInf(speed, 0) {
			stats.RowsDropped++
			continue
		}

		rows = append(rows, Row{
			Name:  name,
			Speed: speed,
			Diet:  parseDiet(record[dietIdx]),
		})
	}
	return rows, stats, nil
}

func parseDiet(raw string) Diet {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "herbivore":
		return DietHerbivore
	case "omnivore":
		return DietOmnivore
	case "carnivore":
		return DietCarnivore
	default:
		return DietUnknown
	}
}
