// scale.go: axis scale computation for the speed chart. The linear y-scale
// uses a "nice" upper bound so the top gridline lands on a round number.
package chart

import "math"

// LinearScale maps data values onto a pixel range with a nice upper bound.
type LinearScale struct {
	Max  float64   // nice upper bound, >= the data maximum
	Step float64   // tick spacing
	Tick []float64 // tick values from 0 to Max inclusive
}

// NewLinearScale builds a scale for data values in [0, max] with roughly the
// requested tick count. A non-positive max yields a degenerate scale.
func NewLinearScale(max float64, tickCount int) LinearScale {
	if max <= 0 || math.IsNaN(max) || math.IsInf(max, 0) {
		return LinearScale{}
	}
	if tickCount < 2 {
		tickCount = 2
	}

	step := niceStep(max / float64(tickCount-1))
	niceMax := math.Ceil(max/step) * step

	scale := LinearScale{Max: niceMax, Step: step}
	for v := 0.0; v <= niceMax+step/2; v += step {
		scale.Tick = append(scale.Tick, v)
	}
	return scale
}

// Position maps a value to a fraction of the axis length in [0, 1].
func (s LinearScale) Position(v float64) float64 {
	if s.Max <= 0 {
		return 0
	}
	p := v / s.Max
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// niceStep rounds the raw step up to the nearest 1, 2 or 5 times a power of
// ten, the conventional tick progression.
func niceStep(raw float64) float64 {
	if raw <= 0 {
		return 1
	}
	magnitude := math.Pow(10, math.Floor(math.Log10(raw)))
	normalized := raw / magnitude
	switch {
	case normalized <= 1:
		return magnitude
	case normalized <= 2:
		return 2 * magnitude
	case normalized <= 5:
		return 5 * magnitude
	default:
		return 10 * magnitude
	}
}

// BandScale lays out categorical bars across a pixel width with inner
// padding, mirroring a d3-style band scale.
type BandScale struct {
	Width     float64 // total axis width in pixels
	BandWidth float64 // width of one bar
	step      float64
	offset    float64
}

// NewBandScale computes a band layout for n categories. padding is the
// fraction of each step left empty, clamped to [0, 0.9].
func NewBandScale(n int, width, padding float64) BandScale {
	if n <= 0 || width <= 0 {
		return BandScale{}
	}
	padding = math.Max(0, math.Min(padding, 0.9))

	step := width / float64(n)
	band := step * (1 - padding)
	return BandScale{
		Width:     width,
		BandWidth: band,
		step:      step,
		offset:    (step - band) / 2,
	}
}

// Position returns the left pixel edge of band i.
func (b BandScale) Position(i int) float64 {
	return float64(i)*b.step + b.offset
}
