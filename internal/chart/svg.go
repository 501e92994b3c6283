// svg.go: server-side SVG rendering of the speed bar chart. One bar per
// animal on a categorical axis, height proportional to speed on a linear axis
// with a nice upper bound, fill keyed to diet, plus a legend.
package chart

import (
	"fmt"
	"html"
	"strings"
)

// Chart geometry. Margins leave room for axis labels and the legend.
const (
	chartWidth   = 860
	chartHeight  = 420
	marginTop    = 24
	marginRight  = 140
	marginBottom = 72
	marginLeft   = 56
	bandPadding  = 0.25
	tickTarget   = 6
)

// dietColors keys bar fill to the diet enumeration.
var dietColors = map[Diet]string{
	DietHerbivore: "#4caf50",
	DietOmnivore:  "#ff9800",
	DietCarnivore: "#e53935",
	DietUnknown:   "#9e9e9e",
}

// legendOrder fixes the legend entries independent of dataset order.
var legendOrder = []Diet{DietHerbivore, DietOmnivore, DietCarnivore}

// RenderSVG renders the dataset as a standalone SVG document. An empty
// dataset renders nothing: the empty string, no error.
func RenderSVG(rows []Row) string {
	if len(rows) == 0 {
		return ""
	}

	maxSpeed := 0.0
	for _, row := range rows {
		if row.Speed > maxSpeed {
			maxSpeed = row.Speed
		}
	}

	plotWidth := float64(chartWidth - marginLeft - marginRight)
	plotHeight := float64(chartHeight - marginTop - marginBottom)
	y := NewLinearScale(maxSpeed, tickTarget)
	x := NewBandScale(len(rows), plotWidth, bandPadding)

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-label="Average animal speeds">`,
		chartWidth, chartHeight)
	b.WriteString("\n")

	// Gridlines and y-axis tick labels.
	for _, tick := range y.Tick {
		ty := marginTop + plotHeight*(1-y.Position(tick))
		fmt.Fprintf(&b, `<line x1="%d" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#ddd"/>`,
			marginLeft, ty, float64(marginLeft)+plotWidth, ty)
		b.WriteString("\n")
		fmt.Fprintf(&b, `<text x="%d" y="%.1f" text-anchor="end" dominant-baseline="middle" font-size="11" fill="#555">%s</text>`,
			marginLeft-8, ty, formatTick(tick))
		b.WriteString("\n")
	}

	// Bars and x-axis labels.
	for i, row := range rows {
		barHeight := plotHeight * y.Position(row.Speed)
		barX := float64(marginLeft) + x.Position(i)
		barY := marginTop + plotHeight - barHeight

		fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"><title>%s: %s km/h</title></rect>`,
			barX, barY, x.BandWidth, barHeight, dietColors[row.Diet],
			html.EscapeString(row.Name), formatTick(row.Speed))
		b.WriteString("\n")

		labelX := barX + x.BandWidth/2
		labelY := marginTop + plotHeight + 12
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" text-anchor="end" font-size="11" fill="#333" transform="rotate(-40 %.1f %.1f)">%s</text>`,
			labelX, labelY, labelX, labelY, html.EscapeString(row.Name))
		b.WriteString("\n")
	}

	// Axis label.
	fmt.Fprintf(&b, `<text x="%d" y="%d" text-anchor="middle" font-size="12" fill="#333" transform="rotate(-90 14 %d)">Average Speed (km/h)</text>`,
		14, chartHeight/2, chartHeight/2)
	b.WriteString("\n")

	// Legend.
	legendX := float64(chartWidth - marginRight + 16)
	for i, diet := range legendOrder {
		ly := float64(marginTop + i*22)
		fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="14" height="14" fill="%s"/>`, legendX, ly, dietColors[diet])
		b.WriteString("\n")
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-size="12" fill="#333">%s</text>`, legendX+20, ly+11, diet)
		b.WriteString("\n")
	}

	b.WriteString("</svg>\n")
	return b.String()
}

// formatTick renders numbers without trailing zeros.
func formatTick(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	s = strings.TrimSuffix(s, ".0")
	return s
}
