// Package render draws chart figures as static images: SVG in pure Go and
// PNG through go-chart.
package render

import (
	"fmt"
	"math"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/seenimoa/yieldboard/internal/chart"
)

// Options holds rendering parameters.
type Options struct {
	Width        int    // image width in pixels (default: 800)
	Height       int    // image height in pixels (default: 400)
	MarginTop    int    // top margin (default: 40)
	MarginRight  int    // right margin (default: 60)
	MarginBottom int    // bottom margin (default: 50)
	MarginLeft   int    // left margin (default: 70)
	BgColor      string // background color
	GridColor    string // grid line color
	TextColor    string // axis label color
	FontSize     int    // axis label font size
}

// DefaultOptions returns the dashboard's rendering defaults.
func DefaultOptions() Options {
	return Options{
		Width:        800,
		Height:       400,
		MarginTop:    40,
		MarginRight:  60,
		MarginBottom: 50,
		MarginLeft:   70,
		BgColor:      "#ffffff",
		GridColor:    "#e8e8e8",
		TextColor:    "#333333",
		FontSize:     11,
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width == 0 {
		o.Width = d.Width
	}
	if o.Height == 0 {
		o.Height = d.Height
	}
	if o.MarginTop == 0 {
		o.MarginTop = d.MarginTop
	}
	if o.MarginRight == 0 {
		o.MarginRight = d.MarginRight
	}
	if o.MarginBottom == 0 {
		o.MarginBottom = d.MarginBottom
	}
	if o.MarginLeft == 0 {
		o.MarginLeft = d.MarginLeft
	}
	if o.BgColor == "" {
		o.BgColor = d.BgColor
	}
	if o.GridColor == "" {
		o.GridColor = d.GridColor
	}
	if o.TextColor == "" {
		o.TextColor = d.TextColor
	}
	if o.FontSize == 0 {
		o.FontSize = d.FontSize
	}
	return o
}

// plotArea returns the usable drawing area dimensions.
func (o Options) plotArea() (x, y, w, h int) {
	return o.MarginLeft, o.MarginTop,
		o.Width - o.MarginLeft - o.MarginRight,
		o.Height - o.MarginTop - o.MarginBottom
}

var seriesColors = []string{"#2196f3", "#ff9800", "#4caf50", "#e91e63", "#9c27b0", "#00bcd4"}

// SVG renders spec. Parallel-coordinates figures become vertical axes joined
// by one polyline; everything else is drawn as a date-indexed line chart.
func SVG(spec chart.Spec, opts Options) string {
	opts = opts.withDefaults()
	if len(spec.Data) > 0 && spec.Data[0].Type == chart.TypeParcoords {
		return parcoordsSVG(spec, opts)
	}
	return lineSVG(spec, opts)
}

func lineSVG(spec chart.Spec, opts Options) string {
	var minDate, maxDate civil.Date
	minVal, maxVal := math.MaxFloat64, -math.MaxFloat64
	points := 0
	for _, tr := range spec.Data {
		for i, x := range tr.X {
			if i >= len(tr.Y) || math.IsNaN(tr.Y[i]) {
				continue
			}
			if points == 0 || x.Before(minDate) {
				minDate = x
			}
			if points == 0 || x.After(maxDate) {
				maxDate = x
			}
			minVal = math.Min(minVal, tr.Y[i])
			maxVal = math.Max(maxVal, tr.Y[i])
			points++
		}
	}
	if points == 0 {
		return emptySVG(opts, "No data")
	}

	px, py, pw, ph := opts.plotArea()
	span := maxDate.DaysSince(minDate)
	xOf := func(d civil.Date) float64 {
		if span == 0 {
			return float64(px) + float64(pw)/2
		}
		return float64(px) + float64(d.DaysSince(minDate))*float64(pw)/float64(span)
	}

	vRange := maxVal - minVal
	if vRange < 0.001 {
		vRange = 1
	}
	minVal -= vRange * 0.05
	maxVal += vRange * 0.05
	vRange = maxVal - minVal
	yOf := func(v float64) float64 {
		return float64(py+ph) - (v-minVal)/vRange*float64(ph)
	}

	var sb strings.Builder
	sb.WriteString(svgHeader(opts))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		opts.Width, opts.Height, opts.BgColor))
	writeTitle(&sb, opts, spec.Layout.Title)

	gridLines := 5
	for i := 0; i <= gridLines; i++ {
		val := minVal + vRange*float64(i)/float64(gridLines)
		y := py + ph - int(float64(ph)*float64(i)/float64(gridLines))
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-dasharray="3,3"/>`,
			px, y, px+pw, y, opts.GridColor))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="%d" fill="%s" text-anchor="end">%.2f</text>`,
			px-5, y+4, opts.FontSize, opts.TextColor, val))
	}

	for si, tr := range spec.Data {
		color := seriesColors[si%len(seriesColors)]
		if tr.Line != nil && tr.Line.Color != "" {
			color = tr.Line.Color
		}

		var path []string
		for i, x := range tr.X {
			if i >= len(tr.Y) || math.IsNaN(tr.Y[i]) {
				continue
			}
			cmd := "L"
			if len(path) == 0 {
				cmd = "M"
			}
			path = append(path, fmt.Sprintf("%s%.1f,%.1f", cmd, xOf(x), yOf(tr.Y[i])))
		}
		switch {
		case len(path) > 1:
			sb.WriteString(fmt.Sprintf(`<path d="%s" fill="none" stroke="%s" stroke-width="2"/>`,
				strings.Join(path, " "), color))
		case len(path) == 1:
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="3" fill="%s"/>`,
				xOf(tr.X[0]), yOf(tr.Y[0]), color))
		}

		ly := py + 10 + si*16
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="2"/>`,
			px+10, ly, px+30, ly, color))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="10" fill="%s">%s</text>`,
			px+35, ly+4, opts.TextColor, escapeXML(tr.Name)))
	}

	labels := []civil.Date{minDate}
	if span > 0 {
		labels = labels[:0]
		for i := 0; i <= 5; i++ {
			labels = append(labels, minDate.AddDays(span*i/5))
		}
	}
	for _, d := range labels {
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
			xOf(d), py+ph+18, opts.FontSize-1, opts.TextColor, d))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func parcoordsSVG(spec chart.Spec, opts Options) string {
	tr := spec.Data[0]
	if len(tr.Dimensions) == 0 {
		return emptySVG(opts, "No axes")
	}

	px, py, pw, ph := opts.plotArea()
	n := len(tr.Dimensions)
	xOf := func(i int) float64 {
		if n == 1 {
			return float64(px) + float64(pw)/2
		}
		return float64(px) + float64(i)*float64(pw)/float64(n-1)
	}

	var sb strings.Builder
	sb.WriteString(svgHeader(opts))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		opts.Width, opts.Height, opts.BgColor))
	writeTitle(&sb, opts, spec.Layout.Title)

	var path []string
	for i, dim := range tr.Dimensions {
		x := xOf(i)
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%d" x2="%.1f" y2="%d" stroke="%s" stroke-width="1"/>`,
			x, py, x, py+ph, opts.TextColor))
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
			x, py+ph+18, opts.FontSize, opts.TextColor, escapeXML(dim.Label)))
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%g</text>`,
			x, py-6, opts.FontSize-1, opts.TextColor, dim.Range[1]))
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%g</text>`,
			x, py+ph+32, opts.FontSize-1, opts.TextColor, dim.Range[0]))

		if len(dim.Values) == 0 {
			continue
		}
		lo, hi := dim.Range[0], dim.Range[1]
		if hi <= lo {
			hi = lo + 1
		}
		v := math.Max(lo, math.Min(hi, dim.Values[0]))
		y := float64(py+ph) - (v-lo)/(hi-lo)*float64(ph)
		cmd := "L"
		if len(path) == 0 {
			cmd = "M"
		}
		path = append(path, fmt.Sprintf("%s%.1f,%.1f", cmd, x, y))
	}

	color := chart.SnapshotLineColor
	if tr.Line != nil && tr.Line.Color != "" {
		color = tr.Line.Color
	}
	if len(path) > 1 {
		sb.WriteString(fmt.Sprintf(`<path d="%s" fill="none" stroke="%s" stroke-width="2"/>`,
			strings.Join(path, " "), color))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func writeTitle(sb *strings.Builder, opts Options, title string) {
	if title == "" {
		return
	}
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		opts.Width/2, opts.TextColor, escapeXML(title)))
}

func svgHeader(opts Options) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		opts.Width, opts.Height, opts.Width, opts.Height)
}

func emptySVG(opts Options, msg string) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		opts.Width, opts.Height, opts.Width, opts.Height, opts.Width/2, opts.Height/2, escapeXML(msg))
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}
