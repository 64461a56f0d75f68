package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/seenimoa/yieldboard/internal/chart"
)

// ErrNotEnoughData is returned when a figure has too few points to span an
// axis.
var ErrNotEnoughData = errors.New("not enough data to render")

// PNG renders spec as a PNG image to w.
func PNG(w io.Writer, spec chart.Spec, opts Options) error {
	opts = opts.withDefaults()

	var graph gochart.Chart
	var err error
	if len(spec.Data) > 0 && spec.Data[0].Type == chart.TypeParcoords {
		graph, err = parcoordsChart(spec)
	} else {
		graph, err = lineChart(spec)
	}
	if err != nil {
		return err
	}

	graph.Title = spec.Layout.Title
	graph.Width = opts.Width
	graph.Height = opts.Height
	graph.Background = gochart.Style{Padding: gochart.Box{Top: opts.MarginTop, Left: 20, Right: 20, Bottom: 20}}
	if len(graph.Series) > 1 {
		graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}
	}

	if err := graph.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	return nil
}

func lineChart(spec chart.Spec) (gochart.Chart, error) {
	var series []gochart.Series
	distinct := make(map[time.Time]bool)
	minVal, maxVal := math.MaxFloat64, -math.MaxFloat64

	for i, tr := range spec.Data {
		ts := gochart.TimeSeries{
			Name: tr.Name,
			Style: gochart.Style{
				StrokeColor: gochart.GetDefaultColor(i),
				StrokeWidth: 2,
			},
		}
		for j, x := range tr.X {
			if j >= len(tr.Y) || math.IsNaN(tr.Y[j]) {
				continue
			}
			t := x.In(time.UTC)
			ts.XValues = append(ts.XValues, t)
			ts.YValues = append(ts.YValues, tr.Y[j])
			distinct[t] = true
			minVal = math.Min(minVal, tr.Y[j])
			maxVal = math.Max(maxVal, tr.Y[j])
		}
		if len(ts.XValues) > 0 {
			series = append(series, ts)
		}
	}
	if len(distinct) < 2 {
		return gochart.Chart{}, ErrNotEnoughData
	}

	graph := gochart.Chart{
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeValueFormatterWithFormat("2006-01-02"),
		},
		Series: series,
	}
	if maxVal-minVal < 0.001 {
		graph.YAxis.Range = &gochart.ContinuousRange{Min: minVal - 1, Max: maxVal + 1}
	}
	return graph, nil
}

func parcoordsChart(spec chart.Spec) (gochart.Chart, error) {
	tr := spec.Data[0]
	cs := gochart.ContinuousSeries{
		Style: gochart.Style{
			StrokeColor: gochart.ColorBlue,
			StrokeWidth: 2,
			DotColor:    gochart.ColorBlue,
			DotWidth:    4,
		},
	}
	var ticks []gochart.Tick
	var grid []gochart.GridLine
	lo, hi := chart.SnapshotRange[0], chart.SnapshotRange[1]
	for i, dim := range tr.Dimensions {
		x := float64(i)
		ticks = append(ticks, gochart.Tick{Value: x, Label: dim.Label})
		grid = append(grid, gochart.GridLine{Value: x})
		lo, hi = dim.Range[0], dim.Range[1]
		if len(dim.Values) == 0 {
			continue
		}
		cs.XValues = append(cs.XValues, x)
		cs.YValues = append(cs.YValues, dim.Values[0])
	}
	if len(cs.XValues) < 2 {
		return gochart.Chart{}, ErrNotEnoughData
	}

	return gochart.Chart{
		XAxis: gochart.XAxis{
			Ticks:          ticks,
			GridLines:      grid,
			GridMajorStyle: gochart.Style{StrokeColor: gochart.ColorBlack, StrokeWidth: 1},
			Range:          &gochart.ContinuousRange{Min: 0, Max: float64(len(tr.Dimensions) - 1)},
		},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: lo, Max: hi},
		},
		Series: []gochart.Series{cs},
	}, nil
}
