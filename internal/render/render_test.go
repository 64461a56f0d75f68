package render

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/yieldboard/internal/chart"
	"github.com/seenimoa/yieldboard/internal/series"
)

func testTables(t *testing.T) *series.Tables {
	t.Helper()
	start := civil.Date{Year: 2000, Month: 12, Day: 15}
	var levels []series.LevelRow
	var spreads []series.SpreadRow
	for i := 0; i < 10; i++ {
		d := start.AddDays(i)
		f := float64(i) / 10
		levels = append(levels, series.LevelRow{Date: d, PolicyRate: 6.5 - f, T3M: 6 - f, T2Y: 5.4, T5Y: 5.2 + f, T10Y: 5.3, T30Y: 5.5})
		spreads = append(spreads, series.SpreadRow{Date: d, TEDSpread: 0.5 + f, Spread3M10Y: -0.6, Spread2Y10Y: -0.1, SpreadBaa10Y: 2.4})
	}
	return series.NewTables(levels, spreads)
}

func TestSVGHistory(t *testing.T) {
	spec := chart.History(testTables(t), series.DateRange{})
	svg := SVG(spec, Options{})

	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.True(t, strings.HasSuffix(svg, "</svg>"))
	assert.Contains(t, svg, "US Yield")
	for _, f := range series.LevelFields {
		assert.Contains(t, svg, ">"+f+"<")
	}
	assert.Equal(t, 6, strings.Count(svg, "<path"))
	assert.Contains(t, svg, "2000-12-15")
}

func TestSVGSinglePoint(t *testing.T) {
	d := civil.Date{Year: 2000, Month: 12, Day: 18}
	spec := chart.History(testTables(t), series.DateRange{Start: d, End: d})
	svg := SVG(spec, DefaultOptions())
	assert.Equal(t, 6, strings.Count(svg, "<circle"))
	assert.NotContains(t, svg, "<path")
}

func TestSVGEmpty(t *testing.T) {
	spec := chart.History(testTables(t), series.DateRange{Start: civil.Date{Year: 2030, Month: 1, Day: 1}})
	svg := SVG(spec, Options{Width: 300, Height: 100})
	assert.Contains(t, svg, "No data")
	assert.Contains(t, svg, `width="300"`)
}

func TestSVGSnapshot(t *testing.T) {
	spec := chart.Snapshot(testTables(t), chart.DefaultSnapshotDate)
	svg := SVG(spec, Options{})

	assert.Contains(t, svg, "Yield Curve Date: 2000-12-18")
	for _, ax := range chart.SnapshotAxes {
		assert.Contains(t, svg, ax.Label)
	}
	assert.Equal(t, 1, strings.Count(svg, "<path"))
	assert.Contains(t, svg, `stroke="blue"`)

	missing := chart.Snapshot(testTables(t), civil.Date{Year: 1999, Month: 1, Day: 1})
	assert.NotContains(t, SVG(missing, Options{}), "<path")
}

func TestSVGEscapesText(t *testing.T) {
	spec := chart.Spec{
		Data:   []chart.Trace{{Type: chart.TypeScatter, Name: "a<b", X: []civil.Date{{Year: 2000, Month: 1, Day: 1}}, Y: []float64{1}}},
		Layout: chart.Layout{Title: `"T&C"`},
	}
	svg := SVG(spec, Options{})
	assert.Contains(t, svg, "a&lt;b")
	assert.Contains(t, svg, "&quot;T&amp;C&quot;")
}

func TestPNGHistoryAndSpread(t *testing.T) {
	tables := testTables(t)

	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, chart.History(tables, series.DateRange{}), Options{Width: 640, Height: 320}))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 320, img.Bounds().Dy())

	spec, err := chart.Spread(tables, series.FieldSpread3M10Y)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, PNG(&buf, spec, Options{}), "flat series still renders")
	_, err = png.Decode(&buf)
	require.NoError(t, err)
}

func TestPNGSnapshot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, chart.Snapshot(testTables(t), chart.DefaultSnapshotDate), Options{}))
	_, err := png.Decode(&buf)
	require.NoError(t, err)
}

func TestPNGNotEnoughData(t *testing.T) {
	tables := testTables(t)
	d := civil.Date{Year: 2000, Month: 12, Day: 18}

	var buf bytes.Buffer
	err := PNG(&buf, chart.History(tables, series.DateRange{Start: d, End: d}), Options{})
	assert.ErrorIs(t, err, ErrNotEnoughData)

	err = PNG(&buf, chart.Snapshot(tables, civil.Date{Year: 1999, Month: 1, Day: 1}), Options{})
	assert.ErrorIs(t, err, ErrNotEnoughData)

	err = PNG(&buf, chart.Spec{}, Options{})
	assert.ErrorIs(t, err, ErrNotEnoughData)
}
