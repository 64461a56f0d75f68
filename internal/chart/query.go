package chart

import (
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/seenimoa/yieldboard/internal/series"
)

const (
	// HistoryTitle titles the historical rates chart.
	HistoryTitle = "US Yield"

	// SnapshotLineColor colors the yield-curve polyline.
	SnapshotLineColor = "blue"

	// DefaultSpreadField is the spread shown before any dropdown change.
	DefaultSpreadField = series.FieldTEDSpread
)

// SnapshotRange bounds every yield-curve axis, in percent.
var SnapshotRange = [2]float64{0, 7}

// SnapshotAxes are the yield-curve axes in display order.
var SnapshotAxes = []struct {
	Field string
	Label string
}{
	{series.FieldPolicyRate, "FF Rate"},
	{series.Field3M, "3M Treasury"},
	{series.Field2Y, "2Y Treasury"},
	{series.Field5Y, "5Y Treasury"},
	{series.Field10Y, "10Y Treasury"},
	{series.Field30Y, "30Y Treasury"},
}

// UnknownFieldError reports a spread field outside series.SpreadFields.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown spread field %q", e.Field)
}

// History plots every level series over the rows inside r: the rows are
// melted to long form and each variable becomes one line, in first-seen
// order. A range holding no rows yields a figure without traces.
func History(t *series.Tables, r series.DateRange) Spec {
	long := series.Melt(t.LevelsBetween(r))
	if len(long) == 0 {
		return Spec{Data: []Trace{}, Layout: Layout{Title: HistoryTitle}}
	}
	names, groups := series.GroupByVariable(long)

	traces := make([]Trace, 0, len(names))
	for _, name := range names {
		g := groups[name]
		tr := Trace{
			Type: TypeScatter,
			Name: name,
			X:    make([]civil.Date, len(g)),
			Y:    make([]float64, len(g)),
		}
		for i, lr := range g {
			tr.X[i] = lr.Date
			tr.Y[i] = lr.Value
		}
		traces = append(traces, tr)
	}
	return Spec{Data: traces, Layout: Layout{Title: HistoryTitle}}
}

// Snapshot draws the yield curve of a single date as one parallel-coordinates
// line across six fixed axes. When no levels row carries that date the axes
// are present but empty.
func Snapshot(t *series.Tables, d civil.Date) Spec {
	row, found := t.LevelOn(d)

	dims := make([]Dimension, len(SnapshotAxes))
	for i, ax := range SnapshotAxes {
		dims[i] = Dimension{Label: ax.Label, Range: SnapshotRange, Values: []float64{}}
		if found {
			v, _ := row.Value(ax.Field)
			dims[i].Values = []float64{v}
		}
	}
	return Spec{
		Data: []Trace{{
			Type:       TypeParcoords,
			Line:       &Line{Color: SnapshotLineColor},
			Dimensions: dims,
		}},
		Layout: Layout{Title: fmt.Sprintf("Yield Curve Date: %s", d)},
	}
}

// Spread plots one spread column over the whole spreads table. The figure
// has no title.
func Spread(t *series.Tables, field string) (Spec, error) {
	if !series.IsSpreadField(field) {
		return Spec{}, &UnknownFieldError{Field: field}
	}
	rows := t.Spreads()
	tr := Trace{
		Type: TypeScatter,
		Name: field,
		X:    make([]civil.Date, len(rows)),
		Y:    make([]float64, len(rows)),
	}
	for i, r := range rows {
		tr.X[i] = r.Date
		tr.Y[i], _ = r.Value(field)
	}
	return Spec{Data: []Trace{tr}}, nil
}
