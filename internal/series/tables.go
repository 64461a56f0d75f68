package series

import (
	"slices"
	"sort"

	"cloud.google.com/go/civil"
)

// LevelRow is one date of policy rate and Treasury yields, in percent.
type LevelRow struct {
	Date       civil.Date `json:"date"`
	PolicyRate float64    `json:"ffrate"`
	T3M        float64    `json:"3mT"`
	T2Y        float64    `json:"2yT"`
	T5Y        float64    `json:"5yT"`
	T10Y       float64    `json:"10yT"`
	T30Y       float64    `json:"30yT"`
}

// Value returns the column named field.
func (r LevelRow) Value(field string) (float64, bool) {
	switch field {
	case FieldPolicyRate:
		return r.PolicyRate, true
	case Field3M:
		return r.T3M, true
	case Field2Y:
		return r.T2Y, true
	case Field5Y:
		return r.T5Y, true
	case Field10Y:
		return r.T10Y, true
	case Field30Y:
		return r.T30Y, true
	}
	return 0, false
}

func (r *LevelRow) set(field string, v float64) bool {
	switch field {
	case FieldPolicyRate:
		r.PolicyRate = v
	case Field3M:
		r.T3M = v
	case Field2Y:
		r.T2Y = v
	case Field5Y:
		r.T5Y = v
	case Field10Y:
		r.T10Y = v
	case Field30Y:
		r.T30Y = v
	default:
		return false
	}
	return true
}

// SpreadRow is one date of credit and curve spreads, in percentage points.
type SpreadRow struct {
	Date         civil.Date `json:"date"`
	TEDSpread    float64    `json:"tedspread"`
	Spread3M10Y  float64    `json:"3m10ySpread"`
	Spread2Y10Y  float64    `json:"2y10ySpread"`
	SpreadBaa10Y float64    `json:"baa10ySpread"`
}

// Value returns the column named field.
func (r SpreadRow) Value(field string) (float64, bool) {
	switch field {
	case FieldTEDSpread:
		return r.TEDSpread, true
	case FieldSpread3M10Y:
		return r.Spread3M10Y, true
	case FieldSpread2Y10Y:
		return r.Spread2Y10Y, true
	case FieldSpreadBaa10Y:
		return r.SpreadBaa10Y, true
	}
	return 0, false
}

func (r *SpreadRow) set(field string, v float64) bool {
	switch field {
	case FieldTEDSpread:
		r.TEDSpread = v
	case FieldSpread3M10Y:
		r.Spread3M10Y = v
	case FieldSpread2Y10Y:
		r.Spread2Y10Y = v
	case FieldSpreadBaa10Y:
		r.SpreadBaa10Y = v
	default:
		return false
	}
	return true
}

// Tables holds the levels and spreads tables derived from one fetch.
// It is never modified after construction; accessors hand out copies, so a
// single *Tables can be shared by any number of goroutines.
type Tables struct {
	levels  []LevelRow
	spreads []SpreadRow
}

// Build derives both tables from a raw frame.
//
// Fields are selected per table first. Within the levels projection a
// missing 30-year yield becomes 0.0; every other missing value drops the
// row from the table it belongs to. The spreads projection never sees the
// substitution. An empty frame yields two empty tables.
func Build(f *Frame) *Tables {
	t := &Tables{}
	if f == nil {
		return t
	}

	thirtyYearID, _ := SourceID(Field30Y)
	for _, obs := range f.Rows {
		lr := LevelRow{Date: obs.Date}
		complete := true
		for _, field := range LevelFields {
			id, _ := SourceID(field)
			v, ok := obs.Value(id)
			if !ok && id == thirtyYearID {
				v, ok = 0.0, true
			}
			if !ok {
				complete = false
				break
			}
			lr.set(field, v)
		}
		if complete {
			t.levels = append(t.levels, lr)
		}

		sr := SpreadRow{Date: obs.Date}
		complete = true
		for _, field := range SpreadFields {
			id, _ := SourceID(field)
			v, ok := obs.Value(id)
			if !ok {
				complete = false
				break
			}
			sr.set(field, v)
		}
		if complete {
			t.spreads = append(t.spreads, sr)
		}
	}
	return t
}

// NewTables wraps already-derived rows, sorting them by date.
func NewTables(levels []LevelRow, spreads []SpreadRow) *Tables {
	t := &Tables{
		levels:  slices.Clone(levels),
		spreads: slices.Clone(spreads),
	}
	slices.SortStableFunc(t.levels, func(a, b LevelRow) int { return CompareDates(a.Date, b.Date) })
	slices.SortStableFunc(t.spreads, func(a, b SpreadRow) int { return CompareDates(a.Date, b.Date) })
	return t
}

// Levels returns a copy of the levels table.
func (t *Tables) Levels() []LevelRow { return slices.Clone(t.levels) }

// Spreads returns a copy of the spreads table.
func (t *Tables) Spreads() []SpreadRow { return slices.Clone(t.spreads) }

// LevelsBetween returns the levels rows inside r, in date order.
func (t *Tables) LevelsBetween(r DateRange) []LevelRow {
	var out []LevelRow
	for _, row := range t.levels {
		if r.Contains(row.Date) {
			out = append(out, row)
		}
	}
	return out
}

// SpreadsBetween returns the spreads rows inside r, in date order.
func (t *Tables) SpreadsBetween(r DateRange) []SpreadRow {
	var out []SpreadRow
	for _, row := range t.spreads {
		if r.Contains(row.Date) {
			out = append(out, row)
		}
	}
	return out
}

// LevelOn returns the levels row dated exactly d.
func (t *Tables) LevelOn(d civil.Date) (LevelRow, bool) {
	i := sort.Search(len(t.levels), func(i int) bool {
		return !t.levels[i].Date.Before(d)
	})
	if i < len(t.levels) && t.levels[i].Date == d {
		return t.levels[i], true
	}
	return LevelRow{}, false
}

// Summary describes one table for status output.
type Summary struct {
	Name  string     `json:"name"`
	Rows  int        `json:"rows"`
	First civil.Date `json:"first,omitzero"`
	Last  civil.Date `json:"last,omitzero"`
}

// Summaries reports row counts and date spans of both tables.
func (t *Tables) Summaries() []Summary {
	lv := Summary{Name: "levels", Rows: len(t.levels)}
	if n := len(t.levels); n > 0 {
		lv.First, lv.Last = t.levels[0].Date, t.levels[n-1].Date
	}
	sp := Summary{Name: "spreads", Rows: len(t.spreads)}
	if n := len(t.spreads); n > 0 {
		sp.First, sp.Last = t.spreads[0].Date, t.spreads[n-1].Date
	}
	return []Summary{lv, sp}
}
