package series

import "cloud.google.com/go/civil"

// LongRow is one (date, variable, value) triple of a melted table.
type LongRow struct {
	Date     civil.Date `json:"date"`
	Variable string     `json:"variable"`
	Value    float64    `json:"value"`
}

// Melt reshapes levels rows into long form, stacking one variable at a time
// in LevelFields order: every date of ffrate, then every date of 3mT, and so
// on.
func Melt(rows []LevelRow) []LongRow {
	out := make([]LongRow, 0, len(rows)*len(LevelFields))
	for _, field := range LevelFields {
		for _, r := range rows {
			v, _ := r.Value(field)
			out = append(out, LongRow{Date: r.Date, Variable: field, Value: v})
		}
	}
	return out
}

// Pivot reverses Melt. Dates keep their first-seen order; a date missing
// any of the level variables is dropped, and unknown variables are ignored.
func Pivot(long []LongRow) []LevelRow {
	type acc struct {
		row  LevelRow
		seen map[string]bool
	}
	var order []civil.Date
	byDate := make(map[civil.Date]*acc)
	for _, lr := range long {
		a, ok := byDate[lr.Date]
		if !ok {
			a = &acc{row: LevelRow{Date: lr.Date}, seen: make(map[string]bool)}
			byDate[lr.Date] = a
			order = append(order, lr.Date)
		}
		if a.row.set(lr.Variable, lr.Value) {
			a.seen[lr.Variable] = true
		}
	}

	out := make([]LevelRow, 0, len(order))
	for _, d := range order {
		a := byDate[d]
		if len(a.seen) == len(LevelFields) {
			out = append(out, a.row)
		}
	}
	return out
}

// GroupByVariable splits long rows by variable, preserving the order in
// which variables first appear.
func GroupByVariable(long []LongRow) (names []string, groups map[string][]LongRow) {
	groups = make(map[string][]LongRow)
	for _, lr := range long {
		if _, ok := groups[lr.Variable]; !ok {
			names = append(names, lr.Variable)
		}
		groups[lr.Variable] = append(groups[lr.Variable], lr)
	}
	return names, groups
}
