// Package chart binds dashboard selection state to chart figures. Every
// query is a pure function of its inputs and the shared series.Tables; the
// returned Spec marshals to the figure JSON the dashboard hands to Plotly.
package chart

import "cloud.google.com/go/civil"

// Trace types.
const (
	TypeScatter   = "scatter"
	TypeParcoords = "parcoords"
)

// Spec is a complete figure: traces plus layout.
type Spec struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Layout carries figure-level settings.
type Layout struct {
	Title string `json:"title,omitempty"`
}

// Trace is one plotted series. Scatter traces use X/Y; parcoords traces use
// Dimensions.
type Trace struct {
	Type       string       `json:"type"`
	Name       string       `json:"name,omitempty"`
	Mode       string       `json:"mode,omitempty"`
	X          []civil.Date `json:"x,omitempty"`
	Y          []float64    `json:"y,omitempty"`
	Line       *Line        `json:"line,omitempty"`
	Dimensions []Dimension  `json:"dimensions,omitempty"`
}

// Line styles a trace's line.
type Line struct {
	Color string `json:"color,omitempty"`
}

// Dimension is one vertical axis of a parallel-coordinates trace.
type Dimension struct {
	Label  string     `json:"label"`
	Range  [2]float64 `json:"range"`
	Values []float64  `json:"values"`
}

// Points counts the plottable points across all traces.
func (s Spec) Points() int {
	n := 0
	for _, tr := range s.Data {
		n += len(tr.Y)
		for _, d := range tr.Dimensions {
			n += len(d.Values)
		}
	}
	return n
}
