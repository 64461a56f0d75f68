package chart

import (
	"encoding/json"

	"cloud.google.com/go/civil"

	"github.com/seenimoa/yieldboard/internal/series"
)

// DefaultSnapshotDate is shown before the user has hovered or selected any
// point on the historical chart.
var DefaultSnapshotDate = civil.Date{Year: 2000, Month: 12, Day: 18}

// Point is one hovered or selected point of the historical chart.
type Point struct {
	X           any `json:"x"`
	Y           any `json:"y"`
	CurveNumber int `json:"curveNumber,omitempty"`
	PointNumber int `json:"pointNumber,omitempty"`
}

// Event is a hover or selection event emitted by the historical chart.
type Event struct {
	Points []Point `json:"points"`
}

// DecodeEvent parses a raw event payload. Malformed input yields nil.
func DecodeEvent(raw []byte) *Event {
	if len(raw) == 0 {
		return nil
	}
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil
	}
	return &e
}

// Date returns the x coordinate of the event's first point.
func (e *Event) Date() (civil.Date, bool) {
	if e == nil || len(e.Points) == 0 {
		return civil.Date{}, false
	}
	s, ok := e.Points[0].X.(string)
	if !ok {
		return civil.Date{}, false
	}
	d, err := series.ParseDate(s)
	if err != nil {
		return civil.Date{}, false
	}
	return d, true
}

// SelectedDate picks the date a snapshot should show for e, falling back to
// DefaultSnapshotDate when e is absent or unusable.
func SelectedDate(e *Event) civil.Date {
	if d, ok := e.Date(); ok {
		return d
	}
	return DefaultSnapshotDate
}
