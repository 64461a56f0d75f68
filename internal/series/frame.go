package series

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Observation is one calendar date of a raw fetch. A series with no value on
// that date has no key in Values.
type Observation struct {
	Date   civil.Date
	Values map[string]float64
}

// Value returns the observation for series id, if present.
func (o Observation) Value(id string) (float64, bool) {
	v, ok := o.Values[id]
	return v, ok
}

// Frame is the raw result of a multi-series fetch: one row per distinct date,
// sorted ascending, covering the union of every series' dates.
type Frame struct {
	IDs  []string
	Rows []Observation
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// FrameBuilder outer-joins per-series observations into a Frame.
// It is not safe for concurrent use.
type FrameBuilder struct {
	ids  []string
	rows map[civil.Date]map[string]float64
}

// NewFrameBuilder creates a builder for the given series ids.
func NewFrameBuilder(ids ...string) *FrameBuilder {
	return &FrameBuilder{
		ids:  slices.Clone(ids),
		rows: make(map[civil.Date]map[string]float64),
	}
}

// Add records a present value for series id on date.
func (b *FrameBuilder) Add(id string, date civil.Date, value float64) {
	b.row(date)[id] = value
}

// AddMissing records that date exists in the fetch without a value for any
// series it is called for.
func (b *FrameBuilder) AddMissing(date civil.Date) {
	b.row(date)
}

func (b *FrameBuilder) row(date civil.Date) map[string]float64 {
	r, ok := b.rows[date]
	if !ok {
		r = make(map[string]float64)
		b.rows[date] = r
	}
	return r
}

// Frame returns the accumulated rows sorted by date.
func (b *FrameBuilder) Frame() *Frame {
	f := &Frame{
		IDs:  slices.Clone(b.ids),
		Rows: make([]Observation, 0, len(b.rows)),
	}
	for d, vals := range b.rows {
		f.Rows = append(f.Rows, Observation{Date: d, Values: vals})
	}
	slices.SortFunc(f.Rows, func(a, b Observation) int {
		return CompareDates(a.Date, b.Date)
	})
	return f
}

// CompareDates orders two dates like cmp.Compare.
func CompareDates(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// ParseDate parses a calendar date. Besides YYYY-MM-DD it accepts date-time
// strings such as "2001-03-05 00:00" or RFC 3339 timestamps and keeps only
// their date part.
func ParseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if d, err := civil.ParseDate(s); err == nil {
		return d, nil
	}
	if len(s) > 10 && (s[10] == 'T' || s[10] == ' ') {
		if d, err := civil.ParseDate(s[:10]); err == nil {
			return d, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return civil.DateOf(t), nil
	}
	return civil.Date{}, fmt.Errorf("invalid date %q", s)
}

// DateRange is an inclusive date interval. A zero Start or End leaves that
// side unbounded.
type DateRange struct {
	Start civil.Date `json:"start"`
	End   civil.Date `json:"end"`
}

// ParseDateRange builds a DateRange from optional start/end strings. Empty
// strings leave the bound open.
func ParseDateRange(start, end string) (DateRange, error) {
	var r DateRange
	if start != "" {
		d, err := ParseDate(start)
		if err != nil {
			return DateRange{}, fmt.Errorf("start: %w", err)
		}
		r.Start = d
	}
	if end != "" {
		d, err := ParseDate(end)
		if err != nil {
			return DateRange{}, fmt.Errorf("end: %w", err)
		}
		r.End = d
	}
	return r, nil
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d civil.Date) bool {
	if r.Start != (civil.Date{}) && d.Before(r.Start) {
		return false
	}
	if r.End != (civil.Date{}) && d.After(r.End) {
		return false
	}
	return true
}
