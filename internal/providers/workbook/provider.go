// Package workbook implements an offline provider that reads observations
// from an .xlsx workbook, and the exporter that writes the dashboard tables
// in a layout the provider reads back.
//
// Every sheet is scanned. The first row of a sheet is its header: one date
// column ("DATE" or "observation_date") and one column per series. A series
// column may be named by its FRED id (DGS10) or by its table field (10yT).
package workbook

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/xuri/excelize/v2"

	"github.com/seenimoa/yieldboard/internal/provider"
	"github.com/seenimoa/yieldboard/internal/series"
)

const providerName = "workbook"

// DateHeader is the header of the date column written by the exporter.
const DateHeader = "DATE"

// ErrSeriesNotFound is returned when a requested series has no column in
// any sheet.
type ErrSeriesNotFound struct {
	Path string
	IDs  []string
}

func (e *ErrSeriesNotFound) Error() string {
	return fmt.Sprintf("workbook %s: no column for series %s", e.Path, strings.Join(e.IDs, ", "))
}

// Provider implements provider.Provider over a workbook on disk.
type Provider struct {
	provider.BaseProvider
	path string
}

// New creates a workbook provider reading path.
func New(path string) *Provider {
	return &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"Daily observations from a local .xlsx workbook",
			"",
			nil,
		),
		path: path,
	}
}

// Path returns the workbook path.
func (p *Provider) Path() string { return p.path }

// Ping checks that the workbook exists and can be opened.
func (p *Provider) Ping(ctx context.Context) error {
	if _, err := os.Stat(p.path); err != nil {
		return fmt.Errorf("workbook ping: %w", err)
	}
	f, err := excelize.OpenFile(p.path)
	if err != nil {
		return fmt.Errorf("workbook ping: %w", err)
	}
	return f.Close()
}

// Fetch reads the requested series from every sheet and joins them on date.
func (p *Provider) Fetch(ctx context.Context, req provider.Request) (*series.Frame, error) {
	if len(req.IDs) == 0 {
		return nil, &provider.ErrMissingParam{Param: "ids"}
	}
	f, err := excelize.OpenFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	wanted := make(map[string]bool, len(req.IDs))
	for _, id := range req.IDs {
		wanted[id] = true
	}
	found := make(map[string]bool, len(req.IDs))
	r := series.DateRange{Start: req.Start, End: req.End}
	b := series.NewFrameBuilder(req.IDs...)

	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if err := readSheet(sheet, rows, wanted, found, r, b); err != nil {
			return nil, err
		}
	}

	var missing []string
	for _, id := range req.IDs {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &ErrSeriesNotFound{Path: p.path, IDs: missing}
	}
	return b.Frame(), nil
}

func readSheet(sheet string, rows [][]string, wanted, found map[string]bool, r series.DateRange, b *series.FrameBuilder) error {
	if len(rows) == 0 {
		return nil
	}
	dateCol := -1
	cols := make(map[int]string)
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if strings.EqualFold(h, DateHeader) || strings.EqualFold(h, "observation_date") {
			dateCol = i
			continue
		}
		id := h
		if sid, ok := series.SourceID(h); ok {
			id = sid
		}
		if wanted[id] {
			cols[i] = id
		}
	}
	if dateCol < 0 || len(cols) == 0 {
		return nil
	}
	for _, id := range cols {
		found[id] = true
	}

	for n, row := range rows[1:] {
		if dateCol >= len(row) || strings.TrimSpace(row[dateCol]) == "" {
			continue
		}
		d, err := parseDateCell(row[dateCol])
		if err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, n+2, err)
		}
		if !r.Contains(d) {
			continue
		}
		b.AddMissing(d)
		for i, id := range cols {
			if i >= len(row) {
				continue
			}
			v, ok, err := parseValueCell(row[i])
			if err != nil {
				return fmt.Errorf("sheet %s row %d column %s: %w", sheet, n+2, id, err)
			}
			if ok {
				b.Add(id, d, v)
			}
		}
	}
	return nil
}

// parseDateCell accepts ISO dates and raw Excel serial dates.
func parseDateCell(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if d, err := series.ParseDate(s); err == nil {
		return d, nil
	}
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q", s)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return civil.DateOf(t.In(time.UTC)), nil
}

// parseValueCell treats blanks, FRED's "." marker and "#N/A" as missing.
func parseValueCell(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", ".", "#N/A":
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid value %q", s)
	}
	return v, true, nil
}
