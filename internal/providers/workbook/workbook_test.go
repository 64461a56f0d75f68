package workbook

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/xuri/excelize/v2"

	"github.com/seenimoa/yieldboard/internal/provider"
	"github.com/seenimoa/yieldboard/internal/series"
)

func d(y int, m time.Month, day int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: day}
}

func writeFixture(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "fred.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

func TestFetchFromWorkbook(t *testing.T) {
	path := writeFixture(t, [][]any{
		{"DATE", "DGS10", "DGS30", "UNUSED"},
		{"2000-01-04", 6.49, 6.55, 1},
		{"2000-01-03", 6.58, ".", 1},
		{"2000-01-17", "#N/A", "", 1},
	})
	p := New(path)

	frame, err := p.Fetch(context.Background(), provider.Request{IDs: []string{"DGS10", "DGS30"}})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if frame.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", frame.Len())
	}
	if frame.Rows[0].Date != d(2000, 1, 3) {
		t.Errorf("expected rows sorted by date, first is %s", frame.Rows[0].Date)
	}
	if v, ok := frame.Rows[0].Value("DGS10"); !ok || v != 6.58 {
		t.Errorf("expected DGS10=6.58, got %v %v", v, ok)
	}
	if _, ok := frame.Rows[0].Value("DGS30"); ok {
		t.Error("'.' should be read as missing")
	}
	if len(frame.Rows[2].Values) != 0 {
		t.Errorf("expected empty row for 2000-01-17, got %v", frame.Rows[2].Values)
	}
}

func TestFetchDateRange(t *testing.T) {
	path := writeFixture(t, [][]any{
		{"observation_date", "DGS10"},
		{"2000-01-03", 6.58},
		{"2000-01-04", 6.49},
		{"2000-01-05", 6.62},
	})
	frame, err := New(path).Fetch(context.Background(), provider.Request{
		IDs:   []string{"DGS10"},
		Start: d(2000, 1, 4),
		End:   d(2000, 1, 4),
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if frame.Len() != 1 || frame.Rows[0].Date != d(2000, 1, 4) {
		t.Errorf("expected only 2000-01-04, got %+v", frame.Rows)
	}
}

func TestFetchMissingSeries(t *testing.T) {
	path := writeFixture(t, [][]any{{"DATE", "DGS10"}, {"2000-01-03", 6.58}})
	_, err := New(path).Fetch(context.Background(), provider.Request{IDs: []string{"DGS10", "DFF"}})
	nf, ok := err.(*ErrSeriesNotFound)
	if !ok {
		t.Fatalf("expected ErrSeriesNotFound, got %v", err)
	}
	if len(nf.IDs) != 1 || nf.IDs[0] != "DFF" {
		t.Errorf("expected missing [DFF], got %v", nf.IDs)
	}
}

func TestFetchBadCell(t *testing.T) {
	path := writeFixture(t, [][]any{{"DATE", "DGS10"}, {"2000-01-03", "high"}})
	if _, err := New(path).Fetch(context.Background(), provider.Request{IDs: []string{"DGS10"}}); err == nil {
		t.Error("expected error for non-numeric cell")
	}

	path = writeFixture(t, [][]any{{"DATE", "DGS10"}, {"someday", 1.0}})
	if _, err := New(path).Fetch(context.Background(), provider.Request{IDs: []string{"DGS10"}}); err == nil {
		t.Error("expected error for bad date")
	}
}

func TestPing(t *testing.T) {
	path := writeFixture(t, [][]any{{"DATE"}})
	if err := New(path).Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if err := New(filepath.Join(t.TempDir(), "nope.xlsx")).Ping(context.Background()); err == nil {
		t.Error("expected error for missing workbook")
	}
}

func sampleTables() *series.Tables {
	levels := []series.LevelRow{
		{Date: d(2000, 1, 3), PolicyRate: 5.43, T3M: 5.48, T2Y: 6.38, T5Y: 6.5, T10Y: 6.58, T30Y: 6.61},
		{Date: d(2000, 1, 4), PolicyRate: 5.38, T3M: 5.43, T2Y: 6.3, T5Y: 6.4, T10Y: 6.49, T30Y: 0},
	}
	spreads := []series.SpreadRow{
		{Date: d(2000, 1, 3), TEDSpread: 0.52, Spread3M10Y: 1.1, Spread2Y10Y: 0.2, SpreadBaa10Y: 1.9},
	}
	return series.NewTables(levels, spreads)
}

func TestWriteTablesLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTables(&buf, sampleTables()); err != nil {
		t.Fatalf("WriteTables: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != SheetLevels || sheets[1] != SheetSpreads {
		t.Fatalf("expected sheets [levels spreads], got %v", sheets)
	}

	rows, err := f.GetRows(SheetLevels)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	wantHeader := append([]string{"DATE"}, series.LevelFields...)
	for i, h := range wantHeader {
		if rows[0][i] != h {
			t.Errorf("header %d: expected %s, got %s", i, h, rows[0][i])
		}
	}
	if rows[1][0] != "2000-01-03" || rows[1][5] != "6.58" {
		t.Errorf("unexpected first row %v", rows[1])
	}

	rows, _ = f.GetRows(SheetSpreads)
	if len(rows) != 2 || rows[0][1] != series.FieldTEDSpread {
		t.Errorf("unexpected spreads sheet %v", rows)
	}
}

func TestWriteTablesReadBack(t *testing.T) {
	tables := sampleTables()

	var buf bytes.Buffer
	if err := WriteTables(&buf, tables); err != nil {
		t.Fatalf("WriteTables: %v", err)
	}
	path := filepath.Join(t.TempDir(), "export.xlsx")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	frame, err := New(path).Fetch(context.Background(), provider.Request{IDs: series.SourceIDs()[:4]})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if frame.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", frame.Len())
	}
	if v, ok := frame.Rows[0].Value("DFF"); !ok || v != 5.43 {
		t.Errorf("expected DFF=5.43 read back from ffrate column, got %v %v", v, ok)
	}

	var ids []string
	for _, sf := range series.SourceFields {
		if sf.ID != "T10YIE" {
			ids = append(ids, sf.ID)
		}
	}
	frame, err = New(path).Fetch(context.Background(), provider.Request{IDs: ids})
	if err != nil {
		t.Fatalf("Fetch tabled ids: %v", err)
	}
	rebuilt := series.Build(frame)
	if got := rebuilt.Spreads(); len(got) != 1 || got[0] != tables.Spreads()[0] {
		t.Errorf("spreads did not survive the round trip: %+v", got)
	}
	if got := rebuilt.Levels(); len(got) != 2 || got[1] != tables.Levels()[1] {
		t.Errorf("levels did not survive the round trip: %+v", got)
	}
}
