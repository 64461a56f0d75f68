package workbook

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/seenimoa/yieldboard/internal/series"
)

// Sheet names written by WriteTables.
const (
	SheetLevels  = "levels"
	SheetSpreads = "spreads"
)

// WriteTables writes the levels and spreads tables as two sheets, each with
// a header row of DATE followed by the table's field names.
func WriteTables(w io.Writer, t *series.Tables) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetLevels); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetSpreads); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	levels := t.Levels()
	lrows := make([][]any, 0, len(levels))
	for _, row := range levels {
		lrows = append(lrows, tableRow(row.Date.String(), series.LevelFields, row.Value))
	}
	if err := writeSheet(f, SheetLevels, series.LevelFields, lrows); err != nil {
		return err
	}

	spreads := t.Spreads()
	srows := make([][]any, 0, len(spreads))
	for _, row := range spreads {
		srows = append(srows, tableRow(row.Date.String(), series.SpreadFields, row.Value))
	}
	if err := writeSheet(f, SheetSpreads, series.SpreadFields, srows); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func tableRow(date string, fields []string, value func(string) (float64, bool)) []any {
	out := make([]any, 0, len(fields)+1)
	out = append(out, date)
	for _, field := range fields {
		v, _ := value(field)
		out = append(out, v)
	}
	return out
}

func writeSheet(f *excelize.File, sheet string, fields []string, rows [][]any) error {
	header := make([]any, 0, len(fields)+1)
	header = append(header, DateHeader)
	for _, field := range fields {
		header = append(header, field)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("sheet %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+2, err)
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 12); err != nil {
		return fmt.Errorf("sheet %s width: %w", sheet, err)
	}
	return nil
}
