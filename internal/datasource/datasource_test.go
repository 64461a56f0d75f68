package datasource

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/seenimoa/yieldboard/internal/config"
	"github.com/seenimoa/yieldboard/internal/logging"
	"github.com/seenimoa/yieldboard/internal/provider"
	"github.com/seenimoa/yieldboard/internal/providers/workbook"
	"github.com/seenimoa/yieldboard/internal/series"
)

func baseConfig() *config.Config {
	return &config.Config{
		FRED: config.FREDConfig{BaseURL: "http://127.0.0.1:0", RateLimit: 120, TimeoutSec: 1},
		Data: config.DataConfig{Source: config.SourceFRED, Start: "2000-01-01", ConcurrentFetches: 2},
	}
}

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := []any{"DATE"}
	row1 := []any{"2000-01-03"}
	row2 := []any{"2000-01-04"}
	for i, id := range series.SourceIDs() {
		header = append(header, id)
		row1 = append(row1, 1.0+float64(i)/10)
		if id == "TEDRATE" {
			row2 = append(row2, ".")
		} else {
			row2 = append(row2, 2.0+float64(i)/10)
		}
	}
	for i, row := range [][]any{header, row1, row2} {
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

func TestNewRegistryFREDRequiresKey(t *testing.T) {
	cfg := baseConfig()
	_, err := NewRegistry(cfg, logging.Discard())
	var ic *provider.ErrInvalidCredentials
	if !errors.As(err, &ic) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	cfg.FRED.APIKey = "secret"
	reg, err := NewRegistry(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if infos := reg.List(); len(infos) != 1 || infos[0].Name != "fred" {
		t.Errorf("expected only fred, got %+v", infos)
	}
}

func TestNewRegistryWorkbook(t *testing.T) {
	cfg := baseConfig()
	cfg.Data.Source = config.SourceWorkbook
	if _, err := NewRegistry(cfg, logging.Discard()); err == nil {
		t.Error("expected error for workbook source without path")
	}

	var logs bytes.Buffer
	logger, err := logging.New(&logs, "debug", logging.FormatLogfmt)
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	cfg.Data.WorkbookPath = "fred.xlsx"
	reg, err := NewRegistry(cfg, logger)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if infos := reg.List(); len(infos) != 1 || infos[0].Name != "workbook" {
		t.Errorf("expected only workbook (no FRED key), got %+v", infos)
	}

	p, err := reg.Get("workbook")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	wp, ok := p.(*workbook.Provider)
	if !ok {
		t.Fatalf("expected *workbook.Provider, got %T", p)
	}
	if wp.Path() != "fred.xlsx" {
		t.Errorf("expected path fred.xlsx, got %q", wp.Path())
	}
	if !strings.Contains(logs.String(), "path=fred.xlsx") {
		t.Errorf("expected registration log with path, got %q", logs.String())
	}
}

func TestLoaderFromWorkbook(t *testing.T) {
	cfg := baseConfig()
	cfg.Data.Source = config.SourceWorkbook
	cfg.Data.WorkbookPath = writeWorkbook(t)
	cfg.Data.End = "2000-12-31"

	reg, err := NewRegistry(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	loader, err := NewLoader(cfg, reg, logging.Discard())
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	res, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Source != "workbook" {
		t.Errorf("expected source workbook, got %s", res.Source)
	}
	if res.Frame.Len() != 2 {
		t.Errorf("expected 2 frame rows, got %d", res.Frame.Len())
	}
	if n := len(res.Tables.Levels()); n != 2 {
		t.Errorf("expected 2 level rows, got %d", n)
	}
	// TEDRATE is missing on the second date, so only one spread row survives.
	if n := len(res.Tables.Spreads()); n != 1 {
		t.Errorf("expected 1 spread row, got %d", n)
	}
}

func TestLoaderBadRange(t *testing.T) {
	cfg := baseConfig()
	cfg.Data.Start = "not-a-date"
	if _, err := NewLoader(cfg, provider.NewRegistry(), logging.Discard()); err == nil {
		t.Error("expected error for bad start date")
	}
}

func TestLoaderFetchFailure(t *testing.T) {
	cfg := baseConfig()
	cfg.FRED.APIKey = "secret"
	reg, err := NewRegistry(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	loader, _ := NewLoader(cfg, reg, logging.Discard())
	if _, err := loader.Load(context.Background()); err == nil {
		t.Error("expected load to fail against an unreachable FRED endpoint")
	}
}
