// Package datasource wires the configured providers into a registry and
// loads the dashboard tables from it.
package datasource

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"

	"github.com/seenimoa/yieldboard/internal/config"
	"github.com/seenimoa/yieldboard/internal/provider"
	"github.com/seenimoa/yieldboard/internal/providers/fred"
	"github.com/seenimoa/yieldboard/internal/providers/workbook"
	"github.com/seenimoa/yieldboard/internal/series"
)

// NewRegistry registers every provider the configuration can support and
// makes data.source the default. FRED is skipped without an API key and the
// workbook without a path, unless that source is the configured one, in
// which case the failure is returned.
func NewRegistry(cfg *config.Config, logger *slog.Logger) (*provider.Registry, error) {
	reg := provider.NewRegistry()

	fp := fred.New(fred.Options{
		BaseURL:           cfg.FRED.BaseURL,
		RequestsPerMinute: cfg.FRED.RateLimit,
		Concurrency:       cfg.Data.ConcurrentFetches,
		Timeout:           time.Duration(cfg.FRED.TimeoutSec) * time.Second,
		Logger:            logger,
	})
	if err := fp.Init(map[string]string{"api_key": cfg.FRED.APIKey}); err != nil {
		if cfg.Data.Source == config.SourceFRED {
			return nil, err
		}
		logger.Debug("fred provider disabled", "reason", err)
	} else if err := reg.Register(fp); err != nil {
		return nil, err
	}

	if cfg.Data.WorkbookPath != "" {
		wp := workbook.New(cfg.Data.WorkbookPath)
		if err := wp.Init(nil); err != nil {
			return nil, err
		}
		if err := reg.Register(wp); err != nil {
			return nil, err
		}
		logger.Debug("workbook provider registered", "path", wp.Path())
	} else if cfg.Data.Source == config.SourceWorkbook {
		return nil, &provider.ErrMissingParam{Param: "data.workbook_path"}
	}

	if err := reg.SetDefault(cfg.Data.Source); err != nil {
		return nil, err
	}
	return reg, nil
}

// Result is one completed load.
type Result struct {
	Source   string
	Range    series.DateRange
	Frame    *series.Frame
	Tables   *series.Tables
	Duration time.Duration
}

// Loader fetches the fixed set of source series and derives the tables.
type Loader struct {
	registry *provider.Registry
	source   string
	rng      series.DateRange
	logger   *slog.Logger
	now      func() time.Time
}

// NewLoader creates a loader for the configured source and date window.
func NewLoader(cfg *config.Config, reg *provider.Registry, logger *slog.Logger) (*Loader, error) {
	rng, err := cfg.DateRange()
	if err != nil {
		return nil, fmt.Errorf("data range: %w", err)
	}
	return &Loader{
		registry: reg,
		source:   cfg.Data.Source,
		rng:      rng,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Load performs the single bulk fetch and builds the tables. Any series
// failure fails the whole load.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	start := l.now()
	rng := l.rng
	if rng.End == (civil.Date{}) {
		rng.End = civil.DateOf(start)
	}

	l.logger.Info("fetching series", "source", l.source, "series", len(series.SourceFields), "start", rng.Start, "end", rng.End)
	frame, err := l.registry.Fetch(ctx, provider.Request{
		IDs:    series.SourceIDs(),
		Source: l.source,
		Start:  rng.Start,
		End:    rng.End,
	})
	if err != nil {
		return nil, fmt.Errorf("load series: %w", err)
	}

	tables := series.Build(frame)
	res := &Result{
		Source:   l.source,
		Range:    rng,
		Frame:    frame,
		Tables:   tables,
		Duration: l.now().Sub(start),
	}
	l.logger.Info("tables built",
		"rows", frame.Len(),
		"levels", len(tables.Levels()),
		"spreads", len(tables.Spreads()),
		"took", res.Duration.Round(time.Millisecond),
	)
	return res, nil
}
