package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"

	"github.com/seenimoa/yieldboard/internal/chart"
	"github.com/seenimoa/yieldboard/internal/config"
	"github.com/seenimoa/yieldboard/internal/providers/workbook"
	"github.com/seenimoa/yieldboard/internal/render"
	"github.com/seenimoa/yieldboard/internal/series"
)

// maxEventBytes bounds a posted hover/selection event.
const maxEventBytes = 64 << 10

// TablesInfo is the body of GET /api/v1/tables.
type TablesInfo struct {
	Source        string           `json:"source"`
	Tables        []series.Summary `json:"tables"`
	LevelFields   []string         `json:"level_fields"`
	SpreadFields  []string         `json:"spread_fields"`
	DefaultSpread string           `json:"default_spread"`
	DefaultDate   civil.Date       `json:"default_date"`
}

// HealthInfo is the body of GET /health.
type HealthInfo struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Source  string `json:"source"`
	Levels  int    `json:"levels"`
	Spreads int    `json:"spreads"`
	Uptime  string `json:"uptime"`
	Clients int    `json:"ws_clients"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sum := s.tables.Summaries()
	s.writeData(w, HealthInfo{
		Status:  "ok",
		Version: s.version,
		Source:  s.source,
		Levels:  sum[0].Rows,
		Spreads: sum[1].Rows,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		Clients: s.wsHub.ClientCount(),
	})
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, TablesInfo{
		Source:        s.source,
		Tables:        s.tables.Summaries(),
		LevelFields:   series.LevelFields,
		SpreadFields:  series.SpreadFields,
		DefaultSpread: chart.DefaultSpreadField,
		DefaultDate:   chart.DefaultSnapshotDate,
	})
}

func (s *Server) handleTableRows(w http.ResponseWriter, r *http.Request) {
	rng, err := series.ParseDateRange(r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch name := chi.URLParam(r, "name"); name {
	case workbook.SheetLevels:
		s.writeData(w, s.tables.LevelsBetween(rng))
	case workbook.SheetSpreads:
		s.writeData(w, s.tables.SpreadsBetween(rng))
	default:
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown table %q", name))
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := workbook.WriteTables(&buf, s.tables); err != nil {
		s.logger.Error("export failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="yieldboard-tables.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.writeFigure(w, figureHistory, r.URL.Query())
}

func (s *Server) handleYieldCurve(w http.ResponseWriter, r *http.Request) {
	s.writeFigure(w, figureYieldCurve, r.URL.Query())
}

// handleYieldCurveEvent takes the raw hover/selection event as the body.
// Anything unusable falls back to the default date.
func (s *Server) handleYieldCurveEvent(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	d := chart.SelectedDate(chart.DecodeEvent(raw))
	s.writeData(w, chart.Snapshot(s.tables, d))
}

func (s *Server) handleSpread(w http.ResponseWriter, r *http.Request) {
	s.writeFigure(w, figureSpread, r.URL.Query())
}

func (s *Server) writeFigure(w http.ResponseWriter, kind figureKind, q url.Values) {
	spec, err := s.figure(kind, q)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeData(w, spec)
}

// handleChartImage renders one of the chart queries as SVG or PNG. Optional
// w and h query parameters set the image size in pixels.
func (s *Server) handleChartImage(kind figureKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ext := chi.URLParam(r, "ext")
		var contentType string
		switch ext {
		case "svg":
			contentType = "image/svg+xml"
		case "png":
			contentType = "image/png"
		default:
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("unsupported image format %q", ext))
			return
		}

		q := r.URL.Query()
		opts, err := imageOptions(q)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		fq, err := parseFigureQuery(kind, q)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		spec, err := s.evaluate(fq)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		key := imageKey(fq, ext, opts)
		if e, ok := s.images.Get(key); ok {
			writeImage(w, e.ContentType, e.Value)
			return
		}

		var body []byte
		if ext == "svg" {
			body = []byte(render.SVG(spec, opts))
		} else {
			var buf bytes.Buffer
			if err := render.PNG(&buf, spec, opts); err != nil {
				if errors.Is(err, render.ErrNotEnoughData) {
					s.writeError(w, http.StatusUnprocessableEntity, err.Error())
					return
				}
				s.logger.Error("png render failed", "path", r.URL.Path, "err", err)
				s.writeError(w, http.StatusInternalServerError, "render failed")
				return
			}
			body = buf.Bytes()
		}

		s.images.Set(key, contentType, body)
		writeImage(w, contentType, body)
	}
}

func writeImage(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Cache-Control", "public, max-age=600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, config.CheckAPIKeys(s.cfg))
}

// ============================================================
// Figures
// ============================================================

type figureKind int

const (
	figureHistory figureKind = iota
	figureYieldCurve
	figureSpread
)

// figureQuery is a chart query with its parameters resolved. Only these
// fields affect the figure.
type figureQuery struct {
	kind  figureKind
	rng   series.DateRange // history
	date  civil.Date       // yield curve
	field string           // spread
}

// parseFigureQuery reads the parameters of one chart query:
//
//	history:     start, end (YYYY-MM-DD, optional)
//	yield-curve: date (unparseable or absent means the default date)
//	spread:      field (default tedspread)
func parseFigureQuery(kind figureKind, q url.Values) (figureQuery, error) {
	fq := figureQuery{kind: kind}
	switch kind {
	case figureHistory:
		rng, err := series.ParseDateRange(q.Get("start"), q.Get("end"))
		if err != nil {
			return figureQuery{}, err
		}
		fq.rng = rng

	case figureYieldCurve:
		fq.date = chart.DefaultSnapshotDate
		if v := q.Get("date"); v != "" {
			if parsed, err := series.ParseDate(v); err == nil {
				fq.date = parsed
			}
		}

	case figureSpread:
		fq.field = q.Get("field")
		if fq.field == "" {
			fq.field = chart.DefaultSpreadField
		}

	default:
		return figureQuery{}, fmt.Errorf("unknown figure %d", kind)
	}
	return fq, nil
}

// String is the canonical form of the query.
func (fq figureQuery) String() string {
	switch fq.kind {
	case figureHistory:
		return fmt.Sprintf("history?start=%s&end=%s", fq.rng.Start, fq.rng.End)
	case figureYieldCurve:
		return fmt.Sprintf("yield-curve?date=%s", fq.date)
	case figureSpread:
		return fmt.Sprintf("spread?field=%s", url.QueryEscape(fq.field))
	}
	return fmt.Sprintf("figure-%d", fq.kind)
}

// figure evaluates one chart query from URL parameters.
func (s *Server) figure(kind figureKind, q url.Values) (chart.Spec, error) {
	fq, err := parseFigureQuery(kind, q)
	if err != nil {
		return chart.Spec{}, err
	}
	return s.evaluate(fq)
}

func (s *Server) evaluate(fq figureQuery) (chart.Spec, error) {
	switch fq.kind {
	case figureHistory:
		return chart.History(s.tables, fq.rng), nil
	case figureYieldCurve:
		return chart.Snapshot(s.tables, fq.date), nil
	case figureSpread:
		return chart.Spread(s.tables, fq.field)
	}
	return chart.Spec{}, fmt.Errorf("unknown figure %d", fq.kind)
}

// imageKey identifies a rendered image by the resolved query, the format
// and the size, so parameters the figure ignores share one cache entry.
func imageKey(fq figureQuery, ext string, opts render.Options) string {
	return fmt.Sprintf("%s|%s|%dx%d", fq, ext, opts.Width, opts.Height)
}

const (
	minImageSize = 200
	maxImageSize = 4000
)

func imageOptions(q url.Values) (render.Options, error) {
	opts := render.DefaultOptions()
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"w", &opts.Width},
		{"h", &opts.Height},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < minImageSize || n > maxImageSize {
			return render.Options{}, fmt.Errorf("%s must be an integer in %d-%d", p.name, minImageSize, maxImageSize)
		}
		*p.dst = n
	}
	return opts, nil
}
