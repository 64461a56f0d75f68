package api

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seenimoa/yieldboard/internal/chart"
	"github.com/seenimoa/yieldboard/internal/series"
	"github.com/seenimoa/yieldboard/web"
)

// DashboardTitle heads the dashboard page.
const DashboardTitle = "US Yield Data"

// mountDashboard serves the page at / and its assets under /static/.
func (s *Server) mountDashboard(r chi.Router) {
	static := http.StripPrefix("/static/", http.FileServerFS(web.StaticFS()))
	r.Get("/static/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		static.ServeHTTP(w, r)
	})
	r.Get("/", s.handleDashboard)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := web.RenderDashboard(&buf, s.dashboardPage()); err != nil {
		s.logger.Error("dashboard render failed", "err", err)
		http.Error(w, "dashboard not available", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) dashboardPage() web.Page {
	p := web.Page{
		Title:         DashboardTitle,
		DefaultDate:   chart.DefaultSnapshotDate.String(),
		DefaultSpread: chart.DefaultSpreadField,
		Version:       s.version,
	}
	if lv := s.tables.Summaries()[0]; lv.Rows > 0 {
		p.MinDate, p.MaxDate = lv.First.String(), lv.Last.String()
	}
	for _, f := range series.SpreadFields {
		p.SpreadFields = append(p.SpreadFields, web.Field{Value: f, Label: f})
	}
	return p
}
