// Package server exposes the loaded data set as a JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ppiankov/tabfind/internal/extract"
	"github.com/ppiankov/tabfind/internal/model"
	"github.com/ppiankov/tabfind/internal/pipeline"
)

// FilterParamPrefix marks query parameters that select a filter value
const FilterParamPrefix = "f."

// Server serves queries against a pipeline
type Server struct {
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
	router   chi.Router
}

// New builds the router
func New(p *pipeline.Pipeline, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{pipeline: p, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/headers", s.handleHeaders)
		r.Get("/filters", s.handleFilters)
		r.Get("/records", s.handleRecords)
		r.Get("/records/{n}", s.handleRecord)
		r.Post("/refresh", s.handleRefresh)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type recordView struct {
	Position int               `json:"position"`
	Title    string            `json:"title"`
	Chips    []string          `json:"chips"`
	Fields   map[string]string `json:"fields"`
}

type recordDetail struct {
	recordView
	Row     []string `json:"row"`
	Contact string   `json:"contact,omitempty"`
	Link    string   `json:"link,omitempty"`
	Summary string   `json:"summary"`
}

type pageView struct {
	Headers    []string     `json:"headers"`
	Records    []recordView `json:"records"`
	Total      int          `json:"total"`
	TotalPages int          `json:"total_pages"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
}

func view(rec model.Record, headers []string) recordView {
	return recordView{
		Position: rec.Position,
		Title:    extract.Title(rec, headers),
		Chips:    extract.Chips(rec, headers),
		Fields:   rec.Fields,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	ds := s.pipeline.Dataset()
	body := map[string]any{"status": "ok", "records": ds.Len()}
	if ds != nil {
		body["updated_at"] = ds.UpdatedAt
		body["generation"] = ds.Generation
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleHeaders(w http.ResponseWriter, _ *http.Request) {
	ds := s.pipeline.Dataset()
	if ds == nil {
		writeJSON(w, http.StatusOK, map[string]any{"headers": []string{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"headers":     ds.Headers,
		"indexes":     ds.Indexes,
		"contact_key": ds.ContactKey,
	})
}

func (s *Server) handleFilters(w http.ResponseWriter, _ *http.Request) {
	ds := s.pipeline.Dataset()
	if ds == nil {
		writeJSON(w, http.StatusOK, []model.FilterDefinition{})
		return
	}
	writeJSON(w, http.StatusOK, ds.Filters)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	ds := s.pipeline.Dataset()
	page := s.pipeline.Query(ds, QueryFromRequest(r))

	var headers []string
	if ds != nil {
		headers = ds.Headers
	}

	out := pageView{
		Headers:    headers,
		Records:    make([]recordView, 0, len(page.Records)),
		Total:      page.Total,
		TotalPages: page.TotalPages,
		Page:       page.Page,
		PageSize:   page.PageSize,
	}
	for _, rec := range page.Records {
		out.Records = append(out.Records, view(rec, headers))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("record position must be a number"))
		return
	}

	ds := s.pipeline.Dataset()
	rec, err := ds.Record(n)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	resolver := s.pipeline.Resolver(ds)
	writeJSON(w, http.StatusOK, recordDetail{
		recordView: view(rec, ds.Headers),
		Row:        rec.Row(ds.Headers),
		Contact:    resolver.ContactValue(rec),
		Link:       resolver.MessagingLink(rec),
		Summary:    resolver.Summary(rec),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.pipeline.Refresh(r.Context())
	if err != nil {
		code := http.StatusBadGateway
		if errors.Is(err, model.ErrNoSource) {
			code = http.StatusConflict
		}
		writeError(w, code, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// QueryFromRequest reads q, page, page_size and f.<key> parameters
func QueryFromRequest(r *http.Request) model.QueryState {
	values := r.URL.Query()
	q := model.QueryState{
		Search:   values.Get("q"),
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", 0),
		Filters:  model.FilterState{},
	}
	for key, vals := range values {
		if name, ok := strings.CutPrefix(key, FilterParamPrefix); ok && len(vals) > 0 {
			q.Filters.Set(name, vals[0])
		}
	}
	return q
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
