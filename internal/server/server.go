// Package server exposes the extraction pipeline over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/pagelens/internal/ingest"
	"github.com/sells-group/pagelens/internal/model"
	"github.com/sells-group/pagelens/internal/pipeline"
	"github.com/sells-group/pagelens/internal/registry"
	"github.com/sells-group/pagelens/internal/store"
)

// Server routes extraction requests to the pipeline.
type Server struct {
	pipe          *pipeline.Pipeline
	registry      *registry.Registry
	store         store.Store // may be nil
	maxConcurrent int
}

// New creates a Server. st may be nil when persistence is disabled; the
// run-history routes then return 404.
func New(pipe *pipeline.Pipeline, reg *registry.Registry, st store.Store, maxConcurrent int) *Server {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Server{pipe: pipe, registry: reg, store: st, maxConcurrent: maxConcurrent}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/fields", s.handleFields)
		r.Post("/extract", s.handleExtract)
		r.Post("/extract/batch", s.handleExtractBatch)
		r.Post("/upload-csv", s.handleUploadCSV)
		if s.store != nil {
			r.Get("/runs", s.handleListRuns)
			r.Get("/runs/{id}", s.handleGetRun)
		}
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleFields lists the predefined field specs.
func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"fields": s.registry.Predefined(),
	})
}

type extractRequest struct {
	URL              string   `json:"url"`
	URLs             []string `json:"urls,omitempty"`
	Fields           []string `json:"fields,omitempty"`
	PreferDOMText    *bool    `json:"prefer_dom_text,omitempty"`
	AllowOCRFallback *bool    `json:"allow_ocr_fallback,omitempty"`
}

// toModel applies the surface defaults: both acquisition paths enabled,
// all predefined fields when none are named.
func (s *Server) toModel(req extractRequest) model.ExtractionRequest {
	m := model.ExtractionRequest{
		URL:              req.URL,
		Fields:           req.Fields,
		PreferDOMText:    true,
		AllowOCRFallback: true,
	}
	if req.PreferDOMText != nil {
		m.PreferDOMText = *req.PreferDOMText
	}
	if req.AllowOCRFallback != nil {
		m.AllowOCRFallback = *req.AllowOCRFallback
	}
	if len(m.Fields) == 0 {
		for _, spec := range s.registry.Predefined() {
			m.Fields = append(m.Fields, spec.Name)
		}
	}
	return m
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// A urls list on this route behaves exactly like the batch route.
	if len(req.URLs) > 0 {
		results := s.runBatch(r, req.URLs, req.Fields, req.PreferDOMText, req.AllowOCRFallback)
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	result := s.pipe.Run(r.Context(), s.toModel(req))
	writeJSON(w, http.StatusOK, result)
}

type batchRequest struct {
	URLs             []string `json:"urls"`
	Fields           []string `json:"fields,omitempty"`
	PreferDOMText    *bool    `json:"prefer_dom_text,omitempty"`
	AllowOCRFallback *bool    `json:"allow_ocr_fallback,omitempty"`
}

func (s *Server) handleExtractBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls is required")
		return
	}

	results := s.runBatch(r, req.URLs, req.Fields, req.PreferDOMText, req.AllowOCRFallback)
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// handleUploadCSV accepts a multipart CSV upload of URLs and runs the
// batch synchronously.
func (s *Server) handleUploadCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close() //nolint:errcheck

	urls, err := ingest.ReadCSV(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable csv: "+err.Error())
		return
	}
	if len(urls) == 0 {
		writeError(w, http.StatusBadRequest, "no valid urls in file")
		return
	}

	var fields []string
	if f := r.FormValue("fields"); f != "" {
		if err := json.Unmarshal([]byte(f), &fields); err != nil {
			writeError(w, http.StatusBadRequest, "fields must be a JSON array of strings")
			return
		}
	}

	results := s.runBatch(r, urls, fields, nil, nil)
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) runBatch(r *http.Request, urls, fields []string, preferDOM, allowOCR *bool) []model.ExtractionResult {
	reqs := make([]model.ExtractionRequest, len(urls))
	for i, u := range urls {
		reqs[i] = s.toModel(extractRequest{
			URL:              u,
			Fields:           fields,
			PreferDOMText:    preferDOM,
			AllowOCRFallback: allowOCR,
		})
	}
	zap.L().Info("server: batch extraction",
		zap.Int("urls", len(urls)),
		zap.Int("max_concurrent", s.maxConcurrent),
	)
	return s.pipe.RunAll(r.Context(), reqs, s.maxConcurrent)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{
		Status: model.RunStatus(r.URL.Query().Get("status")),
		URL:    r.URL.Query().Get("url"),
		Limit:  50,
	}
	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
