package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/app"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/core"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/meta"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/internal"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/internal/model"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/internal/report"
)

// Server exposes the analysis pipeline over HTTP. It is a read-only consumer
// of the core's result records; all computation happens in the service.
type Server struct {
	router  *chi.Mux
	service *app.AnalysisService
	fitOpts model.FitOptions
	logger  *internal.Logger
}

// NewServer creates the API server and mounts its routes
func NewServer(service *app.AnalysisService, fitOpts model.FitOptions) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		service: service,
		fitOpts: fitOpts,
		logger:  internal.DefaultLogger,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/analyze/report", s.handleAnalyzeReport)
	})

	return s
}

// Handler returns the root http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// AnalyzeRequest is the JSON payload for an analysis run
type AnalyzeRequest struct {
	Studies  []meta.StudyRecord `json:"studies"`
	FailFast bool               `json:"fail_fast,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	result, ok := s.runAnalysis(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalyzeReport(w http.ResponseWriter, r *http.Request) {
	result, ok := s.runAnalysis(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(report.HTML(result))
}

func (s *Server) runAnalysis(w http.ResponseWriter, r *http.Request) (*meta.AnalysisResult, bool) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	policy := app.SkipInvalid
	if req.FailFast {
		policy = app.FailFast
	}

	result, err := s.service.Run(r.Context(), app.AnalysisRequest{
		Studies: req.Studies,
		Policy:  policy,
		FitOpts: s.fitOpts,
	})
	if err != nil {
		s.logger.Warn("analysis failed: %v", err)
		status := http.StatusInternalServerError
		if core.IsHarmonizationError(err) || errors.Is(err, core.ErrDegenerateModel) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return nil, false
	}

	return result, true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
