// Package httpapi exposes study plans over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/realtime"
	"github.com/p-n-ai/pai-planner/internal/studyplan"
)

const (
	maxBodyBytes = 1 << 20
	checkTimeout = 2 * time.Second
)

// Catalogue is the read-only syllabus source.
type Catalogue interface {
	GetSyllabus(id string) (curriculum.Syllabus, bool)
	AllSyllabi() []curriculum.Syllabus
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds the handler's dependencies. Catalogue, Stream and Checks are
// optional; their routes answer 404 or report nothing when unset.
type Config struct {
	Service   *studyplan.Service
	Catalogue Catalogue
	Stream    *realtime.StreamHandler
	Checks    map[string]HealthCheck
}

// Server routes plan requests to the service.
type Server struct {
	service   *studyplan.Service
	catalogue Catalogue
	stream    *realtime.StreamHandler
	checks    map[string]HealthCheck
	mux       *http.ServeMux
}

// New creates the HTTP handler.
func New(cfg Config) *Server {
	s := &Server{
		service:   cfg.Service,
		catalogue: cfg.Catalogue,
		stream:    cfg.Stream,
		checks:    cfg.Checks,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)

	s.mux.HandleFunc("GET /v1/syllabi", s.handleListSyllabi)
	s.mux.HandleFunc("GET /v1/plans/{planID}", s.handleGetPlan)
	s.mux.HandleFunc("GET /v1/plans/{planID}/export.xlsx", s.handleExportPlan)

	s.mux.HandleFunc("POST /v1/users/{userID}/plans", s.handleCreatePlan)
	s.mux.HandleFunc("GET /v1/users/{userID}/plans", s.handleListPlans)
	s.mux.HandleFunc("GET /v1/users/{userID}/plans/{syllabusID}", s.handleGetPlanForSyllabus)
	s.mux.HandleFunc("POST /v1/users/{userID}/syllabi", s.handleImportSyllabus)
	s.mux.HandleFunc("POST /v1/users/{userID}/syllabi/{syllabusID}/plan", s.handlePlanFromCatalogue)

	s.mux.HandleFunc("GET /v1/users/{userID}/progress", s.handleProgress)
	s.mux.HandleFunc("GET /v1/users/{userID}/progress/stream", s.handleProgressStream)
	s.mux.HandleFunc("POST /v1/users/{userID}/topics/{topicID}/complete", s.handleMarkComplete)
	s.mux.HandleFunc("POST /v1/users/{userID}/topics/{topicID}/pending", s.handleMarkPending)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"checks": failed,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// writeError maps domain errors to status codes. Unexpected errors are logged
// and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, studyplan.ErrInvalidInput),
		errors.Is(err, curriculum.ErrInvalidDocument),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, studyplan.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, studyplan.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
