package httpapi

import (
	"fmt"
	"net/http"

	"github.com/p-n-ai/pai-planner/internal/studyplan"
)

type transitionResponse struct {
	Plan     *studyplan.Plan    `json:"plan"`
	Progress studyplan.Progress `json:"progress"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.service.Progress(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleProgressStream(w http.ResponseWriter, r *http.Request) {
	if s.stream == nil {
		writeError(w, r, fmt.Errorf("progress stream: %w", studyplan.ErrNotFound))
		return
	}
	s.stream.ServeUser(w, r, r.PathValue("userID"))
}

func (s *Server) handleMarkComplete(w http.ResponseWriter, r *http.Request) {
	plan, err := s.service.MarkComplete(r.Context(), r.PathValue("userID"), r.PathValue("topicID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transitionResponse{Plan: plan, Progress: studyplan.ComputeProgress(plan)})
}

func (s *Server) handleMarkPending(w http.ResponseWriter, r *http.Request) {
	plan, err := s.service.MarkPending(r.Context(), r.PathValue("userID"), r.PathValue("topicID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transitionResponse{Plan: plan, Progress: studyplan.ComputeProgress(plan)})
}
