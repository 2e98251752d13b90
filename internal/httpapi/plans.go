package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/export"
	"github.com/p-n-ai/pai-planner/internal/platform/validate"
	"github.com/p-n-ai/pai-planner/internal/studyplan"
)

var errBadRequest = errors.New("bad request")

var createPlanSchema = validate.MustCompile("create-plan", `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["topics"],
  "properties": {
    "syllabus_id": {"type": "string"},
    "study_hours_per_day": {"type": "number", "maximum": 24},
    "total_days": {"type": "integer", "maximum": 3650},
    "topics": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id":         {"type": "string", "minLength": 1},
          "subject":    {"type": "string"},
          "name":       {"type": "string"},
          "difficulty": {"type": "string"}
        }
      }
    }
  }
}`)

var planOptionsSchema = validate.MustCompile("plan-options", `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "study_hours_per_day": {"type": "number", "maximum": 24},
    "total_days": {"type": "integer", "maximum": 3650}
  },
  "additionalProperties": false
}`)

type createPlanRequest struct {
	SyllabusID  string             `json:"syllabus_id"`
	Topics      []curriculum.Topic `json:"topics"`
	HoursPerDay float64            `json:"study_hours_per_day"`
	TotalDays   int                `json:"total_days"`
}

type planOptions struct {
	HoursPerDay float64 `json:"study_hours_per_day"`
	TotalDays   int     `json:"total_days"`
}

type importResponse struct {
	Syllabus curriculum.Syllabus `json:"syllabus"`
	Plan     *studyplan.Plan     `json:"plan"`
}

// readBody reads at most maxBodyBytes and checks the document against schema.
func readBody(w http.ResponseWriter, r *http.Request, schema *validate.Schema) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if schema != nil {
		if err := schema.Validate(body); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}
	return body, nil
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, createPlanSchema)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req createPlanRequest
	if err := decode(body, &req); err != nil {
		writeError(w, r, err)
		return
	}

	plan, err := s.service.CreatePlan(r.Context(), studyplan.CreateInput{
		UserID:      r.PathValue("userID"),
		SyllabusID:  req.SyllabusID,
		Topics:      req.Topics,
		HoursPerDay: req.HoursPerDay,
		TotalDays:   req.TotalDays,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

// handleImportSyllabus takes a syllabus parser document and plans it in one
// call. Options come from the study_hours_per_day and total_days query
// parameters.
func (s *Server) handleImportSyllabus(w http.ResponseWriter, r *http.Request) {
	opts, err := queryOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := readBody(w, r, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}

	syllabus, topics, err := curriculum.ImportParsed(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	plan, err := s.service.CreatePlan(r.Context(), studyplan.CreateInput{
		UserID:      r.PathValue("userID"),
		SyllabusID:  syllabus.ID,
		Topics:      topics,
		HoursPerDay: opts.HoursPerDay,
		TotalDays:   opts.TotalDays,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, importResponse{Syllabus: syllabus, Plan: plan})
}

func (s *Server) handlePlanFromCatalogue(w http.ResponseWriter, r *http.Request) {
	if s.catalogue == nil {
		writeError(w, r, fmt.Errorf("syllabus catalogue: %w", studyplan.ErrNotFound))
		return
	}
	syllabusID := r.PathValue("syllabusID")
	syllabus, ok := s.catalogue.GetSyllabus(syllabusID)
	if !ok {
		writeError(w, r, fmt.Errorf("syllabus %s: %w", syllabusID, studyplan.ErrNotFound))
		return
	}

	var opts planOptions
	body, err := readBody(w, r, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(body) > 0 {
		if err := planOptionsSchema.Validate(body); err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		if err := decode(body, &opts); err != nil {
			writeError(w, r, err)
			return
		}
	}

	plan, err := s.service.CreatePlan(r.Context(), studyplan.CreateInput{
		UserID:      r.PathValue("userID"),
		SyllabusID:  syllabus.ID,
		Topics:      syllabus.Topics(),
		HoursPerDay: opts.HoursPerDay,
		TotalDays:   opts.TotalDays,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func queryOptions(r *http.Request) (planOptions, error) {
	var opts planOptions
	q := r.URL.Query()
	if v := q.Get("study_hours_per_day"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, fmt.Errorf("%w: study_hours_per_day: %v", errBadRequest, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return opts, fmt.Errorf("%w: study_hours_per_day: must be a finite number", errBadRequest)
		}
		opts.HoursPerDay = f
	}
	if v := q.Get("total_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("%w: total_days: %v", errBadRequest, err)
		}
		opts.TotalDays = n
	}
	return opts, nil
}

func (s *Server) handleListSyllabi(w http.ResponseWriter, r *http.Request) {
	syllabi := []curriculum.Syllabus{}
	if s.catalogue != nil {
		syllabi = append(syllabi, s.catalogue.AllSyllabi()...)
	}
	writeJSON(w, http.StatusOK, syllabi)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.service.GetPlan(r.Context(), r.PathValue("planID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleExportPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.service.GetPlan(r.Context(), r.PathValue("planID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="study-plan-%s.xlsx"`, plan.ID))
	if err := export.WriteSchedule(w, plan); err != nil {
		slog.Error("failed to export plan", "plan_id", plan.ID, "error", err)
	}
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.service.ListPlans(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if plans == nil {
		plans = []*studyplan.Plan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) handleGetPlanForSyllabus(w http.ResponseWriter, r *http.Request) {
	plan, err := s.service.GetPlanForSyllabus(r.Context(), r.PathValue("userID"), r.PathValue("syllabusID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}
