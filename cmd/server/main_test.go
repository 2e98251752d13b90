package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-planner/internal/platform/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Store.Driver = "memory"
	cfg.Cache.URL = ""
	cfg.Planner.RateDifficulty = false
	cfg.CurriculumPath = ""
	return cfg
}

func TestHealthEndpoints(t *testing.T) {
	a, err := newApp(t.Context(), testConfig(t))
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.close()

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"healthz returns 200", "/healthz", http.StatusOK},
		{"readyz returns 200 without dependencies", "/readyz", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			a.handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestNewApp_UsesConfiguredDefaults(t *testing.T) {
	cfg := testConfig(t)
	cfg.Planner.HoursPerDay = 1
	cfg.Planner.TotalDays = 3

	a, err := newApp(t.Context(), cfg)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.close()

	body := `{"topics":[{"id":"t1","subject":"Math","name":"Algebra","difficulty":"medium"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/users/alice/plans", strings.NewReader(body))
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var plan struct {
		Topics []struct {
			AllocatedTime struct {
				Minutes int `json:"minutes"`
			} `json:"allocated_time"`
		} `json:"topics"`
		Schedule struct {
			StudyHoursPerDay float64 `json:"study_hours_per_day"`
		} `json:"schedule"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &plan); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if plan.Schedule.StudyHoursPerDay != 1 {
		t.Errorf("study_hours_per_day = %v, want 1", plan.Schedule.StudyHoursPerDay)
	}
	// A single topic takes the whole budget: 1h a day over 3 days.
	if len(plan.Topics) != 1 || plan.Topics[0].AllocatedTime.Minutes != 180 {
		t.Errorf("topics = %+v, want one topic with 180 minutes", plan.Topics)
	}
}

func TestNewApp_InvalidWeights(t *testing.T) {
	cfg := testConfig(t)
	cfg.Planner.Weights.Hard = 0

	if _, err := newApp(t.Context(), cfg); err == nil {
		t.Fatal("expected error for zero weight")
	}
}

func TestNewApp_LoadsCatalogue(t *testing.T) {
	dir := t.TempDir()
	doc := `id: form1
name: Form 1
subjects:
  - name: Math
    topics:
      - id: F1-01
        name: Numbers
        difficulty: easy
`
	if err := os.WriteFile(filepath.Join(dir, "form1.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig(t)
	cfg.CurriculumPath = dir

	a, err := newApp(t.Context(), cfg)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.close()

	req := httptest.NewRequest(http.MethodGet, "/v1/syllabi", nil)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "form1") {
		t.Errorf("GET /v1/syllabi = %d %s", rec.Code, rec.Body.String())
	}
}

func TestNewApp_MissingCatalogueIsNotFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.CurriculumPath = filepath.Join(t.TempDir(), "missing")

	a, err := newApp(t.Context(), cfg)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	a.close()
}

func TestNewApp_ReadyzChecksAIProvider(t *testing.T) {
	tests := []struct {
		name       string
		upstream   int
		wantStatus int
	}{
		{"provider up", http.StatusOK, http.StatusOK},
		{"provider down", http.StatusBadGateway, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/models" {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				w.WriteHeader(tt.upstream)
				_, _ = w.Write([]byte(`{"data":[]}`))
			}))
			defer upstream.Close()

			cfg := testConfig(t)
			cfg.Planner.RateDifficulty = true
			cfg.AI.APIKey = "test-key"
			cfg.AI.BaseURL = upstream.URL

			a, err := newApp(t.Context(), cfg)
			if err != nil {
				t.Fatalf("newApp() error = %v", err)
			}
			defer a.close()

			req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
			rec := httptest.NewRecorder()
			a.handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK && !strings.Contains(rec.Body.String(), `"ai"`) {
				t.Errorf("readyz body %s should name the ai check", rec.Body.String())
			}
		})
	}
}
