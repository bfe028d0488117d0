package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(":8080", t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

func testServerJobConfig() JobConfig {
	return JobConfig{
		Objective:   "sphere",
		Dim:         3,
		Generations: 10,
		StartPop:    16,
		PopSize:     8,
		Seed:        42,
		Alpha:       0.05,
		Epsilon:     1e-8,
		Beta1:       0.9,
		Beta2:       0.999,
	}
}

func TestServer_CreateJob(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(testServerJobConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()

	s.handleCreateJob(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}

	var job Job
	if err := json.NewDecoder(w.Body).Decode(&job); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if job.ID == "" {
		t.Error("Job ID should not be empty")
	}

	// State should be pending or running (since worker starts immediately)
	if job.State != StatePending && job.State != StateRunning {
		t.Errorf("Expected pending or running state, got %s", job.State)
	}
}

func TestServer_CreateJob_Defaults(t *testing.T) {
	s := newTestServer(t)

	// Only dim is required; everything else has a default
	body := []byte(`{"dim": 4}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()

	s.handleCreateJob(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var job Job
	if err := json.NewDecoder(w.Body).Decode(&job); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if job.Config.Objective != "sphere" {
		t.Errorf("Expected default objective sphere, got %q", job.Config.Objective)
	}
	if job.Config.Generations != 100 {
		t.Errorf("Expected default generations 100, got %d", job.Config.Generations)
	}
	if job.Config.StartPop != 32 || job.Config.PopSize != 16 {
		t.Errorf("Expected default populations 32/16, got %d/%d",
			job.Config.StartPop, job.Config.PopSize)
	}
	if job.Config.Alpha != 0.001 {
		t.Errorf("Expected default alpha 0.001, got %v", job.Config.Alpha)
	}
}

func TestServer_CreateJob_ValidationErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing dim", `{"objective": "sphere"}`},
		{"negative dim", `{"dim": -1}`},
		{"unknown objective", `{"dim": 3, "objective": "nope"}`},
		{"bad params", `{"dim": 3, "alpha": -0.5, "epsilon": 1e-8, "beta1": 0.9, "beta2": 0.999}`},
		{"invalid json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			s.handleCreateJob(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestServer_ListJobs(t *testing.T) {
	s := newTestServer(t)

	// Create two jobs
	s.jobManager.CreateJob(testServerJobConfig())
	s.jobManager.CreateJob(testServerJobConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	w := httptest.NewRecorder()

	s.handleListJobs(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var jobs []*Job
	if err := json.NewDecoder(w.Body).Decode(&jobs); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if len(jobs) != 2 {
		t.Errorf("Expected 2 jobs, got %d", len(jobs))
	}
}

func TestServer_GetJobStatus(t *testing.T) {
	s := newTestServer(t)

	job := s.jobManager.CreateJob(testServerJobConfig())

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/status", job.ID), nil)
	w := httptest.NewRecorder()

	s.handleGetJobStatus(w, req, job.ID)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["id"] != job.ID {
		t.Error("Response should contain job ID")
	}

	if response["state"] != string(StatePending) {
		t.Errorf("Expected pending state, got %v", response["state"])
	}
}

func TestServer_GetJobStatus_NotFound(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nonexistent/status", nil)
	w := httptest.NewRecorder()

	s.handleGetJobStatus(w, req, "nonexistent")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestServer_GetTrace_NotFound(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nonexistent/trace", nil)
	w := httptest.NewRecorder()

	s.handleGetTrace(w, req, "nonexistent")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestServer_JobsWithID_Routing(t *testing.T) {
	s := newTestServer(t)

	// Missing job ID
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/", nil)
	w := httptest.NewRecorder()
	s.handleJobsWithID(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing ID, got %d", w.Code)
	}

	// Unknown subpath
	job := s.jobManager.CreateJob(testServerJobConfig())
	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/bogus", job.ID), nil)
	w = httptest.NewRecorder()
	s.handleJobsWithID(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown subpath, got %d", w.Code)
	}
}

func TestServer_Jobs_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/jobs", nil)
	w := httptest.NewRecorder()

	s.handleJobs(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestServer_CORSMiddleware(t *testing.T) {
	s := newTestServer(t)

	handler := s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/jobs", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS origin header should be set")
	}
}

func TestServer_Integration(t *testing.T) {
	s := newTestServer(t)

	// Create a small job through the handler
	cfg := testServerJobConfig()
	cfg.CheckpointInterval = 5
	body, _ := json.Marshal(cfg)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.handleCreateJob(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}

	var job Job
	if err := json.NewDecoder(w.Body).Decode(&job); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	// Wait for the background worker to finish
	deadline := time.Now().Add(10 * time.Second)
	for {
		current, exists := s.jobManager.GetJob(job.ID)
		if !exists {
			t.Fatal("Job disappeared")
		}
		if current.State == StateCompleted {
			break
		}
		if current.State == StateFailed {
			t.Fatalf("Job failed: %s", current.Error)
		}
		if time.Now().After(deadline) {
			t.Fatalf("Job did not complete in time, state: %s", current.State)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Status should report the completed run
	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/status", job.ID), nil)
	w = httptest.NewRecorder()
	s.handleGetJobStatus(w, req, job.ID)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var status map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if status["state"] != string(StateCompleted) {
		t.Errorf("Expected completed state, got %v", status["state"])
	}
	if status["generation"].(float64) < 1 {
		t.Error("Completed job should report at least one generation")
	}

	// The trace endpoint should stream the per-generation log
	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/trace", job.ID), nil)
	w = httptest.NewRecorder()
	s.handleGetTrace(w, req, job.ID)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for trace, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "\"generation\"") {
		t.Error("Trace output should contain generation entries")
	}
}

func TestServer_JobStream_NotFound(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nonexistent/events", nil)
	w := httptest.NewRecorder()

	s.handleJobStream(w, req, "nonexistent")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}
