package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bwilder0/folktexts/internal/benchmark"
	"github.com/bwilder0/folktexts/internal/config"
	"github.com/bwilder0/folktexts/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	t.Setenv("FOLKTEXTS_DISABLE_AUTH", "true")
	t.Setenv("FOLKTEXTS_API_KEY", "")

	st, err := store.Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	srv, err := NewServer(&config.Config{}, st)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv, st
}

func doRequest(t *testing.T, srv *Server, method string, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func seedRun(t *testing.T, st *store.Store, runID string) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	res := &benchmark.Result{
		RunID:   runID,
		Model:   "gpt-4o",
		Task:    "ACSIncome",
		Metrics: benchmark.Metrics{N: 1, Accuracy: 1, Threshold: 0.5},
		Predictions: []benchmark.Prediction{
			{Index: 0, Label: 1, Score: 0.9, Answer: "B"},
		},
		StartedAt:  now,
		FinishedAt: now,
	}
	if err := st.SaveResult(context.Background(), res); err != nil {
		t.Fatalf("seed run: %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestListTasks(t *testing.T) {
	srv, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/tasks")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var tasks []taskSummary
	if err := json.Unmarshal(w.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(tasks))
	}
	byName := make(map[string]taskSummary, len(tasks))
	for _, task := range tasks {
		byName[task.Name] = task
	}
	if got := byName["ACSIncome"].Target; got != "PINCP_binary" {
		t.Fatalf("ACSIncome target = %q", got)
	}
	if _, ok := byName["ACSEmployment"]; !ok {
		t.Fatal("ACSEmployment missing from the task listing")
	}
}

func TestListAndGetColumns(t *testing.T) {
	srv, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/columns")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var cols []columnSummary
	if err := json.Unmarshal(w.Body.Bytes(), &cols); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cols) != 15 {
		t.Fatalf("got %d columns, want 15", len(cols))
	}

	w = doRequest(t, srv, http.MethodGet, "/api/columns/SEX")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var col columnSummary
	if err := json.Unmarshal(w.Body.Bytes(), &col); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if col.Name != "SEX" || len(col.AnswerKeys) != 2 {
		t.Fatalf("column = %+v", col)
	}

	if w := doRequest(t, srv, http.MethodGet, "/api/columns/NOPE"); w.Code != http.StatusNotFound {
		t.Fatalf("status for unknown column = %d", w.Code)
	}
}

func TestRunEndpoints(t *testing.T) {
	srv, st := testServer(t)
	seedRun(t, st, "run-1")

	w := doRequest(t, srv, http.MethodGet, "/api/runs")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var runs []store.RunSummary
	if err := json.Unmarshal(w.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-1" {
		t.Fatalf("runs = %+v", runs)
	}

	w = doRequest(t, srv, http.MethodGet, "/api/runs/run-1")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w = doRequest(t, srv, http.MethodGet, "/api/runs/run-1/predictions")
	if w.Code != http.StatusOK {
		t.Fatalf("predictions status = %d", w.Code)
	}
	var preds []benchmark.Prediction
	if err := json.Unmarshal(w.Body.Bytes(), &preds); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(preds) != 1 || preds[0].Answer != "B" {
		t.Fatalf("preds = %+v", preds)
	}

	if w := doRequest(t, srv, http.MethodGet, "/api/runs/missing"); w.Code != http.StatusNotFound {
		t.Fatalf("missing run status = %d", w.Code)
	}
	if w := doRequest(t, srv, http.MethodGet, "/api/runs/missing/predictions"); w.Code != http.StatusNotFound {
		t.Fatalf("missing run predictions status = %d", w.Code)
	}
}

func TestListRunsRejectsBadLimit(t *testing.T) {
	srv, _ := testServer(t)

	if w := doRequest(t, srv, http.MethodGet, "/api/runs?limit=abc"); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if w := doRequest(t, srv, http.MethodGet, "/api/runs?limit=-1"); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAuthRequiredWithoutConfiguration(t *testing.T) {
	t.Setenv("FOLKTEXTS_DISABLE_AUTH", "")
	t.Setenv("FOLKTEXTS_API_KEY", "")

	st, err := store.Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	if _, err := NewServer(&config.Config{}, st); err == nil {
		t.Fatal("expected an error with no auth configuration")
	}
}

func TestAPIKeyAuth(t *testing.T) {
	t.Setenv("FOLKTEXTS_DISABLE_AUTH", "")
	t.Setenv("FOLKTEXTS_API_KEY", "secret")

	st, err := store.Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	srv, err := NewServer(&config.Config{}, st)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-API-Key", "secret")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d", w.Code)
	}
}
