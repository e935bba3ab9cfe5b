package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/bwilder0/folktexts/internal/config"
	"github.com/bwilder0/folktexts/internal/store"
)

func corsServer(t *testing.T, origins string) *Server {
	t.Helper()
	t.Setenv("FOLKTEXTS_DISABLE_AUTH", "true")
	t.Setenv("FOLKTEXTS_API_KEY", "")
	t.Setenv("FOLKTEXTS_CORS_ORIGINS", origins)

	st, err := store.Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	srv, err := NewServer(&config.Config{}, st)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func TestCORSPolicyFromEnv(t *testing.T) {
	for _, tc := range []struct {
		raw      string
		nilWant  bool
		allowAll bool
	}{
		{raw: "", nilWant: true},
		{raw: " , ,", nilWant: true},
		{raw: "*", allowAll: true},
		{raw: "https://a.example, *", allowAll: true},
		{raw: "https://a.example,https://b.example"},
	} {
		t.Setenv("FOLKTEXTS_CORS_ORIGINS", tc.raw)
		p := corsPolicyFromEnv()
		if (p == nil) != tc.nilWant {
			t.Errorf("corsPolicyFromEnv(%q) nil = %v, want %v", tc.raw, p == nil, tc.nilWant)
			continue
		}
		if p != nil && p.allowAll != tc.allowAll {
			t.Errorf("corsPolicyFromEnv(%q) allowAll = %v, want %v", tc.raw, p.allowAll, tc.allowAll)
		}
	}
}

func TestCORSAllowAllPreflight(t *testing.T) {
	srv := corsServer(t, "*")

	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Allow-Origin = %q", got)
	}
}

func TestCORSOriginSet(t *testing.T) {
	srv := corsServer(t, "https://a.example,https://b.example")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://a.example")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://a.example" {
		t.Fatalf("Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Vary"); got != "Origin" {
		t.Fatalf("Vary = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("disallowed origin got Allow-Origin %q", got)
	}
}

func TestAPIKeyAuthSkipsPreflight(t *testing.T) {
	t.Setenv("FOLKTEXTS_DISABLE_AUTH", "")
	t.Setenv("FOLKTEXTS_API_KEY", "secret")
	t.Setenv("FOLKTEXTS_CORS_ORIGINS", "*")

	st, err := store.Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	srv, err := NewServer(&config.Config{}, st)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight without key status = %d, want 204", w.Code)
	}
}
