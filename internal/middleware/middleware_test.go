package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/xelth-com/eckmrpgo/internal/utils"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth(t *testing.T) {
	secret := "test-secret"
	handler := Auth(secret)(okHandler())

	planner, _ := utils.GenerateToken("board", utils.RolePlanner, secret, time.Hour)
	viewer, _ := utils.GenerateToken("screen", utils.RoleViewer, secret, time.Hour)

	tests := []struct {
		name   string
		method string
		header string
		want   int
	}{
		{"missing header", http.MethodGet, "", http.StatusUnauthorized},
		{"bad format", http.MethodGet, "Token abc", http.StatusUnauthorized},
		{"invalid token", http.MethodGet, "Bearer abc", http.StatusUnauthorized},
		{"planner writes", http.MethodPost, "Bearer " + planner, http.StatusOK},
		{"viewer reads", http.MethodGet, "Bearer " + viewer, http.StatusOK},
		{"viewer writes", http.MethodPost, "Bearer " + viewer, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/processes", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestRequestIDAndLogger(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})
	handler := RequestID(Logger(zap.NewNop())(inner))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if seen == "" || rec.Header().Get("X-Request-ID") != seen {
		t.Errorf("Expected generated request id in context and header, got %q / %q", seen, rec.Header().Get("X-Request-ID"))
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("Expected status passed through, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "given")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "given" {
		t.Errorf("Expected caller request id kept, got %q", seen)
	}
}

func TestCaseInsensitive(t *testing.T) {
	var path string
	handler := CaseInsensitive(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/API/PROCESSES/4", nil))
	if path != "/api/processes/4" {
		t.Errorf("Expected lower-cased path, got %q", path)
	}
}
