package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"pair_tracker/internal/feature/tracker/domain/entity"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fixedSource entity.Snapshot

func (f fixedSource) Latest() entity.Snapshot { return entity.Snapshot(f) }

func setupRouter(snap entity.Snapshot) *gin.Engine {
	r := gin.New()
	h := Health(fixedSource(snap))
	r.GET("/healthz", h)
	r.HEAD("/healthz", h)
	r.OPTIONS("/healthz", h)
	return r
}

func TestHealth_GET(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		snap       entity.Snapshot
		wantStatus string
		wantError  string
	}{
		{name: "before first pass", snap: entity.Snapshot{}, wantStatus: "starting"},
		{name: "last pass succeeded", snap: entity.Snapshot{Dashboard: &entity.Dashboard{}, LastRefresh: at}, wantStatus: "ok"},
		{name: "last pass failed", snap: entity.Snapshot{Failure: &entity.Failure{Kind: "data_shape"}, LastRefresh: at}, wantStatus: "degraded", wantError: "data_shape"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			setupRouter(tt.snap).ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
			}
			var response map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if response["status"] != tt.wantStatus {
				t.Errorf("expected status %q, got %q", tt.wantStatus, response["status"])
			}
			if response["last_error"] != tt.wantError {
				t.Errorf("expected last_error %q, got %q", tt.wantError, response["last_error"])
			}
			if !tt.snap.LastRefresh.IsZero() && response["last_refresh"] != "2025-03-01T10:00:00Z" {
				t.Errorf("unexpected last_refresh %q", response["last_refresh"])
			}
			// Check Cache-Control header
			if w.Header().Get("Cache-Control") != "no-store" {
				t.Errorf("expected Cache-Control 'no-store', got %q", w.Header().Get("Cache-Control"))
			}
		})
	}
}

func TestHealth_HEAD(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodHead, "/healthz", nil)
	setupRouter(entity.Snapshot{}).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("expected empty body for HEAD request, got %q", w.Body.String())
	}
}

func TestHealth_OPTIONS(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/healthz", nil)
	setupRouter(entity.Snapshot{}).ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, w.Code)
	}
}
