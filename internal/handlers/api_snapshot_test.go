package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ptdewey/shutter"

	"shield/internal/models"
	"shield/internal/shield"
)

// TestAnalyze_Snapshot pins the analysis endpoint's response shape.
func TestAnalyze_Snapshot(t *testing.T) {
	tc := NewTestContext(t, shield.DefaultConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/shield/analyze", analyzeBody(t, "org-1", models.SeverityHigh))
	rec := httptest.NewRecorder()

	tc.Handler.HandleAnalyze(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	shutter.SnapJSON(t, "analyze_response", rec.Body.String(),
		shutter.ScrubTimestamp(),
		shutter.IgnoreKey("job_id"),
		shutter.IgnoreKey("first_seen_at"),
		shutter.IgnoreKey("last_seen_at"),
		shutter.IgnoreKey("mute_expires_at"),
		shutter.IgnoreKey("timestamp"),
	)
}

// TestAnalyzeDisabled_Snapshot pins the inactive response shape.
func TestAnalyzeDisabled_Snapshot(t *testing.T) {
	cfg := shield.DefaultConfig()
	cfg.Enabled = false
	tc := NewTestContext(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/shield/analyze", analyzeBody(t, "org-1", models.SeverityLow))
	rec := httptest.NewRecorder()

	tc.Handler.HandleAnalyze(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	shutter.SnapJSON(t, "analyze_disabled_response", rec.Body.String())
}
