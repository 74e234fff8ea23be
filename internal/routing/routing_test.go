package routing

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"shield/internal/handlers"
	"shield/internal/shield"
)

func setupTestRouter(t *testing.T, apiKey string) http.Handler {
	t.Helper()
	tc := handlers.NewTestContext(t, shield.DefaultConfig())
	return SetupRouter(Config{
		Handlers: tc.Handler,
		Logger:   zerolog.Nop(),
		APIKey:   apiKey,
	})
}

func TestRouterHealth(t *testing.T) {
	router := setupTestRouter(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestRouterMetricsExempt(t *testing.T) {
	router := setupTestRouter(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterRequiresAPIKey(t *testing.T) {
	router := setupTestRouter(t, "secret")

	body := strings.NewReader(`{"organization_id":"org-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/shield/analyze", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterAnalyze(t *testing.T) {
	router := setupTestRouter(t, "secret")

	body := strings.NewReader(`{
		"organization_id": "org-1",
		"comment": {"id": "comment-1", "platform": "twitter", "platform_user_id": "user-1"},
		"analysis": {"severity_level": "medium", "toxicity_score": 0.5}
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/shield/analyze", body)
	req.Header.Set("X-API-Key", "secret")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"shield_active":true`)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestRouterBehaviorLookup(t *testing.T) {
	router := setupTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/organizations/org-1/behaviors/twitter/user-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"risk_level"`)
}
