package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shield/internal/audit"
	"shield/internal/behavior"
	"shield/internal/models"
	"shield/internal/queue"
	"shield/internal/shield"
)

func analyzeBody(t *testing.T, orgID string, sev models.Severity) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(AnalyzeRequest{
		OrganizationID: orgID,
		Comment: &models.Comment{
			ID:             "comment-1",
			Platform:       "twitter",
			PlatformUserID: "user-1",
			Text:           "some toxic text",
		},
		Analysis: &models.Violation{
			SeverityLevel: sev,
			ToxicityScore: 0.5,
		},
	})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestHandleHealth(t *testing.T) {
	tc := NewTestContext(t, shield.DefaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	tc.Handler.HandleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleAnalyze(t *testing.T) {
	t.Run("first offense", func(t *testing.T) {
		tc := NewTestContext(t, shield.DefaultConfig())

		req := httptest.NewRequest(http.MethodPost, "/api/shield/analyze", analyzeBody(t, "org-1", models.SeverityLow))
		rec := httptest.NewRecorder()

		tc.Handler.HandleAnalyze(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var res shield.AnalysisResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.True(t, res.ShieldActive)
		require.NotNil(t, res.Plan)
		assert.Equal(t, shield.ActionWarn, res.Plan.Primary)
		assert.True(t, res.AutoExecuted)
		require.NotNil(t, res.Execution)
		assert.True(t, res.Execution.Success)

		// Side effect: queued shield_action jobs for the plan's tags
		assert.NotEmpty(t, tc.Queue.JobsOfType(queue.JobTypeShieldAction))
	})

	t.Run("invalid body", func(t *testing.T) {
		tc := NewTestContext(t, shield.DefaultConfig())

		req := httptest.NewRequest(http.MethodPost, "/api/shield/analyze", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()

		tc.Handler.HandleAnalyze(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing organization", func(t *testing.T) {
		tc := NewTestContext(t, shield.DefaultConfig())

		req := httptest.NewRequest(http.MethodPost, "/api/shield/analyze", analyzeBody(t, "", models.SeverityLow))
		rec := httptest.NewRecorder()

		tc.Handler.HandleAnalyze(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "organizationId is required")
	})
}

func TestHandleExecuteActions(t *testing.T) {
	tc := NewTestContext(t, shield.DefaultConfig())

	body, err := json.Marshal(ExecuteActionsRequest{
		OrganizationID: "org-1",
		Comment: &models.Comment{
			ID:             "comment-1",
			Platform:       "discord",
			PlatformUserID: "user-1",
		},
		ActionTags: []string{models.TagHideComment, models.TagAddStrike1},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/shield/actions", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	tc.Handler.HandleExecuteActions(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Success         bool `json:"success"`
		ActionsExecuted []struct {
			Tag    string `json:"tag"`
			Status string `json:"status"`
		} `json:"actions_executed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Len(t, res.ActionsExecuted, 2)
	assert.Len(t, tc.Queue.JobsOfType(queue.JobTypeShieldAction), 1)
}

func TestHandleBehaviorGet(t *testing.T) {
	tc := NewTestContext(t, shield.DefaultConfig())

	key := behavior.Key{OrganizationID: "org-1", Platform: "twitter", PlatformUserID: "user-1"}
	rec4 := behavior.NewRecord(key)
	rec4.TotalViolations = 4
	tc.Behaviors.Seed(rec4)

	req := httptest.NewRequest(http.MethodGet, "/api/organizations/org-1/behaviors/twitter/user-1", nil)
	req.SetPathValue("org", "org-1")
	req.SetPathValue("platform", "twitter")
	req.SetPathValue("user", "user-1")
	rec := httptest.NewRecorder()

	tc.Handler.HandleBehaviorGet(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var res BehaviorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotNil(t, res.Behavior)
	assert.Equal(t, 4, res.Behavior.TotalViolations)
	assert.Equal(t, behavior.RiskMedium, res.RiskLevel)
}

func TestHandleBehaviorGetUnknownUser(t *testing.T) {
	tc := NewTestContext(t, shield.DefaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/organizations/org-1/behaviors/twitter/nobody", nil)
	req.SetPathValue("org", "org-1")
	req.SetPathValue("platform", "twitter")
	req.SetPathValue("user", "nobody")
	rec := httptest.NewRecorder()

	tc.Handler.HandleBehaviorGet(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var res BehaviorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotNil(t, res.Behavior)
	assert.Equal(t, 0, res.Behavior.TotalViolations)
	assert.Equal(t, behavior.RiskLow, res.RiskLevel)
}

func TestHandleCrossPlatformViolations(t *testing.T) {
	tc := NewTestContext(t, shield.DefaultConfig())

	for _, p := range []string{"twitter", "discord"} {
		rec := behavior.NewRecord(behavior.Key{OrganizationID: "org-1", Platform: p, PlatformUserID: "user-1"})
		rec.TotalViolations = 2
		tc.Behaviors.Seed(rec)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/organizations/org-1/users/user-1/violations", nil)
	req.SetPathValue("org", "org-1")
	req.SetPathValue("user", "user-1")
	rec := httptest.NewRecorder()

	tc.Handler.HandleCrossPlatformViolations(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var res behavior.CrossPlatformViolations
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 2, res.ByPlatform["twitter"])
	assert.Equal(t, 2, res.ByPlatform["discord"])
}

func TestHandleStats(t *testing.T) {
	tc := NewTestContext(t, shield.DefaultConfig())

	require.NoError(t, tc.Actions.InsertActions(context.Background(), []audit.ActionEntry{
		{
			OrganizationID: "org-1",
			CommentID:      "comment-1",
			Platform:       "twitter",
			PlatformUserID: "user-1",
			ActionTag:      models.TagHideComment,
			Severity:       "high",
			CreatedAt:      time.Now().UTC(),
		},
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/organizations/org-1/stats", nil)
	req.SetPathValue("org", "org-1")
	rec := httptest.NewRecorder()

	tc.Handler.HandleStats(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var res audit.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.TotalActions)
	assert.Equal(t, 1, res.ByAction[models.TagHideComment])
}

func TestHandleStatsBadDays(t *testing.T) {
	tc := NewTestContext(t, shield.DefaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/organizations/org-1/stats?days=zero", nil)
	req.SetPathValue("org", "org-1")
	rec := httptest.NewRecorder()

	tc.Handler.HandleStats(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
