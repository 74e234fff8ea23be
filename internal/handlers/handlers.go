// Package handlers exposes the moderation service over a JSON HTTP API.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"shield/internal/behavior"
	"shield/internal/models"
	"shield/internal/shield"

	"github.com/rs/zerolog/log"
)

// Config holds handler configuration options
type Config struct {
	// StatsWindowDays is the default lookback for the stats endpoint
	// when the request does not specify one.
	StatsWindowDays int
}

// DefaultConfig returns the default handler configuration
func DefaultConfig() Config {
	return Config{StatsWindowDays: 30}
}

// Handler contains all HTTP handler methods and their dependencies.
// Dependencies are injected via the constructor for better testability.
type Handler struct {
	service *shield.Service
	config  Config
}

// NewHandler creates a new Handler wired to the moderation service.
func NewHandler(service *shield.Service, config Config) *Handler {
	if config.StatsWindowDays <= 0 {
		config.StatsWindowDays = DefaultConfig().StatsWindowDays
	}
	return &Handler{service: service, config: config}
}

// writeJSON encodes and writes a JSON response
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// errorResponse is the uniform error body returned by every endpoint
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AnalyzeRequest is the payload for the comment analysis endpoint.
type AnalyzeRequest struct {
	OrganizationID string            `json:"organization_id"`
	Comment        *models.Comment   `json:"comment"`
	Analysis       *models.Violation `json:"analysis"`
	Metadata       *models.Metadata  `json:"metadata,omitempty"`
}

// HandleAnalyze runs the full moderation pass for one comment.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.service.AnalyzeComment(r.Context(), req.OrganizationID, req.Comment, req.Analysis, req.Metadata)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ExecuteActionsRequest is the payload for the direct tag execution endpoint.
type ExecuteActionsRequest struct {
	OrganizationID string           `json:"organization_id"`
	Comment        *models.Comment  `json:"comment"`
	ActionTags     any              `json:"action_tags"`
	Metadata       *models.Metadata `json:"metadata,omitempty"`
}

// HandleExecuteActions executes an explicit action-tag list for one comment.
// Validation failures surface inside the result body rather than as HTTP
// errors so callers see per-tag outcomes either way.
func (h *Handler) HandleExecuteActions(w http.ResponseWriter, r *http.Request) {
	var req ExecuteActionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res := h.service.ExecuteFromTags(r.Context(), req.OrganizationID, req.Comment, req.ActionTags, req.Metadata)
	writeJSON(w, http.StatusOK, res)
}

// behaviorKey builds a behavior key from path parameters, writing a 400 and
// returning false when any segment is missing.
func behaviorKey(w http.ResponseWriter, r *http.Request) (behavior.Key, bool) {
	key := behavior.Key{
		OrganizationID: r.PathValue("org"),
		Platform:       r.PathValue("platform"),
		PlatformUserID: r.PathValue("user"),
	}
	if key.OrganizationID == "" || key.Platform == "" || key.PlatformUserID == "" {
		writeError(w, http.StatusBadRequest, "organization, platform and user are required")
		return behavior.Key{}, false
	}
	return key, true
}

// BehaviorResponse pairs a tracked record with its risk classification.
type BehaviorResponse struct {
	Behavior  *behavior.Record   `json:"behavior"`
	RiskLevel behavior.RiskLevel `json:"risk_level"`
}

// HandleBehaviorGet returns the tracked behavior record and risk level for
// one platform user.
func (h *Handler) HandleBehaviorGet(w http.ResponseWriter, r *http.Request) {
	key, ok := behaviorKey(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, BehaviorResponse{
		Behavior:  h.service.Behavior(r.Context(), key),
		RiskLevel: h.service.RiskLevel(r.Context(), key),
	})
}

// HandleCrossPlatformViolations aggregates one user's violations across every
// platform the organization moderates.
func (h *Handler) HandleCrossPlatformViolations(w http.ResponseWriter, r *http.Request) {
	orgID := r.PathValue("org")
	userID := r.PathValue("user")
	if orgID == "" || userID == "" {
		writeError(w, http.StatusBadRequest, "organization and user are required")
		return
	}

	writeJSON(w, http.StatusOK, h.service.CrossPlatformViolations(r.Context(), orgID, userID))
}

// HandleStats returns aggregated moderation action statistics for an
// organization. The lookback window defaults to the configured value and can
// be overridden with ?days=N.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	orgID := r.PathValue("org")
	if orgID == "" {
		writeError(w, http.StatusBadRequest, "organization is required")
		return
	}

	days := h.config.StatsWindowDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	writeJSON(w, http.StatusOK, h.service.Stats(r.Context(), orgID, since))
}
