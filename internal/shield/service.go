package shield

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"shield/internal/audit"
	"shield/internal/behavior"
	"shield/internal/executor"
	"shield/internal/metrics"
	"shield/internal/models"
	"shield/internal/platform"
	"shield/internal/queue"
	"shield/internal/tracing"
)

// Inactive reasons returned when analysis produces no plan.
const (
	ReasonDisabled = "disabled"
)

// AnalysisResult is the outcome of one comment analysis.
type AnalysisResult struct {
	ShieldActive bool   `json:"shield_active"`
	Reason       string `json:"reason,omitempty"`

	Priority        int                                `json:"priority,omitempty"`
	Plan            *ActionPlan                        `json:"plan,omitempty"`
	PlatformActions map[string]platform.PlatformAction `json:"platform_actions,omitempty"`
	Behavior        *behavior.Record                   `json:"behavior,omitempty"`

	AutoExecuted bool             `json:"auto_executed"`
	Execution    *executor.Result `json:"execution,omitempty"`
}

// Service ties the escalation engine to the behavior tracker, the platform
// mapper, and the action executor. It is the single entry point the API
// layer calls per analyzed comment.
type Service struct {
	cfg      Config
	engine   *Engine
	tracker  *behavior.Tracker
	exec     *executor.Executor
	queue    queue.Queue
	recorder *audit.Recorder
}

func NewService(cfg Config, tracker *behavior.Tracker, exec *executor.Executor, q queue.Queue, recorder *audit.Recorder) *Service {
	return &Service{
		cfg:      cfg,
		engine:   NewEngine(cfg),
		tracker:  tracker,
		exec:     exec,
		queue:    q,
		recorder: recorder,
	}
}

// Priority maps a violation to its queue priority. Severe threats and very
// high toxicity scores jump the queue.
func Priority(v *models.Violation) int {
	sev := v.EffectiveSeverity()
	if sev == models.SeverityCritical || v.ToxicityScore >= 0.95 {
		return queue.PriorityUrgent
	}
	if sev == models.SeverityHigh || hasThreatCategory(v.Categories) {
		return queue.PriorityHigh
	}
	if sev == models.SeverityMedium || v.ToxicityScore >= 0.6 {
		return queue.PriorityMedium
	}
	return queue.PriorityLow
}

func hasThreatCategory(categories []string) bool {
	for _, c := range categories {
		switch c {
		case "threat", "hate", "harassment":
			return true
		}
	}
	return false
}

// AnalyzeComment runs the full moderation pass for one comment: behavior
// lookup, plan computation, platform capability resolution, optional
// re-analysis queueing and automatic execution. Storage and queue failures
// degrade rather than abort; the returned error covers invalid input only.
func (s *Service) AnalyzeComment(ctx context.Context, orgID string, comment *models.Comment, v *models.Violation, md *models.Metadata) (*AnalysisResult, error) {
	if !s.cfg.Enabled {
		return &AnalysisResult{ShieldActive: false, Reason: ReasonDisabled}, nil
	}
	if orgID == "" {
		return nil, errors.New("organizationId is required")
	}
	if comment == nil {
		return nil, errors.New("comment is required")
	}
	if v == nil {
		return nil, errors.New("analysis result is required")
	}

	ctx, span := tracing.ShieldSpan(ctx, "analyze", orgID, comment.Platform)
	defer span.End()

	key := behavior.Key{
		OrganizationID: orgID,
		Platform:       comment.Platform,
		PlatformUserID: comment.PlatformUserID,
	}
	rec := s.tracker.Get(ctx, key)

	plan := s.engine.DetermineActions(v, rec)
	metrics.PlanDecisionsTotal.WithLabelValues(string(plan.Severity), string(plan.Primary)).Inc()
	if plan.Emergency {
		metrics.EmergencyEscalationsTotal.Inc()
	}

	priority := Priority(v)
	if priority <= queue.PriorityHigh {
		s.queueReanalysis(ctx, orgID, comment, priority)
	}

	res := &AnalysisResult{
		ShieldActive:    true,
		Priority:        priority,
		Plan:            plan,
		PlatformActions: platform.Actions(comment.Platform, string(plan.Primary)),
		Behavior:        rec,
	}

	if md == nil {
		md = &models.Metadata{ToxicityScore: v.ToxicityScore}
	}

	if s.cfg.AutoActions && plan.AutoExecute {
		exec := s.exec.ExecuteFromTags(ctx, orgID, comment, plan.Tags(), md)
		res.AutoExecuted = true
		res.Execution = &exec
	} else {
		// No executor run means no behavior write happened yet; record the
		// violation itself so escalation state stays current.
		s.tracker.Track(ctx, key, behavior.Update{
			Severity:         string(plan.Severity),
			CommentID:        comment.ID,
			PlatformUsername: comment.PlatformUsername,
		})
	}

	log.Info().
		Str("organization_id", orgID).
		Str("platform", comment.Platform).
		Str("comment_id", comment.ID).
		Str("severity", string(plan.Severity)).
		Str("action", string(plan.Primary)).
		Int("priority", priority).
		Bool("auto_executed", res.AutoExecuted).
		Msg("analyzed comment")

	return res, nil
}

// queueReanalysis enqueues a high-priority toxicity re-analysis job.
// Best effort: a queue failure is logged and the analysis continues.
func (s *Service) queueReanalysis(ctx context.Context, orgID string, comment *models.Comment, priority int) {
	if s.queue == nil {
		return
	}
	_, err := s.queue.AddJob(ctx, queue.JobTypeAnalyzeToxicity, map[string]any{
		"comment_id":      comment.ID,
		"organization_id": orgID,
		"platform":        comment.Platform,
		"text":            comment.Text,
		"shield_mode":     true,
		"shield_priority": priority,
	}, queue.JobOptions{Priority: priority, MaxAttempts: 2})
	if err != nil {
		metrics.JobsEnqueuedTotal.WithLabelValues(queue.JobTypeAnalyzeToxicity, "error").Inc()
		log.Warn().
			Err(err).
			Str("organization_id", orgID).
			Str("comment_id", comment.ID).
			Msg("failed to queue re-analysis")
		return
	}
	metrics.JobsEnqueuedTotal.WithLabelValues(queue.JobTypeAnalyzeToxicity, "ok").Inc()
}

// ExecuteFromTags exposes the tag executor for callers that already hold an
// action-tag list (gatekeeper fallbacks, manual review resolutions).
func (s *Service) ExecuteFromTags(ctx context.Context, orgID string, comment *models.Comment, actionTags any, md *models.Metadata) executor.Result {
	return s.exec.ExecuteFromTags(ctx, orgID, comment, actionTags, md)
}

// Behavior returns the tracked record for one user, or a fresh empty record
// when the user has no history.
func (s *Service) Behavior(ctx context.Context, key behavior.Key) *behavior.Record {
	return s.tracker.Get(ctx, key)
}

// RiskLevel reports the tracked risk classification for one user.
func (s *Service) RiskLevel(ctx context.Context, key behavior.Key) behavior.RiskLevel {
	return s.tracker.RiskLevel(ctx, key)
}

// CrossPlatformViolations aggregates a user's violations across platforms.
func (s *Service) CrossPlatformViolations(ctx context.Context, orgID, platformUserID string) behavior.CrossPlatformViolations {
	return s.tracker.CrossPlatform(ctx, orgID, platformUserID)
}

// Stats aggregates the organization's recorded actions since the cutoff.
func (s *Service) Stats(ctx context.Context, orgID string, since time.Time) audit.Stats {
	return s.recorder.StatsForOrg(ctx, orgID, since)
}
