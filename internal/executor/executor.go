// Package executor consumes action-tag lists and turns them into queued
// platform jobs, local behavior updates, and audit records. Dispatch is
// at-least-once: a tag failure is isolated to that tag and never aborts
// the rest of the batch.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"shield/internal/audit"
	"shield/internal/behavior"
	"shield/internal/metrics"
	"shield/internal/models"
	"shield/internal/queue"
	"shield/internal/tracing"
)

// Tag processing statuses.
const (
	StatusExecuted = "executed"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
)

// Skip reasons.
const (
	ReasonAutoActionsDisabled = "autoActions_disabled"
	ReasonNotReportable       = "comment not reportable to platform"
	ReasonUnknownTag          = "unknown_tag"
)

// queueableTags dispatch a shield_action job to the worker fleet.
var queueableTags = map[string]bool{
	models.TagHideComment:         true,
	models.TagBlockUser:           true,
	models.TagMuteTemp:            true,
	models.TagMutePermanent:       true,
	models.TagRequireManualReview: true,
	models.TagGatekeeperDown:      true,
}

// localTags resolve against the behavior tracker without queueing.
var localTags = map[string]bool{
	models.TagCheckReincidence: true,
	models.TagAddStrike1:       true,
	models.TagAddStrike2:       true,
}

// TagResult is the outcome for one processed tag.
type TagResult struct {
	Tag    string `json:"tag"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	JobID  string `json:"job_id,omitempty"`
}

// FailedAction describes one tag whose dispatch failed.
type FailedAction struct {
	Tag   string `json:"tag"`
	Error string `json:"error"`
}

// Result is the outcome of one ExecuteFromTags call.
type Result struct {
	Success         bool           `json:"success"`
	Skipped         bool           `json:"skipped,omitempty"`
	Reason          string         `json:"reason,omitempty"`
	ActionsExecuted []TagResult    `json:"actions_executed"`
	FailedActions   []FailedAction `json:"failed_actions"`
	Reincident      bool           `json:"reincident,omitempty"`
}

// Config tunes the executor.
type Config struct {
	AutoActions bool
	// ReincidenceThreshold is the violation count at which check_reincidence
	// flags the user as a repeat offender.
	ReincidenceThreshold int
}

// Executor orchestrates action-tag execution.
type Executor struct {
	cfg      Config
	queue    queue.Queue
	tracker  *behavior.Tracker
	recorder *audit.Recorder
}

func New(cfg Config, q queue.Queue, tracker *behavior.Tracker, recorder *audit.Recorder) *Executor {
	if cfg.ReincidenceThreshold <= 0 {
		cfg.ReincidenceThreshold = 3
	}
	return &Executor{cfg: cfg, queue: q, tracker: tracker, recorder: recorder}
}

// ExecuteFromTags processes an action-tag list against one comment.
// actionTags is loosely typed because callers hand over classifier output
// verbatim; anything that is not a list of strings is rejected, not coerced.
//
// Checks run in order: automatic actions enabled, organization and comment
// presence, tag list shape, then the comment's own fields. Validation
// failures return Success=false with a single failed_actions entry
// describing the problem.
func (e *Executor) ExecuteFromTags(ctx context.Context, orgID string, comment *models.Comment, actionTags any, md *models.Metadata) Result {
	if !e.cfg.AutoActions {
		return Result{
			Success:         true,
			Skipped:         true,
			Reason:          ReasonAutoActionsDisabled,
			ActionsExecuted: []TagResult{},
			FailedActions:   []FailedAction{},
		}
	}
	if orgID == "" {
		return validationFailure(errors.New("organizationId is required"))
	}
	if comment == nil {
		return validationFailure(errors.New("comment is required"))
	}
	tags, ok := coerceTags(actionTags)
	if !ok {
		return validationFailure(errors.New("action_tags must be an array"))
	}
	if err := comment.ValidateForExecution(); err != nil {
		return validationFailure(err)
	}

	ctx, span := tracing.ShieldSpan(ctx, "execute_tags", orgID, comment.Platform)
	defer span.End()

	if md == nil {
		md = &models.Metadata{}
	}

	res := Result{
		Success:         true,
		ActionsExecuted: []TagResult{},
		FailedActions:   []FailedAction{},
	}

	key := behavior.Key{
		OrganizationID: orgID,
		Platform:       comment.Platform,
		PlatformUserID: comment.PlatformUserID,
	}
	update := behavior.Update{
		Severity:         string(models.SeverityFromToxicity(md.ToxicityScore)),
		CommentID:        comment.ID,
		PlatformUsername: comment.PlatformUsername,
	}

	var recorded []audit.ActionEntry
	executed, failed := 0, 0

	for _, tag := range tags {
		var tr TagResult
		switch {
		case tag == models.TagReportToPlatform && !md.PlatformViolations.Reportable:
			tr = TagResult{Tag: tag, Status: StatusSkipped, Reason: ReasonNotReportable}

		case queueableTags[tag] || tag == models.TagReportToPlatform:
			job, err := e.enqueueAction(ctx, tag, orgID, comment)
			if err != nil {
				tr = TagResult{Tag: tag, Status: StatusFailed, Reason: err.Error()}
				res.FailedActions = append(res.FailedActions, FailedAction{Tag: tag, Error: err.Error()})
				failed++
			} else {
				tr = TagResult{Tag: tag, Status: StatusExecuted, JobID: job.ID}
				update.Tags = append(update.Tags, tag)
				executed++
			}

		case tag == models.TagCheckReincidence:
			rec := e.tracker.Get(ctx, key)
			if rec.TotalViolations >= e.cfg.ReincidenceThreshold {
				res.Reincident = true
			}
			tr = TagResult{Tag: tag, Status: StatusExecuted}
			update.Tags = append(update.Tags, tag)
			executed++

		case localTags[tag]:
			tr = TagResult{Tag: tag, Status: StatusExecuted}
			update.Tags = append(update.Tags, tag)
			executed++

		default:
			tr = TagResult{Tag: tag, Status: StatusSkipped, Reason: ReasonUnknownTag}
		}

		metrics.ActionsTotal.WithLabelValues(tag, tr.Status).Inc()
		if tr.Status == StatusExecuted {
			recorded = append(recorded, audit.ActionEntry{
				OrganizationID: orgID,
				CommentID:      comment.ID,
				Platform:       comment.Platform,
				PlatformUserID: comment.PlatformUserID,
				ActionTag:      tag,
				Severity:       update.Severity,
			})
		}
		res.ActionsExecuted = append(res.ActionsExecuted, tr)
	}

	// One behavior upsert covers every tag that got through.
	if len(update.Tags) > 0 {
		e.tracker.Track(ctx, key, update)
	}
	e.recorder.RecordBatch(ctx, recorded)

	if failed > 0 && executed == 0 {
		res.Success = false
	}

	log.Info().
		Str("organization_id", orgID).
		Str("platform", comment.Platform).
		Str("comment_id", comment.ID).
		Int("executed", executed).
		Int("failed", failed).
		Msg("processed action tags")

	return res
}

func (e *Executor) enqueueAction(ctx context.Context, tag, orgID string, comment *models.Comment) (*queue.Job, error) {
	job, err := e.queue.AddJob(ctx, queue.JobTypeShieldAction, map[string]any{
		"action_type":      tag,
		"organization_id":  orgID,
		"comment":          comment,
		"platform":         comment.Platform,
		"platform_user_id": comment.PlatformUserID,
	}, queue.JobOptions{Priority: queue.PriorityUrgent})
	if err != nil {
		metrics.JobsEnqueuedTotal.WithLabelValues(queue.JobTypeShieldAction, "error").Inc()
		log.Warn().
			Err(err).
			Str("organization_id", orgID).
			Str("tag", tag).
			Msg("failed to enqueue shield action")
		return nil, fmt.Errorf("enqueue %s: %w", tag, err)
	}
	metrics.JobsEnqueuedTotal.WithLabelValues(queue.JobTypeShieldAction, "ok").Inc()
	return job, nil
}

func validationFailure(err error) Result {
	return Result{
		Success:         false,
		ActionsExecuted: []TagResult{},
		FailedActions:   []FailedAction{{Tag: "", Error: err.Error()}},
	}
}

// coerceTags accepts []string or a []any whose elements are all strings.
func coerceTags(v any) ([]string, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
