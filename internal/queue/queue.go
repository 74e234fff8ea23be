// Package queue provides asynchronous job dispatch for moderation actions.
// Jobs are fire-and-forget with at-least-once delivery; workers must
// tolerate duplicates.
package queue

import (
	"context"
	"time"
)

// Job type names understood by the worker fleet.
const (
	JobTypeShieldAction    = "shield_action"
	JobTypeAnalyzeToxicity = "analyze_toxicity"
)

// Priority levels, lower runs sooner. Shield actions always enqueue at
// PriorityUrgent regardless of the triggering comment's analysis priority.
const (
	PriorityUrgent = 1
	PriorityHigh   = 2
	PriorityMedium = 3
	PriorityLow    = 5
)

const DefaultMaxAttempts = 3

// Job is one unit of queued work.
type Job struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Payload     map[string]any `json:"payload"`
	Priority    int            `json:"priority"`
	MaxAttempts int            `json:"max_attempts"`
	CreatedAt   time.Time      `json:"created_at"`
}

// JobOptions tunes enqueue behavior. Zero Priority means PriorityMedium;
// zero MaxAttempts means DefaultMaxAttempts.
type JobOptions struct {
	Priority    int
	MaxAttempts int
}

func (o JobOptions) withDefaults() JobOptions {
	if o.Priority == 0 {
		o.Priority = PriorityMedium
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	return o
}

// Queue accepts jobs for asynchronous execution.
type Queue interface {
	AddJob(ctx context.Context, jobType string, payload map[string]any, opts JobOptions) (*Job, error)
}
