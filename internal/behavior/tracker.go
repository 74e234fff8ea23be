package behavior

import (
	"context"
	"time"

	"shield/internal/metrics"

	"github.com/rs/zerolog/log"
)

// RiskLevel is a coarse categorization of a user's violation history.
type RiskLevel string

const (
	RiskNone   RiskLevel = "none"
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// TrackResult reports whether a behavior update was persisted. Tracking is
// fail-open: a store failure is logged and surfaced as Success=false, never
// as an error that would block comment processing.
type TrackResult struct {
	Success bool
	Record  *Record
}

// CrossPlatformViolations aggregates one user's violations across every
// platform an organization moderates.
type CrossPlatformViolations struct {
	Total      int            `json:"total"`
	ByPlatform map[string]int `json:"by_platform"`
}

// Tracker wraps a Store with the fail-open tracking semantics the moderation
// pipeline relies on.
type Tracker struct {
	store Store
}

// NewTracker creates a Tracker backed by the given store.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// Get returns the behavior record for key, or a fresh zero record when the
// user is unknown or the store read fails. Reads degrade toward the mildest
// classification.
func (t *Tracker) Get(ctx context.Context, key Key) *Record {
	rec, err := t.store.Get(ctx, key)
	if err != nil {
		log.Error().Err(err).
			Str("organization_id", key.OrganizationID).
			Str("platform", key.Platform).
			Str("platform_user_id", key.PlatformUserID).
			Msg("behavior: failed to read record, using zero state")
		return NewRecord(key)
	}
	if rec == nil {
		return NewRecord(key)
	}
	return rec
}

// Track records a violation for the given user. It performs exactly one
// atomic upsert regardless of how many tags were executed.
func (t *Tracker) Track(ctx context.Context, key Key, update Update) TrackResult {
	rec, err := t.store.AtomicUpsert(ctx, key, update)
	if err != nil {
		log.Error().Err(err).
			Str("organization_id", key.OrganizationID).
			Str("platform", key.Platform).
			Str("platform_user_id", key.PlatformUserID).
			Msg("behavior: failed to persist update")
		metrics.BehaviorUpdatesTotal.WithLabelValues("error").Inc()
		return TrackResult{Success: false}
	}
	metrics.BehaviorUpdatesTotal.WithLabelValues("ok").Inc()
	return TrackResult{Success: true, Record: rec}
}

// RiskLevel categorizes a user from cumulative violations and recency.
// Unknown users and store failures yield RiskLow.
func (t *Tracker) RiskLevel(ctx context.Context, key Key) RiskLevel {
	rec, err := t.store.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).
			Str("platform_user_id", key.PlatformUserID).
			Msg("behavior: risk lookup failed, defaulting to low")
		return RiskLow
	}
	if rec == nil {
		return RiskLow
	}
	level := riskFromViolations(rec.TotalViolations)
	// A violation inside the last day bumps risk one step.
	if last, ok := rec.LastActionAt(); ok && time.Since(last) < 24*time.Hour {
		level = bumpRisk(level)
	}
	return level
}

func riskFromViolations(n int) RiskLevel {
	switch {
	case n <= 0:
		return RiskNone
	case n <= 2:
		return RiskLow
	case n <= 5:
		return RiskMedium
	default:
		return RiskHigh
	}
}

func bumpRisk(level RiskLevel) RiskLevel {
	switch level {
	case RiskNone:
		return RiskLow
	case RiskLow:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// CrossPlatform aggregates violations for one platform user id across all
// platforms in the organization. Store errors degrade to a zero result.
func (t *Tracker) CrossPlatform(ctx context.Context, organizationID, platformUserID string) CrossPlatformViolations {
	out := CrossPlatformViolations{ByPlatform: map[string]int{}}
	recs, err := t.store.ListByUser(ctx, organizationID, platformUserID)
	if err != nil {
		log.Error().Err(err).
			Str("organization_id", organizationID).
			Str("platform_user_id", platformUserID).
			Msg("behavior: cross-platform lookup failed")
		return out
	}
	for _, rec := range recs {
		if rec.TotalViolations <= 0 {
			continue
		}
		out.ByPlatform[rec.Platform] += rec.TotalViolations
		out.Total += rec.TotalViolations
	}
	return out
}
