// Package audit keeps the permanent record of moderation actions taken
// against users. Recording is best effort: a write failure never blocks
// the action that triggered it.
package audit

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// ActionEntry is one recorded moderation action.
type ActionEntry struct {
	ID             string         `json:"id,omitempty"`
	OrganizationID string         `json:"organization_id"`
	CommentID      string         `json:"comment_id"`
	Platform       string         `json:"platform"`
	PlatformUserID string         `json:"platform_user_id"`
	ActionTag      string         `json:"action_tag"`
	Severity       string         `json:"severity,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Stats aggregates recorded actions for reporting.
type Stats struct {
	TotalActions int            `json:"total_actions"`
	ByAction     map[string]int `json:"by_action"`
	BySeverity   map[string]int `json:"by_severity"`
	ByPlatform   map[string]int `json:"by_platform"`
	TopOffenders []Offender     `json:"top_offenders"`
}

// Offender pairs a platform user with their recorded action count.
type Offender struct {
	Platform       string `json:"platform"`
	PlatformUserID string `json:"platform_user_id"`
	Actions        int    `json:"actions"`
}

// Store persists action entries.
type Store interface {
	InsertActions(ctx context.Context, entries []ActionEntry) error
	ListByOrg(ctx context.Context, orgID string, since time.Time) ([]ActionEntry, error)
}

// Recorder writes action entries through a Store, swallowing errors.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// RecordBatch persists the entries in one call. Failures are logged and
// dropped; an empty batch is a no-op.
func (r *Recorder) RecordBatch(ctx context.Context, entries []ActionEntry) {
	if len(entries) == 0 || r.store == nil {
		return
	}
	now := time.Now().UTC()
	for i := range entries {
		if entries[i].CreatedAt.IsZero() {
			entries[i].CreatedAt = now
		}
	}
	if err := r.store.InsertActions(ctx, entries); err != nil {
		log.Error().
			Err(err).
			Str("organization_id", entries[0].OrganizationID).
			Int("entries", len(entries)).
			Msg("failed to record moderation actions")
	}
}

// StatsForOrg aggregates the org's recorded actions since the cutoff.
// Store errors yield empty stats rather than failing the caller.
func (r *Recorder) StatsForOrg(ctx context.Context, orgID string, since time.Time) Stats {
	stats := Stats{
		ByAction:   map[string]int{},
		BySeverity: map[string]int{},
		ByPlatform: map[string]int{},
	}
	if r.store == nil {
		return stats
	}
	entries, err := r.store.ListByOrg(ctx, orgID, since)
	if err != nil {
		log.Warn().Err(err).Str("organization_id", orgID).Msg("failed to load action history for stats")
		return stats
	}

	offenders := map[Offender]int{}
	for _, e := range entries {
		stats.TotalActions++
		stats.ByAction[e.ActionTag]++
		if e.Severity != "" {
			stats.BySeverity[e.Severity]++
		}
		stats.ByPlatform[e.Platform]++
		offenders[Offender{Platform: e.Platform, PlatformUserID: e.PlatformUserID}]++
	}
	for o, n := range offenders {
		o.Actions = n
		stats.TopOffenders = append(stats.TopOffenders, o)
	}
	sort.Slice(stats.TopOffenders, func(i, j int) bool {
		return stats.TopOffenders[i].Actions > stats.TopOffenders[j].Actions
	})
	if len(stats.TopOffenders) > 10 {
		stats.TopOffenders = stats.TopOffenders[:10]
	}
	return stats
}
