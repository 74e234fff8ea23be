// Package behavior owns per-(organization, platform, user) violation history
// and mute state. All mutation goes through Store.AtomicUpsert so that
// concurrent moderation passes for the same user never lose updates.
package behavior

import (
	"context"
	"encoding/json"
	"time"
)

// Key identifies a tracked user within an organization.
type Key struct {
	OrganizationID string `json:"organization_id"`
	Platform       string `json:"platform"`
	PlatformUserID string `json:"platform_user_id"`
}

// ActionRecord is one entry in a user's append-only action history.
type ActionRecord struct {
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	CommentID string    `json:"comment_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// actionRecordJSON tolerates the three timestamp field names that have
// appeared in stored history ("timestamp", "created_at", "date") and
// unparseable values. A bad timestamp yields a zero time rather than an
// unmarshal error, so one corrupt entry cannot poison a whole record.
type actionRecordJSON struct {
	Action    string `json:"action"`
	Timestamp any    `json:"timestamp"`
	CreatedAt any    `json:"created_at"`
	Date      any    `json:"date"`
	CommentID string `json:"comment_id"`
	Reason    string `json:"reason"`
}

func (a *ActionRecord) UnmarshalJSON(data []byte) error {
	var raw actionRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.Action = raw.Action
	a.CommentID = raw.CommentID
	a.Reason = raw.Reason
	a.Timestamp = time.Time{}
	for _, v := range []any{raw.Timestamp, raw.CreatedAt, raw.Date} {
		s, ok := v.(string)
		if !ok || s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			a.Timestamp = t
			break
		}
	}
	return nil
}

// PlatformConfig holds per-platform moderation preferences for a user record.
type PlatformConfig struct {
	// EscalationPolicy is one of "aggressive", "standard", "lenient".
	// Unknown or empty values are treated as "standard".
	EscalationPolicy string `json:"escalation_policy,omitempty"`
}

// User types recognized by the leniency override.
const (
	UserTypeStandard        = "standard"
	UserTypeVerifiedCreator = "verified_creator"
)

// Record is the persistent behavior state for one tracked user.
//
// Invariants: TotalViolations never decreases, ActionsTaken is append-only in
// occurrence order, and IsMuted implies MuteExpiresAt is set.
type Record struct {
	Key
	PlatformUsername string         `json:"platform_username,omitempty"`
	TotalComments    int            `json:"total_comments"`
	TotalViolations  int            `json:"total_violations"`
	SevereViolations int            `json:"severe_violations"`
	SeverityCounts   map[string]int `json:"severity_counts,omitempty"`
	StrikesLevel1    int            `json:"strikes_level_1"`
	StrikesLevel2    int            `json:"strikes_level_2"`
	ActionsTaken     []ActionRecord `json:"actions_taken"`
	IsMuted          bool           `json:"is_muted"`
	MuteExpiresAt    *time.Time     `json:"mute_expires_at,omitempty"`
	IsBlocked        bool           `json:"is_blocked"`
	UserType         string         `json:"user_type,omitempty"`
	PlatformConfig   PlatformConfig `json:"platform_specific_config"`
	FirstSeenAt      time.Time      `json:"first_seen_at"`
	LastSeenAt       time.Time      `json:"last_seen_at"`
}

// NewRecord returns the zero behavior state for a previously unseen user.
func NewRecord(key Key) *Record {
	now := time.Now().UTC()
	return &Record{
		Key:            key,
		SeverityCounts: map[string]int{},
		ActionsTaken:   []ActionRecord{},
		UserType:       UserTypeStandard,
		FirstSeenAt:    now,
		LastSeenAt:     now,
	}
}

// MutedAt reports whether the record's mute is still in force at t.
func (r *Record) MutedAt(t time.Time) bool {
	if !r.IsMuted || r.MuteExpiresAt == nil {
		return false
	}
	return r.MuteExpiresAt.After(t)
}

// LastActionAt returns the timestamp of the most recent action taken against
// this user, falling back to LastSeenAt when the entry carries no usable
// timestamp. The second return is false when neither is available.
func (r *Record) LastActionAt() (time.Time, bool) {
	if len(r.ActionsTaken) == 0 {
		return time.Time{}, false
	}
	last := r.ActionsTaken[len(r.ActionsTaken)-1]
	if !last.Timestamp.IsZero() {
		return last.Timestamp, true
	}
	if !r.LastSeenAt.IsZero() {
		return r.LastSeenAt, true
	}
	return time.Time{}, false
}

// Update describes one atomic mutation of a behavior record. The store applies
// the whole update inside a single transaction (or script) so that concurrent
// updates for the same key serialize instead of clobbering each other.
type Update struct {
	// Severity of the triggering violation ("low".."critical"). Increments
	// TotalViolations and the matching severity counter when non-empty.
	Severity string

	// Tags are the executed action tags; each becomes an ActionRecord and
	// may flip mute/block state (mute_temp, mute_permanent, block_user).
	Tags []string

	CommentID        string
	PlatformUsername string
	Timestamp        time.Time
}

// Mute durations applied when a mute tag is recorded. A permanent mute still
// carries an expiry so the IsMuted/MuteExpiresAt invariant holds; the horizon
// is long enough to never expire in practice.
const (
	TempMuteDuration     = 24 * time.Hour
	PermanentMuteHorizon = 10 * 365 * 24 * time.Hour
)

// Apply mutates the record in place according to the update. Store
// implementations call this inside their transaction so every backend applies
// identical semantics.
func (r *Record) Apply(u Update) {
	now := u.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if r.SeverityCounts == nil {
		r.SeverityCounts = map[string]int{}
	}
	if u.PlatformUsername != "" {
		r.PlatformUsername = u.PlatformUsername
	}
	if u.Severity != "" {
		r.TotalViolations++
		r.SeverityCounts[u.Severity]++
		if u.Severity == "high" || u.Severity == "critical" {
			r.SevereViolations++
		}
	}
	for _, tag := range u.Tags {
		r.ActionsTaken = append(r.ActionsTaken, ActionRecord{
			Action:    tag,
			Timestamp: now,
			CommentID: u.CommentID,
		})
		switch tag {
		case "add_strike_1":
			r.StrikesLevel1++
		case "add_strike_2":
			r.StrikesLevel2++
		case "mute_temp":
			expires := now.Add(TempMuteDuration)
			r.IsMuted = true
			r.MuteExpiresAt = &expires
		case "mute_permanent":
			expires := now.Add(PermanentMuteHorizon)
			r.IsMuted = true
			r.MuteExpiresAt = &expires
		case "block_user":
			r.IsBlocked = true
		}
	}
	r.LastSeenAt = now
}

// Store is the persistence interface for behavior records.
// Implementations must be safe for concurrent use and must guarantee that
// AtomicUpsert never loses updates for the same key.
type Store interface {
	// Get returns the record for key, or nil when the user is unknown.
	Get(ctx context.Context, key Key) (*Record, error)

	// AtomicUpsert creates the record if absent, applies the update, and
	// returns the post-update state.
	AtomicUpsert(ctx context.Context, key Key, update Update) (*Record, error)

	// ListByUser returns all platform records for one platform user within
	// an organization (cross-platform aggregation).
	ListByUser(ctx context.Context, organizationID, platformUserID string) ([]*Record, error)

	// ListByOrg returns all records for an organization.
	ListByOrg(ctx context.Context, organizationID string) ([]*Record, error)
}
