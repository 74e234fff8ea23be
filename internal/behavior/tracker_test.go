package behavior_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shield/internal/behavior"
	"shield/internal/database/memstore"
)

func setupTestTracker(t *testing.T) (*behavior.Tracker, *memstore.BehaviorStore) {
	t.Helper()
	store := memstore.NewBehaviorStore()
	return behavior.NewTracker(store), store
}

func TestTrackerGetUnknownUser(t *testing.T) {
	tracker, _ := setupTestTracker(t)

	rec := tracker.Get(context.Background(), testKey())
	require.NotNil(t, rec)
	assert.Equal(t, 0, rec.TotalViolations)
	assert.Equal(t, behavior.UserTypeStandard, rec.UserType)
}

func TestTrackerGetFailOpen(t *testing.T) {
	tracker, store := setupTestTracker(t)
	store.Fail = errors.New("store down")

	rec := tracker.Get(context.Background(), testKey())
	require.NotNil(t, rec)
	assert.Equal(t, 0, rec.TotalViolations)
}

func TestTrackerTrack(t *testing.T) {
	tracker, store := setupTestTracker(t)
	ctx := context.Background()

	res := tracker.Track(ctx, testKey(), behavior.Update{Severity: "high", Tags: []string{"mute_temp"}})
	require.True(t, res.Success)
	require.NotNil(t, res.Record)
	assert.Equal(t, 1, res.Record.TotalViolations)
	assert.True(t, res.Record.IsMuted)

	// The same state is visible on re-read.
	got, err := store.Get(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalViolations)
}

func TestTrackerTrackFailOpen(t *testing.T) {
	tracker, store := setupTestTracker(t)
	store.Fail = errors.New("store down")

	res := tracker.Track(context.Background(), testKey(), behavior.Update{Severity: "low"})
	assert.False(t, res.Success)
	assert.Nil(t, res.Record)
}

func TestTrackerRiskLevel(t *testing.T) {
	tracker, store := setupTestTracker(t)
	ctx := context.Background()

	cases := []struct {
		violations int
		want       behavior.RiskLevel
	}{
		{0, behavior.RiskNone},
		{1, behavior.RiskLow},
		{2, behavior.RiskLow},
		{3, behavior.RiskMedium},
		{5, behavior.RiskMedium},
		{6, behavior.RiskHigh},
	}
	for _, tc := range cases {
		key := behavior.Key{OrganizationID: "org-1", Platform: "twitter", PlatformUserID: "user-risk"}
		rec := behavior.NewRecord(key)
		rec.TotalViolations = tc.violations
		store.Seed(rec)

		assert.Equal(t, tc.want, tracker.RiskLevel(ctx, key), "violations=%d", tc.violations)
	}
}

func TestTrackerRiskLevelRecentActionBumps(t *testing.T) {
	tracker, store := setupTestTracker(t)
	key := testKey()

	rec := behavior.NewRecord(key)
	rec.TotalViolations = 2
	rec.ActionsTaken = []behavior.ActionRecord{{Action: "warn", Timestamp: time.Now().Add(-time.Hour)}}
	store.Seed(rec)

	assert.Equal(t, behavior.RiskMedium, tracker.RiskLevel(context.Background(), key))
}

func TestTrackerRiskLevelFailOpen(t *testing.T) {
	tracker, store := setupTestTracker(t)
	store.Fail = errors.New("store down")

	assert.Equal(t, behavior.RiskLow, tracker.RiskLevel(context.Background(), testKey()))
}

func TestTrackerCrossPlatform(t *testing.T) {
	tracker, store := setupTestTracker(t)

	for p, n := range map[string]int{"twitter": 3, "discord": 2, "twitch": 0} {
		rec := behavior.NewRecord(behavior.Key{OrganizationID: "org-1", Platform: p, PlatformUserID: "user-1"})
		rec.TotalViolations = n
		store.Seed(rec)
	}
	// A different user in the same org must not leak in.
	other := behavior.NewRecord(behavior.Key{OrganizationID: "org-1", Platform: "twitter", PlatformUserID: "user-2"})
	other.TotalViolations = 9
	store.Seed(other)

	got := tracker.CrossPlatform(context.Background(), "org-1", "user-1")
	assert.Equal(t, 5, got.Total)
	assert.Equal(t, 3, got.ByPlatform["twitter"])
	assert.Equal(t, 2, got.ByPlatform["discord"])
	assert.NotContains(t, got.ByPlatform, "twitch")
}

func TestTrackerCrossPlatformFailOpen(t *testing.T) {
	tracker, store := setupTestTracker(t)
	store.Fail = errors.New("store down")

	got := tracker.CrossPlatform(context.Background(), "org-1", "user-1")
	assert.Equal(t, 0, got.Total)
	assert.Empty(t, got.ByPlatform)
}
