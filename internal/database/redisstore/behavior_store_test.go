package redisstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shield/internal/behavior"
)

func setupTestBehaviorStore(t *testing.T) *BehaviorStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewBehaviorStore(client)
}

func testKey(platform, userID string) behavior.Key {
	return behavior.Key{
		OrganizationID: "org-1",
		Platform:       platform,
		PlatformUserID: userID,
	}
}

func TestRedisGetUnknown(t *testing.T) {
	store := setupTestBehaviorStore(t)

	rec, err := store.Get(context.Background(), testKey("twitter", "nobody"))
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRedisAtomicUpsert(t *testing.T) {
	ctx := context.Background()
	store := setupTestBehaviorStore(t)
	key := testKey("twitter", "user-1")

	rec, err := store.AtomicUpsert(ctx, key, behavior.Update{Severity: "critical", Tags: []string{"mute_permanent"}})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.TotalViolations)
	assert.Equal(t, 1, rec.SevereViolations)
	assert.True(t, rec.IsMuted)

	rec, err = store.AtomicUpsert(ctx, key, behavior.Update{Severity: "low"})
	require.NoError(t, err)
	assert.Equal(t, 2, rec.TotalViolations)

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.TotalViolations)
	assert.True(t, got.IsMuted)
}

func TestRedisListByUser(t *testing.T) {
	ctx := context.Background()
	store := setupTestBehaviorStore(t)

	for _, platform := range []string{"twitter", "discord"} {
		_, err := store.AtomicUpsert(ctx, testKey(platform, "user-1"), behavior.Update{Severity: "medium"})
		require.NoError(t, err)
	}
	_, err := store.AtomicUpsert(ctx, testKey("twitter", "user-2"), behavior.Update{Severity: "low"})
	require.NoError(t, err)

	records, err := store.ListByUser(ctx, "org-1", "user-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, "user-1", rec.PlatformUserID)
	}
}

func TestRedisListByOrg(t *testing.T) {
	ctx := context.Background()
	store := setupTestBehaviorStore(t)

	for _, userID := range []string{"a", "b", "c"} {
		_, err := store.AtomicUpsert(ctx, testKey("twitch", userID), behavior.Update{Severity: "low"})
		require.NoError(t, err)
	}

	records, err := store.ListByOrg(ctx, "org-1")
	require.NoError(t, err)
	assert.Len(t, records, 3)

	records, err = store.ListByOrg(ctx, "org-empty")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRedisCorruptRecordReplaced(t *testing.T) {
	ctx := context.Background()
	store := setupTestBehaviorStore(t)
	key := testKey("twitter", "corrupt")

	require.NoError(t, store.client.Set(ctx, recordKey(key), "{not json", 0).Err())

	rec, err := store.AtomicUpsert(ctx, key, behavior.Update{Severity: "high"})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.TotalViolations)
}
