package queue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedisQueue(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, ""), mr
}

func TestRedisAddJob(t *testing.T) {
	q, mr := setupTestRedisQueue(t)
	ctx := context.Background()

	job, err := q.AddJob(ctx, JobTypeShieldAction, map[string]any{
		"action":          "mute_temp",
		"organization_id": "org-1",
	}, JobOptions{Priority: PriorityUrgent})
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)
	assert.Equal(t, PriorityUrgent, job.Priority)
	assert.Equal(t, DefaultMaxAttempts, job.MaxAttempts)

	raw, err := mr.Lpop("shield:jobs:p1")
	require.NoError(t, err)

	var stored Job
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, job.ID, stored.ID)
	assert.Equal(t, JobTypeShieldAction, stored.Type)
	assert.Equal(t, "mute_temp", stored.Payload["action"])
}

func TestRedisAddJobDefaults(t *testing.T) {
	q, _ := setupTestRedisQueue(t)

	job, err := q.AddJob(context.Background(), JobTypeAnalyzeToxicity, nil, JobOptions{})
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, job.Priority)

	depth, err := q.Depth(context.Background(), PriorityMedium)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)
}

func TestRedisAddJobEmptyType(t *testing.T) {
	q, _ := setupTestRedisQueue(t)

	_, err := q.AddJob(context.Background(), "", nil, JobOptions{})
	assert.Error(t, err)
}

func TestMemoryQueue(t *testing.T) {
	q := NewMemory()

	_, err := q.AddJob(context.Background(), JobTypeShieldAction, map[string]any{"action": "block_user"}, JobOptions{Priority: PriorityUrgent})
	require.NoError(t, err)
	_, err = q.AddJob(context.Background(), JobTypeAnalyzeToxicity, nil, JobOptions{})
	require.NoError(t, err)

	assert.Len(t, q.Jobs(), 2)
	assert.Len(t, q.JobsOfType(JobTypeShieldAction), 1)
}
