package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Redis enqueues jobs onto per-priority Redis lists. Workers BRPOP the
// lists in ascending priority order, so urgent jobs drain first.
type Redis struct {
	client    *goredis.Client
	keyPrefix string
}

var _ Queue = (*Redis)(nil)

// NewRedis wraps an existing client. keyPrefix namespaces the queue keys;
// empty means "shield:jobs".
func NewRedis(client *goredis.Client, keyPrefix string) *Redis {
	if keyPrefix == "" {
		keyPrefix = "shield:jobs"
	}
	return &Redis{client: client, keyPrefix: keyPrefix}
}

func (r *Redis) key(priority int) string {
	return fmt.Sprintf("%s:p%d", r.keyPrefix, priority)
}

func (r *Redis) AddJob(ctx context.Context, jobType string, payload map[string]any, opts JobOptions) (*Job, error) {
	if r.client == nil {
		return nil, errors.New("queue: redis client is nil")
	}
	if jobType == "" {
		return nil, errors.New("queue: empty job type")
	}

	opts = opts.withDefaults()
	job := &Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		Payload:     payload,
		Priority:    opts.Priority,
		MaxAttempts: opts.MaxAttempts,
		CreatedAt:   time.Now().UTC(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("queue: marshal job: %w", err)
	}
	if err := r.client.LPush(ctx, r.key(job.Priority), data).Err(); err != nil {
		return nil, fmt.Errorf("queue: enqueue %s: %w", jobType, err)
	}
	return job, nil
}

// Depth reports the number of pending jobs at one priority level.
func (r *Redis) Depth(ctx context.Context, priority int) (int64, error) {
	return r.client.LLen(ctx, r.key(priority)).Result()
}
