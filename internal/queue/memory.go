package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process queue. It backs single-node deployments with no
// Redis and doubles as the test queue.
type Memory struct {
	mu   sync.Mutex
	jobs []*Job

	// FailTypes makes AddJob return an error for the listed job types,
	// for exercising failure paths in tests.
	FailTypes map[string]error
}

var _ Queue = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) AddJob(ctx context.Context, jobType string, payload map[string]any, opts JobOptions) (*Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if jobType == "" {
		return nil, errors.New("queue: empty job type")
	}
	if err, ok := m.FailTypes[jobType]; ok {
		return nil, err
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

	m.mu.Lock()
	m.jobs = append(m.jobs, job)
	m.mu.Unlock()
	return job, nil
}

// Jobs returns a snapshot of everything enqueued so far.
func (m *Memory) Jobs() []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Job, len(m.jobs))
	copy(out, m.jobs)
	return out
}

// JobsOfType filters the snapshot by job type.
func (m *Memory) JobsOfType(jobType string) []*Job {
	var out []*Job
	for _, j := range m.Jobs() {
		if j.Type == jobType {
			out = append(out, j)
		}
	}
	return out
}
