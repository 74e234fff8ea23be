package handlers

import (
	"testing"

	"shield/internal/audit"
	"shield/internal/behavior"
	"shield/internal/database/memstore"
	"shield/internal/executor"
	"shield/internal/queue"
	"shield/internal/shield"
)

// TestContext bundles a Handler with the in-memory stores behind it so tests
// can seed state and inspect side effects.
type TestContext struct {
	Handler   *Handler
	Queue     *queue.Memory
	Behaviors *memstore.BehaviorStore
	Actions   *memstore.AuditStore
}

// NewTestContext creates a fully wired handler on in-memory dependencies.
func NewTestContext(t *testing.T, cfg shield.Config) *TestContext {
	t.Helper()

	q := queue.NewMemory()
	bs := memstore.NewBehaviorStore()
	as := memstore.NewAuditStore()
	tracker := behavior.NewTracker(bs)
	recorder := audit.NewRecorder(as)
	exec := executor.New(executor.Config{
		AutoActions:          cfg.AutoActions,
		ReincidenceThreshold: cfg.ReincidenceThreshold,
	}, q, tracker, recorder)
	svc := shield.NewService(cfg, tracker, exec, q, recorder)

	return &TestContext{
		Handler:   NewHandler(svc, DefaultConfig()),
		Queue:     q,
		Behaviors: bs,
		Actions:   as,
	}
}
