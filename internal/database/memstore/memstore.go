// Package memstore provides in-memory implementations of the behavior and
// audit stores. It backs development runs without a database and the unit
// tests of everything layered above the stores.
package memstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"shield/internal/audit"
	"shield/internal/behavior"
)

// BehaviorStore keeps behavior records in a map guarded by a mutex.
type BehaviorStore struct {
	mu      sync.RWMutex
	records map[behavior.Key]*behavior.Record

	// Fail forces every call to return this error, for exercising
	// degradation paths in tests.
	Fail error
}

var _ behavior.Store = (*BehaviorStore)(nil)

func NewBehaviorStore() *BehaviorStore {
	return &BehaviorStore{records: map[behavior.Key]*behavior.Record{}}
}

func (s *BehaviorStore) Get(ctx context.Context, key behavior.Key) (*behavior.Record, error) {
	if s.Fail != nil {
		return nil, s.Fail
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *BehaviorStore) AtomicUpsert(ctx context.Context, key behavior.Key, update behavior.Update) (*behavior.Record, error) {
	if s.Fail != nil {
		return nil, s.Fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		rec = behavior.NewRecord(key)
		s.records[key] = rec
	}
	rec.Apply(update)
	cp := *rec
	return &cp, nil
}

func (s *BehaviorStore) ListByUser(ctx context.Context, organizationID, platformUserID string) ([]*behavior.Record, error) {
	if s.Fail != nil {
		return nil, s.Fail
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*behavior.Record
	for key, rec := range s.records {
		if key.OrganizationID == organizationID && key.PlatformUserID == platformUserID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *BehaviorStore) ListByOrg(ctx context.Context, organizationID string) ([]*behavior.Record, error) {
	if s.Fail != nil {
		return nil, s.Fail
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*behavior.Record
	for key, rec := range s.records {
		if key.OrganizationID == organizationID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Seed installs a record directly, bypassing Apply. Test helper.
func (s *BehaviorStore) Seed(rec *behavior.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Key] = rec
}

// Len reports the number of tracked users.
func (s *BehaviorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// AuditStore keeps action entries in an append-only slice.
type AuditStore struct {
	mu      sync.RWMutex
	entries []audit.ActionEntry

	Fail error
}

var _ audit.Store = (*AuditStore)(nil)

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) InsertActions(ctx context.Context, entries []audit.ActionEntry) error {
	if s.Fail != nil {
		return s.Fail
	}
	if len(entries) == 0 {
		return errors.New("memstore: empty batch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *AuditStore) ListByOrg(ctx context.Context, orgID string, since time.Time) ([]audit.ActionEntry, error) {
	if s.Fail != nil {
		return nil, s.Fail
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.ActionEntry
	for _, e := range s.entries {
		if e.OrganizationID == orgID && !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Entries returns a snapshot of everything recorded.
func (s *AuditStore) Entries() []audit.ActionEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.ActionEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
