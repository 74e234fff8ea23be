package boltstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"shield/internal/audit"
)

// AuditStore provides persistent storage for the moderation action log.
type AuditStore struct {
	db *bolt.DB
}

var _ audit.Store = (*AuditStore)(nil)

// auditKey orders entries by organization then time. The fixed-width
// nanosecond timestamp keeps keys lexicographically sortable; the bucket
// sequence breaks ties within the same nanosecond.
func auditKey(orgID string, at time.Time, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s|%020d|%016d", orgID, at.UTC().UnixNano(), seq))
}

// InsertActions stores the batch in a single write transaction.
func (s *AuditStore) InsertActions(ctx context.Context, entries []audit.ActionEntry) error {
	if len(entries) == 0 {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketShieldActions)
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", BucketShieldActions)
		}

		for i := range entries {
			entry := entries[i]
			if entry.CreatedAt.IsZero() {
				entry.CreatedAt = time.Now().UTC()
			}

			seq, err := bucket.NextSequence()
			if err != nil {
				return fmt.Errorf("failed to allocate sequence: %w", err)
			}
			if entry.ID == "" {
				entry.ID = fmt.Sprintf("%d", seq)
			}

			data, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("failed to marshal action entry: %w", err)
			}
			if err := bucket.Put(auditKey(entry.OrganizationID, entry.CreatedAt, seq), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListByOrg returns the organization's entries recorded at or after since.
func (s *AuditStore) ListByOrg(ctx context.Context, orgID string, since time.Time) ([]audit.ActionEntry, error) {
	var entries []audit.ActionEntry

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketShieldActions)
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", BucketShieldActions)
		}

		prefix := []byte(orgID + "|")
		c := bucket.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var entry audit.ActionEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			if entry.CreatedAt.Before(since) {
				continue
			}
			entries = append(entries, entry)
		}
		return nil
	})

	return entries, err
}

// Count returns the total number of recorded actions.
func (s *AuditStore) Count() int {
	var n int
	s.db.View(func(tx *bolt.Tx) error {
		if bucket := tx.Bucket(BucketShieldActions); bucket != nil {
			n = bucket.Stats().KeyN
		}
		return nil
	})
	return n
}
