package boltstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"shield/internal/behavior"
)

// BehaviorStore provides persistent storage for user behavior records.
type BehaviorStore struct {
	db *bolt.DB
}

var _ behavior.Store = (*BehaviorStore)(nil)

// behaviorKey builds the bucket key "org|platform|userID". The pipe keeps
// prefix scans per organization and per org+platform possible.
func behaviorKey(key behavior.Key) []byte {
	return []byte(key.OrganizationID + "|" + key.Platform + "|" + key.PlatformUserID)
}

// Get retrieves a behavior record, or nil if the user is unknown.
func (s *BehaviorStore) Get(ctx context.Context, key behavior.Key) (*behavior.Record, error) {
	var record *behavior.Record

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketUserBehavior)
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", BucketUserBehavior)
		}

		data := bucket.Get(behaviorKey(key))
		if data == nil {
			return nil
		}

		record = &behavior.Record{}
		if err := json.Unmarshal(data, record); err != nil {
			return fmt.Errorf("failed to unmarshal behavior record: %w", err)
		}
		return nil
	})

	return record, err
}

// AtomicUpsert applies the update inside a single write transaction. Bolt
// serializes writers, so concurrent updates for the same key cannot clobber
// each other.
func (s *BehaviorStore) AtomicUpsert(ctx context.Context, key behavior.Key, update behavior.Update) (*behavior.Record, error) {
	var record *behavior.Record

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketUserBehavior)
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", BucketUserBehavior)
		}

		k := behaviorKey(key)
		if data := bucket.Get(k); data != nil {
			record = &behavior.Record{}
			if err := json.Unmarshal(data, record); err != nil {
				// A corrupt record is replaced rather than made fatal.
				record = behavior.NewRecord(key)
			}
		} else {
			record = behavior.NewRecord(key)
		}

		record.Apply(update)

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal behavior record: %w", err)
		}
		return bucket.Put(k, data)
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// ListByUser returns all platform records for one platform user within an
// organization.
func (s *BehaviorStore) ListByUser(ctx context.Context, organizationID, platformUserID string) ([]*behavior.Record, error) {
	var records []*behavior.Record

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketUserBehavior)
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", BucketUserBehavior)
		}

		prefix := []byte(organizationID + "|")
		c := bucket.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var record behavior.Record
			if err := json.Unmarshal(v, &record); err != nil {
				continue
			}
			if record.PlatformUserID == platformUserID {
				records = append(records, &record)
			}
		}
		return nil
	})

	return records, err
}

// ListByOrg returns all behavior records for an organization.
func (s *BehaviorStore) ListByOrg(ctx context.Context, organizationID string) ([]*behavior.Record, error) {
	var records []*behavior.Record

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketUserBehavior)
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", BucketUserBehavior)
		}

		prefix := []byte(organizationID + "|")
		c := bucket.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var record behavior.Record
			if err := json.Unmarshal(v, &record); err != nil {
				continue
			}
			records = append(records, &record)
		}
		return nil
	})

	return records, err
}

// Count returns the total number of tracked users across all organizations.
func (s *BehaviorStore) Count() int {
	var n int
	s.db.View(func(tx *bolt.Tx) error {
		if bucket := tx.Bucket(BucketUserBehavior); bucket != nil {
			n = bucket.Stats().KeyN
		}
		return nil
	})
	return n
}

// CountWhere returns the number of tracked users matching the predicate.
func (s *BehaviorStore) CountWhere(match func(*behavior.Record) bool) int {
	var n int
	s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketUserBehavior)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var record behavior.Record
			if err := json.Unmarshal(v, &record); err != nil {
				return nil
			}
			if match(&record) {
				n++
			}
			return nil
		})
	})
	return n
}
