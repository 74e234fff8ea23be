// Package redisstore provides Redis-backed storage for behavior records,
// for multi-node deployments where every moderation worker must see the
// same escalation state.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"shield/internal/behavior"
)

const (
	recordKeyPrefix = "shield:behavior:"
	indexKeyPrefix  = "shield:behavior:index:"

	// upsertRetries bounds the optimistic-locking retry loop.
	upsertRetries = 5
)

// BehaviorStore stores one JSON record per tracked user plus a per-org
// index set used for listing.
type BehaviorStore struct {
	client *goredis.Client
}

var _ behavior.Store = (*BehaviorStore)(nil)

func NewBehaviorStore(client *goredis.Client) *BehaviorStore {
	return &BehaviorStore{client: client}
}

func recordKey(key behavior.Key) string {
	return recordKeyPrefix + key.OrganizationID + "|" + key.Platform + "|" + key.PlatformUserID
}

func indexKey(organizationID string) string {
	return indexKeyPrefix + organizationID
}

func indexMember(key behavior.Key) string {
	return key.Platform + "|" + key.PlatformUserID
}

func (s *BehaviorStore) Get(ctx context.Context, key behavior.Key) (*behavior.Record, error) {
	data, err := s.client.Get(ctx, recordKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: get record: %w", err)
	}

	record := &behavior.Record{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("redisstore: unmarshal record: %w", err)
	}
	return record, nil
}

// AtomicUpsert applies the update under WATCH so concurrent writers for the
// same key retry instead of clobbering each other.
func (s *BehaviorStore) AtomicUpsert(ctx context.Context, key behavior.Key, update behavior.Update) (*behavior.Record, error) {
	rKey := recordKey(key)
	var record *behavior.Record

	txn := func(tx *goredis.Tx) error {
		record = behavior.NewRecord(key)
		data, err := tx.Get(ctx, rKey).Bytes()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		if err == nil {
			if uerr := json.Unmarshal(data, record); uerr != nil {
				// A corrupt record is replaced rather than made fatal.
				record = behavior.NewRecord(key)
			}
		}

		record.Apply(update)

		out, err := json.Marshal(record)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, rKey, out, 0)
			pipe.SAdd(ctx, indexKey(key.OrganizationID), indexMember(key))
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < upsertRetries; i++ {
		err = s.client.Watch(ctx, txn, rKey)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, goredis.TxFailedErr) {
			break
		}
	}
	return nil, fmt.Errorf("redisstore: atomic upsert: %w", err)
}

func (s *BehaviorStore) ListByUser(ctx context.Context, organizationID, platformUserID string) ([]*behavior.Record, error) {
	members, err := s.client.SMembers(ctx, indexKey(organizationID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: list index: %w", err)
	}

	var records []*behavior.Record
	for _, member := range members {
		platform, userID, ok := strings.Cut(member, "|")
		if !ok || userID != platformUserID {
			continue
		}
		rec, err := s.Get(ctx, behavior.Key{
			OrganizationID: organizationID,
			Platform:       platform,
			PlatformUserID: userID,
		})
		if err != nil {
			return nil, err
		}
		if rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (s *BehaviorStore) ListByOrg(ctx context.Context, organizationID string) ([]*behavior.Record, error) {
	members, err := s.client.SMembers(ctx, indexKey(organizationID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: list index: %w", err)
	}

	var records []*behavior.Record
	for _, member := range members {
		platform, userID, ok := strings.Cut(member, "|")
		if !ok {
			continue
		}
		rec, err := s.Get(ctx, behavior.Key{
			OrganizationID: organizationID,
			Platform:       platform,
			PlatformUserID: userID,
		})
		if err != nil {
			return nil, err
		}
		if rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}
