// Package sqlitestore provides SQLite-backed store implementations.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shield/internal/audit"
)

// AuditStore implements audit.Store using SQLite. Suited to single-node
// deployments that want the action log queryable with plain SQL.
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore creates an AuditStore backed by the given database and
// applies the schema if it is not present.
func NewAuditStore(db *sql.DB) (*AuditStore, error) {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS shield_actions (
			id               TEXT PRIMARY KEY,
			organization_id  TEXT NOT NULL,
			comment_id       TEXT NOT NULL,
			platform         TEXT NOT NULL,
			platform_user_id TEXT NOT NULL,
			action_tag       TEXT NOT NULL,
			severity         TEXT NOT NULL DEFAULT '',
			metadata         TEXT NOT NULL DEFAULT '{}',
			created_at       TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_shield_actions_org_time
			ON shield_actions (organization_id, created_at);
	`); err != nil {
		return nil, fmt.Errorf("apply audit schema: %w", err)
	}
	return &AuditStore{db: db}, nil
}

// Ensure AuditStore implements the interface at compile time.
var _ audit.Store = (*AuditStore)(nil)

// InsertActions stores the batch inside one transaction.
func (s *AuditStore) InsertActions(ctx context.Context, entries []audit.ActionEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert actions: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO shield_actions
			(id, organization_id, comment_id, platform, platform_user_id, action_tag, severity, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("insert actions: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now().UTC()
		}
		md, err := json.Marshal(entry.Metadata)
		if err != nil {
			md = []byte("{}")
		}
		if _, err := stmt.ExecContext(ctx,
			entry.ID, entry.OrganizationID, entry.CommentID, entry.Platform,
			entry.PlatformUserID, entry.ActionTag, entry.Severity, string(md),
			entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert action %s: %w", entry.ActionTag, err)
		}
	}

	return tx.Commit()
}

// ListByOrg returns the organization's entries recorded at or after since,
// oldest first.
func (s *AuditStore) ListByOrg(ctx context.Context, orgID string, since time.Time) ([]audit.ActionEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, comment_id, platform, platform_user_id, action_tag, severity, metadata, created_at
		FROM shield_actions
		WHERE organization_id = ? AND created_at >= ?
		ORDER BY created_at ASC
	`, orgID, since.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []audit.ActionEntry
	for rows.Next() {
		var e audit.ActionEntry
		var md, createdAt string
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.CommentID, &e.Platform,
			&e.PlatformUserID, &e.ActionTag, &e.Severity, &md, &createdAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(md), &e.Metadata)
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the total number of recorded actions.
func (s *AuditStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shield_actions`).Scan(&n)
	return n, err
}
