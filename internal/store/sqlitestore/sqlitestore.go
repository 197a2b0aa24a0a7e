// Package sqlitestore keeps engine state in a single SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rickgao/feedwarden/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS announced_items (
	item_id TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS retracted_items (
	item_id      TEXT PRIMARY KEY,
	owner        TEXT NOT NULL DEFAULT '',
	slug         TEXT NOT NULL DEFAULT '',
	retracted_by TEXT NOT NULL DEFAULT '',
	retracted_at INTEGER NOT NULL DEFAULT 0,
	request_id   TEXT NOT NULL DEFAULT '',
	position     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS message_refs (
	item_id     TEXT NOT NULL,
	destination TEXT NOT NULL,
	handle      TEXT NOT NULL,
	position    INTEGER NOT NULL,
	PRIMARY KEY (item_id, destination)
);
`

// Store is a SQLite-backed engine.Store.
type Store struct {
	sqlDB *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	dsn := cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time; WAL still allows concurrent readers.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.ExecContext(ctx, schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// LoadAnnounced reads the announced id set.
func (s *Store) LoadAnnounced(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT item_id FROM announced_items ORDER BY item_id`)
	if err != nil {
		return nil, fmt.Errorf("query announced: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan announced: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LoadRetracted reads retraction records in commit order.
func (s *Store) LoadRetracted(ctx context.Context) ([]model.RetractionRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT item_id, owner, slug, retracted_by, retracted_at, request_id
FROM retracted_items
ORDER BY position
`)
	if err != nil {
		return nil, fmt.Errorf("query retracted: %w", err)
	}
	defer rows.Close()

	var recs []model.RetractionRecord
	for rows.Next() {
		var (
			rec model.RetractionRecord
			at  int64
		)
		if err := rows.Scan(&rec.ItemID, &rec.Owner, &rec.Slug, &rec.RetractedBy, &at, &rec.RequestID); err != nil {
			return nil, fmt.Errorf("scan retracted: %w", err)
		}
		if at > 0 {
			rec.RetractedAt = time.UnixMilli(at).UTC()
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// LoadMessages reads the item to message mapping.
func (s *Store) LoadMessages(ctx context.Context) (map[string][]model.MessageRef, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT item_id, destination, handle
FROM message_refs
ORDER BY item_id, position
`)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]model.MessageRef)
	for rows.Next() {
		var (
			itemID string
			ref    model.MessageRef
		)
		if err := rows.Scan(&itemID, &ref.Destination, &ref.Handle); err != nil {
			return nil, fmt.Errorf("scan messages: %w", err)
		}
		out[itemID] = append(out[itemID], ref)
	}
	return out, rows.Err()
}

// SaveAnnounced replaces the announced id set.
func (s *Store) SaveAnnounced(ctx context.Context, ids []string) error {
	return s.replace(ctx, "announced_items", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO announced_items (item_id) VALUES (?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, id := range ids {
			if _, err := stmt.ExecContext(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveRetracted replaces the retraction records.
func (s *Store) SaveRetracted(ctx context.Context, records []model.RetractionRecord) error {
	return s.replace(ctx, "retracted_items", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO retracted_items (item_id, owner, slug, retracted_by, retracted_at, request_id, position)
VALUES (?, ?, ?, ?, ?, ?, ?)
`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, rec := range records {
			var at int64
			if !rec.RetractedAt.IsZero() {
				at = rec.RetractedAt.UTC().UnixMilli()
			}
			if _, err := stmt.ExecContext(ctx, rec.ItemID, rec.Owner, rec.Slug, rec.RetractedBy, at, rec.RequestID, i); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveMessages replaces the item to message mapping.
func (s *Store) SaveMessages(ctx context.Context, messages map[string][]model.MessageRef) error {
	return s.replace(ctx, "message_refs", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT OR REPLACE INTO message_refs (item_id, destination, handle, position)
VALUES (?, ?, ?, ?)
`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for itemID, refs := range messages {
			for i, ref := range refs {
				if _, err := stmt.ExecContext(ctx, itemID, ref.Destination, ref.Handle, i); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// replace clears table and refills it in one transaction.
func (s *Store) replace(ctx context.Context, table string, fill func(*sql.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", table, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if err := fill(tx); err != nil {
		return fmt.Errorf("write %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}
	return nil
}
