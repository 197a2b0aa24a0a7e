// Package pgstore keeps engine state in PostgreSQL.
//
// Each save replaces one table inside a transaction and writes the rows with
// a single pgx batch.
package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/feedwarden/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS feedwarden_announced (
	item_id TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS feedwarden_retracted (
	item_id      TEXT PRIMARY KEY,
	owner        TEXT NOT NULL DEFAULT '',
	slug         TEXT NOT NULL DEFAULT '',
	retracted_by TEXT NOT NULL DEFAULT '',
	retracted_at TIMESTAMPTZ,
	request_id   TEXT NOT NULL DEFAULT '',
	position     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS feedwarden_messages (
	item_id     TEXT NOT NULL,
	destination TEXT NOT NULL,
	handle      TEXT NOT NULL,
	position    INTEGER NOT NULL,
	PRIMARY KEY (item_id, destination)
);
`

// Store is a PostgreSQL-backed engine.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New bootstraps the schema on pool. The store owns the pool from then on.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// LoadAnnounced reads the announced id set.
func (s *Store) LoadAnnounced(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT item_id FROM feedwarden_announced ORDER BY item_id`)
	if err != nil {
		return nil, fmt.Errorf("query announced: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan announced: %w", err)
	}
	return ids, nil
}

// LoadRetracted reads retraction records in commit order.
func (s *Store) LoadRetracted(ctx context.Context) ([]model.RetractionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT item_id, owner, slug, retracted_by, retracted_at, request_id
		FROM feedwarden_retracted
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
			at  *time.Time
		)
		if err := rows.Scan(&rec.ItemID, &rec.Owner, &rec.Slug, &rec.RetractedBy, &at, &rec.RequestID); err != nil {
			return nil, fmt.Errorf("scan retracted: %w", err)
		}
		if at != nil {
			rec.RetractedAt = at.UTC()
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// LoadMessages reads the item to message mapping.
func (s *Store) LoadMessages(ctx context.Context) (map[string][]model.MessageRef, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT item_id, destination, handle
		FROM feedwarden_messages
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
	batch := &pgx.Batch{}
	for _, id := range ids {
		batch.Queue(`INSERT INTO feedwarden_announced (item_id) VALUES ($1) ON CONFLICT DO NOTHING`, id)
	}
	return s.replace(ctx, "feedwarden_announced", batch)
}

// SaveRetracted replaces the retraction records.
func (s *Store) SaveRetracted(ctx context.Context, records []model.RetractionRecord) error {
	batch := &pgx.Batch{}
	for i, rec := range records {
		var at *time.Time
		if !rec.RetractedAt.IsZero() {
			t := rec.RetractedAt.UTC()
			at = &t
		}
		batch.Queue(`
			INSERT INTO feedwarden_retracted (item_id, owner, slug, retracted_by, retracted_at, request_id, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (item_id) DO NOTHING
		`, rec.ItemID, rec.Owner, rec.Slug, rec.RetractedBy, at, rec.RequestID, i)
	}
	return s.replace(ctx, "feedwarden_retracted", batch)
}

// SaveMessages replaces the item to message mapping.
func (s *Store) SaveMessages(ctx context.Context, messages map[string][]model.MessageRef) error {
	batch := &pgx.Batch{}
	for itemID, refs := range messages {
		for i, ref := range refs {
			batch.Queue(`
				INSERT INTO feedwarden_messages (item_id, destination, handle, position)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (item_id, destination) DO UPDATE SET handle = EXCLUDED.handle, position = EXCLUDED.position
			`, itemID, ref.Destination, ref.Handle, i)
		}
	}
	return s.replace(ctx, "feedwarden_messages", batch)
}

// replace truncates table and runs batch in one transaction.
func (s *Store) replace(ctx context.Context, table string, batch *pgx.Batch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s: %w", table, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	if batch.Len() > 0 {
		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("write %s: %w", table, err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("write %s: %w", table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}
	return nil
}
