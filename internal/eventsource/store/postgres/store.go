// Package postgres provides a PostgreSQL eventsource.Store on pgx.
//
// Appends to one stream serialize on a transaction-scoped advisory lock keyed
// by the stream id; the unique (stream_id, sequence) constraint backs that up
// so a racing writer can never produce a duplicate sequence.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"casework/internal/eventsource"
)

const uniqueViolation = "23505"

// Schema creates the events table. Safe to run repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS casework_events (
	id             UUID PRIMARY KEY,
	stream_id      TEXT NOT NULL,
	sequence       BIGINT NOT NULL,
	aggregate_type TEXT NOT NULL,
	aggregate_id   UUID NOT NULL,
	kind           TEXT NOT NULL,
	schema_version INTEGER NOT NULL DEFAULT 1,
	occurred_at    TIMESTAMPTZ NOT NULL,
	recorded_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	payload        JSONB NOT NULL,
	metadata       JSONB,
	CONSTRAINT casework_events_stream_sequence UNIQUE (stream_id, sequence)
);
CREATE INDEX IF NOT EXISTS idx_casework_events_aggregate ON casework_events (aggregate_type, aggregate_id);
`

// Store implements eventsource.Store with PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL event store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate event store: %w", err)
	}
	return nil
}

// Append implements eventsource.Store.
func (s *Store) Append(ctx context.Context, streamID string, expectedVersion int64, events []eventsource.Record) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, streamID); err != nil {
		return 0, fmt.Errorf("acquire stream lock: %w", err)
	}

	current, err := lastSequence(ctx, tx, streamID)
	if err != nil {
		return 0, err
	}
	if current != expectedVersion {
		return current, &eventsource.ConflictError{
			StreamID: streamID,
			Expected: expectedVersion,
			Actual:   current,
		}
	}
	if len(events) == 0 {
		return current, nil
	}

	batch := &pgx.Batch{}
	for i, rec := range events {
		batch.Queue(`
			INSERT INTO casework_events (id, stream_id, sequence, aggregate_type, aggregate_id, kind, schema_version, occurred_at, payload, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, rec.ID, streamID, current+int64(i)+1, string(rec.AggregateType), rec.AggregateID,
			string(rec.Kind), rec.SchemaVersion, rec.OccurredAt, []byte(rec.Payload), rec.Metadata)
	}

	results := tx.SendBatch(ctx, batch)
	for range events {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return 0, classifyInsertError(err, streamID, expectedVersion)
		}
	}
	if err := results.Close(); err != nil {
		return 0, classifyInsertError(err, streamID, expectedVersion)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit append: %w", err)
	}
	return current + int64(len(events)), nil
}

// classifyInsertError maps unique violations. A duplicate (stream_id,
// sequence) means another writer got in first; a duplicate id is a replayed
// record.
func classifyInsertError(err error, streamID string, expected int64) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if pgErr.ConstraintName == "casework_events_stream_sequence" {
			return &eventsource.ConflictError{StreamID: streamID, Expected: expected, Actual: -1}
		}
		return eventsource.ErrDuplicateEvent
	}
	return fmt.Errorf("insert event: %w", err)
}

// Load implements eventsource.Store.
func (s *Store) Load(ctx context.Context, streamID string) ([]eventsource.Envelope, error) {
	return s.LoadSince(ctx, streamID, 0)
}

// LoadSince implements eventsource.Store.
func (s *Store) LoadSince(ctx context.Context, streamID string, afterSequence int64) ([]eventsource.Envelope, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, stream_id, sequence, aggregate_type, aggregate_id, kind, schema_version, occurred_at, recorded_at, payload, metadata
		FROM casework_events
		WHERE stream_id = $1 AND sequence > $2
		ORDER BY sequence ASC
	`, streamID, afterSequence)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	envelopes := []eventsource.Envelope{}
	for rows.Next() {
		var (
			env     eventsource.Envelope
			aggType string
			kind    string
			payload []byte
		)
		if err := rows.Scan(&env.ID, &env.StreamID, &env.Sequence, &aggType, &env.AggregateID, &kind,
			&env.SchemaVersion, &env.OccurredAt, &env.RecordedAt, &payload, &env.Metadata); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		env.AggregateType = eventsource.AggregateType(aggType)
		env.Kind = eventsource.Kind(kind)
		env.Payload = payload
		env.OccurredAt = env.OccurredAt.UTC()
		env.RecordedAt = env.RecordedAt.UTC()
		envelopes = append(envelopes, env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return envelopes, nil
}

// Version implements eventsource.Store.
func (s *Store) Version(ctx context.Context, streamID string) (int64, error) {
	return lastSequence(ctx, s.pool, streamID)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func lastSequence(ctx context.Context, q querier, streamID string) (int64, error) {
	var last int64
	err := q.QueryRow(ctx, `
		SELECT COALESCE(MAX(sequence), 0)
		FROM casework_events
		WHERE stream_id = $1
	`, streamID).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("get last sequence: %w", err)
	}
	return last, nil
}
