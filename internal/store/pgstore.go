package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/omnera-dev/omnera/model"
)

// Schema creates the snapshot table. It is safe to run repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS application_snapshots (
	id         UUID PRIMARY KEY,
	checksum   TEXT        NOT NULL,
	name       TEXT        NOT NULL,
	version    TEXT        NOT NULL DEFAULT '',
	document   JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS application_snapshots_created_at_idx
	ON application_snapshots (created_at DESC);
`

// uniqueViolation is the SQLSTATE of a primary key conflict.
const uniqueViolation = "23505"

// PgStore is a PostgreSQL-backed SnapshotStore using pgx/v5.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PostgreSQL snapshot store.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Migrate creates the snapshot table if needed.
func (s *PgStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create snapshot schema: %w", err)
	}
	return nil
}

// Save inserts a snapshot.
func (s *PgStore) Save(ctx context.Context, snap Snapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO application_snapshots (id, checksum, name, version, document, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		snap.ID, snap.Checksum, snap.Name, snap.Version, []byte(snap.Document), snap.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return model.NewConflictError(fmt.Sprintf("snapshot %q already exists", snap.ID))
	}
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

const selectSnapshot = `
	SELECT id, checksum, name, version, document, created_at
	FROM application_snapshots`

// Get retrieves a snapshot by ID.
func (s *PgStore) Get(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	snap, err := scanSnapshot(s.pool.QueryRow(ctx, selectSnapshot+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, model.NewNotFoundError(fmt.Sprintf("snapshot %q not found", id))
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("query snapshot: %w", err)
	}
	return snap, nil
}

// Latest retrieves the newest snapshot.
func (s *PgStore) Latest(ctx context.Context) (Snapshot, error) {
	snap, err := scanSnapshot(s.pool.QueryRow(ctx, selectSnapshot+` ORDER BY created_at DESC LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, model.NewNotFoundError("no snapshot has been saved")
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("query latest snapshot: %w", err)
	}
	return snap, nil
}

// List returns snapshots newest first.
func (s *PgStore) List(ctx context.Context, limit int) ([]Snapshot, error) {
	query := selectSnapshot + ` ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// HealthCheck pings the database.
func (s *PgStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func scanSnapshot(row pgx.Row) (Snapshot, error) {
	var (
		snap Snapshot
		doc  []byte
	)
	if err := row.Scan(&snap.ID, &snap.Checksum, &snap.Name, &snap.Version, &doc, &snap.CreatedAt); err != nil {
		return Snapshot{}, err
	}
	snap.Document = doc
	return snap, nil
}
