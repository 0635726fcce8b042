package intake

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"clerk/pkg/platform/sentinel"
)

//go:embed schema/001_client_snapshots.sql
var snapshotSchema string

// Clock returns the current time.
type Clock func() time.Time

// PostgresStore persists snapshots in the client_snapshots table, one JSONB
// document of field values per client.
type PostgresStore struct {
	db    *sql.DB
	clock Clock
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresClock sets the clock used for updated_at.
func WithPostgresClock(clock Clock) PostgresOption {
	return func(s *PostgresStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewPostgresStore(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Migrate creates the snapshot table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("migrate client_snapshots: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM client_snapshots ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan snapshot id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Snapshot, error) {
	var fields []byte
	err := s.db.QueryRowContext(ctx, `SELECT fields FROM client_snapshots WHERE id = $1`, id).Scan(&fields)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, fmt.Errorf("snapshot %s: %w", id, sentinel.ErrNotFound)
		}
		return Snapshot{}, fmt.Errorf("get snapshot %s: %w", id, err)
	}
	return decodeSnapshot(id, fields)
}

func (s *PostgresStore) Save(ctx context.Context, snapshot Snapshot) error {
	if snapshot.ID == "" {
		return fmt.Errorf("snapshot id is required: %w", sentinel.ErrInvalidInput)
	}
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO client_snapshots (id, fields, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			fields = EXCLUDED.fields,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, snapshot.ID, data, s.clock()); err != nil {
		return fmt.Errorf("save snapshot %s: %w", snapshot.ID, err)
	}
	return nil
}

// SaveAll upserts snapshots in one statement using unnest.
func (s *PostgresStore) SaveAll(ctx context.Context, snapshots []Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	ids := make([]string, 0, len(snapshots))
	docs := make([]string, 0, len(snapshots))
	for _, snap := range snapshots {
		if snap.ID == "" {
			return fmt.Errorf("snapshot id is required: %w", sentinel.ErrInvalidInput)
		}
		data, err := encodeSnapshot(snap)
		if err != nil {
			return err
		}
		ids = append(ids, snap.ID)
		docs = append(docs, string(data))
	}
	query := `
		INSERT INTO client_snapshots (id, fields, updated_at)
		SELECT id, doc::jsonb, $3
		FROM unnest($1::text[], $2::text[]) AS t(id, doc)
		ON CONFLICT (id) DO UPDATE SET
			fields = EXCLUDED.fields,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, pq.Array(ids), pq.Array(docs), s.clock()); err != nil {
		return fmt.Errorf("save snapshots: %w", err)
	}
	return nil
}
