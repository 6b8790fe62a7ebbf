package historystore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/yanqian/exoplanet-classifier/internal/domain/classifier"
	"github.com/yanqian/exoplanet-classifier/pkg/util"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS prediction_history (
	id UUID PRIMARY KEY,
	mode TEXT NOT NULL,
	inputs JSONB NOT NULL,
	result JSONB NOT NULL,
	features vector(8) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS prediction_history_created_at_idx ON prediction_history (created_at DESC);
`

// PostgresStore persists every classification and answers nearest-neighbour
// queries over the required parameters with pgvector.
type PostgresStore struct {
	pool  *pgxpool.Pool
	limit int
}

// NewPostgresStore constructs the store. limit bounds Recent when the caller
// passes no limit.
func NewPostgresStore(pool *pgxpool.Pool, limit int) *PostgresStore {
	if limit <= 0 {
		limit = classifier.DefaultHistoryLimit
	}
	return &PostgresStore{pool: pool, limit: limit}
}

// EnsureSchema creates the history table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *PostgresStore) Append(ctx context.Context, entry classifier.HistoryEntry) error {
	inputs, err := json.Marshal(entry.Inputs)
	if err != nil {
		return fmt.Errorf("encode inputs: %w", err)
	}
	result, err := json.Marshal(entry.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = util.NowUTC()
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO prediction_history (id, mode, inputs, result, features, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, string(entry.Mode), inputs, result, pgvector.NewVector(entry.Inputs.Features()), entry.Timestamp)
	return err
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]classifier.HistoryEntry, error) {
	if limit <= 0 {
		limit = s.limit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, mode, inputs, result, created_at
		FROM prediction_history
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]classifier.HistoryEntry, 0, limit)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// Similar returns the k entries closest to params by L2 distance.
func (s *PostgresStore) Similar(ctx context.Context, params classifier.ParameterSet, k int) ([]classifier.SimilarEntry, error) {
	if k <= 0 {
		k = s.limit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, mode, inputs, result, created_at, features <-> $1 AS distance
		FROM prediction_history
		ORDER BY features <-> $1
		LIMIT $2
	`, pgvector.NewVector(params.Features()), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]classifier.SimilarEntry, 0, k)
	for rows.Next() {
		var (
			id        uuid.UUID
			mode      string
			inputs    []byte
			result    []byte
			createdAt time.Time
			distance  float64
		)
		if err := rows.Scan(&id, &mode, &inputs, &result, &createdAt, &distance); err != nil {
			return nil, err
		}
		entry, err := decodeEntry(id, mode, inputs, result, createdAt)
		if err != nil {
			return nil, err
		}
		out = append(out, classifier.SimilarEntry{Entry: entry, Distance: distance})
	}
	return out, rows.Err()
}

func scanEntry(rows pgx.Rows) (classifier.HistoryEntry, error) {
	var (
		id        uuid.UUID
		mode      string
		inputs    []byte
		result    []byte
		createdAt time.Time
	)
	if err := rows.Scan(&id, &mode, &inputs, &result, &createdAt); err != nil {
		return classifier.HistoryEntry{}, err
	}
	return decodeEntry(id, mode, inputs, result, createdAt)
}

func decodeEntry(id uuid.UUID, mode string, inputs, result []byte, createdAt time.Time) (classifier.HistoryEntry, error) {
	entry := classifier.HistoryEntry{
		ID:        id,
		Mode:      classifier.Mode(mode),
		Timestamp: createdAt.UTC(),
	}
	if err := json.Unmarshal(inputs, &entry.Inputs); err != nil {
		return classifier.HistoryEntry{}, fmt.Errorf("decode inputs: %w", err)
	}
	if err := json.Unmarshal(result, &entry.Result); err != nil {
		return classifier.HistoryEntry{}, fmt.Errorf("decode result: %w", err)
	}
	return entry, nil
}

var _ classifier.HistoryStore = (*PostgresStore)(nil)
