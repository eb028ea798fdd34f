package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/visa-autofill/internal/answers"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// The answers column is json, not jsonb: jsonb reorders object keys and the
// answer order decides fuzzy-match ties.
const (
	sqlCreateAnswerCache = `
        CREATE TABLE IF NOT EXISTS answer_cache (
            session_id TEXT PRIMARY KEY,
            answers    JSON NOT NULL,
            fetched_at TIMESTAMPTZ NOT NULL
        );
    `
	sqlUpsertAnswers = `
        INSERT INTO answer_cache (session_id, answers, fetched_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (session_id) DO UPDATE SET
            answers = EXCLUDED.answers,
            fetched_at = EXCLUDED.fetched_at;
    `
	sqlSelectAnswers = `
        SELECT answers::text, fetched_at
        FROM answer_cache
        WHERE session_id = $1;
    `
)

// Store is the PostgreSQL answer cache.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Open connects to databaseURL, verifies it and ensures the schema exists.
// The returned close function releases the pool.
func Open(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, func(), error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	s, err := New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool.Close, nil
}

// EnsureSchema creates the answer_cache table if it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, sqlCreateAnswerCache); err != nil {
		return fmt.Errorf("failed to create answer_cache table: %w", err)
	}
	return nil
}

// Put upserts the answers for sessionID.
func (s *Store) Put(ctx context.Context, sessionID string, m *answers.Map, fetchedAt time.Time) error {
	payload, err := encodeAnswers(m)
	if err != nil {
		return err
	}
	// Timestamps go in as UTC so comparisons don't depend on the session time zone.
	if _, err := s.pool.Exec(ctx, sqlUpsertAnswers, sessionID, payload, fetchedAt.UTC()); err != nil {
		return fmt.Errorf("failed to upsert answers for session %s: %w", sessionID, err)
	}
	s.log.Debug("Cached answers", zap.String("session", sessionID), zap.Int("count", m.Len()))
	return nil
}

// Get returns the cached answers for sessionID, or answers.ErrCacheMiss.
func (s *Store) Get(ctx context.Context, sessionID string) (*answers.Map, time.Time, error) {
	var (
		payload   string
		fetchedAt time.Time
	)
	err := s.pool.QueryRow(ctx, sqlSelectAnswers, sessionID).Scan(&payload, &fetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, time.Time{}, answers.ErrCacheMiss
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query cached answers: %w", err)
	}
	m, err := decodeAnswers(payload)
	if err != nil {
		return nil, time.Time{}, err
	}
	return m, fetchedAt.UTC(), nil
}

func encodeAnswers(m *answers.Map) (string, error) {
	if m == nil {
		m = answers.NewMap()
	}
	data, err := m.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("failed to encode answers: %w", err)
	}
	return string(data), nil
}

func decodeAnswers(payload string) (*answers.Map, error) {
	m := answers.NewMap()
	if err := m.UnmarshalJSON([]byte(payload)); err != nil {
		return nil, fmt.Errorf("failed to decode cached answers: %w", err)
	}
	return m, nil
}
