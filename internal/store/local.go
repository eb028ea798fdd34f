package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/xkilldash9x/visa-autofill/internal/answers"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const (
	sqliteSchema = `
CREATE TABLE IF NOT EXISTS answer_cache (
    session_id TEXT PRIMARY KEY,
    answers    TEXT NOT NULL,
    fetched_at TEXT NOT NULL
);`
	sqliteUpsert = `
INSERT INTO answer_cache (session_id, answers, fetched_at)
VALUES (?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
    answers = excluded.answers,
    fetched_at = excluded.fetched_at;`
	sqliteSelect = `SELECT answers, fetched_at FROM answer_cache WHERE session_id = ?;`
)

// Local is the SQLite answer cache kept on the user's machine.
type Local struct {
	db  *sql.DB
	log *zap.Logger
}

// OpenLocal opens (creating if needed) the cache database at path. A leading ~ is expanded.
func OpenLocal(path string, logger *zap.Logger) (*Local, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path != MemoryPath {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("expanding cache path %q: %w", path, err)
		}
		path = expanded
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if path == MemoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	if path != MemoryPath {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range append(pragmas, sqliteSchema) {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing cache database: %w", err)
		}
	}

	return &Local{db: db, log: logger.Named("local_store")}, nil
}

// Close releases the database.
func (l *Local) Close() error {
	return l.db.Close()
}

// Put upserts the answers for sessionID.
func (l *Local) Put(ctx context.Context, sessionID string, m *answers.Map, fetchedAt time.Time) error {
	payload, err := encodeAnswers(m)
	if err != nil {
		return err
	}
	stamp := fetchedAt.UTC().Format(time.RFC3339Nano)
	if _, err := l.db.ExecContext(ctx, sqliteUpsert, sessionID, payload, stamp); err != nil {
		return fmt.Errorf("failed to upsert answers for session %s: %w", sessionID, err)
	}
	l.log.Debug("Cached answers", zap.String("session", sessionID), zap.Int("count", m.Len()))
	return nil
}

// Get returns the cached answers for sessionID, or answers.ErrCacheMiss.
func (l *Local) Get(ctx context.Context, sessionID string) (*answers.Map, time.Time, error) {
	var payload, stamp string
	err := l.db.QueryRowContext(ctx, sqliteSelect, sessionID).Scan(&payload, &stamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, answers.ErrCacheMiss
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query cached answers: %w", err)
	}

	fetchedAt, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("corrupt fetched_at %q: %w", stamp, err)
	}
	m, err := decodeAnswers(payload)
	if err != nil {
		return nil, time.Time{}, err
	}
	return m, fetchedAt, nil
}
