package thread

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cropwise/kisan/pkg/chat"
)

// SQLiteStore implements Store on a single SQLite file with two tables:
// threads (messages stored as a JSON column) and suggested_queries.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and
// bootstraps the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.createSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// openDB opens a SQLite database with pragmas for concurrency and data
// integrity, and serializes writes through a single connection (a SQLite
// limitation; prevents "database is locked" errors).
func openDB(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("cannot create database directory %q: %w", dir, err)
	}

	// busy_timeout(5000): wait up to 5s when the database is locked
	// journal_mode(WAL): better concurrent reads while writing
	// foreign_keys(1): enforce referential integrity
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}
	return db, nil
}

func (s *SQLiteStore) createSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS threads (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			messages TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_threads_updated_at ON threads(updated_at);

		CREATE TABLE IF NOT EXISTS suggested_queries (
			id TEXT PRIMARY KEY,
			queries TEXT NOT NULL DEFAULT '[]',
			context_hash TEXT NOT NULL DEFAULT '',
			last_updated TEXT NOT NULL
		);
	`)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetAllThreads(ctx context.Context) ([]*Thread, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, messages, created_at, updated_at
		FROM threads
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying threads: %w", err)
	}
	defer rows.Close()

	var threads []*Thread
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

func (s *SQLiteStore) GetThread(ctx context.Context, id string) (*Thread, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, messages, created_at, updated_at
		FROM threads
		WHERE id = ?
	`, id)

	t, err := scanThread(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func (s *SQLiteStore) SaveThread(ctx context.Context, t *Thread) error {
	if t.ID == "" {
		return ErrEmptyID
	}
	messages, err := json.Marshal(t.Messages)
	if err != nil {
		return fmt.Errorf("marshaling messages: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO threads (id, title, messages, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			messages = excluded.messages,
			updated_at = excluded.updated_at
	`, t.ID, t.Title, string(messages), t.CreatedAt.UTC().Format(time.RFC3339Nano), t.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving thread %s: %w", t.ID, err)
	}
	return nil
}

func (s *SQLiteStore) SaveThreads(ctx context.Context, threads []*Thread) error {
	for _, t := range threads {
		if err := s.SaveThread(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) DeleteThread(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM threads WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting thread %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ClearAllThreads(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM threads")
	return err
}

func (s *SQLiteStore) GetSuggestedQueries(ctx context.Context, id string) (*SuggestedQueries, error) {
	if id == "" {
		id = DefaultScope
	}

	sq, err := s.getSuggestions(ctx, id)
	if errors.Is(err, ErrNotFound) && id != DefaultScope {
		return s.getSuggestions(ctx, DefaultScope)
	}
	return sq, err
}

func (s *SQLiteStore) getSuggestions(ctx context.Context, id string) (*SuggestedQueries, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, queries, context_hash, last_updated
		FROM suggested_queries
		WHERE id = ?
	`, id)

	var sq SuggestedQueries
	var queriesJSON, lastUpdated string
	err := row.Scan(&sq.ID, &queriesJSON, &sq.ContextHash, &lastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying suggested queries %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(queriesJSON), &sq.Queries); err != nil {
		return nil, fmt.Errorf("unmarshaling queries for %s: %w", id, err)
	}
	sq.LastUpdated, _ = time.Parse(time.RFC3339Nano, lastUpdated)
	return &sq, nil
}

func (s *SQLiteStore) SaveSuggestedQueries(ctx context.Context, queries []string, contextHash, id string) error {
	if id == "" {
		id = DefaultScope
	}
	data, err := json.Marshal(sanitizeQueries(queries))
	if err != nil {
		return fmt.Errorf("marshaling queries: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO suggested_queries (id, queries, context_hash, last_updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			queries = excluded.queries,
			context_hash = excluded.context_hash,
			last_updated = excluded.last_updated
	`, id, string(data), contextHash, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving suggested queries %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) ClearSuggestedQueries(ctx context.Context, id string) error {
	var err error
	if id == "" {
		_, err = s.db.ExecContext(ctx, "DELETE FROM suggested_queries")
	} else {
		_, err = s.db.ExecContext(ctx, "DELETE FROM suggested_queries WHERE id = ?", id)
	}
	return err
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanThread(row scanner) (*Thread, error) {
	var t Thread
	var messagesJSON, createdAt, updatedAt string
	if err := row.Scan(&t.ID, &t.Title, &messagesJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(messagesJSON), &t.Messages); err != nil {
		return nil, fmt.Errorf("unmarshaling messages for %s: %w", t.ID, err)
	}
	if t.Messages == nil {
		t.Messages = []chat.ChatMessage{}
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &t, nil
}
