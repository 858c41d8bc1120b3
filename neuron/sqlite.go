package neuron

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and if needed creates) the registry database.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// An in-memory database lives only as long as its connection.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS neurons (
		position INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		body TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// List returns all records in insertion order.
func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT body FROM neurons ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query neurons: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan neuron: %w", err)
		}
		var rec Record
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Find returns the record for id.
func (s *SQLiteStore) Find(ctx context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var body string
	err := s.db.QueryRowContext(ctx, "SELECT body FROM neurons WHERE id = ?", id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, &NotFoundError{ID: id}
	}
	if err != nil {
		return Record{}, fmt.Errorf("query neuron %q: %w", id, err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Upsert stores rec, keeping the position of an existing record.
func (s *SQLiteStore) Upsert(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("neuron record: id is required")
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal neuron: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO neurons (id, body) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET body = excluded.body",
		rec.ID, string(body),
	)
	if err != nil {
		return fmt.Errorf("upsert neuron %q: %w", rec.ID, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
