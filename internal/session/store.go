// Package session keeps the history of the current REPL session. The
// store is an in-memory SQLite database; nothing survives the process,
// which is the point.
package session

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Kind labels what produced an exchange.
type Kind string

const (
	KindChat   Kind = "chat"
	KindAgent  Kind = "agent"
	KindReview Kind = "review"
)

// Exchange is one request and its outcome.
type Exchange struct {
	ID          int64
	Kind        Kind
	Instruction string
	Outcome     string
	CreatedAt   time.Time
}

// Store holds the session history.
type Store struct {
	db *sql.DB
}

// NewStore opens a fresh in-memory store.
func NewStore() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	// A memory database vanishes when its sole connection closes.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE exchanges (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		kind        TEXT NOT NULL,
		instruction TEXT NOT NULL,
		outcome     TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create session schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Add records one exchange.
func (s *Store) Add(kind Kind, instruction, outcome string) error {
	_, err := s.db.Exec(
		`INSERT INTO exchanges (kind, instruction, outcome, created_at) VALUES (?, ?, ?, ?)`,
		string(kind), instruction, outcome, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record exchange: %w", err)
	}
	return nil
}

// List returns the most recent exchanges, newest first, up to limit.
// A limit <= 0 returns everything.
func (s *Store) List(limit int) ([]Exchange, error) {
	query := `SELECT id, kind, instruction, outcome, created_at FROM exchanges ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}
	defer rows.Close()

	var out []Exchange
	for rows.Next() {
		var e Exchange
		var kind string
		if err := rows.Scan(&e.ID, &kind, &e.Instruction, &e.Outcome, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		e.Kind = Kind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the store and with it the whole history.
func (s *Store) Close() error {
	return s.db.Close()
}
