// Package sqlite implements a record store backed by a single sqlite file,
// for when one database is preferable to a directory tree (easy to ship
// around as a fixture, atomic by construction).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/glebarez/go-sqlite"

	"github.com/unkn0wn-root/replaycache/store"
)

type Store struct {
	db *sql.DB

	// sqlite allows a single writer; serialize Puts instead of bubbling
	// SQLITE_BUSY to callers.
	writeMu sync.Mutex
}

var _ store.Store = (*Store)(nil)

type Config struct {
	// Path is the database file. ":memory:" works for tests.
	Path string
}

func New(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite store: path is required")
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open: %w", err)
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
			api      TEXT NOT NULL,
			provider TEXT NOT NULL,
			key      TEXT NOT NULL,
			data     BLOB NOT NULL,
			PRIMARY KEY (api, provider, key)
		)`,
		`PRAGMA journal_mode=WAL`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite store: init: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, addr store.Address) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM records WHERE api = ? AND provider = ? AND key = ?`,
		addr.API, addr.Provider, addr.Key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite store: read %s: %w", addr.Path(), err)
	}
	return data, true, nil
}

func (s *Store) Put(ctx context.Context, addr store.Address, value []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO records (api, provider, key, data) VALUES (?, ?, ?, ?)`,
		addr.API, addr.Provider, addr.Key, value)
	if err != nil {
		return fmt.Errorf("sqlite store: write %s: %w", addr.Path(), err)
	}
	return nil
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}
