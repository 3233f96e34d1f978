// Package ristretto implements an in-memory record store on top of
// dgraph-io/ristretto. Useful for ephemeral replay sessions and tests;
// note that under memory pressure ristretto may refuse or evict entries,
// which surfaces as a cache miss, not an error.
package ristretto

import (
	"context"
	"errors"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/replaycache/store"
)

type Store struct {
	c *rc.Cache
}

var _ store.Store = (*Store)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Store, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto store: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

func (s *Store) Get(_ context.Context, addr store.Address) ([]byte, bool, error) {
	v, ok := s.c.Get(addr.Path())
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// drop unexpected entry shape
		s.c.Del(addr.Path())
		return nil, false, nil
	}
	return b, true, nil
}

func (s *Store) Put(_ context.Context, addr store.Address, value []byte) error {
	// Cost is the record size; ristretto may still reject the write under
	// pressure, which degrades to a later miss.
	s.c.Set(addr.Path(), value, int64(len(value)))
	s.c.Wait()
	return nil
}

func (s *Store) Close(context.Context) error {
	s.c.Wait()
	s.c.Close()
	return nil
}

// Metrics exposes ristretto's counters when enabled in Config.
func (s *Store) Metrics() *rc.Metrics { return s.c.Metrics }
