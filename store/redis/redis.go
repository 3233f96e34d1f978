// Package redis implements a redis-backed record store, for sharing a
// replay cache across hosts. Records are written without expiry; removing
// them is an out-of-band concern.
package redis

import (
	"context"
	"errors"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/replaycache/store"
)

var ErrNilClient = errors.New("redis store: nil client")

const defaultPrefix = "replay"

type Store struct {
	rdb         goredis.UniversalClient
	prefix      string
	closeClient bool
}

var _ store.Store = (*Store)(nil)

type Config struct {
	Client goredis.UniversalClient

	// Prefix namespaces this store's keys inside a shared redis db.
	// Defaults to "replay".
	Prefix string

	// CloseClient makes Close release the client. Set it only if this
	// store exclusively owns the client.
	CloseClient bool
}

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{rdb: cfg.Client, prefix: prefix, closeClient: cfg.CloseClient}, nil
}

func (s *Store) Get(ctx context.Context, addr store.Address) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, s.key(addr)).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (s *Store) Put(ctx context.Context, addr store.Address, value []byte) error {
	// 0 TTL: records are permanent.
	return s.rdb.Set(ctx, s.key(addr), value, 0).Err()
}

// Close releases the underlying redis client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (s *Store) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

func (s *Store) key(addr store.Address) string {
	return strings.Join([]string{s.prefix, addr.API, addr.Provider, addr.Key}, ":")
}
