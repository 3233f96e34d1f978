// Package store defines the persistence abstraction used by replaycache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Put for an address (no
// prepended/appended metadata, no re-encoding, no mutation). If a store
// performs internal transforms (e.g., compression), they MUST be fully
// reversed so that the bytes returned by Get are identical to the bytes
// provided to Put.
//
// Records are permanent: there is no TTL, no eviction contract, and no
// delete operation. Removing entries is an out-of-band concern (delete the
// cache directory, flush the redis db, drop the sqlite file).
package store

import (
	"context"
	"path"
)

// Address names one cache record. The namespace segregates by both the
// wrapped interface (API) and the concrete backend implementation
// (Provider), so two different backends behind the same interface never
// collide even when a call produces identical arguments.
type Address struct {
	API      string
	Provider string
	Key      string
}

// Path renders the address as the canonical hierarchical form
// "api/provider/key". Stores that are not path-shaped may join the
// components however they like as long as distinct addresses map to
// distinct storage keys.
func (a Address) Path() string {
	return path.Join(a.API, a.Provider, a.Key)
}

// Store is a minimal byte store keyed by Address.
// Must be safe for concurrent use.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err). A present
	// but unreadable record is an error, never a silent miss.
	Get(ctx context.Context, addr Address) ([]byte, bool, error)

	// Put stores value at addr, creating any intermediate namespace on
	// first write and overwriting an existing record (last-writer-wins).
	Put(ctx context.Context, addr Address, value []byte) error

	// Close releases resources.
	Close(ctx context.Context) error
}
