package replaycache

import (
	"fmt"

	"github.com/unkn0wn-root/replaycache/store"
)

// UnknownOperationError reports a call to a name outside the declared
// capability set. Always a caller bug, never retried.
type UnknownOperationError struct {
	API string
	Op  string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("replaycache: unknown operation %q on %s", e.Op, e.API)
}

// CacheMissError reports a miss under ModeCacheOnly. The real backend was
// not touched.
type CacheMissError struct {
	Key  string
	Mode Mode
}

func (e *CacheMissError) Error() string {
	return fmt.Sprintf("replaycache: cache miss for %q and mode is %s", e.Key, e.Mode)
}

// NoBackendError reports a miss under ModeCacheWithFallback when no real
// backend was configured.
type NoBackendError struct {
	Key string
}

func (e *NoBackendError) Error() string {
	return fmt.Sprintf("replaycache: cache miss for %q and no real backend available", e.Key)
}

// CorruptRecordError reports a record that exists but cannot be parsed.
// A corrupt cache indicates a bug or disk issue; it is never masked as
// "never cached".
type CorruptRecordError struct {
	Addr store.Address
	Err  error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("replaycache: corrupt record at %s: %v", e.Addr.Path(), e.Err)
}

func (e *CorruptRecordError) Unwrap() error { return e.Err }
