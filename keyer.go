package replaycache

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// Keyer derives the cache key for a call. Implementations must be pure:
// identical (op, args) pairs yield identical keys within a process and
// across restarts, with no dependence on memory addresses or map iteration
// order. Keys must be filesystem-path-safe.
type Keyer interface {
	Key(op string, args Args) string
}

// CanonicalKeyer is the default derivation: the arguments are canonicalized
// (parameter names sorted, numbers formatted type-stably, so 2 and 2.0 hash
// alike) and hashed with SHA-256, then truncated. The key has the form
// "<op>_<hex>".
type CanonicalKeyer struct {
	// HashLen is the number of hex characters kept from the digest.
	// 0 means 16. Raise it if an API's argument space is hot enough to
	// make 64-bit prefixes collide.
	HashLen int
}

var _ Keyer = CanonicalKeyer{}

func (k CanonicalKeyer) Key(op string, args Args) string {
	sum := sha256.Sum256(canonicalRender(op, args))
	n := k.HashLen
	if n <= 0 || n > len(sum)*2 {
		n = 16
	}
	return fmt.Sprintf("%s_%x", op, sum)[:len(op)+1+n]
}

// canonicalRender produces a stable byte form of a call. encoding/json
// already emits map keys in sorted order and renders integral floats
// identically to ints, which is exactly the canonicalization needed here.
// Unmarshalable arguments (channels, funcs) degrade to the %v rendering
// so the keyer stays total.
func canonicalRender(op string, args Args) []byte {
	b, err := json.Marshal(args)
	if err != nil {
		b = []byte(fmt.Sprintf("%v", args))
	}
	return append(append([]byte(op), 0), b...)
}

// LegacyKeyer reproduces the historical derivation — an md5 digest of the
// raw "%v" rendering, truncated to 8 hex characters — so existing cache
// trees written under the old scheme remain addressable. Its hashing is
// representation-sensitive (2 and 2.0 produce different keys); prefer
// CanonicalKeyer for new caches.
type LegacyKeyer struct{}

var _ Keyer = LegacyKeyer{}

func (LegacyKeyer) Key(op string, args Args) string {
	// fmt prints maps in sorted key order, so this stays deterministic
	// across runs.
	sum := md5.Sum([]byte(fmt.Sprintf("%v", args)))
	return fmt.Sprintf("%s_%x", op, sum)[:len(op)+1+8]
}
