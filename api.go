package replaycache

import (
	"context"
	"fmt"

	"github.com/unkn0wn-root/replaycache/codec"
	"github.com/unkn0wn-root/replaycache/record"
	"github.com/unkn0wn-root/replaycache/store"
)

// Args carries an operation's named arguments. Semantic equality of Args
// (regardless of construction order) yields the same cache key under the
// canonical keyer.
type Args map[string]any

// Backend is the contract a real provider satisfies. The proxy forwards
// Invoke to it on a cache miss under ModeCacheWithFallback; a nil backend
// is legal and restricts the proxy to replaying existing records.
type Backend interface {
	Invoke(ctx context.Context, op string, args Args) (any, error)
}

// Optional backend capabilities. The proxy forwards these lifecycle calls
// when the backend implements them and no-ops otherwise; they are never
// cached.
type (
	Initializer interface {
		Initialize(ctx context.Context) error
	}
	Shutdowner interface {
		Shutdown(ctx context.Context) error
	}
	ModelRegistrar interface {
		RegisterModel(ctx context.Context, model Model) (Model, error)
		UnregisterModel(ctx context.Context, modelID string) error
	}
)

// Model is the registration bookkeeping unit passed through to backends
// that track models.
type Model struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Options tune a Proxy. API, Operations and Store are required; everything
// else has a sensible default.
type Options struct {
	// Required
	API        string      // name of the wrapped interface; first namespace segment
	Operations []Operation // the declared capability set (may be empty)
	Store      store.Store

	// Backend is the wrapped real provider; nil means replay-only.
	Backend Backend

	Mode     Mode             // default ModeCacheWithFallback
	Codec    codec.Codec      // default codec.JSON{}
	Registry *record.Registry // default empty registry (decode degrades to raw)
	Keyer    Keyer            // default CanonicalKeyer{}
	Logger   Logger           // default NopLogger
	Hooks    Hooks            // default NopHooks

	// ProviderType overrides the second namespace segment. Defaults to the
	// backend's type name, or "NoProvider" when Backend is nil.
	ProviderType string
}

// New builds a replay proxy for the declared capability set.
func New(opts Options) (*Proxy, error) {
	return newProxy(opts)
}

// Call invokes op through p and asserts the concrete result type. Useful
// when the result type is registered and callers want to skip the type
// switch; replays whose record decodes to the raw generic form fail the
// assertion and return an error.
func Call[T any](ctx context.Context, p *Proxy, op string, args Args) (T, error) {
	v, err := p.Invoke(ctx, op, args)
	if err != nil {
		var zero T
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("replaycache: %s returned %T, want %T", op, v, zero)
	}
	return t, nil
}
