package replaycache

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/replaycache/codec"
	"github.com/unkn0wn-root/replaycache/record"
	"github.com/unkn0wn-root/replaycache/store"
)

// Proxy is the replay dispatcher. It exposes the declared operation set of
// a wrapped interface, transparently serving repeated calls from the store
// and (mode permitting) filling misses from the real backend.
//
// Concurrency: concurrent misses for the same key converge on a single
// backend call and a single write within this process. Across processes
// the cache is last-writer-wins.
type Proxy struct {
	desc     Descriptor
	backend  Backend
	mode     Mode
	store    store.Store
	codec    codec.Codec
	registry *record.Registry
	keyer    Keyer
	log      Logger
	hooks    Hooks
	provider string

	flight singleflight.Group
}

func newProxy(opts Options) (*Proxy, error) {
	if opts.API == "" {
		return nil, errors.New("replaycache: api name is required")
	}
	if opts.Store == nil {
		return nil, errors.New("replaycache: store is required")
	}
	desc, err := NewDescriptor(opts.API, opts.Operations)
	if err != nil {
		return nil, err
	}

	p := &Proxy{
		desc:    desc,
		backend: opts.Backend,
		mode:    opts.Mode,
		store:   opts.Store,
	}

	// defaults
	p.codec = opts.Codec
	if p.codec == nil {
		p.codec = codec.JSON{}
	}
	p.registry = opts.Registry
	if p.registry == nil {
		p.registry = record.NewRegistry()
	}
	p.keyer = opts.Keyer
	if p.keyer == nil {
		p.keyer = CanonicalKeyer{}
	}
	p.log = coalesce[Logger](opts.Logger, NopLogger{})
	p.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	p.provider = coalesce(opts.ProviderType, providerType(opts.Backend))

	return p, nil
}

// providerType names the concrete backend implementation for the cache
// namespace, or the NoProvider sentinel when none is configured.
func providerType(b Backend) string {
	if b == nil {
		return record.NoProvider
	}
	rt := reflect.TypeOf(b)
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Name() != "" {
		return rt.Name()
	}
	return rt.String()
}

// API returns the wrapped interface's name.
func (p *Proxy) API() string { return p.desc.API() }

// ProviderType returns the namespace segment identifying the wrapped
// backend implementation.
func (p *Proxy) ProviderType() string { return p.provider }

// Descriptor returns the capability set this proxy exposes.
func (p *Proxy) Descriptor() Descriptor { return p.desc }

// Mode returns the configured replay mode.
func (p *Proxy) Mode() Mode { return p.mode }

// Invoke dispatches one operation call with caching inserted.
//
// A cache hit never reaches the real backend, under either mode. On a miss
// ModeCacheOnly fails with *CacheMissError; ModeCacheWithFallback invokes
// the backend, persists the result and returns it. Backend errors propagate
// unchanged and nothing is cached for them.
func (p *Proxy) Invoke(ctx context.Context, op string, args Args) (any, error) {
	if _, ok := p.desc.Operation(op); !ok {
		return nil, &UnknownOperationError{API: p.desc.API(), Op: op}
	}

	key := p.keyer.Key(op, args)
	addr := store.Address{API: p.desc.API(), Provider: p.provider, Key: key}

	v, hit, err := p.lookup(ctx, addr)
	if err != nil {
		return nil, err
	}
	if hit {
		return v, nil
	}

	switch {
	case p.mode == ModeCacheOnly:
		p.hooks.Miss(addr.API, addr.Provider, addr.Key, false)
		p.log.Warn("cache miss in cache-only mode", Fields{"op": op, "key": key})
		return nil, &CacheMissError{Key: key, Mode: p.mode}
	case p.backend == nil:
		p.hooks.Miss(addr.API, addr.Provider, addr.Key, false)
		return nil, &NoBackendError{Key: key}
	}

	p.hooks.Miss(addr.API, addr.Provider, addr.Key, true)
	p.log.Debug("cache miss, calling real backend", Fields{"op": op, "key": key})

	// Collapse concurrent misses for the same key onto one backend call
	// and one write.
	v, err, _ = p.flight.Do(addr.Path(), func() (any, error) {
		// A sibling flight may have filled the record while we queued.
		if v, hit, err := p.lookup(ctx, addr); err != nil || hit {
			return v, err
		}
		return p.fill(ctx, op, args, addr)
	})
	return v, err
}

// lookup reads and materializes the record at addr. A missing record is
// (nil, false, nil); a present but malformed one is a hard error.
func (p *Proxy) lookup(ctx context.Context, addr store.Address) (any, bool, error) {
	raw, ok, err := p.store.Get(ctx, addr)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	rec, err := p.codec.Decode(raw)
	if err != nil {
		return nil, false, &CorruptRecordError{Addr: addr, Err: err}
	}

	p.hooks.Hit(addr.API, addr.Provider, addr.Key)
	p.log.Debug("cache hit", Fields{"key": addr.Key, "path": addr.Path()})

	v, derr := p.registry.Decode(rec)
	if derr != nil {
		// Degrade-to-raw is the compatibility contract, not a failure.
		p.hooks.DecodeFallback(rec.Metadata.ResponseType, derr)
		p.log.Warn("returning raw response data", Fields{
			"response_type": rec.Metadata.ResponseType,
			"reason":        derr.Error(),
		})
	}
	return v, true, nil
}

// fill invokes the real backend and persists the result. The write happens
// only after a successful call; backend failures cache nothing.
func (p *Proxy) fill(ctx context.Context, op string, args Args, addr store.Address) (any, error) {
	res, err := p.backend.Invoke(ctx, op, args)
	p.hooks.BackendCall(op, err)
	if err != nil {
		return nil, err
	}

	rec := record.Encode(addr.Key, res, record.Metadata{
		ProviderType: addr.Provider,
		APIName:      addr.API,
	})
	raw, err := p.codec.Encode(rec)
	if err != nil {
		return nil, fmt.Errorf("replaycache: encode record %s: %w", addr.Path(), err)
	}
	if err := p.store.Put(ctx, addr, raw); err != nil {
		return nil, err
	}

	p.hooks.RecordWritten(addr.API, addr.Provider, addr.Key, len(raw))
	p.log.Debug("saved record", Fields{"path": addr.Path(), "bytes": len(raw)})
	return res, nil
}

// Initialize forwards to the backend when it supports initialization.
func (p *Proxy) Initialize(ctx context.Context) error {
	if b, ok := p.backend.(Initializer); ok {
		return b.Initialize(ctx)
	}
	return nil
}

// Shutdown forwards to the backend when it supports shutdown. The store is
// not closed here; it may be shared between proxies.
func (p *Proxy) Shutdown(ctx context.Context) error {
	if b, ok := p.backend.(Shutdowner); ok {
		return b.Shutdown(ctx)
	}
	return nil
}

// RegisterModel forwards to the backend when it tracks models and echoes
// the model back otherwise. Never cached.
func (p *Proxy) RegisterModel(ctx context.Context, m Model) (Model, error) {
	if b, ok := p.backend.(ModelRegistrar); ok {
		return b.RegisterModel(ctx, m)
	}
	return m, nil
}

// UnregisterModel forwards to the backend when it tracks models.
func (p *Proxy) UnregisterModel(ctx context.Context, modelID string) error {
	if b, ok := p.backend.(ModelRegistrar); ok {
		return b.UnregisterModel(ctx, modelID)
	}
	return nil
}
