// Package replaycache implements a transparent record/replay caching proxy
// for remote-procedure-style provider interfaces (inference backends,
// search backends, tool-execution backends). Callers invoke operations
// exactly as if talking to the real backend while every result is silently
// persisted and replayed on a later identical call — deterministic, cheap,
// offline re-execution of expensive or non-deterministic remote calls.
//
// Components:
//   - Descriptor: the statically declared operation set of the wrapped
//     interface.
//   - Keyer: deterministic (operation, arguments) -> cache key derivation.
//   - store.Store: byte store addressed by api/provider/key (filesystem,
//     redis, ristretto, bigcache, sqlite).
//   - record + codec: the persisted envelope, its tag registry for
//     polymorphic result reconstruction, and envelope <-> bytes codecs.
//   - Proxy: the dispatcher tying it together, with two miss policies
//     (ModeCacheOnly, ModeCacheWithFallback).
//
// Records live at <api>/<provider>/<key> so two different backends behind
// the same interface never collide, and are permanent until removed
// out-of-band.
//
// Replay pattern:
//
//	reg := record.NewRegistry()
//	record.RegisterType[CompletionResponse](reg, "CompletionResponse")
//
//	st, _ := fs.New(fs.Config{Root: "~/.replaycache"})
//	proxy, _ := replaycache.New(replaycache.Options{
//	    API:        "inference",
//	    Operations: []replaycache.Operation{{Name: "completion", Params: []string{"model_id", "content"}}},
//	    Backend:    realBackend, // nil => replay-only
//	    Store:      st,
//	    Registry:   reg,
//	})
//
//	res, err := replaycache.Call[*CompletionResponse](ctx, proxy, "completion",
//	    replaycache.Args{"model_id": "m", "content": "Hello"})
package replaycache
