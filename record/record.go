// Package record defines the persisted cache envelope and the polymorphic
// result (de)materialization around it.
//
// The envelope is a generic, JSON-shaped value:
//
//	{
//	  "cache_key": "<derived key>",
//	  "response":  <scalar | mapping | sequence>,
//	  "metadata":  {"provider_type": ..., "api_name": ..., "response_type": ...}
//	}
//
// Encode flattens an arbitrary result into that generic form, stamping the
// result's type tag so Decode can attempt reconstruction. Decode looks the
// tag up in an explicit Registry and degrades to the raw generic value when
// the tag is unknown or reconstruction fails; old cache files stay loadable
// after new result types are introduced.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// NoProvider is the provider_type sentinel written when the proxy wraps no
// real backend.
const NoProvider = "NoProvider"

// Record is the persisted unit, one per (operation, argument-hash) pair.
// CacheKey always equals the key derived from the call that produced it;
// it is stamped by the dispatcher, never caller-supplied.
type Record struct {
	CacheKey string   `json:"cache_key" msgpack:"cache_key" cbor:"cache_key"`
	Response any      `json:"response" msgpack:"response" cbor:"response"`
	Metadata Metadata `json:"metadata" msgpack:"metadata" cbor:"metadata"`
}

type Metadata struct {
	ProviderType string `json:"provider_type" msgpack:"provider_type" cbor:"provider_type"`
	APIName      string `json:"api_name" msgpack:"api_name" cbor:"api_name"`
	ResponseType string `json:"response_type" msgpack:"response_type" cbor:"response_type"`
}

// Typed lets result types declare their wire tag explicitly. Types that do
// not implement it are tagged with their reflected type name.
type Typed interface {
	ResponseType() string
}

// Encode builds the envelope for a result value. Structured values are
// flattened to their generic field view; values that cannot be marshaled
// fall back to their textual rendering.
func Encode(key string, v any, meta Metadata) Record {
	meta.ResponseType = TypeTag(v)
	return Record{
		CacheKey: key,
		Response: toGeneric(v),
		Metadata: meta,
	}
}

// TypeTag returns the wire tag for a result value.
func TypeTag(v any) string {
	if t, ok := v.(Typed); ok {
		return t.ResponseType()
	}
	rt := reflect.TypeOf(v)
	if rt == nil {
		return ""
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Name() != "" {
		return rt.Name()
	}
	return rt.String()
}

func toGeneric(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return fmt.Sprint(v)
	}
	return generic
}

// ErrUnregisteredType reports that a record's response_type has no
// registered constructor. Decode still returns the raw generic value.
var ErrUnregisteredType = errors.New("record: unregistered response type")

// Constructor returns a pointer to a fresh zero value of a concrete result
// type, ready to be populated from the stored mapping.
type Constructor func() any

// Registry is the explicit, closed set of result variants known to Decode.
// Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register binds a tag to a constructor. Later registrations for the same
// tag win, so callers can override defaults in tests.
func (r *Registry) Register(tag string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[tag] = ctor
}

// RegisterType binds T's tag to a *T constructor.
func RegisterType[T any](r *Registry, tag string) {
	r.Register(tag, func() any { return new(T) })
}

// Decode materializes a record's response. On success the returned value is
// the concrete type built by the registered constructor. When the tag is
// unknown or reconstruction fails the raw generic value is returned along
// with a non-nil error describing why; the error is diagnostic, never
// fatal — callers use the value either way.
func (r *Registry) Decode(rec Record) (any, error) {
	tag := rec.Metadata.ResponseType
	r.mu.RLock()
	ctor, ok := r.ctors[tag]
	r.mu.RUnlock()
	if !ok {
		return rec.Response, fmt.Errorf("%w: %q", ErrUnregisteredType, tag)
	}

	b, err := json.Marshal(rec.Response)
	if err != nil {
		return rec.Response, fmt.Errorf("record: render %q response: %w", tag, err)
	}
	v := ctor()
	if err := json.Unmarshal(b, v); err != nil {
		return rec.Response, fmt.Errorf("record: reconstruct %q: %w", tag, err)
	}
	return v, nil
}
