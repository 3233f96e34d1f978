package replaycache

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The proxy calls them on hot paths.
type Hooks interface {
	// A call was served from the cache.
	Hit(api, provider, key string)

	// No record existed. fallback reports whether a backend call follows
	// (false under ModeCacheOnly or with no backend configured).
	Miss(api, provider, key string, fallback bool)

	// The real backend was invoked; err is nil on success.
	BackendCall(op string, err error)

	// A record was persisted after a successful backend call.
	RecordWritten(api, provider, key string, size int)

	// Decode degraded to the raw generic value.
	// The call still succeeded; err says why reconstruction was skipped.
	DecodeFallback(responseType string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Hit(string, string, string)                {}
func (NopHooks) Miss(string, string, string, bool)         {}
func (NopHooks) BackendCall(string, error)                 {}
func (NopHooks) RecordWritten(string, string, string, int) {}
func (NopHooks) DecodeFallback(string, error)              {}
