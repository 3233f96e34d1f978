package replaycache

import (
	"fmt"

	"github.com/unkn0wn-root/replaycache/store/fs"
)

// Config is the primitive configuration surface consumed from an assembly
// layer. Resolving RealProviderID to a Backend instance is the assembly
// layer's job; the proxy only receives the already-resolved handle.
type Config struct {
	// RealProviderID identifies which configured backend this proxy wraps.
	RealProviderID string `json:"real_provider_id"`
	// Mode is "cache_only" or "cache_with_fallback".
	Mode string `json:"mode"`
	// CacheDir is the cache root; "~" shorthand is expanded.
	CacheDir string `json:"cache_dir"`
}

// DefaultConfig returns the stock settings: fallback mode, cache under the
// user's home.
func DefaultConfig() Config {
	return Config{
		Mode:     ModeCacheWithFallback.String(),
		CacheDir: "~/.replaycache",
	}
}

// FromConfig builds a proxy over a filesystem store described by cfg.
// cfg.Mode and cfg.CacheDir take precedence over opts.Mode and opts.Store.
func FromConfig(cfg Config, opts Options) (*Proxy, error) {
	if cfg.Mode != "" {
		mode, err := ParseMode(cfg.Mode)
		if err != nil {
			return nil, err
		}
		opts.Mode = mode
	}
	if cfg.CacheDir != "" {
		st, err := fs.New(fs.Config{Root: cfg.CacheDir})
		if err != nil {
			return nil, fmt.Errorf("replaycache: cache dir %q: %w", cfg.CacheDir, err)
		}
		opts.Store = st
	}
	return New(opts)
}
