package replaycache

import "fmt"

// Mode selects what a cache miss does.
type Mode uint8

const (
	// ModeCacheWithFallback (default): a miss invokes the real backend and
	// persists the result.
	ModeCacheWithFallback Mode = iota

	// ModeCacheOnly never invokes the real backend; a miss is an error.
	ModeCacheOnly
)

func (m Mode) String() string {
	switch m {
	case ModeCacheWithFallback:
		return "cache_with_fallback"
	case ModeCacheOnly:
		return "cache_only"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// ParseMode maps a configuration string to a Mode. "fallback" is accepted
// as a short alias for "cache_with_fallback".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "cache_with_fallback", "fallback":
		return ModeCacheWithFallback, nil
	case "cache_only":
		return ModeCacheOnly, nil
	default:
		return 0, fmt.Errorf("replaycache: unknown mode %q", s)
	}
}
