package codec

import (
	"fmt"

	"github.com/unkn0wn-root/replaycache/record"
)

// Limit wraps another codec to enforce a maximum allowed record size at
// Decode time. Encode is forwarded to Inner unchanged.
// If MaxDecode <= 0, size limiting is disabled.
//
// Typical use: protect against oversized entries coming from a shared
// cache store.
type Limit struct {
	// Inner is the underlying codec being wrapped. It must be set.
	Inner Codec
	// MaxDecode is the maximum permitted length (in bytes) of the incoming
	// record for Decode. If it is exceeded, Decode returns an error without
	// invoking Inner.
	MaxDecode int
}

var _ Codec = Limit{}

func (c Limit) Encode(rec record.Record) ([]byte, error) { return c.Inner.Encode(rec) }

func (c Limit) Decode(b []byte) (record.Record, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		return record.Record{}, fmt.Errorf("record too large: %d > %d", len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
