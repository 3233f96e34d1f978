package codec

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/unkn0wn-root/replaycache/record"
)

// Msgpack serializes envelopes with vmihailenco/msgpack/v5. Compact and
// fast; meant for byte stores (redis, memory), not for the file tree where
// the JSON contract applies. The zero value is ready to use.
type Msgpack struct{}

var _ Codec = Msgpack{}

func (Msgpack) Encode(rec record.Record) ([]byte, error) {
	return msgpack.Marshal(rec)
}

func (Msgpack) Decode(b []byte) (record.Record, error) {
	var rec record.Record
	err := msgpack.Unmarshal(b, &rec)
	return rec, err
}
