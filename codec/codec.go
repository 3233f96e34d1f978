// Package codec converts the persisted envelope to and from storage bytes.
//
// JSON is the canonical on-disk format (one human-readable JSON object per
// cache file); Msgpack and CBOR exist for stores where the file contract
// does not bind and density matters.
package codec

import "github.com/unkn0wn-root/replaycache/record"

// Codec encodes/decodes cache records to []byte for storage.
type Codec interface {
	Encode(record.Record) ([]byte, error)
	Decode([]byte) (record.Record, error)
}
