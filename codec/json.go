package codec

import (
	"encoding/json"

	"github.com/unkn0wn-root/replaycache/record"
)

// JSON is the canonical envelope codec. Output is indented so cache files
// stay diffable and greppable. The zero value is ready to use.
type JSON struct{}

var _ Codec = JSON{}

func (JSON) Encode(rec record.Record) ([]byte, error) {
	return json.MarshalIndent(rec, "", "  ")
}

func (JSON) Decode(b []byte) (record.Record, error) {
	var rec record.Record
	err := json.Unmarshal(b, &rec)
	return rec, err
}
