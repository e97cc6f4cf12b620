// Package msgpack provides streaming MessagePack decoding for inbound
// messages.
package msgpack

import (
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Decoder reads a stream of concatenated MessagePack maps.
// Integers decode as int64 and floats as float64 regardless of their wire
// width.
//
// Example:
//
//	dec := msgpack.NewDecoder(os.Stdin)
//	for {
//	    m, err := dec.Next()
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    ...
//	}
type Decoder struct {
	dec *msgpack.Decoder
}

// NewDecoder creates a stream decoder over r.
func NewDecoder(r io.Reader) *Decoder {
	dec := msgpack.NewDecoder(r)
	dec.UseLooseInterfaceDecoding(true)
	return &Decoder{dec: dec}
}

// Next decodes the next map. Returns io.EOF at a clean end of stream.
func (d *Decoder) Next() (map[string]interface{}, error) {
	var result map[string]interface{}
	if err := d.dec.Decode(&result); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to decode MessagePack map: %w", err)
	}
	return result, nil
}
