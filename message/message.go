// Package message decodes the inbound message stream: schemas, records,
// batch references and state.
package message

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type is the kind of an inbound message.
type Type string

const (
	TypeSchema          Type = "SCHEMA"
	TypeRecord          Type = "RECORD"
	TypeBatch           Type = "BATCH"
	TypeState           Type = "STATE"
	TypeActivateVersion Type = "ACTIVATE_VERSION"
)

// Batch file formats.
const (
	FormatJSONL = "jsonl"
)

// ErrInvalidMessage is returned for messages missing required fields.
var ErrInvalidMessage = errors.New("invalid message")

// Encoding describes how staged batch files are encoded.
type Encoding struct {
	Format      string `json:"format"`
	Compression string `json:"compression,omitempty"`
}

// Message is one decoded inbound message. Which fields are set depends on Type.
type Message struct {
	Type   Type   `json:"type"`
	Stream string `json:"stream,omitempty"`

	// SCHEMA
	Schema        json.RawMessage `json:"schema,omitempty"`
	KeyProperties []string        `json:"key_properties,omitempty"`

	// RECORD. Numbers are json.Number (JSON input) or int64/float64
	// (MessagePack input).
	Record map[string]any `json:"record,omitempty"`

	// BATCH
	Encoding Encoding `json:"encoding,omitempty"`
	Manifest []string `json:"manifest,omitempty"`

	// STATE
	Value json.RawMessage `json:"value,omitempty"`

	// ACTIVATE_VERSION and RECORD
	Version *int64 `json:"version,omitempty"`
}

// Validate checks the fields required by the message type.
func (m *Message) Validate() error {
	switch m.Type {
	case TypeSchema:
		if m.Stream == "" || len(m.Schema) == 0 {
			return fmt.Errorf("%w: SCHEMA requires stream and schema", ErrInvalidMessage)
		}
	case TypeRecord:
		if m.Stream == "" || m.Record == nil {
			return fmt.Errorf("%w: RECORD requires stream and record", ErrInvalidMessage)
		}
	case TypeBatch:
		if m.Stream == "" || len(m.Manifest) == 0 {
			return fmt.Errorf("%w: BATCH requires stream and manifest", ErrInvalidMessage)
		}
	case TypeState, TypeActivateVersion:
	case "":
		return fmt.Errorf("%w: missing type", ErrInvalidMessage)
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, m.Type)
	}
	return nil
}
