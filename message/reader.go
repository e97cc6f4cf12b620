package message

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hugr-lab/target-mssql/internal/msgpack"
)

// Reader yields messages until io.EOF.
type Reader interface {
	Next() (*Message, error)
}

// maxLineSize bounds one JSON line. Records with large binary payloads
// exceed bufio's 64KiB default.
const maxLineSize = 64 << 20

// JSONReader reads one JSON message per line. Blank lines are skipped.
type JSONReader struct {
	scanner *bufio.Scanner
	line    int
}

// NewJSONReader creates a JSONReader over r.
func NewJSONReader(r io.Reader) *JSONReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &JSONReader{scanner: s}
}

// Next implements Reader.
func (r *JSONReader) Next() (*Message, error) {
	for r.scanner.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		m, err := ParseJSON(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		return m, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// ParseJSON decodes and validates a single JSON message.
func ParseJSON(data []byte) (*Message, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m Message
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// DecodeRecord decodes one JSON object into a record, keeping numbers as
// json.Number.
func DecodeRecord(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec map[string]any
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.New("record is not a JSON object")
	}
	return rec, nil
}

// MsgpackReader reads a stream of concatenated MessagePack maps using the
// same field names as the JSON form. Schema property order follows the
// sorted key order of the re-encoded schema map.
type MsgpackReader struct {
	dec *msgpack.Decoder
}

// NewMsgpackReader creates a MsgpackReader over r.
func NewMsgpackReader(r io.Reader) *MsgpackReader {
	return &MsgpackReader{dec: msgpack.NewDecoder(r)}
}

// Next implements Reader.
func (r *MsgpackReader) Next() (*Message, error) {
	raw, err := r.dec.Next()
	if err != nil {
		return nil, err
	}
	m, err := fromMap(raw)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func fromMap(raw map[string]any) (*Message, error) {
	m := &Message{}
	m.Type = Type(stringValue(raw["type"]))
	m.Stream = stringValue(raw["stream"])

	if v, ok := raw["schema"]; ok && v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: schema: %v", ErrInvalidMessage, err)
		}
		m.Schema = data
	}
	m.KeyProperties = stringSlice(raw["key_properties"])

	if v, ok := raw["record"].(map[string]any); ok {
		m.Record = v
	}

	if enc, ok := raw["encoding"].(map[string]any); ok {
		m.Encoding = Encoding{
			Format:      stringValue(enc["format"]),
			Compression: stringValue(enc["compression"]),
		}
	}
	m.Manifest = stringSlice(raw["manifest"])

	if v, ok := raw["value"]; ok && v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: value: %v", ErrInvalidMessage, err)
		}
		m.Value = data
	}
	if v, ok := raw["version"].(int64); ok {
		m.Version = &v
	}
	return m, nil
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
