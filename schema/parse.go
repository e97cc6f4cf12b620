package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// rawProperty mirrors the subset of JSON-Schema keywords the loader understands.
// json.Number keeps numeric bounds in their literal form.
type rawProperty struct {
	Type             json.RawMessage `json:"type"`
	Format           string          `json:"format"`
	ContentEncoding  string          `json:"contentEncoding"`
	ContentMediaType string          `json:"contentMediaType"`
	MaxLength        *int            `json:"maxLength"`
	Minimum          *json.Number    `json:"minimum"`
	Maximum          *json.Number    `json:"maximum"`
	AnyOf            []rawProperty   `json:"anyOf"`
}

// Parse decodes a JSON-Schema document into a Schema.
// Property order follows the order of keys in the "properties" object.
//
// The "type" keyword may be a string or an array of strings. An "anyOf"
// list is flattened: the kinds of every branch are collected in order and
// the first branch carrying a format/encoding/bound contributes those.
//
// Returns an error wrapping ErrNoProperties if the document has no
// "properties" object.
func Parse(stream string, doc []byte, keyProperties []string) (*Schema, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(doc, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	rawProps, ok := top["properties"]
	if !ok || bytes.Equal(bytes.TrimSpace(rawProps), []byte("null")) {
		return nil, fmt.Errorf("%w: stream %q", ErrNoProperties, stream)
	}

	names, values, err := orderedObject(rawProps)
	if err != nil {
		return nil, fmt.Errorf("%w: properties of %q: %v", ErrInvalidSchema, stream, err)
	}

	s := &Schema{
		Stream:        stream,
		Properties:    make([]Property, 0, len(names)),
		KeyProperties: append([]string(nil), keyProperties...),
	}
	for _, name := range names {
		var rp rawProperty
		if err := json.Unmarshal(values[name], &rp); err != nil {
			return nil, fmt.Errorf("%w: property %q: %v", ErrInvalidSchema, name, err)
		}
		p, err := rp.property(name)
		if err != nil {
			return nil, fmt.Errorf("%w: property %q: %v", ErrInvalidSchema, name, err)
		}
		s.Properties = append(s.Properties, p)
	}
	return s, nil
}

func (rp rawProperty) property(name string) (Property, error) {
	p := Property{Name: name}
	if err := rp.fill(&p, true); err != nil {
		return Property{}, err
	}
	for _, branch := range rp.AnyOf {
		if err := branch.fill(&p, false); err != nil {
			return Property{}, err
		}
	}
	return p, nil
}

// fill merges rp into p. Scalar keywords already set on p are kept unless
// override is true.
func (rp rawProperty) fill(p *Property, override bool) error {
	kinds, err := parseKinds(rp.Type)
	if err != nil {
		return err
	}
	for _, k := range kinds {
		if !p.Has(k) {
			p.Kinds = append(p.Kinds, k)
		}
	}

	set := func(dst *string, v string) {
		if v != "" && (override || *dst == "") {
			*dst = v
		}
	}
	set(&p.Format, rp.Format)
	set(&p.ContentEncoding, rp.ContentEncoding)
	set(&p.ContentMediaType, rp.ContentMediaType)

	if rp.MaxLength != nil && (override || p.MaxLength == nil) {
		n := *rp.MaxLength
		p.MaxLength = &n
	}
	if rp.Minimum != nil && (override || p.Minimum == nil) {
		b, err := NewBound(rp.Minimum.String())
		if err != nil {
			return fmt.Errorf("minimum: %w", err)
		}
		p.Minimum = b
	}
	if rp.Maximum != nil && (override || p.Maximum == nil) {
		b, err := NewBound(rp.Maximum.String())
		if err != nil {
			return fmt.Errorf("maximum: %w", err)
		}
		p.Maximum = b
	}
	return nil
}

func parseKinds(raw json.RawMessage) ([]Kind, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var names []string
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &names); err != nil {
			return nil, fmt.Errorf("type: %w", err)
		}
	} else {
		var one string
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, fmt.Errorf("type: %w", err)
		}
		names = []string{one}
	}

	kinds := make([]Kind, 0, len(names))
	for _, n := range names {
		k := Kind(n)
		if !k.Valid() {
			return nil, fmt.Errorf("unknown type %q", n)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// orderedObject returns the keys of a JSON object in document order together
// with their raw values.
func orderedObject(raw json.RawMessage) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	values := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected key, got %v", tok)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		if _, dup := values[key]; !dup {
			keys = append(keys, key)
		}
		values[key] = v
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, nil, err
	}
	return keys, values, nil
}
