// Package schema models the structural (JSON-Schema-like) description of a
// stream's records as delivered by SCHEMA messages.
//
// A Schema is an ordered list of Property descriptors plus the names of the
// key properties. Properties are immutable once parsed; a new SCHEMA message
// for the same stream produces a new Schema value that supersedes the old one.
package schema

import (
	"errors"
	"slices"

	"github.com/cockroachdb/apd/v3"
)

// Kind is a JSON-Schema type tag.
type Kind string

const (
	KindString  Kind = "string"
	KindBoolean Kind = "boolean"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindObject  Kind = "object"
	KindArray   Kind = "array"
	KindNull    Kind = "null"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindString, KindBoolean, KindInteger, KindNumber, KindObject, KindArray, KindNull:
		return true
	}
	return false
}

// Well-known values of Property.Format, Property.ContentEncoding and
// Property.ContentMediaType.
const (
	FormatDate     = "date"
	FormatTime     = "time"
	FormatDateTime = "date-time"
	FormatUUID     = "uuid"

	EncodingBase64 = "base64"

	MediaTypeXML = "application/xml"
)

var (
	// ErrNoProperties is returned when a schema document does not define properties.
	ErrNoProperties = errors.New("schema does not define properties")

	// ErrInvalidSchema is returned when a schema document cannot be parsed.
	ErrInvalidSchema = errors.New("invalid schema")
)

// Bound is an exact numeric boundary (minimum or maximum) of a property.
// Text is the literal as written in the schema document; the type inference
// derives DECIMAL precision and scale from it, so it must not be reformatted.
type Bound struct {
	Text  string
	Value *apd.Decimal
}

// NewBound parses a decimal literal into an exact bound.
func NewBound(text string) (*Bound, error) {
	d, _, err := apd.NewFromString(text)
	if err != nil {
		return nil, err
	}
	return &Bound{Text: text, Value: d}, nil
}

// MustBound is like NewBound but panics on malformed input.
// Intended for constants and tests.
func MustBound(text string) *Bound {
	b, err := NewBound(text)
	if err != nil {
		panic(err)
	}
	return b
}

// Equal reports whether b holds the same exact value as d.
func (b *Bound) Equal(d *apd.Decimal) bool {
	if b == nil || b.Value == nil || d == nil {
		return false
	}
	return b.Value.Cmp(d) == 0
}

func (b *Bound) String() string {
	if b == nil {
		return "<nil>"
	}
	return b.Text
}

// Property describes one field of a stream.
type Property struct {
	Name string

	// Kinds holds the declared type tags in declaration order.
	// Nullable fields carry KindNull next to their value kind.
	Kinds []Kind

	Format           string
	ContentEncoding  string
	ContentMediaType string

	// MaxLength is nil when the schema does not bound the length.
	MaxLength *int

	Minimum *Bound
	Maximum *Bound
}

// PrimaryKind returns the first non-null kind of the property.
// Returns KindNull when the property only admits null.
func (p Property) PrimaryKind() Kind {
	for _, k := range p.Kinds {
		if k != KindNull {
			return k
		}
	}
	return KindNull
}

// Has reports whether kind is among the declared kinds.
func (p Property) Has(kind Kind) bool {
	return slices.Contains(p.Kinds, kind)
}

// Nullable reports whether the property admits null or declares no kind at all.
func (p Property) Nullable() bool {
	return len(p.Kinds) == 0 || p.Has(KindNull)
}

// Schema is the ordered structural schema of one stream.
type Schema struct {
	Stream        string
	Properties    []Property
	KeyProperties []string
}

// Property looks up a property by name.
func (s *Schema) Property(name string) (Property, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Names returns property names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Properties))
	for i, p := range s.Properties {
		names[i] = p.Name
	}
	return names
}

// IsKey reports whether name is one of the key properties.
func (s *Schema) IsKey(name string) bool {
	return slices.Contains(s.KeyProperties, name)
}
