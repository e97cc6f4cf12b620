package target

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hugr-lab/target-mssql/message"
	"github.com/hugr-lab/target-mssql/schema"
)

// PropertyDef defines one property of a stream schema.
// Used with SchemaBuilder.Property().
type PropertyDef struct {
	// Name is the property (column) name.
	// REQUIRED: MUST be non-empty and unique within the stream.
	Name string

	// Kind is the JSON-Schema type.
	// REQUIRED: MUST be a valid schema.Kind other than KindNull.
	Kind schema.Kind

	// Nullable adds "null" to the declared types. OPTIONAL.
	Nullable bool

	// Format, ContentEncoding and ContentMediaType select specialised
	// column types, e.g. "date-time", "base64", "application/xml". OPTIONAL.
	Format           string
	ContentEncoding  string
	ContentMediaType string

	// MaxLength bounds string length. OPTIONAL: unbounded when zero.
	MaxLength int

	// Minimum and Maximum are numeric literals, e.g. "-2147483648" or
	// "999.99". They are kept as written. OPTIONAL.
	Minimum string
	Maximum string
}

// SchemaBuilder builds stream schemas using fluent API.
// Not thread-safe - use only during initialization.
type SchemaBuilder struct {
	stream     string
	properties []PropertyDef
	keys       []string
}

// NewSchemaBuilder creates a builder for the schema of stream.
//
// Example:
//
//	msg, err := target.NewSchemaBuilder("sales-orders").
//	    Integer("id").
//	    Property(target.PropertyDef{Name: "total", Kind: schema.KindNumber, Maximum: "99999999.99"}).
//	    String("note", 200).
//	    Key("id").
//	    Message()
func NewSchemaBuilder(stream string) *SchemaBuilder {
	return &SchemaBuilder{stream: stream}
}

// Property adds a property. Returns self for method chaining.
func (b *SchemaBuilder) Property(def PropertyDef) *SchemaBuilder {
	b.properties = append(b.properties, def)
	return b
}

// Integer adds a nullable integer property.
func (b *SchemaBuilder) Integer(name string) *SchemaBuilder {
	return b.Property(PropertyDef{Name: name, Kind: schema.KindInteger, Nullable: true})
}

// String adds a nullable string property; maxLength 0 means unbounded.
func (b *SchemaBuilder) String(name string, maxLength int) *SchemaBuilder {
	return b.Property(PropertyDef{Name: name, Kind: schema.KindString, Nullable: true, MaxLength: maxLength})
}

// Boolean adds a nullable boolean property.
func (b *SchemaBuilder) Boolean(name string) *SchemaBuilder {
	return b.Property(PropertyDef{Name: name, Kind: schema.KindBoolean, Nullable: true})
}

// Key appends key properties. Returns self for method chaining.
func (b *SchemaBuilder) Key(names ...string) *SchemaBuilder {
	b.keys = append(b.keys, names...)
	return b
}

// Document renders the JSON-Schema document. Properties keep the order
// they were added in.
func (b *SchemaBuilder) Document() ([]byte, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"type":"object","properties":{`)
	for i, def := range b.properties {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(def.Name)
		if err != nil {
			return nil, err
		}
		prop, err := json.Marshal(def.document())
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", def.Name, err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(prop)
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}

// Build returns the parsed schema.
func (b *SchemaBuilder) Build() (*schema.Schema, error) {
	doc, err := b.Document()
	if err != nil {
		return nil, err
	}
	return schema.Parse(b.stream, doc, b.keys)
}

// Message returns the SCHEMA message announcing the schema.
func (b *SchemaBuilder) Message() (*message.Message, error) {
	doc, err := b.Document()
	if err != nil {
		return nil, err
	}
	return &message.Message{
		Type:          message.TypeSchema,
		Stream:        b.stream,
		Schema:        doc,
		KeyProperties: append([]string(nil), b.keys...),
	}, nil
}

func (b *SchemaBuilder) validate() error {
	if b.stream == "" {
		return fmt.Errorf("stream name cannot be empty")
	}
	if len(b.properties) == 0 {
		return fmt.Errorf("stream %s has no properties", b.stream)
	}

	seen := make(map[string]bool, len(b.properties))
	for _, def := range b.properties {
		if def.Name == "" {
			return fmt.Errorf("property name cannot be empty in stream %s", b.stream)
		}
		if seen[def.Name] {
			return fmt.Errorf("duplicate property %s in stream %s", def.Name, b.stream)
		}
		seen[def.Name] = true

		if !def.Kind.Valid() || def.Kind == schema.KindNull {
			return fmt.Errorf("property %s has invalid kind %q", def.Name, def.Kind)
		}
		for _, bound := range []string{def.Minimum, def.Maximum} {
			if bound == "" {
				continue
			}
			if _, err := schema.NewBound(bound); err != nil {
				return fmt.Errorf("property %s has invalid bound %q: %w", def.Name, bound, err)
			}
		}
	}
	for _, k := range b.keys {
		if !seen[k] {
			return fmt.Errorf("key property %s is not defined in stream %s", k, b.stream)
		}
	}
	return nil
}

// document returns the JSON-Schema keywords of def.
func (def PropertyDef) document() map[string]any {
	doc := map[string]any{}
	if def.Nullable {
		doc["type"] = []schema.Kind{def.Kind, schema.KindNull}
	} else {
		doc["type"] = def.Kind
	}
	if def.Format != "" {
		doc["format"] = def.Format
	}
	if def.ContentEncoding != "" {
		doc["contentEncoding"] = def.ContentEncoding
	}
	if def.ContentMediaType != "" {
		doc["contentMediaType"] = def.ContentMediaType
	}
	if def.MaxLength > 0 {
		doc["maxLength"] = def.MaxLength
	}
	if def.Minimum != "" {
		doc["minimum"] = json.Number(def.Minimum)
	}
	if def.Maximum != "" {
		doc["maximum"] = json.Number(def.Maximum)
	}
	return doc
}
