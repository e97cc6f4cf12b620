package schema

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParsePreservesPropertyOrder(t *testing.T) {
	doc := []byte(`{
		"type": "object",
		"properties": {
			"zeta":  {"type": "string"},
			"alpha": {"type": ["integer", "null"]},
			"mid":   {"type": "boolean"}
		}
	}`)

	s, err := Parse("users", doc, []string{"alpha"})
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if diff := cmp.Diff([]string{"zeta", "alpha", "mid"}, s.Names()); diff != "" {
		t.Errorf("property order mismatch (-want +got):\n%s", diff)
	}
	if !s.IsKey("alpha") || s.IsKey("zeta") {
		t.Errorf("unexpected key properties: %v", s.KeyProperties)
	}
}

func TestParseKeywords(t *testing.T) {
	doc := []byte(`{
		"properties": {
			"payload": {"type": "string", "contentEncoding": "base64", "maxLength": 64},
			"doc":     {"type": "string", "contentMediaType": "application/xml"},
			"amount":  {"type": ["null", "number"], "minimum": -922337203685477.6, "maximum": 922337203685477.6},
			"big":     {"type": "number", "maximum": 1.5e+10}
		}
	}`)

	s, err := Parse("orders", doc, nil)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	payload, _ := s.Property("payload")
	if payload.ContentEncoding != EncodingBase64 {
		t.Errorf("payload encoding = %q, want base64", payload.ContentEncoding)
	}
	if payload.MaxLength == nil || *payload.MaxLength != 64 {
		t.Errorf("payload maxLength = %v, want 64", payload.MaxLength)
	}

	doc2, _ := s.Property("doc")
	if doc2.ContentMediaType != MediaTypeXML {
		t.Errorf("doc media type = %q", doc2.ContentMediaType)
	}

	amount, _ := s.Property("amount")
	if amount.PrimaryKind() != KindNumber {
		t.Errorf("amount primary kind = %q, want number", amount.PrimaryKind())
	}
	if !amount.Nullable() {
		t.Error("amount should be nullable")
	}
	if amount.Maximum.Text != "922337203685477.6" {
		t.Errorf("amount maximum text = %q", amount.Maximum.Text)
	}
	if !amount.Minimum.Equal(MustBound("-922337203685477.6").Value) {
		t.Errorf("amount minimum = %s", amount.Minimum)
	}

	big, _ := s.Property("big")
	if big.Maximum.Text != "1.5e+10" {
		t.Errorf("literal text must be preserved, got %q", big.Maximum.Text)
	}
}

func TestParseAnyOf(t *testing.T) {
	doc := []byte(`{
		"properties": {
			"updated_at": {"anyOf": [{"type": "string", "format": "date-time"}, {"type": "null"}]}
		}
	}`)

	s, err := Parse("events", doc, nil)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	p, ok := s.Property("updated_at")
	if !ok {
		t.Fatal("updated_at not found")
	}
	if diff := cmp.Diff([]Kind{KindString, KindNull}, p.Kinds); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
	if p.Format != FormatDateTime {
		t.Errorf("format = %q, want date-time", p.Format)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{name: "no properties", doc: `{"type": "object"}`, wantErr: ErrNoProperties},
		{name: "null properties", doc: `{"properties": null}`, wantErr: ErrNoProperties},
		{name: "not json", doc: `{`, wantErr: ErrInvalidSchema},
		{name: "unknown type", doc: `{"properties": {"a": {"type": "decimal"}}}`, wantErr: ErrInvalidSchema},
		{name: "properties not object", doc: `{"properties": [1, 2]}`, wantErr: ErrInvalidSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("s", []byte(tt.doc), nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPrimaryKind(t *testing.T) {
	tests := []struct {
		kinds []Kind
		want  Kind
	}{
		{kinds: []Kind{KindNull, KindString}, want: KindString},
		{kinds: []Kind{KindInteger}, want: KindInteger},
		{kinds: []Kind{KindNull}, want: KindNull},
		{kinds: nil, want: KindNull},
	}

	for _, tt := range tests {
		p := Property{Kinds: tt.kinds}
		if got := p.PrimaryKind(); got != tt.want {
			t.Errorf("PrimaryKind(%v) = %q, want %q", tt.kinds, got, tt.want)
		}
	}
}
