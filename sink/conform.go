package sink

import (
	"encoding/base64"
	"fmt"

	"github.com/hugr-lab/target-mssql/schema"
)

// Conformer normalises raw record values to the encodings of their target
// columns.
type Conformer struct{}

// Conform returns a copy of record in which every non-null base64 field is
// replaced by its decoded bytes. Other values pass through unchanged. A field
// the schema does not declare fails with RecordSchemaMismatchError.
func (Conformer) Conform(record map[string]any, s *schema.Schema) (map[string]any, error) {
	out := make(map[string]any, len(record))
	for name, value := range record {
		p, ok := s.Property(name)
		if !ok {
			return nil, &RecordSchemaMismatchError{Stream: s.Stream, Field: name, Reason: "is not declared in the schema"}
		}
		if value == nil || p.ContentEncoding != schema.EncodingBase64 {
			out[name] = value
			continue
		}

		switch v := value.(type) {
		case []byte:
			out[name] = v
		case string:
			decoded, err := base64.StdEncoding.DecodeString(v)
			if err != nil {
				return nil, &RecordSchemaMismatchError{Stream: s.Stream, Field: name, Reason: fmt.Sprintf("is not valid base64: %v", err)}
			}
			out[name] = decoded
		default:
			return nil, &RecordSchemaMismatchError{Stream: s.Stream, Field: name, Reason: fmt.Sprintf("has type %T, want base64 string", value)}
		}
	}
	return out, nil
}
