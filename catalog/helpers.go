package catalog

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// FindPrimaryKeyColumns returns the indices of primary key fields in schema.
// Returns nil if schema is nil or has no primary key.
//
// A field is a primary key when its metadata key "is_primary_key" is "true",
// as set by TableHandle.ArrowSchema.
//
// Example:
//
//	idx := catalog.FindPrimaryKeyColumns(handle.ArrowSchema())
//	if len(idx) == 0 {
//	    // heap table, nothing to bracket
//	}
func FindPrimaryKeyColumns(schema *arrow.Schema) []int {
	return findFlagged(schema, MetadataPrimaryKey)
}

// FindIdentityColumns returns the indices of IDENTITY fields in schema.
func FindIdentityColumns(schema *arrow.Schema) []int {
	return findFlagged(schema, MetadataIdentity)
}

func findFlagged(schema *arrow.Schema, key string) []int {
	if schema == nil {
		return nil
	}

	var out []int
	for i := 0; i < schema.NumFields(); i++ {
		if HasFlag(schema.Field(i), key) {
			out = append(out, i)
		}
	}
	return out
}

// HasFlag reports whether the metadata key of f is set to "true".
func HasFlag(f arrow.Field, key string) bool {
	if f.Metadata.Len() == 0 {
		return false
	}
	idx := f.Metadata.FindKey(key)
	return idx >= 0 && f.Metadata.Values()[idx] == "true"
}

// SQLTypeOf returns the sql_type metadata of f, or "" when absent.
func SQLTypeOf(f arrow.Field) string {
	if idx := f.Metadata.FindKey(MetadataSQLType); idx >= 0 {
		return f.Metadata.Values()[idx]
	}
	return ""
}

// FieldIndex returns the index of the field called name, ignoring case, or
// -1 when schema has no such field.
func FieldIndex(schema *arrow.Schema, name string) int {
	if schema == nil {
		return -1
	}
	for i := 0; i < schema.NumFields(); i++ {
		if strings.EqualFold(schema.Field(i).Name, name) {
			return i
		}
	}
	return -1
}
