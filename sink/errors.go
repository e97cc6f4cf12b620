package sink

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below via errors.Is.
var (
	// ErrSchemaDefinition is matched by SchemaDefinitionError.
	ErrSchemaDefinition = errors.New("schema definition error")

	// ErrUnsupportedOperation is matched by UnsupportedOperationError and
	// UnsupportedEncodingError.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrRecordSchemaMismatch is matched by RecordSchemaMismatchError.
	ErrRecordSchemaMismatch = errors.New("record does not match schema")

	// ErrStoreExecution is matched by StoreExecutionError.
	ErrStoreExecution = errors.New("store execution failed")

	// ErrUnsupportedEncoding is matched by UnsupportedEncodingError.
	ErrUnsupportedEncoding = errors.New("unsupported batch encoding")

	// ErrTableNotFound is returned when binding a table that does not exist.
	ErrTableNotFound = errors.New("table not found")
)

// SchemaDefinitionError reports a table-create request whose schema is
// unusable, e.g. carries no properties.
type SchemaDefinitionError struct {
	Table  string
	Reason string
}

func (e *SchemaDefinitionError) Error() string {
	return fmt.Sprintf("schema for %q: %s", e.Table, e.Reason)
}

func (e *SchemaDefinitionError) Is(target error) bool {
	return target == ErrSchemaDefinition
}

// UnsupportedOperationError reports an operation this target refuses to
// perform: temp tables, disabled column add or rename, column type changes.
type UnsupportedOperationError struct {
	Operation string
	Reason    string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s is not supported: %s", e.Operation, e.Reason)
}

func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}

// RecordSchemaMismatchError reports a record field the stream schema does not
// describe, or a value that cannot be conformed to its declared encoding.
type RecordSchemaMismatchError struct {
	Stream string
	Field  string
	Reason string
}

func (e *RecordSchemaMismatchError) Error() string {
	return fmt.Sprintf("record of stream %q: field %q %s", e.Stream, e.Field, e.Reason)
}

func (e *RecordSchemaMismatchError) Is(target error) bool {
	return target == ErrRecordSchemaMismatch
}

// StoreExecutionError wraps a failure returned by the store while executing
// DDL or an insert.
type StoreExecutionError struct {
	Operation string
	Table     string
	Err       error
}

func (e *StoreExecutionError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s on %s failed: %v", e.Operation, e.Table, e.Err)
}

func (e *StoreExecutionError) Is(target error) bool {
	return target == ErrStoreExecution
}

func (e *StoreExecutionError) Unwrap() error {
	return e.Err
}

// UnsupportedEncodingError reports a batch encoding other than JSON lines or
// an unknown compression.
type UnsupportedEncodingError struct {
	Format      string
	Compression string
}

func (e *UnsupportedEncodingError) Error() string {
	if e.Compression != "" {
		return fmt.Sprintf("unsupported batch encoding: format %q, compression %q", e.Format, e.Compression)
	}
	return fmt.Sprintf("unsupported batch encoding format: %q", e.Format)
}

func (e *UnsupportedEncodingError) Is(target error) bool {
	return target == ErrUnsupportedEncoding || target == ErrUnsupportedOperation
}
