package catalog

import (
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/target-mssql/sqltype"
)

// Field metadata keys set by TableHandle.ArrowSchema.
const (
	MetadataPrimaryKey = "is_primary_key"
	MetadataIdentity   = "is_identity"
	MetadataSQLType    = "sql_type"
)

// Column describes a column as it exists at the target.
type Column struct {
	Name       string
	Type       sqltype.ColumnType
	Nullable   bool
	PrimaryKey bool

	// Identity marks an IDENTITY column: the store generates its values and
	// refuses caller-supplied ones unless IDENTITY_INSERT is enabled.
	Identity bool
}

// TableHandle is a bound reference to an existing table, with its columns in
// ordinal order as introspected from the store.
type TableHandle struct {
	Name    TableName
	Columns []Column
}

// NewTableHandle creates a handle for name with the given columns.
func NewTableHandle(name TableName, columns []Column) *TableHandle {
	return &TableHandle{Name: name, Columns: columns}
}

// Column looks up a column by name. SQL Server column names are
// case-insensitive, so is the lookup.
func (h *TableHandle) Column(name string) (Column, bool) {
	for _, c := range h.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether the table has a column called name.
func (h *TableHandle) HasColumn(name string) bool {
	_, ok := h.Column(name)
	return ok
}

// ColumnNames returns column names in ordinal order.
func (h *TableHandle) ColumnNames() []string {
	names := make([]string, len(h.Columns))
	for i, c := range h.Columns {
		names[i] = c.Name
	}
	return names
}

// PrimaryKeys returns the names of primary key columns.
func (h *TableHandle) PrimaryKeys() []string {
	var keys []string
	for _, c := range h.Columns {
		if c.PrimaryKey {
			keys = append(keys, c.Name)
		}
	}
	return keys
}

// IdentityColumns returns the names of IDENTITY columns.
func (h *TableHandle) IdentityColumns() []string {
	var cols []string
	for _, c := range h.Columns {
		if c.Identity {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

// ArrowSchema describes the table as an Arrow schema. Each field carries the
// SQL type and primary key / identity flags as metadata.
func (h *TableHandle) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(h.Columns))
	for i, c := range h.Columns {
		fields[i] = arrow.Field{
			Name:     c.Name,
			Type:     sqltype.ArrowType(c.Type),
			Nullable: c.Nullable,
			Metadata: arrow.NewMetadata(
				[]string{MetadataSQLType, MetadataPrimaryKey, MetadataIdentity},
				[]string{c.Type.String(), strconv.FormatBool(c.PrimaryKey), strconv.FormatBool(c.Identity)},
			),
		}
	}
	md := arrow.NewMetadata([]string{"table_name"}, []string{h.Name.String()})
	return arrow.NewSchema(fields, &md)
}
