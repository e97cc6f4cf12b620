package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTableName is returned for table names that cannot be split into
// at most three non-empty parts.
var ErrInvalidTableName = errors.New("invalid table name")

// TableName is a fully qualified SQL Server table name.
// Database and Schema may be empty.
type TableName struct {
	Database string
	Schema   string
	Table    string
}

// ParseTableName splits "table", "schema.table" or "database.schema.table".
func ParseTableName(full string) (TableName, error) {
	parts := strings.Split(full, ".")
	for _, p := range parts {
		if p == "" {
			return TableName{}, fmt.Errorf("%w: %q", ErrInvalidTableName, full)
		}
	}
	switch len(parts) {
	case 1:
		return TableName{Table: parts[0]}, nil
	case 2:
		return TableName{Schema: parts[0], Table: parts[1]}, nil
	case 3:
		return TableName{Database: parts[0], Schema: parts[1], Table: parts[2]}, nil
	}
	return TableName{}, fmt.Errorf("%w: %q", ErrInvalidTableName, full)
}

// String joins the non-empty parts with dots, unquoted.
func (n TableName) String() string {
	return strings.Join(n.parts(), ".")
}

// Quoted renders the name with bracket-quoted parts, e.g. [dbo].[users].
func (n TableName) Quoted() string {
	parts := n.parts()
	for i, p := range parts {
		parts[i] = QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// WithSchema returns a copy of n in another schema.
func (n TableName) WithSchema(schema string) TableName {
	n.Schema = schema
	return n
}

func (n TableName) parts() []string {
	parts := make([]string, 0, 3)
	if n.Database != "" {
		parts = append(parts, n.Database)
	}
	if n.Schema != "" {
		parts = append(parts, n.Schema)
	}
	return append(parts, n.Table)
}

// QuoteIdentifier bracket-quotes a SQL Server identifier.
func QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// QuoteString renders s as an N'...' Unicode string literal.
func QuoteString(s string) string {
	return "N'" + strings.ReplaceAll(s, "'", "''") + "'"
}
