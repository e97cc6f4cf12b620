package sink

import (
	"fmt"
	"strings"

	"github.com/hugr-lab/target-mssql/catalog"
	"github.com/hugr-lab/target-mssql/sqltype"
)

// CreateTableOptions configures table creation behavior.
type CreateTableOptions struct {
	// Temp requests a temporary table. Always rejected.
	Temp bool
}

// AddColumnOptions configures column addition behavior.
type AddColumnOptions struct {
	// IfColumnNotExists suppresses the ALTER if the column already exists.
	IfColumnNotExists bool
}

// ColumnDefinition is one column of a table to create or alter.
type ColumnDefinition struct {
	Name       string
	Type       sqltype.ColumnType
	Nullable   bool
	PrimaryKey bool
}

// TableDefinition is the resolved relational shape of a stream: ordered
// columns plus the primary key columns.
type TableDefinition struct {
	Name        catalog.TableName
	Columns     []ColumnDefinition
	PrimaryKeys []string
}

// Column looks up a column definition by name.
func (d *TableDefinition) Column(name string) (ColumnDefinition, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDefinition{}, false
}

// handle describes the table this definition creates. Created tables never
// have IDENTITY columns.
func (d *TableDefinition) handle() *catalog.TableHandle {
	cols := make([]catalog.Column, len(d.Columns))
	for i, c := range d.Columns {
		cols[i] = catalog.Column{
			Name:       c.Name,
			Type:       c.Type,
			Nullable:   c.Nullable,
			PrimaryKey: c.PrimaryKey,
		}
	}
	return catalog.NewTableHandle(d.Name, cols)
}

func createSchemaSQL(name string) string {
	return "CREATE SCHEMA " + catalog.QuoteIdentifier(name)
}

// createTableSQL renders CREATE TABLE. Key columns are NOT NULL and never
// IDENTITY.
func createTableSQL(def TableDefinition) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(def.Name.Quoted())
	b.WriteString(" (")
	for i, c := range def.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(columnSQL(c))
	}
	if len(def.PrimaryKeys) > 0 {
		keys := make([]string, len(def.PrimaryKeys))
		for i, k := range def.PrimaryKeys {
			keys[i] = catalog.QuoteIdentifier(k)
		}
		b.WriteString(", PRIMARY KEY (")
		b.WriteString(strings.Join(keys, ", "))
		b.WriteString(")")
	}
	b.WriteString(")")
	return b.String()
}

func columnSQL(c ColumnDefinition) string {
	null := "NULL"
	if !c.Nullable {
		null = "NOT NULL"
	}
	return fmt.Sprintf("%s %s %s", catalog.QuoteIdentifier(c.Name), c.Type, null)
}

func addColumnSQL(table catalog.TableName, c ColumnDefinition) string {
	return fmt.Sprintf("ALTER TABLE %s ADD %s", table.Quoted(), columnSQL(c))
}

// renameColumnSQL renders the sp_rename call. The object name is the dotted,
// unquoted column path.
func renameColumnSQL(table catalog.TableName, oldName, newName string) string {
	return fmt.Sprintf("EXEC sp_rename %s, %s, 'COLUMN'",
		catalog.QuoteString(table.String()+"."+oldName),
		catalog.QuoteString(newName),
	)
}

func identityInsertSQL(table catalog.TableName, on bool) string {
	state := "OFF"
	if on {
		state = "ON"
	}
	return fmt.Sprintf("SET IDENTITY_INSERT %s %s", table.Quoted(), state)
}
