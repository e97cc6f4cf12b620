package sink

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/hugr-lab/target-mssql/catalog"
	"github.com/hugr-lab/target-mssql/internal/metrics"
	"github.com/hugr-lab/target-mssql/schema"
	"github.com/hugr-lab/target-mssql/sqltype"
	"github.com/hugr-lab/target-mssql/store"
)

// DefaultNamespace is the SQL Server default schema. The reserved name
// "public" is rewritten to it.
const DefaultNamespace = "dbo"

// EvolverConfig configures an Evolver.
type EvolverConfig struct {
	// Engine infers column types.
	// OPTIONAL: legacy engine with ANSIMapper when nil.
	Engine *sqltype.Engine

	// PrimaryKeyMaxLength caps string key columns.
	// OPTIONAL: sqltype.DefaultPrimaryKeyLength when zero.
	PrimaryKeyMaxLength int

	// AllowColumnAdd enables ALTER TABLE ... ADD.
	AllowColumnAdd bool

	// AllowColumnRename enables sp_rename of columns.
	AllowColumnRename bool

	// Logger receives every DDL statement at Info level.
	// OPTIONAL: slog.Default() when nil.
	Logger *slog.Logger

	// Metrics counts DDL statements. OPTIONAL.
	Metrics *metrics.Metrics
}

// Evolver creates and evolves namespaces, tables and columns.
//
// It owns the namespace catalog; one Evolver should be shared by every sink
// of a target. The Evolver is not safe for concurrent use.
type Evolver struct {
	store      store.Store
	namespaces *catalog.NamespaceCatalog
	engine     *sqltype.Engine
	cfg        EvolverConfig
	logger     *slog.Logger
}

// NewEvolver creates an Evolver over s.
func NewEvolver(s store.Store, cfg EvolverConfig) *Evolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	engine := cfg.Engine
	if engine == nil {
		engine = sqltype.NewEngine(false, nil)
	}
	if cfg.PrimaryKeyMaxLength <= 0 {
		cfg.PrimaryKeyMaxLength = sqltype.DefaultPrimaryKeyLength
	}
	return &Evolver{
		store:      s,
		namespaces: catalog.NewNamespaceCatalog(s),
		engine:     engine,
		cfg:        cfg,
		logger:     logger,
	}
}

// Namespaces exposes the namespace catalog.
func (e *Evolver) Namespaces() *catalog.NamespaceCatalog {
	return e.namespaces
}

// Engine returns the type inference engine.
func (e *Evolver) Engine() *sqltype.Engine {
	return e.engine
}

// ResolveNamespace rewrites the reserved "public" schema to "dbo".
func ResolveNamespace(name string) string {
	if name == "public" {
		return DefaultNamespace
	}
	return name
}

// ResolveTable applies ResolveNamespace to the schema part of name.
func ResolveTable(name catalog.TableName) catalog.TableName {
	return name.WithSchema(ResolveNamespace(name.Schema))
}

// EnsureNamespace creates the schema unless it exists under any casing.
// An empty name refers to the connection's default schema and is a no-op.
func (e *Evolver) EnsureNamespace(ctx context.Context, name string) error {
	name = ResolveNamespace(name)
	if name == "" {
		return nil
	}

	exists, err := e.namespaces.Exists(ctx, name)
	if err != nil {
		return &StoreExecutionError{Operation: "list schemas", Err: err}
	}
	if exists {
		return nil
	}

	if err := e.exec(ctx, "create_schema", name, createSchemaSQL(name)); err != nil {
		return err
	}
	e.namespaces.Add(name)
	return nil
}

// TableExists reports whether the table is present at the store.
func (e *Evolver) TableExists(ctx context.Context, name catalog.TableName) (bool, error) {
	cols, err := e.store.TableColumns(ctx, ResolveTable(name))
	if err != nil {
		return false, &StoreExecutionError{Operation: "introspect table", Table: name.String(), Err: err}
	}
	return cols != nil, nil
}

// Table binds a handle to the table as it exists at the store.
func (e *Evolver) Table(ctx context.Context, name catalog.TableName) (*catalog.TableHandle, error) {
	return bindTable(ctx, e.store, ResolveTable(name))
}

// Define resolves the relational shape of s. Key columns are typed with
// InferPrimaryKey and are NOT NULL; other columns are nullable.
func (e *Evolver) Define(name catalog.TableName, s *schema.Schema, primaryKeys []string) (TableDefinition, error) {
	name = ResolveTable(name)
	if s == nil || len(s.Properties) == 0 {
		return TableDefinition{}, &SchemaDefinitionError{Table: name.String(), Reason: "schema does not define properties"}
	}

	def := TableDefinition{Name: name}
	for _, k := range primaryKeys {
		if _, ok := s.Property(k); !ok {
			return TableDefinition{}, &SchemaDefinitionError{
				Table:  name.String(),
				Reason: fmt.Sprintf("key property %q is not defined", k),
			}
		}
		def.PrimaryKeys = append(def.PrimaryKeys, k)
	}

	for _, p := range s.Properties {
		if isKey(primaryKeys, p.Name) {
			def.Columns = append(def.Columns, ColumnDefinition{
				Name:       p.Name,
				Type:       e.engine.InferPrimaryKey(p, e.cfg.PrimaryKeyMaxLength),
				PrimaryKey: true,
			})
			continue
		}
		def.Columns = append(def.Columns, ColumnDefinition{
			Name:     p.Name,
			Type:     e.engine.Infer(p),
			Nullable: true,
		})
	}
	return def, nil
}

// CreateTable issues one CREATE TABLE for s.
func (e *Evolver) CreateTable(ctx context.Context, name catalog.TableName, s *schema.Schema, primaryKeys []string, opts CreateTableOptions) error {
	if opts.Temp {
		return &UnsupportedOperationError{Operation: "create temp table", Reason: "temporary tables are not supported"}
	}
	def, err := e.Define(name, s, primaryKeys)
	if err != nil {
		return err
	}
	return e.exec(ctx, "create_table", def.Name.String(), createTableSQL(def))
}

// AddColumn issues one additive ALTER TABLE. The column is nullable.
func (e *Evolver) AddColumn(ctx context.Context, table catalog.TableName, name string, t sqltype.ColumnType, opts AddColumnOptions) error {
	if !e.cfg.AllowColumnAdd {
		return &UnsupportedOperationError{Operation: "add column", Reason: "adding columns is disabled"}
	}
	table = ResolveTable(table)

	if opts.IfColumnNotExists {
		h, err := e.Table(ctx, table)
		if err != nil {
			return err
		}
		if h.HasColumn(name) {
			return nil
		}
	}

	col := ColumnDefinition{Name: name, Type: t, Nullable: true}
	return e.exec(ctx, "add_column", table.String(), addColumnSQL(table, col))
}

// RenameColumn issues sp_rename for one column.
func (e *Evolver) RenameColumn(ctx context.Context, table catalog.TableName, oldName, newName string) error {
	if !e.cfg.AllowColumnRename {
		return &UnsupportedOperationError{Operation: "rename column", Reason: "renaming columns is disabled"}
	}
	table = ResolveTable(table)
	return e.exec(ctx, "rename_column", table.String(), renameColumnSQL(table, oldName, newName))
}

// ChangeColumnType always fails: existing columns are never altered.
func (e *Evolver) ChangeColumnType(ctx context.Context, table catalog.TableName, column string, t sqltype.ColumnType) error {
	return &UnsupportedOperationError{
		Operation: "change column type",
		Reason:    fmt.Sprintf("column %s.%s cannot be altered to %s", ResolveTable(table), column, t),
	}
}

// PrepareTable makes the table match s additively: the namespace and table are
// created when missing, otherwise missing columns are added. An existing
// column whose type cannot hold the inferred type fails with
// UnsupportedOperationError. Returns the handle of the prepared table.
func (e *Evolver) PrepareTable(ctx context.Context, name catalog.TableName, s *schema.Schema, primaryKeys []string) (*catalog.TableHandle, error) {
	name = ResolveTable(name)
	def, err := e.Define(name, s, primaryKeys)
	if err != nil {
		return nil, err
	}
	if err := e.EnsureNamespace(ctx, name.Schema); err != nil {
		return nil, err
	}

	cols, err := e.store.TableColumns(ctx, name)
	if err != nil {
		return nil, &StoreExecutionError{Operation: "introspect table", Table: name.String(), Err: err}
	}
	if cols == nil {
		if err := e.exec(ctx, "create_table", name.String(), createTableSQL(def)); err != nil {
			return nil, err
		}
		return def.handle(), nil
	}

	existing := catalog.NewTableHandle(name, cols)
	var missing []ColumnDefinition
	for _, c := range def.Columns {
		current, ok := existing.Column(c.Name)
		if !ok {
			missing = append(missing, c)
			continue
		}
		if !current.Type.Accommodates(c.Type) {
			return nil, e.ChangeColumnType(ctx, name, current.Name, c.Type)
		}
	}

	for _, c := range missing {
		if err := e.AddColumn(ctx, name, c.Name, c.Type, AddColumnOptions{}); err != nil {
			return nil, err
		}
		cols = append(cols, catalog.Column{Name: c.Name, Type: c.Type, Nullable: true})
	}
	return catalog.NewTableHandle(name, cols), nil
}

// exec runs one DDL statement in its own transaction.
func (e *Evolver) exec(ctx context.Context, operation, target, stmt string) error {
	e.logger.Info("executing DDL", "operation", operation, "sql", stmt)
	if err := e.store.Exec(ctx, stmt); err != nil {
		return &StoreExecutionError{Operation: operation, Table: target, Err: err}
	}
	e.cfg.Metrics.DDL(operation)
	return nil
}

func bindTable(ctx context.Context, s store.Store, name catalog.TableName) (*catalog.TableHandle, error) {
	cols, err := s.TableColumns(ctx, name)
	if err != nil {
		return nil, &StoreExecutionError{Operation: "introspect table", Table: name.String(), Err: err}
	}
	if cols == nil {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return catalog.NewTableHandle(name, cols), nil
}

func isKey(keys []string, name string) bool {
	return slices.Contains(keys, name)
}
