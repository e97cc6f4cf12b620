// Package storetest provides an in-memory store.Store that records every
// statement it receives.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hugr-lab/target-mssql/catalog"
	"github.com/hugr-lab/target-mssql/store"
)

// Transaction boundary markers recorded alongside statements.
const (
	Begin    = "BEGIN"
	Commit   = "COMMIT"
	Rollback = "ROLLBACK"
)

// Statement is one recorded statement and its bound arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Recorder is a fake store.Store.
//
// Schemas and Tables seed introspection; tables are keyed by the lowercased
// "schema.table" name. FailOn, when set, is consulted before every statement
// and its error is returned from Exec.
type Recorder struct {
	mu sync.Mutex

	Schemas []string
	Tables  map[string][]catalog.Column
	FailOn  func(query string) error

	statements      []Statement
	schemaNameCalls int
	openTx          int
	closed          bool
}

var _ store.Store = (*Recorder)(nil)

// New creates a recorder seeded with the given schemas.
func New(schemas ...string) *Recorder {
	return &Recorder{
		Schemas: schemas,
		Tables:  make(map[string][]catalog.Column),
	}
}

// AddTable registers a table for introspection.
func (r *Recorder) AddTable(name catalog.TableName, cols ...catalog.Column) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Tables[tableKey(name)] = cols
}

// Statements returns the recorded statements, boundaries included.
func (r *Recorder) Statements() []Statement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Statement(nil), r.statements...)
}

// SQL returns only the SQL text of the recorded statements.
func (r *Recorder) SQL() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.statements))
	for i, s := range r.statements {
		out[i] = s.SQL
	}
	return out
}

// Matching returns the recorded statements starting with prefix.
func (r *Recorder) Matching(prefix string) []Statement {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Statement
	for _, s := range r.statements {
		if strings.HasPrefix(s.SQL, prefix) {
			out = append(out, s)
		}
	}
	return out
}

// Reset forgets recorded statements.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statements = nil
}

// SchemaNameCalls reports how many times namespaces were introspected.
func (r *Recorder) SchemaNameCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.schemaNameCalls
}

// OpenTransactions reports transactions begun but not yet finished.
func (r *Recorder) OpenTransactions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openTx
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// SchemaNames implements store.Store.
func (r *Recorder) SchemaNames(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemaNameCalls++
	return append([]string(nil), r.Schemas...), nil
}

// TableColumns implements store.Store.
func (r *Recorder) TableColumns(ctx context.Context, name catalog.TableName) ([]catalog.Column, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cols, ok := r.Tables[tableKey(name)]
	if !ok {
		return nil, nil
	}
	return append([]catalog.Column(nil), cols...), nil
}

// Exec implements store.Store.
func (r *Recorder) Exec(ctx context.Context, query string, args ...any) error {
	return store.WithTx(ctx, r, func(tx store.Tx) error {
		_, err := tx.Exec(ctx, query, args...)
		return err
	})
}

// Begin implements store.Store.
func (r *Recorder) Begin(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openTx++
	r.statements = append(r.statements, Statement{SQL: Begin})
	return &recorderTx{r: r, state: store.TransactionActive}, nil
}

// Close implements store.Store.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *Recorder) exec(query string, args []any) (int64, error) {
	r.mu.Lock()
	fail := r.FailOn
	r.mu.Unlock()
	if fail != nil {
		if err := fail(query); err != nil {
			return 0, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.statements = append(r.statements, Statement{SQL: query, Args: args})
	if strings.HasPrefix(query, "INSERT") {
		return int64(strings.Count(query, "), (") + 1), nil
	}
	return 0, nil
}

func (r *Recorder) finish(marker string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openTx--
	r.statements = append(r.statements, Statement{SQL: marker})
}

type recorderTx struct {
	r     *Recorder
	state store.TransactionState
}

func (t *recorderTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if t.state != store.TransactionActive {
		return 0, fmt.Errorf("transaction is %s", t.state)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return t.r.exec(query, args)
}

func (t *recorderTx) Commit() error {
	if t.state != store.TransactionActive {
		return nil
	}
	t.state = store.TransactionCommitted
	t.r.finish(Commit)
	return nil
}

func (t *recorderTx) Rollback() error {
	if t.state != store.TransactionActive {
		return nil
	}
	t.state = store.TransactionAborted
	t.r.finish(Rollback)
	return nil
}

func tableKey(name catalog.TableName) string {
	schema := name.Schema
	if schema == "" {
		schema = "dbo"
	}
	return strings.ToLower(schema + "." + name.Table)
}
