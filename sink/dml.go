package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/google/uuid"

	"github.com/hugr-lab/target-mssql/catalog"
	"github.com/hugr-lab/target-mssql/internal/metrics"
	"github.com/hugr-lab/target-mssql/schema"
	"github.com/hugr-lab/target-mssql/sqltype"
	"github.com/hugr-lab/target-mssql/store"
)

// SQL Server limits for one parameterised INSERT.
const (
	// MaxRowsPerInsert is the row limit of a table value constructor.
	MaxRowsPerInsert = 1000

	// MaxParameters is the usable parameter count of one RPC call.
	MaxParameters = 2098
)

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	// Strict propagates insert failures as StoreExecutionError instead of
	// logging them and reporting zero inserted rows.
	Strict bool

	// Logger receives swallowed insert errors.
	// OPTIONAL: slog.Default() when nil.
	Logger *slog.Logger

	// Metrics counts loaded and rejected records. OPTIONAL.
	Metrics *metrics.Metrics
}

// Loader inserts conformed records into one table.
//
// The table handle is bound on first use and cached until Invalidate, together
// with its Arrow layout, which drives identity handling and value binding.
// A Loader is not safe for concurrent use.
type Loader struct {
	store     store.Store
	name      catalog.TableName
	conformer Conformer
	cfg       LoaderConfig
	logger    *slog.Logger

	table  *catalog.TableHandle
	layout *arrow.Schema
}

// NewLoader creates a Loader for the named table.
func NewLoader(s store.Store, name catalog.TableName, cfg LoaderConfig) *Loader {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		store:  s,
		name:   ResolveTable(name),
		cfg:    cfg,
		logger: logger,
	}
}

// TableName returns the target table.
func (l *Loader) TableName() catalog.TableName {
	return l.name
}

// Bind returns the cached table handle, introspecting the table on first use.
func (l *Loader) Bind(ctx context.Context) (*catalog.TableHandle, error) {
	if l.table != nil {
		return l.table, nil
	}
	h, err := bindTable(ctx, l.store, l.name)
	if err != nil {
		return nil, err
	}
	l.table = h
	l.layout = h.ArrowSchema()
	return h, nil
}

// Invalidate drops the cached table handle. Call after DDL on the table.
func (l *Loader) Invalidate() {
	l.table = nil
	l.layout = nil
}

// Load conforms records and inserts them in one transaction, in input order.
//
// When the first record supplies a value for the table's IDENTITY column, the
// inserts are bracketed by SET IDENTITY_INSERT ON and OFF inside the same
// transaction. Otherwise the IDENTITY column is left to the store.
//
// Store failures are logged and reported as zero inserted rows unless the
// loader is strict. Conformance failures are always returned.
func (l *Loader) Load(ctx context.Context, s *schema.Schema, records []map[string]any) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	conformed := make([]map[string]any, len(records))
	for i, rec := range records {
		c, err := l.conformer.Conform(rec, s)
		if err != nil {
			return 0, err
		}
		conformed[i] = c
	}

	if _, err := l.Bind(ctx); err != nil {
		return l.fail(len(records), err)
	}
	layout := l.layout

	supplied := suppliedIdentity(layout, conformed[0])
	identity := len(supplied) > 0
	keys := catalog.FindPrimaryKeyColumns(layout)
	for _, i := range supplied {
		if !slices.Contains(keys, i) {
			l.logger.Warn("identity value supplied for a non-key column", "table", l.name.String(), "column", layout.Field(i).Name)
		}
	}

	// Identity columns take generated values unless identity insert is on.
	var (
		fields []arrow.Field
		props  []string
	)
	for _, p := range s.Properties {
		f := arrow.Field{Name: p.Name}
		if i := catalog.FieldIndex(layout, p.Name); i >= 0 {
			f = layout.Field(i)
		}
		// A field unknown to the store is kept; the insert will report it.
		if catalog.HasFlag(f, catalog.MetadataIdentity) && !identity {
			continue
		}
		fields = append(fields, f)
		props = append(props, p.Name)
	}
	if len(fields) == 0 {
		return 0, &SchemaDefinitionError{Table: l.name.String(), Reason: "no insertable columns"}
	}

	loadID := uuid.NewString()
	l.logger.Debug("loading records", "load_id", loadID, "table", l.name.String(), "records", len(conformed), "identity_insert", identity)

	var inserted int64
	err := store.WithTx(ctx, l.store, func(tx store.Tx) error {
		if identity {
			if _, err := tx.Exec(ctx, identityInsertSQL(l.name, true)); err != nil {
				return err
			}
		}

		for _, chunk := range chunkRows(len(conformed), len(fields)) {
			stmt, args, err := insertSQL(l.name, fields, props, conformed[chunk[0]:chunk[1]])
			if err != nil {
				return err
			}
			n, err := tx.Exec(ctx, stmt, args...)
			if err != nil {
				return err
			}
			inserted += n
		}

		if identity {
			if _, err := tx.Exec(ctx, identityInsertSQL(l.name, false)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return l.fail(len(records), &StoreExecutionError{Operation: "insert", Table: l.name.String(), Err: err})
	}

	l.cfg.Metrics.RecordsLoaded(l.name.String(), int(inserted))
	l.logger.Debug("records loaded", "load_id", loadID, "table", l.name.String(), "inserted", inserted)
	return inserted, nil
}

// fail applies the insert error policy. Only store failures are swallowed.
func (l *Loader) fail(submitted int, err error) (int64, error) {
	if l.cfg.Strict || !errors.Is(err, ErrStoreExecution) {
		return 0, err
	}
	l.logger.Error("bulk insert failed", "table", l.name.String(), "error", errorText(err))
	l.cfg.Metrics.RecordsRejected(l.name.String(), submitted)
	return 0, nil
}

// errorText returns the innermost driver message.
func errorText(err error) string {
	var se *StoreExecutionError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err.Error()
	}
	return err.Error()
}

// suppliedIdentity returns the indices of IDENTITY fields of layout for
// which rec holds a non-nil value.
func suppliedIdentity(layout *arrow.Schema, rec map[string]any) []int {
	var out []int
	for _, i := range catalog.FindIdentityColumns(layout) {
		name := layout.Field(i).Name
		for k, v := range rec {
			if v != nil && strings.EqualFold(k, name) {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// chunkRows splits n rows of width cols into [start, end) ranges that respect
// MaxRowsPerInsert and MaxParameters.
func chunkRows(n, cols int) [][2]int {
	size := MaxRowsPerInsert
	if cols > 0 && MaxParameters/cols < size {
		size = MaxParameters / cols
	}
	if size < 1 {
		size = 1
	}
	var chunks [][2]int
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		chunks = append(chunks, [2]int{start, end})
	}
	return chunks
}

// insertSQL renders a multi-row INSERT with @pN placeholders.
func insertSQL(table catalog.TableName, fields []arrow.Field, props []string, rows []map[string]any) (string, []any, error) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table.Quoted())
	b.WriteString(" (")
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(catalog.QuoteIdentifier(f.Name))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(fields))
	for r, row := range rows {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for i, f := range fields {
			if i > 0 {
				b.WriteString(", ")
			}
			v, err := bindValue(row[props[i]], f)
			if err != nil {
				return "", nil, fmt.Errorf("column %s: %w", f.Name, err)
			}
			args = append(args, v)
			b.WriteString("@p")
			b.WriteString(strconv.Itoa(len(args)))
		}
		b.WriteString(")")
	}
	return b.String(), args, nil
}

// bindValue converts a conformed value to a driver argument for field f of
// the table layout. A field without a type binds values unchanged.
func bindValue(v any, f arrow.Field) (any, error) {
	var id arrow.Type = arrow.NULL
	if f.Type != nil {
		id = f.Type.ID()
	}

	switch v := v.(type) {
	case nil:
		return nil, nil
	case json.Number:
		switch id {
		case arrow.INT64, arrow.INT32, arrow.INT16, arrow.UINT8:
			if n, err := v.Int64(); err == nil {
				return n, nil
			}
		case arrow.FLOAT64, arrow.FLOAT32:
			if x, err := v.Float64(); err == nil {
				return x, nil
			}
		}
		return v.String(), nil
	case bool:
		if id == arrow.BOOL || f.Type == nil {
			return v, nil
		}
		return strconv.FormatBool(v), nil
	case string:
		switch id {
		case arrow.DATE32, arrow.TIME64, arrow.TIMESTAMP:
			if t, ok := parseTemporal(v); ok {
				return t, nil
			}
		case arrow.STRING:
			if catalog.SQLTypeOf(f) == string(sqltype.UniqueIdentifier) {
				if u, err := uuid.Parse(v); err == nil {
					return u.String(), nil
				}
			}
		}
		return v, nil
	case []byte:
		return v, nil
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	default:
		return v, nil
	}
}

// temporalLayouts are the date and date-time shapes accepted from streams.
// Bare times of day are left as text; SQL Server converts them itself.
var temporalLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

// parseTemporal parses a date or date-time string into UTC.
func parseTemporal(s string) (time.Time, bool) {
	for _, layout := range temporalLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
