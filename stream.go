package target

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/hugr-lab/target-mssql/catalog"
	"github.com/hugr-lab/target-mssql/internal/recovery"
	"github.com/hugr-lab/target-mssql/message"
	"github.com/hugr-lab/target-mssql/schema"
	"github.com/hugr-lab/target-mssql/sink"
	"github.com/hugr-lab/target-mssql/storage"
)

// TableNameFor maps a stream name to its target table.
//
// A non-empty defaultSchema places the table there. Otherwise a stream named
// "schema-table" or "database-schema-table" contributes its schema part, and
// any other stream lands in the connection's default schema. The table name
// is the last "-" separated part.
//
// Example:
//
//	TableNameFor("sales-orders", "")     // sales.orders
//	TableNameFor("sales-orders", "raw")  // raw.orders
//	TableNameFor("orders", "")           // orders
func TableNameFor(stream, defaultSchema string) catalog.TableName {
	parts := strings.Split(stream, "-")
	name := catalog.TableName{Table: parts[len(parts)-1]}

	switch {
	case defaultSchema != "":
		name.Schema = defaultSchema
	case len(parts) == 2 || len(parts) == 3:
		name.Schema = parts[len(parts)-2]
	}
	return sink.ResolveTable(name)
}

// Sink loads one stream into its table.
type Sink struct {
	stream string
	table  catalog.TableName
	target *Target
	logger *slog.Logger

	schema   *schema.Schema
	handle   *catalog.TableHandle
	loader   *sink.Loader
	pipeline *sink.BatchPipeline

	buffer []map[string]any
	loaded int64
}

func newSink(stream string, table catalog.TableName, t *Target) *Sink {
	s := &Sink{
		stream: stream,
		table:  table,
		target: t,
		logger: t.logger.With("stream", stream, "table", table.String()),
	}
	s.loader = sink.NewLoader(t.store, table, sink.LoaderConfig{
		Strict:  t.cfg.StrictInsert,
		Logger:  s.logger,
		Metrics: t.metrics,
	})
	s.pipeline = sink.NewBatchPipeline(s.loader, s.Schema, sink.BatchConfig{
		Storage: t.batches,
		Resolve: func(head string) (storage.Storage, error) {
			return storage.FromURL(head, t.opts.Storage)
		},
		Prefix:  t.cfg.Batch.Storage.Prefix,
		Logger:  s.logger,
		Metrics: t.metrics,
	})
	return s
}

// Stream returns the stream name.
func (s *Sink) Stream() string {
	return s.stream
}

// TableName returns the target table.
func (s *Sink) TableName() catalog.TableName {
	return s.table
}

// Schema returns the schema in effect, nil before the first SCHEMA message.
func (s *Sink) Schema() *schema.Schema {
	return s.schema
}

// Table returns the handle of the prepared table.
func (s *Sink) Table() *catalog.TableHandle {
	return s.handle
}

// Loaded returns the number of rows inserted so far.
func (s *Sink) Loaded() int64 {
	return s.loaded
}

// Pending returns the number of buffered records.
func (s *Sink) Pending() int {
	return len(s.buffer)
}

// SetSchema reconciles the table with a new schema document. Records buffered
// under the previous schema are loaded first. A repeated identical schema
// issues no DDL.
func (s *Sink) SetSchema(ctx context.Context, doc json.RawMessage, keys []string) error {
	parsed, err := schema.Parse(s.stream, doc, keys)
	if err != nil {
		return &sink.SchemaDefinitionError{Table: s.table.String(), Reason: err.Error()}
	}
	if s.schema != nil && sameSchema(s.schema, parsed) {
		return nil
	}

	if err := s.Drain(ctx); err != nil {
		return err
	}

	h, err := s.target.evolver.PrepareTable(ctx, s.table, parsed, keys)
	if err != nil {
		return err
	}
	s.schema = parsed
	s.handle = h
	s.loader.Invalidate()

	s.logger.Info("stream schema applied", "columns", len(h.Columns), "keys", keys)
	return nil
}

// Add buffers one record.
func (s *Sink) Add(record map[string]any) {
	s.buffer = append(s.buffer, record)
}

// Drain loads every buffered record.
func (s *Sink) Drain(ctx context.Context) error {
	if len(s.buffer) == 0 {
		return nil
	}
	records := s.buffer
	s.buffer = nil

	n, err := recovery.RecoverToValue(s.logger, "load records", func() (int64, error) {
		return s.loader.Load(ctx, s.schema, records)
	})
	if err != nil {
		return err
	}
	s.loaded += n
	s.logger.Debug("stream drained", "records", len(records), "inserted", n)
	return nil
}

// ProcessBatch loads the staged files of a BATCH message. Buffered records
// are loaded first so that rows keep the order of the message stream.
func (s *Sink) ProcessBatch(ctx context.Context, enc message.Encoding, files []string) (int64, error) {
	if err := s.Drain(ctx); err != nil {
		return 0, err
	}
	n, err := s.pipeline.Process(ctx, enc, files)
	s.loaded += n
	if err != nil {
		return n, fmt.Errorf("batch of stream %s: %w", s.stream, err)
	}
	return n, nil
}

func sameSchema(a, b *schema.Schema) bool {
	if !slices.Equal(a.KeyProperties, b.KeyProperties) || len(a.Properties) != len(b.Properties) {
		return false
	}
	for i := range a.Properties {
		if !sameProperty(a.Properties[i], b.Properties[i]) {
			return false
		}
	}
	return true
}

func sameProperty(a, b schema.Property) bool {
	return a.Name == b.Name &&
		slices.Equal(a.Kinds, b.Kinds) &&
		a.Format == b.Format &&
		a.ContentEncoding == b.ContentEncoding &&
		a.ContentMediaType == b.ContentMediaType &&
		equalLength(a.MaxLength, b.MaxLength) &&
		a.Minimum.String() == b.Minimum.String() &&
		a.Maximum.String() == b.Maximum.String()
}

func equalLength(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
