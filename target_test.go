package target

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hugr-lab/target-mssql/catalog"
	"github.com/hugr-lab/target-mssql/message"
	"github.com/hugr-lab/target-mssql/sink"
	"github.com/hugr-lab/target-mssql/sqltype"
	"github.com/hugr-lab/target-mssql/store/storetest"
)

const ordersSchema = `{"type":"SCHEMA","stream":"sales-orders","schema":{"properties":{"id":{"type":"integer"},"note":{"type":["string","null"]}}},"key_properties":["id"]}`

var ordersTable = catalog.TableName{Schema: "sales", Table: "orders"}

func newTestTarget(t *testing.T, rec *storetest.Recorder, cfg Config, opts Options) *Target {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	}
	tg, err := New(rec, cfg, opts)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return tg
}

func seedOrders(rec *storetest.Recorder) {
	rec.AddTable(ordersTable,
		catalog.Column{Name: "id", Type: sqltype.TypeBigInt, PrimaryKey: true},
		catalog.Column{Name: "note", Type: sqltype.VarcharOf(0), Nullable: true},
	)
}

func process(t *testing.T, tg *Target, lines ...string) error {
	t.Helper()
	for _, line := range lines {
		msg, err := message.ParseJSON([]byte(line))
		if err != nil {
			t.Fatalf("ParseJSON(%s) failed: %v", line, err)
		}
		if err := tg.Process(context.Background(), msg); err != nil {
			return err
		}
	}
	return nil
}

func TestTableNameFor(t *testing.T) {
	tests := []struct {
		stream        string
		defaultSchema string
		want          catalog.TableName
	}{
		{stream: "orders", want: catalog.TableName{Table: "orders"}},
		{stream: "sales-orders", want: catalog.TableName{Schema: "sales", Table: "orders"}},
		{stream: "db-sales-orders", want: catalog.TableName{Schema: "sales", Table: "orders"}},
		{stream: "a-b-c-orders", want: catalog.TableName{Table: "orders"}},
		{stream: "sales-orders", defaultSchema: "raw", want: catalog.TableName{Schema: "raw", Table: "orders"}},
		{stream: "public-orders", want: catalog.TableName{Schema: "dbo", Table: "orders"}},
		{stream: "orders", defaultSchema: "public", want: catalog.TableName{Schema: "dbo", Table: "orders"}},
	}
	for _, tt := range tests {
		t.Run(tt.stream+"/"+tt.defaultSchema, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, TableNameFor(tt.stream, tt.defaultSchema)); diff != "" {
				t.Errorf("TableNameFor() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	if _, err := New(storetest.New(), Config{AllowTempTables: true}, Options{}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New() error = %v, want ErrInvalidConfig", err)
	}
	if _, err := New(nil, Config{}, Options{}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New(nil) error = %v, want ErrInvalidConfig", err)
	}
}

func TestTargetCreatesTable(t *testing.T) {
	rec := storetest.New("dbo")
	tg := newTestTarget(t, rec, Config{AllowColumnAdd: true}, Options{})

	if err := process(t, tg, ordersSchema); err != nil {
		t.Fatalf("SCHEMA failed: %v", err)
	}
	want := []string{
		storetest.Begin, "CREATE SCHEMA [sales]", storetest.Commit,
		storetest.Begin, "CREATE TABLE [sales].[orders] ([id] BIGINT NOT NULL, [note] VARCHAR(MAX) NULL, PRIMARY KEY ([id]))", storetest.Commit,
	}
	if diff := cmp.Diff(want, rec.SQL()); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}

	s, ok := tg.Sink("sales-orders")
	if !ok || s.TableName() != ordersTable {
		t.Fatalf("Sink() = %v, %v", s, ok)
	}
	if diff := cmp.Diff([]string{"id"}, s.Table().PrimaryKeys()); diff != "" {
		t.Errorf("primary keys mismatch (-want +got):\n%s", diff)
	}

	// A repeated schema issues no DDL.
	rec.Reset()
	if err := process(t, tg, ordersSchema); err != nil {
		t.Fatal(err)
	}
	if got := rec.SQL(); len(got) != 0 {
		t.Errorf("repeated schema issued %v", got)
	}
}

func TestTargetRecordBeforeSchema(t *testing.T) {
	tg := newTestTarget(t, storetest.New("dbo"), Config{}, Options{})
	err := process(t, tg, `{"type":"RECORD","stream":"sales-orders","record":{"id":1}}`)
	if !errors.Is(err, ErrUnknownStream) {
		t.Errorf("Process() error = %v, want ErrUnknownStream", err)
	}
}

func TestTargetRunEmitsStateAfterLoad(t *testing.T) {
	rec := storetest.New("dbo", "sales")
	seedOrders(rec)
	var state bytes.Buffer
	tg := newTestTarget(t, rec, Config{AllowColumnAdd: true, MaxBatchSize: 2}, Options{StateOutput: &state})

	input := strings.Join([]string{
		ordersSchema,
		`{"type":"RECORD","stream":"sales-orders","record":{"id":1,"note":"a"}}`,
		`{"type":"STATE","value":{"bookmark":1}}`,
		`{"type":"RECORD","stream":"sales-orders","record":{"id":2,"note":null}}`,
		`{"type":"RECORD","stream":"sales-orders","record":{"id":3,"note":"c"}}`,
		`{"type":"STATE","value":{"bookmark":3}}`,
	}, "\n")

	if err := tg.Run(context.Background(), message.NewJSONReader(strings.NewReader(input))); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	want := []string{
		storetest.Begin, "INSERT INTO [sales].[orders] ([id], [note]) VALUES (@p1, @p2), (@p3, @p4)", storetest.Commit,
		storetest.Begin, "INSERT INTO [sales].[orders] ([id], [note]) VALUES (@p1, @p2)", storetest.Commit,
	}
	if diff := cmp.Diff(want, rec.SQL()); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
	if got, want := state.String(), "{\"bookmark\":1}\n{\"bookmark\":3}\n"; got != want {
		t.Errorf("state output = %q, want %q", got, want)
	}

	s, _ := tg.Sink("sales-orders")
	if s.Loaded() != 3 || s.Pending() != 0 {
		t.Errorf("Loaded() = %d, Pending() = %d", s.Loaded(), s.Pending())
	}
}

func TestTargetSchemaChangeDrainsFirst(t *testing.T) {
	rec := storetest.New("dbo", "sales")
	seedOrders(rec)
	tg := newTestTarget(t, rec, Config{AllowColumnAdd: true}, Options{})

	err := process(t, tg,
		ordersSchema,
		`{"type":"RECORD","stream":"sales-orders","record":{"id":1,"note":"a"}}`,
		`{"type":"SCHEMA","stream":"sales-orders","schema":{"properties":{"id":{"type":"integer"},"note":{"type":["string","null"]},"qty":{"type":["integer","null"]}}},"key_properties":["id"]}`,
	)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		storetest.Begin, "INSERT INTO [sales].[orders] ([id], [note]) VALUES (@p1, @p2)", storetest.Commit,
		storetest.Begin, "ALTER TABLE [sales].[orders] ADD [qty] BIGINT NULL", storetest.Commit,
	}
	if diff := cmp.Diff(want, rec.SQL()); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
	s, _ := tg.Sink("sales-orders")
	if !s.Table().HasColumn("qty") {
		t.Error("prepared table lacks the added column")
	}
}

func TestTargetSchemaErrors(t *testing.T) {
	rec := storetest.New("dbo", "sales")
	tg := newTestTarget(t, rec, Config{}, Options{})

	err := process(t, tg, `{"type":"SCHEMA","stream":"sales-orders","schema":{"type":"object"}}`)
	if !errors.Is(err, sink.ErrSchemaDefinition) {
		t.Errorf("Process() error = %v, want ErrSchemaDefinition", err)
	}

	seedOrders(rec)
	err = process(t, tg, `{"type":"SCHEMA","stream":"sales-orders","schema":{"properties":{"id":{"type":"integer"},"extra":{"type":"string"}}}}`)
	if !errors.Is(err, sink.ErrUnsupportedOperation) {
		t.Errorf("Process() with column add disabled error = %v, want ErrUnsupportedOperation", err)
	}
}

func TestTargetBatch(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test-batch-1.jsonl")
	if err := os.WriteFile(file, []byte("{\"id\": 1, \"note\": \"a\"}\n{\"id\": 2, \"note\": \"b\"}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	rec := storetest.New("dbo", "sales")
	seedOrders(rec)
	tg := newTestTarget(t, rec, Config{
		AllowColumnAdd: true,
		Batch:          BatchConfig{Encoding: BatchEncoding{Format: "jsonl"}},
	}, Options{})

	if err := process(t, tg, ordersSchema); err != nil {
		t.Fatal(err)
	}
	msg := &message.Message{Type: message.TypeBatch, Stream: "sales-orders", Manifest: []string{"file://" + filepath.ToSlash(file)}}
	if err := tg.Process(context.Background(), msg); err != nil {
		t.Fatalf("BATCH failed: %v", err)
	}

	if got := rec.Matching("INSERT"); len(got) != 1 {
		t.Errorf("expected one INSERT, got %v", rec.SQL())
	}
	if _, err := os.Stat(file); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("batch file was not deleted: %v", err)
	}
	s, _ := tg.Sink("sales-orders")
	if s.Loaded() != 2 {
		t.Errorf("Loaded() = %d, want 2", s.Loaded())
	}
}

func TestTargetStrictInsert(t *testing.T) {
	rec := storetest.New("dbo", "sales")
	seedOrders(rec)
	rec.FailOn = func(query string) error {
		if strings.HasPrefix(query, "INSERT") {
			return errors.New("Violation of PRIMARY KEY constraint")
		}
		return nil
	}
	tg := newTestTarget(t, rec, Config{StrictInsert: true}, Options{})

	input := ordersSchema + "\n" + `{"type":"RECORD","stream":"sales-orders","record":{"id":1,"note":"a"}}`
	err := tg.Run(context.Background(), message.NewJSONReader(strings.NewReader(input)))
	if !errors.Is(err, sink.ErrStoreExecution) {
		t.Errorf("Run() error = %v, want ErrStoreExecution", err)
	}
}
