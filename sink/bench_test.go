package sink

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/hugr-lab/target-mssql/catalog"
	"github.com/hugr-lab/target-mssql/schema"
	"github.com/hugr-lab/target-mssql/sqltype"
	"github.com/hugr-lab/target-mssql/store/storetest"
)

const benchSchema = `{
	"properties": {
		"id":      {"type": "integer"},
		"name":    {"type": ["string", "null"], "maxLength": 100},
		"score":   {"type": ["number", "null"]},
		"active":  {"type": ["boolean", "null"]},
		"payload": {"type": ["object", "null"]}
	}
}`

func benchRecords(n int) []map[string]any {
	records := make([]map[string]any, n)
	for i := range records {
		records[i] = map[string]any{
			"id":      json.Number(strconv.Itoa(i)),
			"name":    "user_" + strconv.Itoa(i),
			"score":   json.Number("12.5"),
			"active":  i%2 == 0,
			"payload": map[string]any{"k": "v"},
		}
	}
	return records
}

// BenchmarkInsertSQL benchmarks rendering one full multi-row INSERT.
func BenchmarkInsertSQL(b *testing.B) {
	table := catalog.TableName{Schema: "dbo", Table: "bench"}
	layout := catalog.NewTableHandle(table, []catalog.Column{
		{Name: "id", Type: sqltype.TypeBigInt},
		{Name: "name", Type: sqltype.NVarcharOf(100)},
		{Name: "score", Type: sqltype.TypeFloat},
		{Name: "active", Type: sqltype.TypeBit},
		{Name: "payload", Type: sqltype.NVarcharOf(0)},
	}).ArrowSchema()
	fields := layout.Fields()
	props := []string{"id", "name", "score", "active", "payload"}
	rows := benchRecords(MaxParameters / len(fields))

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		stmt, args, err := insertSQL(table, fields, props, rows)
		if err != nil {
			b.Fatalf("insertSQL failed: %v", err)
		}
		_, _ = stmt, args
	}
}

// BenchmarkLoad benchmarks conforming, chunking and inserting 10k records.
func BenchmarkLoad(b *testing.B) {
	s, err := schema.Parse("bench", []byte(benchSchema), []string{"id"})
	if err != nil {
		b.Fatal(err)
	}
	table := catalog.TableName{Schema: "dbo", Table: "bench"}
	records := benchRecords(10000)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		rec := storetest.New("dbo")
		rec.AddTable(table,
			catalog.Column{Name: "id", Type: sqltype.TypeBigInt, PrimaryKey: true},
			catalog.Column{Name: "name", Type: sqltype.NVarcharOf(100), Nullable: true},
			catalog.Column{Name: "score", Type: sqltype.TypeFloat, Nullable: true},
			catalog.Column{Name: "active", Type: sqltype.TypeBit, Nullable: true},
			catalog.Column{Name: "payload", Type: sqltype.NVarcharOf(0), Nullable: true},
		)
		l := NewLoader(rec, table, LoaderConfig{Strict: true})
		n, err := l.Load(ctx, s, records)
		if err != nil {
			b.Fatalf("Load failed: %v", err)
		}
		if n != int64(len(records)) {
			b.Fatalf("Load inserted %d rows, want %d", n, len(records))
		}
	}
	b.ReportMetric(float64(len(records)), "records/op")
}
