package catalog

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/google/go-cmp/cmp"

	"github.com/hugr-lab/target-mssql/sqltype"
)

func TestFindPrimaryKeyColumns(t *testing.T) {
	pkMeta := arrow.NewMetadata([]string{MetadataPrimaryKey}, []string{"true"})
	falseMeta := arrow.NewMetadata([]string{MetadataPrimaryKey}, []string{"false"})

	tests := []struct {
		name   string
		schema *arrow.Schema
		want   []int
	}{
		{
			name: "single key",
			schema: arrow.NewSchema([]arrow.Field{
				{Name: "id", Type: arrow.PrimitiveTypes.Int64, Metadata: pkMeta},
				{Name: "name", Type: arrow.BinaryTypes.String},
			}, nil),
			want: []int{0},
		},
		{
			name: "composite key",
			schema: arrow.NewSchema([]arrow.Field{
				{Name: "tenant", Type: arrow.BinaryTypes.String, Metadata: pkMeta},
				{Name: "name", Type: arrow.BinaryTypes.String, Metadata: falseMeta},
				{Name: "id", Type: arrow.PrimitiveTypes.Int64, Metadata: pkMeta},
			}, nil),
			want: []int{0, 2},
		},
		{
			name: "no key",
			schema: arrow.NewSchema([]arrow.Field{
				{Name: "id", Type: arrow.PrimitiveTypes.Int64, Metadata: falseMeta},
			}, nil),
			want: nil,
		},
		{
			name:   "nil schema",
			schema: nil,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindPrimaryKeyColumns(tt.schema)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FindPrimaryKeyColumns() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTableHandleArrowSchemaRoundTrip(t *testing.T) {
	h := NewTableHandle(TableName{Schema: "dbo", Table: "users"}, []Column{
		{Name: "id", Type: sqltype.TypeBigInt, PrimaryKey: true, Identity: true},
		{Name: "email", Type: sqltype.NVarcharOf(450), PrimaryKey: true},
		{Name: "note", Type: sqltype.NVarcharOf(0), Nullable: true},
	})

	s := h.ArrowSchema()
	if s.NumFields() != 3 {
		t.Fatalf("expected 3 fields, got %d", s.NumFields())
	}
	if diff := cmp.Diff([]int{0, 1}, FindPrimaryKeyColumns(s)); diff != "" {
		t.Errorf("primary keys mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0}, FindIdentityColumns(s)); diff != "" {
		t.Errorf("identity columns mismatch (-want +got):\n%s", diff)
	}

	note := s.Field(2)
	if !note.Nullable {
		t.Error("note should be nullable")
	}
	if got := SQLTypeOf(note); got != "NVARCHAR(MAX)" {
		t.Errorf("SQLTypeOf(note) = %q, want NVARCHAR(MAX)", got)
	}
	if HasFlag(note, MetadataPrimaryKey) || !HasFlag(s.Field(1), MetadataPrimaryKey) {
		t.Error("primary key flags mismatch")
	}

	if got := FieldIndex(s, "EMAIL"); got != 1 {
		t.Errorf("FieldIndex(EMAIL) = %d, want 1", got)
	}
	if got := FieldIndex(s, "missing"); got != -1 {
		t.Errorf("FieldIndex(missing) = %d, want -1", got)
	}
	if got := FieldIndex(nil, "id"); got != -1 {
		t.Errorf("FieldIndex(nil) = %d, want -1", got)
	}
}

func TestTableHandleLookups(t *testing.T) {
	h := NewTableHandle(TableName{Schema: "dbo", Table: "users"}, []Column{
		{Name: "Id", Type: sqltype.TypeInt, PrimaryKey: true, Identity: true},
		{Name: "Name", Type: sqltype.NVarcharOf(50)},
	})

	if !h.HasColumn("id") {
		t.Error("column lookup must be case-insensitive")
	}
	if h.HasColumn("missing") {
		t.Error("unexpected column")
	}
	if diff := cmp.Diff([]string{"Id"}, h.PrimaryKeys()); diff != "" {
		t.Errorf("PrimaryKeys() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Id"}, h.IdentityColumns()); diff != "" {
		t.Errorf("IdentityColumns() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Id", "Name"}, h.ColumnNames()); diff != "" {
		t.Errorf("ColumnNames() mismatch (-want +got):\n%s", diff)
	}
}
