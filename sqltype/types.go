// Package sqltype resolves structural schema properties into concrete
// SQL Server column types.
//
// The central entry point is Engine.Infer, a pure function from a
// schema.Property to a ColumnType: calling it twice on the same property
// yields identical descriptors. Rules that need no dialect knowledge are
// delegated to a DefaultMapper.
package sqltype

import (
	"fmt"
	"strings"
)

// Tag names a SQL Server data type.
type Tag string

const (
	Varchar          Tag = "VARCHAR"
	NVarchar         Tag = "NVARCHAR"
	Char             Tag = "CHAR"
	NChar            Tag = "NCHAR"
	Decimal          Tag = "DECIMAL"
	BigInt           Tag = "BIGINT"
	Int              Tag = "INT"
	SmallInt         Tag = "SMALLINT"
	TinyInt          Tag = "TINYINT"
	Bit              Tag = "BIT"
	Date             Tag = "DATE"
	Time             Tag = "TIME"
	DateTime         Tag = "DATETIME"
	DateTime2        Tag = "DATETIME2"
	UniqueIdentifier Tag = "UNIQUEIDENTIFIER"
	VarBinary        Tag = "VARBINARY"
	Binary           Tag = "BINARY"
	XML              Tag = "XML"
	Money            Tag = "MONEY"
	SmallMoney       Tag = "SMALLMONEY"
	Float            Tag = "FLOAT"
	Real             Tag = "REAL"
)

// Dialect limits.
const (
	// MaxPrecision is the largest DECIMAL precision SQL Server accepts.
	MaxPrecision = 38

	// MaxCharLength and MaxNCharLength are the largest explicit lengths for
	// single-byte and Unicode character columns. Longer columns use MAX.
	MaxCharLength  = 8000
	MaxNCharLength = 4000

	// DefaultPrimaryKeyLength is the widest string key SQL Server can index
	// (900 bytes of NVARCHAR).
	DefaultPrimaryKeyLength = 450
)

// ColumnType is a resolved target column type.
//
// Length applies to character and binary tags; zero means MAX.
// Precision and Scale apply to DECIMAL.
type ColumnType struct {
	Tag       Tag
	Length    int
	Precision int
	Scale     int
}

// Fixed types without parameters.
var (
	TypeBigInt           = ColumnType{Tag: BigInt}
	TypeInt              = ColumnType{Tag: Int}
	TypeSmallInt         = ColumnType{Tag: SmallInt}
	TypeTinyInt          = ColumnType{Tag: TinyInt}
	TypeBit              = ColumnType{Tag: Bit}
	TypeDate             = ColumnType{Tag: Date}
	TypeTime             = ColumnType{Tag: Time}
	TypeDateTime         = ColumnType{Tag: DateTime}
	TypeUniqueIdentifier = ColumnType{Tag: UniqueIdentifier}
	TypeXML              = ColumnType{Tag: XML}
	TypeMoney            = ColumnType{Tag: Money}
	TypeSmallMoney       = ColumnType{Tag: SmallMoney}
	TypeFloat            = ColumnType{Tag: Float}
	TypeReal             = ColumnType{Tag: Real}
)

// VarcharOf returns VARCHAR(n); n <= 0 yields VARCHAR(MAX).
func VarcharOf(n int) ColumnType {
	return ColumnType{Tag: Varchar, Length: clampLength(n, MaxCharLength)}
}

// NVarcharOf returns NVARCHAR(n); n <= 0 yields NVARCHAR(MAX).
func NVarcharOf(n int) ColumnType {
	return ColumnType{Tag: NVarchar, Length: clampLength(n, MaxNCharLength)}
}

// VarBinaryOf returns VARBINARY(n); n <= 0 yields VARBINARY(MAX).
func VarBinaryOf(n int) ColumnType {
	return ColumnType{Tag: VarBinary, Length: clampLength(n, MaxCharLength)}
}

// DecimalOf returns DECIMAL(p,s).
func DecimalOf(precision, scale int) ColumnType {
	return ColumnType{Tag: Decimal, Precision: precision, Scale: scale}
}

func clampLength(n, limit int) int {
	if n <= 0 || n > limit {
		return 0
	}
	return n
}

// HasLength reports whether the tag takes a length parameter.
func (t ColumnType) HasLength() bool {
	switch t.Tag {
	case Varchar, NVarchar, Char, NChar, VarBinary, Binary:
		return true
	}
	return false
}

// IsCharacter reports whether the type stores text with a declared length.
func (t ColumnType) IsCharacter() bool {
	switch t.Tag {
	case Varchar, NVarchar, Char, NChar:
		return true
	}
	return false
}

// String renders the type as T-SQL.
func (t ColumnType) String() string {
	switch {
	case t.HasLength():
		if t.Length <= 0 {
			return string(t.Tag) + "(MAX)"
		}
		return fmt.Sprintf("%s(%d)", t.Tag, t.Length)
	case t.Tag == Decimal && t.Precision > 0:
		return fmt.Sprintf("%s(%d, %d)", t.Tag, t.Precision, t.Scale)
	}
	return string(t.Tag)
}

// ParseColumnType rebuilds a ColumnType from INFORMATION_SCHEMA.COLUMNS
// metadata. charLength is -1 for MAX columns.
func ParseColumnType(dataType string, charLength, precision, scale int) ColumnType {
	tag := Tag(strings.ToUpper(strings.TrimSpace(dataType)))
	switch tag {
	case "INTEGER":
		tag = Int
	case "NUMERIC":
		tag = Decimal
	}

	t := ColumnType{Tag: tag}
	switch {
	case t.HasLength():
		if charLength > 0 {
			t.Length = charLength
		}
	case tag == Decimal:
		t.Precision = precision
		t.Scale = scale
	}
	return t
}
