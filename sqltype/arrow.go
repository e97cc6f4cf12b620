package sqltype

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// ArrowType returns the Arrow data type that carries values of t.
// Types without a closer match (XML, unknown tags) are carried as strings.
func ArrowType(t ColumnType) arrow.DataType {
	switch t.Tag {
	case BigInt:
		return arrow.PrimitiveTypes.Int64
	case Int:
		return arrow.PrimitiveTypes.Int32
	case SmallInt:
		return arrow.PrimitiveTypes.Int16
	case TinyInt:
		return arrow.PrimitiveTypes.Uint8
	case Bit:
		return arrow.FixedWidthTypes.Boolean
	case Float:
		return arrow.PrimitiveTypes.Float64
	case Real:
		return arrow.PrimitiveTypes.Float32
	case Decimal:
		precision, scale := t.Precision, t.Scale
		if precision <= 0 {
			precision, scale = 18, 0
		}
		return &arrow.Decimal128Type{Precision: int32(precision), Scale: int32(scale)}
	case Money:
		return &arrow.Decimal128Type{Precision: 19, Scale: 4}
	case SmallMoney:
		return &arrow.Decimal128Type{Precision: 10, Scale: 4}
	case Date:
		return arrow.FixedWidthTypes.Date32
	case Time:
		return arrow.FixedWidthTypes.Time64ns
	case DateTime, DateTime2:
		return arrow.FixedWidthTypes.Timestamp_us
	case VarBinary, Binary:
		return arrow.BinaryTypes.Binary
	}
	return arrow.BinaryTypes.String
}
