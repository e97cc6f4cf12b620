package sqltype

import "github.com/hugr-lab/target-mssql/schema"

// Unbounded numbers keep exact values in a wide DECIMAL.
const (
	DefaultNumberPrecision = 38
	DefaultNumberScale     = 10
)

// DefaultMapper is the generic structural-to-relational mapping used when no
// SQL Server specific rule applies.
type DefaultMapper interface {
	Map(p schema.Property) ColumnType
}

// ANSIMapper maps properties onto portable types:
//
//	string            VARCHAR(maxLength | MAX), DATE/TIME/DATETIME for temporal formats
//	integer           BIGINT
//	number            DECIMAL(38, 10)
//	boolean           BIT
//	object, array     VARCHAR(MAX) holding JSON text
//	null, untyped     VARCHAR(MAX)
type ANSIMapper struct{}

// Map implements DefaultMapper.
func (ANSIMapper) Map(p schema.Property) ColumnType {
	switch p.PrimaryKind() {
	case schema.KindString:
		switch p.Format {
		case schema.FormatDateTime:
			return TypeDateTime
		case schema.FormatDate:
			return TypeDate
		case schema.FormatTime:
			return TypeTime
		}
		if p.MaxLength != nil {
			return VarcharOf(*p.MaxLength)
		}
		return VarcharOf(0)
	case schema.KindInteger:
		return TypeBigInt
	case schema.KindNumber:
		return DecimalOf(DefaultNumberPrecision, DefaultNumberScale)
	case schema.KindBoolean:
		return TypeBit
	}
	return VarcharOf(0)
}
