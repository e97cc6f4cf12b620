package sqltype

import (
	"log/slog"

	"github.com/hugr-lab/target-mssql/schema"
)

// numericRange is a canonical (minimum, maximum) pair that identifies a
// native SQL Server numeric type.
type numericRange struct {
	min, max *schema.Bound
	typ      ColumnType
}

func (r numericRange) matches(p schema.Property) bool {
	return p.Minimum.Equal(r.min.Value) && p.Maximum.Equal(r.max.Value)
}

// Canonical integer ranges, checked in order.
var integerRanges = []numericRange{
	{min: schema.MustBound("-9223372036854775808"), max: schema.MustBound("9223372036854775807"), typ: TypeBigInt},
	{min: schema.MustBound("-2147483648"), max: schema.MustBound("2147483647"), typ: TypeInt},
	{min: schema.MustBound("-32768"), max: schema.MustBound("32767"), typ: TypeSmallInt},
	{min: schema.MustBound("0"), max: schema.MustBound("255"), typ: TypeTinyInt},
}

// Canonical monetary and floating point ranges, checked in order.
// MONEY is advertised with one fractional digit by upstream taps.
var numberRanges = []numericRange{
	{min: schema.MustBound("-922337203685477.6"), max: schema.MustBound("922337203685477.6"), typ: TypeMoney},
	{min: schema.MustBound("-214748.3648"), max: schema.MustBound("214748.3647"), typ: TypeSmallMoney},
	{min: schema.MustBound("-1.79e308"), max: schema.MustBound("1.79e308"), typ: TypeFloat},
	{min: schema.MustBound("-3.40e38"), max: schema.MustBound("3.40e38"), typ: TypeReal},
}

// Engine infers column types from structural schema properties.
// The zero value uses the legacy rule set and ANSIMapper.
type Engine struct {
	// Extended selects the full SQL Server rule set: native BIT booleans,
	// temporal/identifier/XML/binary strings and exact numeric range matching.
	// When false only booleans are special-cased (as VARCHAR(5)).
	Extended bool

	// Default handles every property no specialised rule matches.
	// OPTIONAL: ANSIMapper when nil.
	Default DefaultMapper

	// Logger receives one debug line per inference.
	// OPTIONAL: inference is silent when nil.
	Logger *slog.Logger
}

// NewEngine creates an engine for the given rule set.
func NewEngine(extended bool, logger *slog.Logger) *Engine {
	return &Engine{Extended: extended, Default: ANSIMapper{}, Logger: logger}
}

// Infer resolves the column type of p.
// Nullable unions are typed by their first non-null kind.
func (e *Engine) Infer(p schema.Property) ColumnType {
	var t ColumnType
	if e.Extended {
		t = e.inferExtended(p)
	} else {
		t = e.inferLegacy(p)
	}
	if e.Logger != nil {
		e.Logger.Debug("inferred column type", "property", p.Name, "kinds", p.Kinds, "type", t.String())
	}
	return t
}

// InferPrimaryKey resolves the column type of a key property.
// Character types longer than maxLength, or unbounded, are capped to maxLength.
// maxLength <= 0 uses DefaultPrimaryKeyLength.
func (e *Engine) InferPrimaryKey(p schema.Property, maxLength int) ColumnType {
	if maxLength <= 0 {
		maxLength = DefaultPrimaryKeyLength
	}
	t := e.Infer(p)
	if t.IsCharacter() && (t.Length <= 0 || t.Length > maxLength) {
		t.Length = maxLength
	}
	return t
}

func (e *Engine) defaults() DefaultMapper {
	if e.Default == nil {
		return ANSIMapper{}
	}
	return e.Default
}

func (e *Engine) inferLegacy(p schema.Property) ColumnType {
	if p.PrimaryKind() == schema.KindBoolean {
		return VarcharOf(5)
	}
	return e.defaults().Map(p)
}

func (e *Engine) inferExtended(p schema.Property) ColumnType {
	switch p.PrimaryKind() {
	case schema.KindBoolean:
		return TypeBit
	case schema.KindString:
		return e.inferString(p)
	case schema.KindInteger:
		return e.inferInteger(p)
	case schema.KindNumber:
		return e.inferNumber(p)
	case schema.KindObject, schema.KindArray, schema.KindNull:
		return e.defaults().Map(p)
	default:
		return e.defaults().Map(p)
	}
}

func (e *Engine) inferString(p schema.Property) ColumnType {
	switch p.Format {
	case schema.FormatDate:
		return TypeDate
	case schema.FormatTime:
		return TypeTime
	case schema.FormatDateTime:
		return TypeDateTime
	case schema.FormatUUID:
		return TypeUniqueIdentifier
	}
	if p.ContentMediaType == schema.MediaTypeXML {
		return TypeXML
	}

	length := 0
	if p.MaxLength != nil {
		length = *p.MaxLength
	}
	if p.ContentEncoding == schema.EncodingBase64 {
		return VarBinaryOf(length)
	}
	return NVarcharOf(length)
}

func (e *Engine) inferInteger(p schema.Property) ColumnType {
	for _, r := range integerRanges {
		if r.matches(p) {
			return r.typ
		}
	}
	if p.Maximum != nil {
		if precision, ok := IntegerPrecision(p.Maximum.Text); ok {
			return DecimalOf(precision, 0)
		}
	}
	return e.defaults().Map(p)
}

func (e *Engine) inferNumber(p schema.Property) ColumnType {
	for _, r := range numberRanges {
		if r.matches(p) {
			return r.typ
		}
	}
	if p.Maximum != nil {
		if precision, scale, ok := DecimalFromText(p.Maximum.Text); ok {
			return DecimalOf(precision, scale)
		}
	}
	return e.defaults().Map(p)
}
