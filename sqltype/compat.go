package sqltype

// integerRank orders the native integer types by width.
var integerRank = map[Tag]int{
	TinyInt:  1,
	SmallInt: 2,
	Int:      3,
	BigInt:   4,
}

// integerDigits is the number of decimal digits each integer type needs.
var integerDigits = map[Tag]int{
	TinyInt:  3,
	SmallInt: 5,
	Int:      10,
	BigInt:   19,
}

// Accommodates reports whether a column of type t can hold every value of
// type other without changing its definition.
func (t ColumnType) Accommodates(other ColumnType) bool {
	if t == other {
		return true
	}

	// An unbounded text column takes the textual form of anything.
	if t.IsCharacter() && t.Length <= 0 {
		return true
	}

	switch {
	case t.IsCharacter() && other.IsCharacter():
		return other.Length > 0 && other.Length <= t.Length
	case t.Tag == VarBinary && (other.Tag == VarBinary || other.Tag == Binary):
		return t.Length <= 0 || (other.Length > 0 && other.Length <= t.Length)
	}

	if r, ok := integerRank[t.Tag]; ok {
		o, ok := integerRank[other.Tag]
		return ok && o <= r
	}

	switch t.Tag {
	case Decimal:
		switch {
		case other.Tag == Decimal:
			return other.Scale <= t.Scale && other.Precision-other.Scale <= t.Precision-t.Scale
		case integerDigits[other.Tag] > 0:
			return integerDigits[other.Tag] <= t.Precision-t.Scale
		}
	case Float:
		return other.Tag == Real
	case Money:
		return other.Tag == SmallMoney
	case DateTime2:
		return other.Tag == DateTime || other.Tag == Date
	case DateTime:
		return other.Tag == Date
	}
	return false
}
