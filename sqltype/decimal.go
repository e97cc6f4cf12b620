package sqltype

import (
	"strconv"
	"strings"
)

// DecimalFromText derives DECIMAL precision and scale from the literal text
// of a numeric boundary, as produced by sources that advertise the range of
// an exact numeric column through its largest value (e.g. 999.99 for
// DECIMAL(5,2)).
//
// Without an exponent marker, precision is the number of '9' digits and
// scale is precision minus the index of the decimal point. With an exponent
// marker, precision is the exponent value and scale is the number of
// characters between the decimal point and the marker. A literal without a
// decimal point has scale 0.
//
// ok is false when the result is not a valid SQL Server DECIMAL.
func DecimalFromText(text string) (precision, scale int, ok bool) {
	text = strings.TrimSpace(text)
	dot := strings.IndexByte(text, '.')
	exp := strings.IndexAny(text, "eE")

	if exp < 0 {
		precision = strings.Count(text, "9")
		if dot >= 0 {
			scale = precision - dot
		}
	} else {
		n, err := strconv.Atoi(text[exp+1:])
		if err != nil {
			return 0, 0, false
		}
		precision = n
		if dot >= 0 && dot < exp {
			scale = exp - (dot + 1)
		}
	}

	if precision < 1 || precision > MaxPrecision || scale < 0 || scale > precision {
		return 0, 0, false
	}
	return precision, scale, true
}

// IntegerPrecision derives DECIMAL(p,0) precision from the literal text of an
// integer maximum: the number of '9' digits.
func IntegerPrecision(text string) (int, bool) {
	p := strings.Count(text, "9")
	if p < 1 || p > MaxPrecision {
		return 0, false
	}
	return p, true
}
