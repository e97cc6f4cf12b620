package sqltype

import "testing"

func TestAccommodates(t *testing.T) {
	tests := []struct {
		name     string
		existing ColumnType
		wanted   ColumnType
		want     bool
	}{
		{"same type", TypeInt, TypeInt, true},
		{"wider nvarchar", NVarcharOf(200), NVarcharOf(100), true},
		{"narrower nvarchar", NVarcharOf(50), NVarcharOf(100), false},
		{"bounded into unbounded", NVarcharOf(0), NVarcharOf(100), true},
		{"unbounded into bounded", NVarcharOf(100), NVarcharOf(0), false},
		{"max text takes integers", VarcharOf(0), TypeBigInt, true},
		{"bounded text rejects integers", VarcharOf(50), TypeBigInt, false},
		{"bigint takes int", TypeBigInt, TypeInt, true},
		{"int rejects bigint", TypeInt, TypeBigInt, false},
		{"decimal takes narrower decimal", DecimalOf(12, 4), DecimalOf(8, 2), true},
		{"decimal rejects more scale", DecimalOf(12, 2), DecimalOf(8, 4), false},
		{"decimal rejects more integer digits", DecimalOf(10, 4), DecimalOf(8, 0), false},
		{"decimal takes int", DecimalOf(12, 0), TypeInt, true},
		{"decimal rejects bigint", DecimalOf(18, 0), TypeBigInt, false},
		{"float takes real", TypeFloat, TypeReal, true},
		{"real rejects float", TypeReal, TypeFloat, false},
		{"money takes smallmoney", TypeMoney, TypeSmallMoney, true},
		{"varbinary max takes bounded", VarBinaryOf(0), VarBinaryOf(10), true},
		{"bit rejects varchar", TypeBit, VarcharOf(5), false},
		{"datetime takes date", TypeDateTime, TypeDate, true},
		{"date rejects datetime", TypeDate, TypeDateTime, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.existing.Accommodates(tt.wanted); got != tt.want {
				t.Errorf("%s.Accommodates(%s) = %v, want %v", tt.existing, tt.wanted, got, tt.want)
			}
		})
	}
}
