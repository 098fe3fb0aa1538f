package sqlengine

import (
	"encoding/json"
	"strconv"
	"strings"
)

// DataType is the scalar type of a cell.
type DataType int

const (
	TypeNull DataType = iota
	TypeString
	TypeNumber
)

// Value is one cell. Only the field matching Type is meaningful.
type Value struct {
	Type DataType
	Num  float64 // for TypeNumber
	Str  string  // for TypeString
}

// StringValue returns a string cell.
func StringValue(s string) Value { return Value{Type: TypeString, Str: s} }

// NumberValue returns a numeric cell.
func NumberValue(n float64) Value { return Value{Type: TypeNumber, Num: n} }

// Null is the value of a projected field the source record does not have.
var Null = Value{}

// TypeName is the type reported by DESCRIBE.
func (v Value) TypeName() string {
	switch v.Type {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	default:
		return "null"
	}
}

// String renders the value the way the terminal shows it. Whole numbers
// have no decimal part; null renders empty.
func (v Value) String() string {
	switch v.Type {
	case TypeString:
		return v.Str
	case TypeNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return ""
	}
}

// Float returns the numeric reading of v used by > and < filters. Strings
// are read by their longest leading numeric prefix ("2023" and "2023 Q1"
// are both 2023); anything else is not a number.
func (v Value) Float() (float64, bool) {
	switch v.Type {
	case TypeNumber:
		return v.Num, true
	case TypeString:
		return leadingFloat(v.Str)
	default:
		return 0, false
	}
}

// MarshalJSON encodes the value as a JSON string, number or null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case TypeString:
		return json.Marshal(v.Str)
	case TypeNumber:
		return json.Marshal(v.Num)
	default:
		return []byte("null"), nil
	}
}

func leadingFloat(s string) (float64, bool) {
	s = strings.TrimLeft(s, " \t\n\r")
	end := 0
	for end < len(s) && strings.IndexByte("+-0123456789.eE", s[end]) >= 0 {
		end++
	}
	for ; end > 0; end-- {
		if f, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
