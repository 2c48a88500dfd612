package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the variant of a Value.
type Kind int

// Value kinds. The zero Value is KindInvalid and means "absent".
const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Value is a scalar carried in an envelope: one of integer, floating point,
// boolean or string.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
}

// IntValue creates an integer Value.
func IntValue(v int64) Value { return Value{kind: KindInt, i: v} }

// FloatValue creates a floating point Value.
func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }

// BoolValue creates a boolean Value.
func BoolValue(v bool) Value { return Value{kind: KindBool, b: v} }

// StringValue creates a string Value.
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

// ValueOf infers the Value variant from a Go value.
// Anything other than integers, floats, bools and strings is rejected
// with ErrUnsupportedType.
func ValueOf(v interface{}) (Value, error) {
	switch t := v.(type) {
	case Value:
		if t.IsValid() {
			return t, nil
		}
	case int:
		return IntValue(int64(t)), nil
	case int8:
		return IntValue(int64(t)), nil
	case int16:
		return IntValue(int64(t)), nil
	case int32:
		return IntValue(int64(t)), nil
	case int64:
		return IntValue(t), nil
	case uint8:
		return IntValue(int64(t)), nil
	case uint16:
		return IntValue(int64(t)), nil
	case uint32:
		return IntValue(int64(t)), nil
	case uint:
		if uint64(t) <= math.MaxInt64 {
			return IntValue(int64(t)), nil
		}
	case uint64:
		if t <= math.MaxInt64 {
			return IntValue(int64(t)), nil
		}
	case float32:
		return FloatValue(float64(t)), nil
	case float64:
		return FloatValue(t), nil
	case bool:
		return BoolValue(t), nil
	case string:
		return StringValue(t), nil
	}
	return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
}

// Kind returns the variant.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether the Value carries a scalar.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// Int returns the integer, converting floats by truncation.
func (v Value) Int() int64 {
	if v.kind == KindFloat {
		return int64(v.f)
	}
	return v.i
}

// Float returns the floating point number, converting integers.
func (v Value) Float() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// Bool returns the boolean.
func (v Value) Bool() bool { return v.b }

// String returns the text form of the scalar.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return v.s
	default:
		return ""
	}
}

// Interface returns the scalar as int64, float64, bool, string or nil.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindString:
		return v.s
	default:
		return nil
	}
}

// SetCommand returns the wire command writing this Value.
func (v Value) SetCommand() (string, error) {
	switch v.kind {
	case KindInt:
		return CmdSetInt, nil
	case KindFloat:
		return CmdSetFloat, nil
	case KindBool:
		return CmdSetBoolean, nil
	case KindString:
		return CmdSetString, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, v.kind)
	}
}

// MarshalJSON implements json.Marshaler.
// Floats always carry a fraction or exponent so they decode as floats.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("%w: float %v", ErrUnsupportedType, v.f)
		}
		return []byte(formatFloat(v.f)), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindString:
		return json.Marshal(v.s)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, v.kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
// null decodes to the invalid Value; objects and arrays are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var x interface{}
	if err := dec.Decode(&x); err != nil {
		return err
	}
	switch t := x.(type) {
	case nil:
		*v = Value{}
	case bool:
		*v = BoolValue(t)
	case string:
		*v = StringValue(t)
	case json.Number:
		if !strings.ContainsAny(t.String(), ".eE") {
			if i, err := t.Int64(); err == nil {
				*v = IntValue(i)
				return nil
			}
		}
		f, err := t.Float64()
		if err != nil {
			return err
		}
		*v = FloatValue(f)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, x)
	}
	return nil
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !math.IsNaN(f) && !math.IsInf(f, 0) && !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
