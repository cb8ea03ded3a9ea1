package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the primitive type carried by a socket.
// A socket's Kind is fixed when the socket is created.
type Kind uint8

const (
	KindBool Kind = iota + 1
	KindInt
	KindFloat
)

// String returns the lower-case kind name used in definitions and JSON.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the closed set of kinds.
func (k Kind) Valid() bool {
	return k >= KindBool && k <= KindFloat
}

// ParseKind parses "bool", "int" or "float".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bool", "boolean":
		return KindBool, nil
	case "int", "integer":
		return KindInt, nil
	case "float", "double":
		return KindFloat, nil
	default:
		return 0, fmt.Errorf("unknown value kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid value kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Value is a sealed interface over the primitive kinds a socket can carry.
// Only Bool, Int and Float implement it.
//
// Values are immutable. Writing an output replaces the cell's Value
// wholesale; nothing mutates a Value in place.
type Value interface {
	Kind() Kind
	irValue() // Sealed - only these types implement it
}

// Bool is a boolean socket value.
type Bool bool

func (Bool) irValue()    {}
func (Bool) Kind() Kind { return KindBool }

// Int is a signed 64-bit integer socket value.
type Int int64

func (Int) irValue()    {}
func (Int) Kind() Kind { return KindInt }

// Float is a 64-bit floating point socket value.
type Float float64

func (Float) irValue()    {}
func (Float) Kind() Kind { return KindFloat }

// Zero returns the default value for a kind.
// Panics on an invalid kind: sockets are never built with one.
func Zero(k Kind) Value {
	switch k {
	case KindBool:
		return Bool(false)
	case KindInt:
		return Int(0)
	case KindFloat:
		return Float(0)
	default:
		panic(fmt.Sprintf("ir: zero value of invalid kind %d", uint8(k)))
	}
}

// Equal compares two values by kind and content.
// Float comparison is exact; NaN is never equal to anything.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	return a == b
}

// FormatValue renders a value for text output.
func FormatValue(v Value) string {
	switch val := v.(type) {
	case Bool:
		return strconv.FormatBool(bool(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ParseValue parses a textual value of the given kind, e.g. from a
// command-line flag.
func ParseValue(k Kind, s string) (Value, error) {
	s = strings.TrimSpace(s)
	switch k {
	case KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("parse bool %q: %w", s, err)
		}
		return Bool(b), nil
	case KindInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse int %q: %w", s, err)
		}
		return Int(n), nil
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("parse float %q: %w", s, err)
		}
		return Float(f), nil
	default:
		return nil, fmt.Errorf("parse value: invalid kind %d", uint8(k))
	}
}

// Coerce converts a decoded Go value (from YAML, CUE or HCL) into a Value
// of the requested kind. Integers widen to floats; floats narrow to ints
// only when they are whole.
func Coerce(k Kind, v any) (Value, error) {
	switch val := v.(type) {
	case Value:
		return Coerce(k, native(val))
	case bool:
		if k == KindBool {
			return Bool(val), nil
		}
	case int:
		return Coerce(k, int64(val))
	case int64:
		switch k {
		case KindInt:
			return Int(val), nil
		case KindFloat:
			return Float(float64(val)), nil
		}
	case uint64:
		if val <= math.MaxInt64 {
			return Coerce(k, int64(val))
		}
	case float64:
		switch k {
		case KindFloat:
			return Float(val), nil
		case KindInt:
			if val == math.Trunc(val) && math.Abs(val) <= 1<<53 {
				return Int(int64(val)), nil
			}
		}
	case string:
		return ParseValue(k, val)
	}
	return nil, fmt.Errorf("cannot use %v (%T) as %s", v, v, k)
}

// Infer picks a kind from a decoded Go value when no socket kind is known,
// as for element configuration.
func Infer(v any) (Value, error) {
	switch val := v.(type) {
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(int64(val)), nil
	case int64:
		return Int(val), nil
	case float64:
		return Float(val), nil
	default:
		return nil, fmt.Errorf("cannot infer value kind from %v (%T)", v, v)
	}
}

// MarshalJSON encodes the tagged form.
func (b Bool) MarshalJSON() ([]byte, error) { return MarshalValue(b) }

// MarshalJSON encodes the tagged form.
func (n Int) MarshalJSON() ([]byte, error) { return MarshalValue(n) }

// MarshalJSON encodes the tagged form.
func (f Float) MarshalJSON() ([]byte, error) { return MarshalValue(f) }

func native(v Value) any {
	switch val := v.(type) {
	case Bool:
		return bool(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	default:
		return nil
	}
}

// MarshalValue encodes a value as a single-key tagged object so the kind
// survives a round trip: {"bool":true}, {"int":3}, {"float":1.5}.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case Bool:
		return []byte(`{"bool":` + strconv.FormatBool(bool(val)) + `}`), nil
	case Int:
		return []byte(`{"int":` + strconv.FormatInt(int64(val), 10) + `}`), nil
	case Float:
		num, err := formatFloat(float64(val))
		if err != nil {
			return nil, err
		}
		return []byte(`{"float":` + num + `}`), nil
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// UnmarshalValue decodes the tagged form produced by MarshalValue.
func UnmarshalValue(data []byte) (Value, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	if len(raw) != 1 {
		return nil, fmt.Errorf("decode value: want exactly one kind tag, got %d", len(raw))
	}
	for tag, payload := range raw {
		switch tag {
		case "bool":
			var b bool
			if err := json.Unmarshal(payload, &b); err != nil {
				return nil, fmt.Errorf("decode bool value: %w", err)
			}
			return Bool(b), nil
		case "int":
			var n int64
			if err := json.Unmarshal(payload, &n); err != nil {
				return nil, fmt.Errorf("decode int value: %w", err)
			}
			return Int(n), nil
		case "float":
			var f float64
			if err := json.Unmarshal(payload, &f); err != nil {
				return nil, fmt.Errorf("decode float value: %w", err)
			}
			return Float(f), nil
		default:
			return nil, fmt.Errorf("decode value: unknown kind tag %q", tag)
		}
	}
	return nil, fmt.Errorf("decode value: empty object")
}

// formatFloat renders a finite float deterministically.
// Plain decimal notation is used in the range JavaScript prints without
// an exponent, exponent notation elsewhere.
func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite float %v cannot be serialized", f)
	}
	if f == 0 {
		return "0", nil
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	return strconv.FormatFloat(f, 'e', -1, 64), nil
}
