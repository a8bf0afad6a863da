package rule

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Value is a sealed interface for leaf literal values.
// Only Null, String, Number, Bool, and Array implement it.
//
// Unlike relational columns, record properties are schema-less JSON, so the
// full JSON scalar range is representable here, including floats. Objects are
// not valid comparison literals and are rejected at decode time.
type Value interface {
	ruleValue() // Sealed - only types in this package implement it
}

// Null represents a JSON null literal (used by isNull-style checks and by
// decoders that normalize "== null" into null checks).
type Null struct{}

func (Null) ruleValue() {}

// String represents a string literal.
type String string

func (String) ruleValue() {}

// Number represents a numeric literal. JSON does not distinguish integers
// from floats, so a single float64-backed type keeps decoder output uniform
// across the three encodings.
type Number float64

func (Number) ruleValue() {}

// Bool represents a boolean literal.
type Bool bool

func (Bool) ruleValue() {}

// Array represents an ordered list of scalar literals, used by the "in",
// "nin", and "between" operators. Nested arrays and objects are rejected.
type Array []Value

func (Array) ruleValue() {}

// ValueKind classifies a Value for cast-target inference in the compiler.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindArray
)

// Kind returns the classification of v.
func Kind(v Value) ValueKind {
	switch v.(type) {
	case Null:
		return KindNull
	case String:
		return KindString
	case Number:
		return KindNumber
	case Bool:
		return KindBool
	case Array:
		return KindArray
	default:
		return KindNull
	}
}

// ToValue converts a decoded JSON value (the output of encoding/json into
// any) to a Value. Objects and nested arrays are not legal literals.
func ToValue(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case float64:
		return Number(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number out of range: %s", val)
		}
		return Number(f), nil
	case int:
		return Number(float64(val)), nil
	case int64:
		return Number(float64(val)), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			ev, err := ToValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			if _, nested := ev.(Array); nested {
				return nil, fmt.Errorf("array[%d]: nested arrays are not valid filter literals", i)
			}
			arr[i] = ev
		}
		return arr, nil
	case Value:
		return val, nil
	default:
		return nil, fmt.Errorf("unsupported literal type %T", v)
	}
}

// Native returns the Go value used as an SQL bind parameter.
// Arrays have no single native form and return an error; the compiler
// expands them element-wise.
func Native(v Value) (any, error) {
	switch val := v.(type) {
	case Null:
		return nil, nil
	case String:
		return string(val), nil
	case Number:
		return float64(val), nil
	case Bool:
		return bool(val), nil
	case Array:
		return nil, fmt.Errorf("array literal has no single native form")
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// formatNumber renders a Number the way encoding/json does, so canonical
// encodings match what a round trip through JSON would produce.
func formatNumber(n Number) string {
	f := float64(n)
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
