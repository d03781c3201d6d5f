package params

import (
	"fmt"
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Type defines how values of a parameter are validated and compared.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "int").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
	// Equals reports whether two values of this type are the same parameter value.
	Equals(a, b any) bool
}

// --- Built-in Type Implementations ---

// StringType validates string values.
type StringType struct{}

func (t *StringType) Name() string { return "string" }

func (t *StringType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

func (t *StringType) Equals(a, b any) bool { return a == b }

// IntType validates integer values.
type IntType struct{}

func (t *IntType) Name() string { return "int" }

func (t *IntType) Validate(value any) error {
	if _, ok := toInt64(value); !ok {
		if f, isFloat := value.(float64); isFloat && f != float64(int64(f)) {
			return fmt.Errorf("expected int, got float (not a whole number)")
		}
		return fmt.Errorf("expected int, got %T", value)
	}
	return nil
}

// Equals compares integers across Go integer kinds and whole JSON floats.
func (t *IntType) Equals(a, b any) bool {
	ai, aok := toInt64(a)
	bi, bok := toInt64(b)
	if !aok || !bok {
		return a == b
	}
	return ai == bi
}

// FloatType validates floating-point values.
type FloatType struct{}

func (t *FloatType) Name() string { return "float" }

func (t *FloatType) Validate(value any) error {
	if _, ok := toFloat64(value); !ok {
		return fmt.Errorf("expected float, got %T", value)
	}
	return nil
}

func (t *FloatType) Equals(a, b any) bool {
	af, aok := toFloat64(a)
	bf, bok := toFloat64(b)
	if !aok || !bok {
		return a == b
	}
	return af == bf
}

// BoolType validates boolean values.
type BoolType struct{}

func (t *BoolType) Name() string { return "bool" }

func (t *BoolType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

func (t *BoolType) Equals(a, b any) bool { return a == b }

// SliceType validates slices of a specific element type.
type SliceType struct {
	elemType Type
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.elemType.Name())
}

func (t *SliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected slice, got %T", value)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.elemType.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// Equals compares element-wise. A nil slice equals an empty one.
func (t *SliceType) Equals(a, b any) bool {
	left, right := sliceValues(a), sliceValues(b)
	if left == nil || right == nil {
		return deepEqual(a, b)
	}
	if len(left) != len(right) {
		return false
	}
	for i := range left {
		if !t.elemType.Equals(left[i], right[i]) {
			return false
		}
	}
	return true
}

// AnyType accepts every value and compares them structurally.
type AnyType struct{}

func (t *AnyType) Name() string { return "any" }

func (t *AnyType) Validate(value any) error { return nil }

func (t *AnyType) Equals(a, b any) bool { return deepEqual(a, b) }

// CustomType applies a user-defined validation function.
type CustomType struct {
	name     string
	validate func(any) error
	equals   func(a, b any) bool
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Validate(value any) error {
	return t.validate(value)
}

func (t *CustomType) Equals(a, b any) bool {
	if t.equals == nil {
		return deepEqual(a, b)
	}
	return t.equals(a, b)
}

// --- Factory Functions ---

// String creates a string type validator.
func String() Type { return &StringType{} }

// Int creates an integer type validator.
func Int() Type { return &IntType{} }

// Float creates a float type validator.
func Float() Type { return &FloatType{} }

// Bool creates a boolean type validator.
func Bool() Type { return &BoolType{} }

// Any creates a type that accepts every value.
func Any() Type { return &AnyType{} }

// Slice creates a slice type validator for elements of the given type.
func Slice(elemType Type) Type {
	return &SliceType{elemType: elemType}
}

// Custom creates a custom type with a user-defined validator.
// A nil equals falls back to structural comparison.
func Custom(name string, validate func(any) error, equals func(a, b any) bool) Type {
	return &CustomType{name: name, validate: validate, equals: equals}
}

// ParseType converts a string type name to a Type.
// Supports basic types: "string", "int", "float", "bool", "any", "[string]", "[int]", etc.
func ParseType(typeStr string) (Type, error) {
	if len(typeStr) > 2 && typeStr[0] == '[' && typeStr[len(typeStr)-1] == ']' {
		elemType, err := ParseType(typeStr[1 : len(typeStr)-1])
		if err != nil {
			return nil, err
		}
		return Slice(elemType), nil
	}

	switch typeStr {
	case "string":
		return String(), nil
	case "int":
		return Int(), nil
	case "float":
		return Float(), nil
	case "bool":
		return Bool(), nil
	case "any", "":
		return Any(), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", typeStr)
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

func sliceValues(v any) []any {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return []any{}
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// deepEqual compares structurally, treating nil and empty collections as equal.
// Values cmp cannot inspect (unexported fields) fall back to reflect.DeepEqual.
func deepEqual(a, b any) (equal bool) {
	defer func() {
		if recover() != nil {
			equal = reflect.DeepEqual(a, b)
		}
	}()
	return cmp.Equal(a, b, cmpopts.EquateEmpty())
}
