package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Type coerces an entity value.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "int").
	Name() string
	// Coerce converts value, usually text, to the type.
	Coerce(value any) (any, error)
}

// --- Built-in Type Implementations ---

// StringType accepts any scalar and returns its text.
type StringType struct{}

func (t *StringType) Name() string { return "string" }

func (t *StringType) Coerce(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case nil:
		return nil, fmt.Errorf("expected string, got nothing")
	case bool, int, int64, float64:
		return fmt.Sprint(v), nil
	default:
		return nil, fmt.Errorf("expected string, got %T", value)
	}
}

// IntType accepts whole numbers.
type IntType struct{}

func (t *IntType) Name() string { return "int" }

func (t *IntType) Coerce(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		// Accept floats that are whole numbers (from JSON unmarshaling)
		if v == float64(int64(v)) {
			return int(v), nil
		}
		return nil, fmt.Errorf("expected int, got float (not a whole number)")
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("expected int, got %q", v)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("expected int, got %T", value)
	}
}

// FloatType accepts any number.
type FloatType struct{}

func (t *FloatType) Name() string { return "float" }

func (t *FloatType) Coerce(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("expected float, got %q", v)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("expected float, got %T", value)
	}
}

// BoolType accepts booleans and the usual yes/no words.
type BoolType struct{}

func (t *BoolType) Name() string { return "bool" }

func (t *BoolType) Coerce(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y", "1", "oui", "si":
			return true, nil
		case "false", "no", "n", "0", "non":
			return false, nil
		}
		return nil, fmt.Errorf("expected bool, got %q", v)
	default:
		return nil, fmt.Errorf("expected bool, got %T", value)
	}
}

// SliceType coerces every element of a list or of a comma separated text.
type SliceType struct {
	elemType Type
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.elemType.Name())
}

func (t *SliceType) Coerce(value any) (any, error) {
	var items []any
	switch v := value.(type) {
	case []any:
		items = v
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
		}
	default:
		return nil, fmt.Errorf("expected list, got %T", value)
	}

	out := make([]any, 0, len(items))
	for i, item := range items {
		c, err := t.elemType.Coerce(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// CustomType applies a user-defined coercion.
type CustomType struct {
	name   string
	coerce func(any) (any, error)
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Coerce(value any) (any, error) {
	return t.coerce(value)
}

// --- Factory Functions ---

// String creates a string type.
func String() Type { return &StringType{} }

// Int creates an integer type.
func Int() Type { return &IntType{} }

// Float creates a float type.
func Float() Type { return &FloatType{} }

// Bool creates a boolean type.
func Bool() Type { return &BoolType{} }

// Slice creates a list type for elements of the given type.
func Slice(elemType Type) Type {
	return &SliceType{elemType: elemType}
}

// Custom creates a type with a user-defined coercion.
func Custom(name string, coerce func(any) (any, error)) Type {
	return &CustomType{name: name, coerce: coerce}
}

// ParseType converts a string type name to a Type.
// Supports basic types: "string", "int", "float", "bool", "[string]", "[int]", etc.
func ParseType(typeStr string) (Type, error) {
	// Handle slice types: [string], [int], etc.
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
	default:
		return nil, fmt.Errorf("unsupported type: %s", typeStr)
	}
}
