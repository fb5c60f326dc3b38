package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/conduit/pkg/domain"
)

// Type defines the contract for field validation.
// Normalize returns the value in its canonical Go form or an error.
type Type interface {
	Name() string
	Normalize(value any) (any, error)
}

type stringType struct{ name string }

func (t stringType) Name() string { return t.name }

func (t stringType) Normalize(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case float64, int, int64, bool:
		return fmt.Sprint(v), nil
	default:
		return nil, fmt.Errorf("expected string, got %T", value)
	}
}

type numberType struct{}

func (numberType) Name() string { return "number" }

func (numberType) Normalize(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("expected number, got %q", v)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("expected number, got %T", value)
	}
}

type boolType struct{}

func (boolType) Name() string { return "toggle" }

func (boolType) Normalize(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("expected boolean, got %q", v)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("expected boolean, got %T", value)
	}
}

type stringSliceType struct{}

func (stringSliceType) Name() string { return "textArray" }

func (stringSliceType) Normalize(value any) (any, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("element %d: expected string, got %T", i, e)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		// Comma or newline separated list.
		fields := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '\n' })
		out := make([]string, 0, len(fields))
		for _, f := range fields {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, f)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list of strings, got %T", value)
	}
}

type enumType struct{ options []string }

func (t enumType) Name() string { return "select" }

func (t enumType) Normalize(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", value)
	}
	for _, o := range t.options {
		if o == s {
			return s, nil
		}
	}
	return nil, fmt.Errorf("must be one of [%s], got %q", strings.Join(t.options, ", "), s)
}

type jsonType struct{}

func (jsonType) Name() string { return "json" }

func (jsonType) Normalize(value any) (any, error) {
	switch v := value.(type) {
	case map[string]any, []any:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		var out any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("invalid JSON: %v", err)
		}
		return out, nil
	default:
		// Round-trip anything else so nodes only ever see JSON shaped values.
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("value is not JSON serialisable: %v", err)
		}
		var out any
		_ = json.Unmarshal(data, &out)
		return out, nil
	}
}

// String creates a string type.
func String() Type { return stringType{name: "text"} }

// Number creates a numeric type; values normalise to float64.
func Number() Type { return numberType{} }

// Bool creates a boolean type.
func Bool() Type { return boolType{} }

// StringSlice creates a list-of-strings type.
func StringSlice() Type { return stringSliceType{} }

// Enum creates a type restricted to options.
func Enum(options ...string) Type { return enumType{options: options} }

// JSON creates a type accepting objects, arrays or JSON text.
func JSON() Type { return jsonType{} }

// ForField maps a field declaration to its Type.
func ForField(f domain.Field) (Type, error) {
	switch f.Type {
	case domain.FieldText, domain.FieldTextArea, domain.FieldConnection, "":
		return String(), nil
	case domain.FieldNumber:
		return Number(), nil
	case domain.FieldToggle:
		return Bool(), nil
	case domain.FieldTextArray:
		return StringSlice(), nil
	case domain.FieldSelect:
		if len(f.Options) == 0 {
			return nil, fmt.Errorf("select field %q has no options", f.Key)
		}
		return Enum(f.Options...), nil
	case domain.FieldJSON:
		return JSON(), nil
	default:
		return nil, fmt.Errorf("unsupported field type %q on %q", f.Type, f.Key)
	}
}
