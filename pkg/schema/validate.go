package schema

import (
	"fmt"

	"github.com/aretw0/conduit/pkg/domain"
)

type fieldSpec struct {
	key      string
	typ      Type
	required bool
	def      any
}

// Schema is the compiled form of a field list.
type Schema struct {
	fields []fieldSpec
}

// Compile builds a Schema from field declarations.
// It fails on duplicate keys and unsupported field types.
func Compile(fields []domain.Field) (*Schema, error) {
	s := &Schema{}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Key == "" {
			return nil, fmt.Errorf("field without key")
		}
		if seen[f.Key] {
			return nil, fmt.Errorf("duplicate field %q", f.Key)
		}
		seen[f.Key] = true

		t, err := ForField(f)
		if err != nil {
			return nil, err
		}
		s.fields = append(s.fields, fieldSpec{key: f.Key, typ: t, required: f.Required, def: f.Default})
	}
	return s, nil
}

// Apply returns a copy of data with defaults filled in and declared fields normalised.
// Undeclared keys are passed through untouched.
// All failures are reported together as an *AggregateError.
func (s *Schema) Apply(data map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(data)+len(s.fields))
	for k, v := range data {
		out[k] = v
	}

	var errs []error
	for _, f := range s.fields {
		value, exists := out[f.key]
		if !exists || isEmpty(value) {
			if f.def != nil {
				value, exists = f.def, true
			} else {
				exists = false
			}
		}
		if !exists {
			if f.required {
				errs = append(errs, &ValidationError{Key: f.key, Reason: "required"})
			}
			continue
		}

		norm, err := f.typ.Normalize(value)
		if err != nil {
			errs = append(errs, &ValidationError{Key: f.key, Reason: err.Error(), Value: value})
			continue
		}
		if f.required && isEmpty(norm) {
			errs = append(errs, &ValidationError{Key: f.key, Reason: "required", Value: value})
			continue
		}
		out[f.key] = norm
	}

	if len(errs) > 0 {
		return nil, &AggregateError{Errors: errs}
	}
	return out, nil
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	}
	return false
}
