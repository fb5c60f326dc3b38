package schema

import (
	"fmt"
	"testing"

	"github.com/aretw0/conduit/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, fields ...domain.Field) *Schema {
	t.Helper()
	s, err := Compile(fields)
	require.NoError(t, err)
	return s
}

func TestApply_DefaultsAndNormalisation(t *testing.T) {
	s := compile(t,
		domain.Field{Key: "name", Type: domain.FieldText, Required: true},
		domain.Field{Key: "limit", Type: domain.FieldNumber, Default: 5},
		domain.Field{Key: "verbose", Type: domain.FieldToggle},
		domain.Field{Key: "tags", Type: domain.FieldTextArray},
		domain.Field{Key: "mode", Type: domain.FieldSelect, Options: []string{"driving", "walking"}, Default: "driving"},
		domain.Field{Key: "props", Type: domain.FieldJSON},
	)

	out, err := s.Apply(map[string]any{
		"name":    "Hulk",
		"verbose": "true",
		"tags":    "a, b,,c",
		"props":   `{"email":"a@b.c"}`,
		"extra":   1,
	})
	require.NoError(t, err)

	assert.Equal(t, "Hulk", out["name"])
	assert.Equal(t, float64(5), out["limit"])
	assert.Equal(t, true, out["verbose"])
	assert.Equal(t, []string{"a", "b", "c"}, out["tags"])
	assert.Equal(t, "driving", out["mode"])
	assert.Equal(t, map[string]any{"email": "a@b.c"}, out["props"])
	assert.Equal(t, 1, out["extra"])
}

func TestApply_AggregatesErrors(t *testing.T) {
	s := compile(t,
		domain.Field{Key: "name", Type: domain.FieldText, Required: true},
		domain.Field{Key: "limit", Type: domain.FieldNumber},
		domain.Field{Key: "mode", Type: domain.FieldSelect, Options: []string{"a"}},
	)

	_, err := s.Apply(map[string]any{"limit": "ten", "mode": "b"})
	require.Error(t, err)

	errs := ValidationErrors(err)
	require.Len(t, errs, 3)
	keys := []string{}
	for _, e := range errs {
		keys = append(keys, e.(*ValidationError).Key)
	}
	assert.Equal(t, []string{"name", "limit", "mode"}, keys)
}

func TestValidationErrors_ThroughWrapping(t *testing.T) {
	s := compile(t, domain.Field{Key: "name", Type: domain.FieldText, Required: true})

	_, err := s.Apply(nil)
	wrapped := fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)

	assert.ErrorIs(t, wrapped, domain.ErrInvalidConfig)
	assert.Equal(t, []string{"name"}, InvalidKeys(wrapped))

	var ve *ValidationError
	require.ErrorAs(t, wrapped, &ve)
	assert.Equal(t, "required", ve.Reason)

	assert.Nil(t, ValidationErrors(domain.ErrInvalidConfig))
}

func TestApply_EmptyRequiredString(t *testing.T) {
	s := compile(t, domain.Field{Key: "email", Type: domain.FieldText, Required: true})

	_, err := s.Apply(map[string]any{"email": ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "email": required`)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	s := compile(t, domain.Field{Key: "limit", Type: domain.FieldNumber, Default: 3})
	in := map[string]any{}

	_, err := s.Apply(in)
	require.NoError(t, err)
	assert.Empty(t, in)
}

func TestCompile_Rejects(t *testing.T) {
	_, err := Compile([]domain.Field{{Key: "a"}, {Key: "a"}})
	assert.Error(t, err)

	_, err = Compile([]domain.Field{{Key: "s", Type: domain.FieldSelect}})
	assert.Error(t, err)

	_, err = Compile([]domain.Field{{Key: "x", Type: "colorPicker"}})
	assert.Error(t, err)
}

func TestJSONType_InvalidText(t *testing.T) {
	_, err := JSON().Normalize("{not json")
	assert.Error(t, err)
}
