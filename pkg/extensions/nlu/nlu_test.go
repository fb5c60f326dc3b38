package nlu

import (
	"context"
	"testing"

	"github.com/aretw0/conduit/internal/runtime"
	"github.com/aretw0/conduit/internal/testutils"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchPatterns(t *testing.T) {
	h := testutils.NewHarness(t, nil, Extension())
	cfg := map[string]any{
		"patterns": []any{"fly to @city", "fly"},
		"slots":    `{"city": ["Paris", "New York"]}`,
	}

	res, err := h.Exec(context.Background(), Name, "matchPatterns", cfg, "I want to fly to new york, then fly home")
	require.NoError(t, err)
	assert.Equal(t, ChildMatched, res.SelectedChild)

	out := res.Input["nlu"].(map[string]any)
	matches := out["matches"].([]any)
	require.Len(t, matches, 2)
	first := matches[0].(map[string]any)
	assert.Equal(t, "fly to @city", first["pattern"])
	assert.Equal(t, "fly to new york", first["text"])
	assert.Equal(t, map[string]any{"city": "new york"}, first["slots"])
	assert.Equal(t, "fly", matches[1].(map[string]any)["pattern"])
}

func TestMatchPatterns_SlotsFromSession(t *testing.T) {
	h := testutils.NewHarness(t, nil, Extension())
	ctx := context.Background()

	s := domain.NewSession("turn-2")
	s.Input["slots"] = map[string]any{"product": []any{map[string]any{"value": "router"}}}
	require.NoError(t, h.Store.Save(ctx, s))

	res, err := h.Executor.Execute(ctx, runtime.Request{
		SessionID: "turn-2",
		Extension: Name,
		Node:      "matchPatterns",
		Config:    map[string]any{"patterns": []any{"my @product is broken"}, "caseSensitive": true},
		Text:      "My router is broken",
	})
	require.NoError(t, err)
	assert.Equal(t, ChildUnmatched, res.SelectedChild)

	res, err = h.Executor.Execute(ctx, runtime.Request{
		SessionID: "turn-2",
		Extension: Name,
		Node:      "matchPatterns",
		Config:    map[string]any{"patterns": []any{"my @product is broken"}},
		Text:      "My router is broken",
	})
	require.NoError(t, err)
	assert.Equal(t, ChildMatched, res.SelectedChild)
}

func TestMatchPatterns_InertPattern(t *testing.T) {
	h := testutils.NewHarness(t, nil, Extension())
	res, err := h.Exec(context.Background(), Name, "matchPatterns", map[string]any{"patterns": []any{"book @date"}}, "book tomorrow")
	require.NoError(t, err)
	assert.Equal(t, ChildUnmatched, res.SelectedChild)
}

func TestMergeSlots(t *testing.T) {
	got := MergeSlots(map[string][]string{"a": {"1"}}, map[string][]string{"a": {"2"}, "b": {"3"}})
	assert.Equal(t, map[string][]string{"a": {"1", "2"}, "b": {"3"}}, got)
}
