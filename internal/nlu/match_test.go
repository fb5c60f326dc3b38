package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_OrdersLongestFirst(t *testing.T) {
	m, err := Compile([]string{"pizza", "large pizza", "a pizza", "b pizza"}, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"large pizza", "a pizza", "b pizza", "pizza"}, m.Patterns())
}

func TestCompile_SkipsPlaceholdersWithoutValues(t *testing.T) {
	m, err := Compile([]string{"order @product", "hello", "  "}, map[string][]string{"size": {"large"}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, m.Patterns())
	assert.ElementsMatch(t, []string{"order @product", ""}, m.Skipped)
}

func TestCompile_QuotesLiteralText(t *testing.T) {
	c, ok, err := compilePattern("1+1 = 2?", nil, Options{CaseSensitive: true})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `1\+1\s+=\s+2\?`, c.re.String())
	assert.True(t, c.re.MatchString("is 1+1   = 2? yes"))
	assert.False(t, c.re.MatchString("11 = 2?"))
}

func TestCompile_SlotAlternationLongestFirst(t *testing.T) {
	slots := map[string][]string{"city": {"new york", "new  york city", "york", "", "york"}}
	c, ok, err := compilePattern("fly to @city", slots, Options{})
	require.NoError(t, err)
	require.True(t, ok)
	guard := func(n string) string { return `(?:$|(?P<g` + n + `>` + nonWord + `))` }
	assert.Equal(t, `(?i)fly\s+to\s+(?P<s0>new\s+york\s+city`+guard("0")+`|new\s+york`+guard("1")+`|york`+guard("2")+`)`, c.re.String())
}

func TestMatch_SlotFallsBackToShorterValue(t *testing.T) {
	slots := map[string][]string{"city": {"new york", "new york city"}}
	m, err := Compile([]string{"fly to @city"}, slots, Options{})
	require.NoError(t, err)

	matches := m.Match("fly to new york cityscape")
	require.Len(t, matches, 1)
	assert.Equal(t, "fly to new york", matches[0].Text)
	assert.Equal(t, map[string]string{"city": "new york"}, matches[0].Slots)
}

func TestMatch_SlotsAndOffsets(t *testing.T) {
	slots := map[string][]string{
		"size":    {"large", "small"},
		"product": {"pizza", "pepperoni pizza"},
	}
	m, err := Compile([]string{"i want a @size @product"}, slots, Options{})
	require.NoError(t, err)

	text := "Hi! I want a LARGE pepperoni pizza please"
	matches := m.Match(text)
	require.Len(t, matches, 1)

	got := matches[0]
	assert.Equal(t, "I want a LARGE pepperoni pizza", got.Text)
	assert.Equal(t, got.Text, text[got.Start:got.End])
	assert.Equal(t, map[string]string{"size": "LARGE", "product": "pepperoni pizza"}, got.Slots)
}

func TestMatch_RemovesMatchedSpans(t *testing.T) {
	slots := map[string][]string{"product": {"pizza", "soda"}}
	m, err := Compile([]string{"@product", "large @product"}, slots, Options{})
	require.NoError(t, err)

	matches := m.Match("a large pizza and a soda")
	require.Len(t, matches, 2)

	assert.Equal(t, "large @product", matches[0].Pattern)
	assert.Equal(t, "large pizza", matches[0].Text)
	assert.Equal(t, "@product", matches[1].Pattern)
	assert.Equal(t, "soda", matches[1].Text)
}

func TestMatch_NoBridgingAcrossRemovedSpans(t *testing.T) {
	slots := map[string][]string{"colour_name": {"red"}}
	m, err := Compile([]string{"@colour_name", "big ball"}, slots, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"@colour_name", "big ball"}, m.Patterns())

	matches := m.Match("big red ball")
	require.Len(t, matches, 1)
	assert.Equal(t, "red", matches[0].Text)
	assert.Equal(t, map[string]string{"colour_name": "red"}, matches[0].Slots)
}

func TestMatch_WordBoundaries(t *testing.T) {
	m, err := Compile([]string{"cat"}, nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, m.Match("concatenate"))
	assert.Len(t, m.Match("cat, Cat and CAT"), 3)
}

func TestMatch_UnicodeWordBoundaries(t *testing.T) {
	m, err := Compile([]string{"café", "über"}, nil, Options{})
	require.NoError(t, err)

	assert.Empty(t, m.Match("two cafés please"))
	assert.Empty(t, m.Match("le grandcafé"))
	assert.Empty(t, m.Match("Zuüber"))

	text := "café café, CAFÉ über"
	matches := m.Match(text)
	require.Len(t, matches, 4)
	for _, got := range matches {
		assert.Equal(t, got.Text, text[got.Start:got.End])
	}
	assert.Equal(t, "café", matches[0].Text)
	assert.Equal(t, 0, matches[0].Start)
	assert.Equal(t, "CAFÉ", matches[2].Text)
	assert.Equal(t, "über", matches[3].Text)
}

func TestMatch_UnicodeSlotBoundaries(t *testing.T) {
	slots := map[string][]string{"city": {"São Paulo", "Zürich"}}
	m, err := Compile([]string{"to @city"}, slots, Options{})
	require.NoError(t, err)

	assert.Empty(t, m.Match("to Zürichsee"))

	matches := m.Match("a ticket to São Paulo, thanks")
	require.Len(t, matches, 1)
	assert.Equal(t, "to São Paulo", matches[0].Text)
	assert.Equal(t, map[string]string{"city": "São Paulo"}, matches[0].Slots)
}

func TestMatch_CaseSensitive(t *testing.T) {
	m, err := Compile([]string{"Yes"}, nil, Options{CaseSensitive: true})
	require.NoError(t, err)
	assert.Empty(t, m.Match("yes"))
	assert.Len(t, m.Match("Yes"), 1)
}

func TestMatch_ResultsOrderedByPosition(t *testing.T) {
	m, err := Compile([]string{"world", "hello there"}, nil, Options{})
	require.NoError(t, err)
	matches := m.Match("world says hello there")
	require.Len(t, matches, 2)
	assert.Equal(t, "world", matches[0].Text)
	assert.Equal(t, "hello there", matches[1].Text)
}

func TestMatch_PatternRegexMatchesLiteralText(t *testing.T) {
	slots := map[string][]string{"x": {"a.b", "c"}}
	m, err := Compile([]string{"see @x now"}, slots, Options{})
	require.NoError(t, err)

	assert.Len(t, m.Match("see a.b now"), 1)
	assert.Empty(t, m.Match("see aXb now"), "slot values are quoted")
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"don't", "stop", "2", "café"}, Tokenize("Don't STOP -- 2 café!"))
	assert.Empty(t, Tokenize("... !!"))
}

func TestSlotsFromInput(t *testing.T) {
	input := map[string]any{
		"slots": map[string]any{
			"city":    []any{map[string]any{"value": "Berlin"}, "Paris"},
			"size":    "large",
			"ignored": 42,
		},
	}
	got := SlotsFromInput(input)
	assert.Equal(t, []string{"Berlin", "Paris"}, got["city"])
	assert.Equal(t, []string{"large"}, got["size"])
	assert.Empty(t, got["ignored"])

	assert.Empty(t, SlotsFromInput(map[string]any{}))
}
