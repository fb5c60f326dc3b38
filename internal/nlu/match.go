package nlu

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Match is one pattern hit in the input text.
type Match struct {
	Pattern string            `json:"pattern"`
	Text    string            `json:"text"`
	Start   int               `json:"start"`
	End     int               `json:"end"`
	Slots   map[string]string `json:"slots,omitempty"`
}

// consumed replaces matched bytes. It is neither whitespace nor a word character, so
// later patterns can neither match it nor bridge across it with \s+.
const consumed = 0x00

// Match runs every pattern against text. Offsets are byte offsets into text and results
// are ordered by position.
func (m *Matcher) Match(text string) []Match {
	working := []byte(text)
	var out []Match

	for _, c := range m.patterns {
		var spans [][2]int
		for off := 0; off < len(working); {
			loc := c.re.FindSubmatchIndex(working[off:])
			if loc == nil {
				break
			}
			for i := range loc {
				if loc[i] >= 0 {
					loc[i] += off
				}
			}
			start, end := loc[0], c.matchEnd(loc)
			if start == end || !wordStart(working, start) {
				_, w := utf8.DecodeRune(working[start:])
				off = start + max(w, 1)
				continue
			}

			match := Match{
				Pattern: c.source,
				Text:    text[start:end],
				Start:   start,
				End:     end,
			}
			for i, name := range c.re.SubexpNames() {
				slot, ok := c.groups[name]
				if !ok || loc[2*i] < 0 {
					continue
				}
				if match.Slots == nil {
					match.Slots = make(map[string]string)
				}
				if _, dup := match.Slots[slot]; !dup {
					match.Slots[slot] = text[loc[2*i]:min(loc[2*i+1], end)]
				}
			}
			out = append(out, match)
			spans = append(spans, [2]int{start, end})
			off = end
		}
		for _, span := range spans {
			for i := span[0]; i < span[1]; i++ {
				working[i] = consumed
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// wordStart reports whether a hit at start does not begin inside a word.
func wordStart(working []byte, start int) bool {
	if start == 0 {
		return true
	}
	r, _ := utf8.DecodeRune(working[start:])
	if !isWord(r) {
		return true
	}
	prev, _ := utf8.DecodeLastRune(working[:start])
	return !isWord(prev)
}

// Tokenize splits text into lower-cased words.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f != "" {
			out = append(out, strings.ToLower(f))
		}
	}
	return out
}

// SlotsFromInput reads slot values extracted earlier in the turn from input["slots"].
// It accepts map[string][]string and the JSON decoded shapes of it, where each value is
// a string, a {"value": ...} record or a list of either.
func SlotsFromInput(input map[string]any) map[string][]string {
	out := map[string][]string{}
	switch raw := input["slots"].(type) {
	case map[string][]string:
		for k, v := range raw {
			out[k] = append(out[k], v...)
		}
	case map[string]any:
		for k, v := range raw {
			out[k] = append(out[k], slotStrings(v)...)
		}
	}
	return out
}

func slotStrings(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return t
	case map[string]any:
		if s, ok := t["value"].(string); ok {
			return []string{s}
		}
	case []any:
		var out []string
		for _, e := range t {
			out = append(out, slotStrings(e)...)
		}
		return out
	}
	return nil
}
