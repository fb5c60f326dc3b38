package nlu

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var placeholderRe = regexp.MustCompile(`@([A-Za-z_][A-Za-z0-9_]*)`)

// Options tune pattern compilation.
type Options struct {
	CaseSensitive bool `json:"case_sensitive"`
}

// nonWord is one rune that cannot continue a word, in any script.
const nonWord = `[^\p{L}\p{N}\p{M}_]`

type compiled struct {
	source string
	re     *regexp.Regexp
	// groups maps capture group names ("s0", "s1", ...) to slot names.
	groups map[string]string
	// guards are the groups ("g0", ...) holding the rune after a word-final match.
	// It is checked but not part of the match.
	guards   map[string]bool
	guardIdx []int
}

// Matcher holds compiled patterns in evaluation order.
type Matcher struct {
	patterns []compiled

	// Skipped lists patterns that cannot match: empty ones and those referencing a
	// slot without known values.
	Skipped []string
}

// Compile builds a Matcher from patterns and the slot values known for the turn.
func Compile(patterns []string, slots map[string][]string, opts Options) (*Matcher, error) {
	ordered := make([]string, 0, len(patterns))
	seen := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if seen[p] {
			continue
		}
		seen[p] = true
		ordered = append(ordered, p)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(ordered[i]), utf8.RuneCountInString(ordered[j])
		if li != lj {
			return li > lj
		}
		return ordered[i] < ordered[j]
	})

	m := &Matcher{}
	for _, p := range ordered {
		if p == "" {
			m.Skipped = append(m.Skipped, p)
			continue
		}
		c, ok, err := compilePattern(p, slots, opts)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		if !ok {
			m.Skipped = append(m.Skipped, p)
			continue
		}
		m.patterns = append(m.patterns, c)
	}
	return m, nil
}

// Patterns returns the compiled pattern sources in evaluation order.
func (m *Matcher) Patterns() []string {
	out := make([]string, len(m.patterns))
	for i, c := range m.patterns {
		out[i] = c.source
	}
	return out
}

// compilePattern returns ok=false when a placeholder has no values.
//
// RE2's \b only knows ASCII letters, so word boundaries are built by hand: a pattern
// ending in a word rune gets a guard accepting the end of text or one non-word rune,
// and Match checks the rune before a hit that starts with a word rune.
func compilePattern(pattern string, slots map[string][]string, opts Options) (compiled, bool, error) {
	c := compiled{source: pattern, groups: map[string]string{}, guards: map[string]bool{}}

	var b strings.Builder
	if !opts.CaseSensitive {
		b.WriteString("(?i)")
	}

	locs := placeholderRe.FindAllStringSubmatchIndex(pattern, -1)
	pos := 0
	for i, loc := range locs {
		c.writeLiteral(&b, pattern[pos:loc[0]], false)

		slot := pattern[loc[2]:loc[3]]
		values := slotValues(slots[slot])
		if len(values) == 0 {
			return compiled{}, false, nil
		}
		group := fmt.Sprintf("s%d", i)
		c.groups[group] = slot

		atEnd := loc[1] == len(pattern)
		b.WriteString("(?P<" + group + ">")
		for j, v := range values {
			if j > 0 {
				b.WriteByte('|')
			}
			b.WriteString(quoteWords(v))
			if atEnd && endsWithWord(v) {
				c.writeGuard(&b)
			}
		}
		b.WriteByte(')')
		pos = loc[1]
	}
	if pos < len(pattern) {
		c.writeLiteral(&b, pattern[pos:], true)
	}

	re, err := regexp.Compile(b.String())
	if err != nil {
		return compiled{}, false, err
	}
	c.re = re
	for i, name := range re.SubexpNames() {
		if c.guards[name] {
			c.guardIdx = append(c.guardIdx, i)
		}
	}
	return c, true, nil
}

// writeLiteral quotes literal text; whitespace runs become \s+ and a trailing word
// rune at the pattern end gets a guard.
func (c *compiled) writeLiteral(b *strings.Builder, lit string, atEnd bool) {
	if lit == "" {
		return
	}
	b.WriteString(quoteWordsKeepEdges(lit))
	if atEnd && endsWithWord(lit) {
		c.writeGuard(b)
	}
}

func (c *compiled) writeGuard(b *strings.Builder) {
	name := fmt.Sprintf("g%d", len(c.guards))
	c.guards[name] = true
	b.WriteString(`(?:$|(?P<` + name + `>` + nonWord + `))`)
}

// matchEnd is the end of the hit in loc, excluding a guard rune.
func (c *compiled) matchEnd(loc []int) int {
	for _, i := range c.guardIdx {
		if loc[2*i] >= 0 {
			return loc[2*i]
		}
	}
	return loc[1]
}

// quoteWords quotes s with inner whitespace runs matched loosely.
func quoteWords(s string) string {
	return strings.Join(quoteFields(strings.Fields(s)), `\s+`)
}

// quoteWordsKeepEdges is quoteWords for literal fragments between placeholders, where a
// leading or trailing space still separates the fragment from the slot.
func quoteWordsKeepEdges(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return `\s+`
	}
	out := strings.Join(quoteFields(fields), `\s+`)
	if r, _ := utf8.DecodeRuneInString(s); unicode.IsSpace(r) {
		out = `\s+` + out
	}
	if r, _ := utf8.DecodeLastRuneInString(s); unicode.IsSpace(r) {
		out += `\s+`
	}
	return out
}

func quoteFields(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = regexp.QuoteMeta(f)
	}
	return out
}

// slotValues drops empty values and duplicates and orders the rest longest first,
// so the alternation prefers "new york city" over "new york".
func slotValues(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.Join(strings.Fields(v), " ")
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(out[i]), utf8.RuneCountInString(out[j])
		if li != lj {
			return li > lj
		}
		return out[i] < out[j]
	})
	return out
}

// isWord reports whether r can be part of a word: letters, numbers and marks of any
// script plus '_'. It is the complement of nonWord.
func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r)
}

func endsWithWord(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return isWord(r)
}
