package knowledge

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Defaults used when no chunk size or overlap is configured.
const (
	DefaultChunkSize    = 2000
	DefaultChunkOverlap = 200
)

// ErrInvalidSplitter is returned for impossible size/overlap combinations.
var ErrInvalidSplitter = errors.New("invalid splitter")

// Token is a word run or a single punctuation rune of a text, by byte offsets.
type Token struct {
	Start int
	End   int
}

// Tokens splits text into tokens. Whitespace separates tokens and is never part of one.
func Tokens(text string) []Token {
	var out []Token
	start := -1
	for i, r := range text {
		switch {
		case isWordRune(r):
			if start < 0 {
				start = i
			}
		default:
			if start >= 0 {
				out = append(out, Token{Start: start, End: i})
				start = -1
			}
			if !unicode.IsSpace(r) {
				out = append(out, Token{Start: i, End: i + utf8.RuneLen(r)})
			}
		}
	}
	if start >= 0 {
		out = append(out, Token{Start: start, End: len(text)})
	}
	return out
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_'
}

// Splitter cuts text into chunks of at most ChunkSize tokens. Consecutive chunks share
// Overlap tokens.
type Splitter struct {
	ChunkSize int `json:"chunk_size"`
	Overlap   int `json:"overlap"`
}

// NewSplitter returns a validated splitter.
func NewSplitter(size, overlap int) (Splitter, error) {
	s := Splitter{ChunkSize: size, Overlap: overlap}
	return s, s.Validate()
}

// Validate checks that the splitter makes progress.
func (s Splitter) Validate() error {
	switch {
	case s.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidSplitter, s.ChunkSize)
	case s.Overlap < 0:
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidSplitter, s.Overlap)
	case s.Overlap >= s.ChunkSize:
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidSplitter, s.Overlap, s.ChunkSize)
	}
	return nil
}

// Split returns the chunks of text. Each chunk is the original substring from its first
// to its last token, so inner spacing and line breaks are kept.
func (s Splitter) Split(text string) ([]string, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	tokens := Tokens(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	step := s.ChunkSize - s.Overlap
	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := start + s.ChunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, text[tokens[start].Start:tokens[end-1].End])
		if end == len(tokens) {
			break
		}
	}
	return chunks, nil
}
