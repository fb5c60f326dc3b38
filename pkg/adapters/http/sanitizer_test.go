package http

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizer_SizeLimit(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		inputSize int
		wantErr   bool
	}{
		{"Under Default", 0, DefaultMaxInputSize - 1, false},
		{"Exact Default", 0, DefaultMaxInputSize, false},
		{"Over Default", 0, DefaultMaxInputSize + 1, true},
		{"Custom Limit", 10, 11, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Sanitizer{MaxSize: tt.limit}.Clean(strings.Repeat("a", tt.inputSize))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInputTooLarge)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizer_ControlChars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Normal Text", "Hello World", "Hello World"},
		{"Safe Controls", "Line1\nLine2\tTabbed", "Line1\nLine2\tTabbed"},
		{"ANSI Code", "\x1b[31mRed\x1b[0m", "[31mRed[0m"},
		{"Null Byte", "Null\x00Byte", "NullByte"},
		{"Bell", "Ding\x07", "Ding"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitizer{}.Clean(tt.input)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSanitizer_InvalidUTF8(t *testing.T) {
	_, err := Sanitizer{}.Clean("bad \xff byte")
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}
