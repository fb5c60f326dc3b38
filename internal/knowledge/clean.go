package knowledge

import (
	"regexp"
	"strings"
)

var (
	zeroWidth       = strings.NewReplacer("\u200b", "", "\u200c", "", "\u200d", "", "\u2060", "", "\ufeff", "")
	horizontalSpace = regexp.MustCompile(`[\t\f\v \x{00a0}\x{3000}]+`)
	manyNewlines    = regexp.MustCompile(`\n{3,}`)
)

// Clean normalises extracted text: unix line endings, no zero-width characters, single
// spaces, trimmed lines and at most one blank line in a row.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = zeroWidth.Replace(text)
	text = horizontalSpace.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	text = manyNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
