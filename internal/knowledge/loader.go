package knowledge

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Supported content types.
const (
	TypeText     = "text/plain"
	TypeMarkdown = "text/markdown"
	TypeHTML     = "text/html"
	TypeJSON     = "application/json"
	TypeCSV      = "text/csv"
)

// ErrUnsupportedContentType is returned when no loader handles a document.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// Loader extracts plain text from raw document bytes.
type Loader func(data []byte) (string, error)

var loaders = map[string]Loader{
	TypeText:     loadText,
	TypeMarkdown: loadMarkdown,
	TypeHTML:     loadHTML,
	TypeJSON:     loadJSON,
	TypeCSV:      loadCSV,
}

var extensions = map[string]string{
	".txt":      TypeText,
	".text":     TypeText,
	".log":      TypeText,
	".md":       TypeMarkdown,
	".markdown": TypeMarkdown,
	".html":     TypeHTML,
	".htm":      TypeHTML,
	".aspx":     TypeHTML,
	".json":     TypeJSON,
	".csv":      TypeCSV,
}

// Supported reports whether a file name has an extension a loader understands.
func Supported(name string) bool {
	_, ok := extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// DetectContentType picks a content type by file extension, then by sniffing data.
func DetectContentType(name string, data []byte) string {
	if ct, ok := extensions[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') && json.Valid(trimmed) {
		return TypeJSON
	}
	return normalizeType(http.DetectContentType(data))
}

func normalizeType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	switch mt {
	case "text/x-markdown":
		return TypeMarkdown
	case "application/xhtml+xml":
		return TypeHTML
	}
	return mt
}

// Load extracts the text of data according to contentType.
func Load(contentType string, data []byte) (string, error) {
	loader, ok := loaders[normalizeType(contentType)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContentType, contentType)
	}
	return loader(data)
}

func loadText(data []byte) (string, error) {
	return string(data), nil
}

var markdown = goldmark.New()

// loadMarkdown renders the text content of a CommonMark document. Markup, link
// targets and raw HTML are dropped, code is kept, and blocks end with a blank line.
func loadMarkdown(data []byte) (string, error) {
	doc := markdown.Parser().Parse(text.NewReader(data))

	var b strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.Kind() {
			case ast.KindParagraph, ast.KindHeading, ast.KindList, ast.KindBlockquote:
				endLines(&b, 2)
			default:
				if n.Type() == ast.TypeBlock {
					endLines(&b, 1)
				}
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(data))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.AutoLink:
			b.Write(node.Label(data))
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(data))
			}
			endLines(&b, 2)
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid markdown: %w", err)
	}
	return b.String(), nil
}

// endLines makes b end with at least n newlines, unless it is empty.
func endLines(b *strings.Builder, n int) {
	s := b.String()
	if s == "" {
		return
	}
	have := len(s) - len(strings.TrimRight(s, "\n"))
	for ; have < n; have++ {
		b.WriteByte('\n')
	}
}

// loadJSON flattens a document into "path: value" lines in key order. Numbers keep
// their source spelling.
func loadJSON(data []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("invalid json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("invalid json: trailing data after top-level value")
	}
	var lines []string
	flatten("", v, &lines)
	return strings.Join(lines, "\n"), nil
}

func flatten(path string, v any, lines *[]string) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p := k
			if path != "" {
				p = path + "." + k
			}
			flatten(p, t[k], lines)
		}
	case []any:
		for i, e := range t {
			flatten(path+"["+strconv.Itoa(i)+"]", e, lines)
		}
	case nil:
	case json.Number:
		appendLine(path, t.String(), lines)
	default:
		appendLine(path, fmt.Sprint(t), lines)
	}
}

func appendLine(path, s string, lines *[]string) {
	if path == "" {
		*lines = append(*lines, s)
		return
	}
	*lines = append(*lines, path+": "+s)
}

// loadCSV renders each row as "header: value" lines, rows separated by a blank line.
func loadCSV(data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("invalid csv: %w", err)
	}

	var rows []string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("invalid csv: %w", err)
		}
		var b strings.Builder
		for i, val := range rec {
			if strings.TrimSpace(val) == "" {
				continue
			}
			key := "column" + strconv.Itoa(i+1)
			if i < len(header) && header[i] != "" {
				key = header[i]
			}
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(key + ": " + val)
		}
		if b.Len() > 0 {
			rows = append(rows, b.String())
		}
	}
	return strings.Join(rows, "\n\n"), nil
}
