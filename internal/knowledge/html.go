package knowledge

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true, "svg": true,
	"nav": true, "footer": true, "head": true, "template": true,
}

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true, "aside": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true, "table": true, "tr": true, "blockquote": true,
	"pre": true, "header": true, "dl": true, "dt": true, "dd": true, "hr": true, "form": true,
}

func loadHTML(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("invalid html: %w", err)
	}
	var sb strings.Builder
	extractText(doc, &sb, 0)
	return sb.String(), nil
}

// HTMLTitle returns the document title, empty when there is none.
func HTMLTitle(data []byte) string {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	var find func(*html.Node) string
	find = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t := find(c); t != "" {
				return t
			}
		}
		return ""
	}
	return find(doc)
}

func extractText(n *html.Node, sb *strings.Builder, depth int) {
	if depth > 200 {
		return
	}

	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		if skippedElements[n.Data] {
			return
		}
		switch n.Data {
		case "br":
			sb.WriteString("\n")
			return
		case "img":
			for _, a := range n.Attr {
				if a.Key == "alt" && a.Val != "" {
					sb.WriteString(" " + a.Val + " ")
				}
			}
			return
		case "td", "th":
			sb.WriteString(" ")
		}
		if blockElements[n.Data] {
			sb.WriteString("\n")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, sb, depth+1)
	}

	if n.Type == html.ElementNode && blockElements[n.Data] {
		sb.WriteString("\n")
	}
}
