package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/conduit/pkg/domain"
)

// CatalogueMarkdown describes the extensions, their nodes, connectors and connection
// schemas as a markdown document.
func CatalogueMarkdown(exts []domain.Extension) string {
	var sb strings.Builder
	sb.WriteString("# Extensions\n")
	if len(exts) == 0 {
		sb.WriteString("\nNo extensions registered.\n")
		return sb.String()
	}

	for _, ext := range exts {
		title := ext.Name
		if ext.Label != "" {
			title = fmt.Sprintf("%s (`%s`)", ext.Label, ext.Name)
		}
		fmt.Fprintf(&sb, "\n## %s\n", title)
		if ext.Version != "" {
			fmt.Fprintf(&sb, "\nVersion %s\n", ext.Version)
		}
		if ext.Description != "" {
			fmt.Fprintf(&sb, "\n%s\n", ext.Description)
		}

		for _, c := range ext.Connections {
			names := make([]string, len(c.Fields))
			for i, f := range c.Fields {
				names[i] = "`" + f.Name + "`"
				if f.Required {
					names[i] += "*"
				}
			}
			fmt.Fprintf(&sb, "\n**Connection `%s`**: %s\n", c.Type, strings.Join(names, ", "))
		}

		for _, node := range ext.Nodes {
			fmt.Fprintf(&sb, "\n### %s (`%s`)\n", node.DefaultLabel, node.Type)
			if node.Summary != "" {
				fmt.Fprintf(&sb, "\n%s\n", node.Summary)
			}
			if node.Connection != nil {
				fmt.Fprintf(&sb, "\nNeeds a `%s` connection in `%s`.\n", node.Connection.Type, node.Connection.FieldKey)
			}
			writeFields(&sb, node.Fields)
			if len(node.Children) > 0 {
				fmt.Fprintf(&sb, "\nChildren: %s\n", quoteAll(node.Children))
			}
		}

		for _, kc := range ext.KnowledgeConnectors {
			fmt.Fprintf(&sb, "\n### Connector: %s (`%s`)\n", kc.Label, kc.Type)
			if kc.Summary != "" {
				fmt.Fprintf(&sb, "\n%s\n", kc.Summary)
			}
			writeFields(&sb, kc.Fields)
		}
	}
	return sb.String()
}

func writeFields(sb *strings.Builder, fields []domain.Field) {
	if len(fields) == 0 {
		return
	}
	sb.WriteString("\n| Field | Type | Required | Default |\n|---|---|---|---|\n")
	for _, f := range fields {
		required := ""
		if f.Required {
			required = "yes"
		}
		def := ""
		if f.Default != nil {
			def = fmt.Sprintf("`%v`", f.Default)
		}
		typ := f.Type
		if len(f.Options) > 0 {
			typ += " (" + strings.Join(f.Options, ", ") + ")"
		}
		fmt.Fprintf(sb, "| `%s` | %s | %s | %s |\n", f.Key, typ, required, def)
	}
}

func quoteAll(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = "`" + n + "`"
	}
	return strings.Join(out, ", ")
}
