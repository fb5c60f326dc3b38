package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/conduit/pkg/domain"
)

// GraphOverlay contains session data to visualize on the graph.
type GraphOverlay struct {
	// VisitedNodes holds qualified node types ("extension/node"), as in Session.History.
	VisitedNodes []string
}

// GenerateMermaid produces a Mermaid flowchart of the extensions' nodes and the
// children each node may select. Shapes:
// - Node bound to a connection: [[Subroutine]]
// - Node: [Rectangle]
// - Child: ([Stadium])
// - Knowledge connector: [/Parallelogram/] feeding the knowledge sink
func GenerateMermaid(exts []domain.Extension, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	hasConnectors := false
	for _, ext := range exts {
		sb.WriteString(fmt.Sprintf("    subgraph %s[\"%s\"]\n", sanitizeMermaidID(ext.Name), label(ext)))
		for _, node := range ext.Nodes {
			id := nodeID(ext.Name, node.Type)
			opener, closer := "[", "]"
			if node.Connection != nil {
				opener, closer = "[[", "]]"
			}
			sb.WriteString(fmt.Sprintf("        %s%s\"%s\"%s\n", id, opener, escape(node.DefaultLabel), closer))
			for _, child := range node.Children {
				sb.WriteString(fmt.Sprintf("        %s --> %s_%s([\"%s\"])\n", id, id, sanitizeMermaidID(child), escape(child)))
			}
		}
		for _, kc := range ext.KnowledgeConnectors {
			hasConnectors = true
			sb.WriteString(fmt.Sprintf("        %s[/\"%s\"/]\n", nodeID(ext.Name, kc.Type), escape(kc.Label)))
		}
		sb.WriteString("    end\n")
	}

	if hasConnectors {
		sb.WriteString("    knowledge_sink[(\"knowledge sink\")]\n")
		for _, ext := range exts {
			for _, kc := range ext.KnowledgeConnectors {
				sb.WriteString(fmt.Sprintf("    %s -.-> knowledge_sink\n", nodeID(ext.Name, kc.Type)))
			}
		}
	}

	if overlay != nil && len(overlay.VisitedNodes) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		seen := make(map[string]bool)
		for _, qualified := range overlay.VisitedNodes {
			ext, node, ok := strings.Cut(qualified, "/")
			if !ok {
				continue
			}
			id := nodeID(ext, node)
			if !seen[id] {
				seen[id] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", id))
			}
		}
	}

	return sb.String()
}

func label(ext domain.Extension) string {
	if ext.Label != "" {
		return escape(ext.Label)
	}
	return escape(ext.Name)
}

func nodeID(ext, node string) string {
	return sanitizeMermaidID(ext) + "__" + sanitizeMermaidID(node)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}
