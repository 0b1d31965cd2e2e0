package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// GraphOverlay contains editor state to highlight on the graph.
type GraphOverlay struct {
	SelectedNode string
	// FlaggedNodes carry validation warnings.
	FlaggedNodes []string
}

// GenerateMermaid produces a Mermaid flowchart of the tree reachable from rootID.
// Nodes are emitted in depth-first pre-order, children in stored order.
// It applies semantic styling:
// - Start: ((Circle))
// - Branch: {Rhombus}
// - End: ([Stadium])
// - Action: [Rectangle]
// Edges into a node with a branch label carry that label.
func GenerateMermaid(nodes map[string]*domain.Node, rootID string, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	var edges []string
	visited := make(map[string]bool)
	stack := []string{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		node, ok := nodes[id]
		if !ok || node == nil {
			continue
		}
		visited[id] = true

		safeID := sanitizeMermaidID(id)
		opener, closer := shape(node.Type)
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, escapeLabel(node.Label), closer))

		for _, childID := range node.Children {
			child, ok := nodes[childID]
			if !ok || child == nil {
				continue
			}
			arrow := "-->"
			if child.BranchLabel != "" {
				arrow = fmt.Sprintf("-- \"%s\" -->", escapeLabel(child.BranchLabel))
			}
			edges = append(edges, fmt.Sprintf("    %s %s %s\n", safeID, arrow, sanitizeMermaidID(childID)))
		}
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, node.Children[i])
		}
	}

	for _, e := range edges {
		sb.WriteString(e)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text for contrast on light fills, whatever the theme.
		sb.WriteString("    classDef flagged fill:#fff3e0,stroke:#e65100,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef selected fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		flagged := make(map[string]bool)
		for _, id := range overlay.FlaggedNodes {
			safeID := sanitizeMermaidID(id)
			if !flagged[safeID] && safeID != "" && visited[id] {
				flagged[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s flagged;\n", safeID))
			}
		}
		if overlay.SelectedNode != "" && visited[overlay.SelectedNode] {
			sb.WriteString(fmt.Sprintf("    class %s selected;\n", sanitizeMermaidID(overlay.SelectedNode)))
		}
	}

	return sb.String()
}

// GenerateSnapshot renders a snapshot with its selection highlighted.
func GenerateSnapshot(s *domain.Snapshot, flagged []string) string {
	return GenerateMermaid(s.Nodes, s.RootID, &GraphOverlay{
		SelectedNode: s.SelectedNodeID,
		FlaggedNodes: flagged,
	})
}

func shape(t domain.NodeType) (string, string) {
	switch t {
	case domain.NodeTypeStart:
		return "((", "))"
	case domain.NodeTypeBranch:
		return "{", "}"
	case domain.NodeTypeEnd:
		return "([", "])"
	}
	return "[", "]"
}

// escapeLabel swaps double quotes for single ones, which Mermaid accepts inside quoted labels.
func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
