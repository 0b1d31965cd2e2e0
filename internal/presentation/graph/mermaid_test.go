package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

func approvalFlow() map[string]*domain.Node {
	return map[string]*domain.Node{
		"start-node": {ID: "start-node", Type: domain.NodeTypeStart, Label: "Start", Children: []string{"review"}},
		"review":     {ID: "review", Type: domain.NodeTypeAction, Label: "Review \"draft\"", Children: []string{"ok"}, ParentID: "start-node"},
		"ok": {
			ID: "ok", Type: domain.NodeTypeBranch, Label: "Approved?", Children: []string{"ship", "fix"},
			ParentID: "review", BranchLabels: []string{"Yes", "No"},
		},
		"ship":   {ID: "ship", Type: domain.NodeTypeEnd, Label: "Ship it", Children: []string{}, ParentID: "ok", BranchLabel: "Yes"},
		"fix":    {ID: "fix", Type: domain.NodeTypeAction, Label: "Fix", Children: []string{}, ParentID: "ok", BranchLabel: "No"},
		"island": {ID: "island", Type: domain.NodeTypeEnd, Label: "Unreachable", Children: []string{}},
	}
}

func TestGenerateMermaid_Golden(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))

	got := graph.GenerateMermaid(approvalFlow(), "start-node", &graph.GraphOverlay{
		SelectedNode: "ok",
		FlaggedNodes: []string{"fix", "fix", "island"},
	})

	g.Assert(t, "approval", []byte(got))
}

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		nodes    map[string]*domain.Node
		contains []string
		excludes []string
	}{
		{
			name: "Node Shapes",
			nodes: map[string]*domain.Node{
				"s": {ID: "s", Type: domain.NodeTypeStart, Label: "S", Children: []string{"a", "b", "e"}},
				"a": {ID: "a", Type: domain.NodeTypeAction, Label: "A"},
				"b": {ID: "b", Type: domain.NodeTypeBranch, Label: "B"},
				"e": {ID: "e", Type: domain.NodeTypeEnd, Label: "E"},
			},
			contains: []string{`s(("S"))`, `a["A"]`, `b{"B"}`, `e(["E"])`},
		},
		{
			name: "ID Sanitization",
			nodes: map[string]*domain.Node{
				"s":          {ID: "s", Type: domain.NodeTypeStart, Label: "S", Children: []string{"node-1.a/b"}},
				"node-1.a/b": {ID: "node-1.a/b", Type: domain.NodeTypeEnd, Label: "E"},
			},
			contains: []string{`node_1_a_b(["E"])`, "s --> node_1_a_b"},
		},
		{
			name: "Dangling And Cyclic Children",
			nodes: map[string]*domain.Node{
				"s": {ID: "s", Type: domain.NodeTypeStart, Label: "S", Children: []string{"a", "ghost"}},
				"a": {ID: "a", Type: domain.NodeTypeAction, Label: "A", Children: []string{"s"}},
			},
			contains: []string{"s --> a", "a --> s"},
			excludes: []string{"ghost"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.nodes, "s", nil)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, got, unwanted)
			}
			assert.False(t, strings.Contains(got, "Overlay"), "no overlay requested")
		})
	}
}
