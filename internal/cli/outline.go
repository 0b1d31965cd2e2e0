package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/layout"
)

// Outline renders the tree reachable from the root as an indented list.
// The selected node is marked with '*'. A child already printed (a cycle
// or a shared child) is shown once more as a reference and not expanded.
func Outline(s *domain.Snapshot) string {
	var sb strings.Builder
	printed := make(map[string]bool)

	type frame struct {
		id    string
		depth int
	}
	stack := []frame{{id: s.RootID}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		indent := strings.Repeat("  ", f.depth)
		n, ok := s.Node(f.id)
		if !ok {
			fmt.Fprintf(&sb, "%s? %s (missing)\n", indent, f.id)
			continue
		}
		if printed[f.id] {
			fmt.Fprintf(&sb, "%s^ %s\n", indent, f.id)
			continue
		}
		printed[f.id] = true

		mark := "-"
		if f.id == s.SelectedNodeID {
			mark = "*"
		}
		edge := ""
		if n.BranchLabel != "" {
			edge = fmt.Sprintf("[%s] ", n.BranchLabel)
		}
		fmt.Fprintf(&sb, "%s%s %s%s (%s, %s)\n", indent, mark, edge, n.Label, n.Type, n.ID)

		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: n.Children[i], depth: f.depth + 1})
		}
	}
	return sb.String()
}

// PositionTable lists node positions sorted by id.
func PositionTable(positions layout.Positions) string {
	ids := make([]string, 0, len(positions))
	for id := range positions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var sb strings.Builder
	for _, id := range ids {
		p := positions[id]
		fmt.Fprintf(&sb, "%-24s x=%-8g y=%g\n", id, p.X, p.Y)
	}
	return sb.String()
}
