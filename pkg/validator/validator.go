// Package validator runs advisory checks over a workflow tree.
//
// Nothing here mutates a snapshot or blocks an edit. Results are diagnostics
// for the presentation layer (CLI report, HTTP and MCP responses).
package validator

import (
	"fmt"
	"sort"

	"github.com/aretw0/arbor/pkg/domain"
)

// WarningType classifies a diagnostic.
type WarningType string

const (
	// TypeOrphaned marks a non-End leaf: its path never completes.
	TypeOrphaned WarningType = "orphaned"
	// TypeIncompleteBranch marks a Branch with fewer than two children.
	TypeIncompleteBranch WarningType = "incomplete-branch"
	// TypeCircular is reported once when a cycle is reachable from the root.
	TypeCircular WarningType = "circular"
)

// Severity of a diagnostic.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Warning is one diagnostic. NodeID is empty for workflow-wide findings.
type Warning struct {
	NodeID   string      `json:"nodeId,omitempty"`
	Type     WarningType `json:"type"`
	Message  string      `json:"message"`
	Severity Severity    `json:"severity"`
}

// PathResult is the outcome of HasPathToEnd.
type PathResult struct {
	HasEnd   bool `json:"hasEnd"`
	Circular bool `json:"circular"`
}

type pathFrame struct {
	id   string
	next int
}

// HasPathToEnd walks every path below id and reports whether any of them
// reaches an End node, and whether a node was revisited on the path leading to it.
//
// Reconvergent paths (the same id under two parents) are not cycles: only the
// ids on the current path are tracked. The walk is exhaustive so cycles are
// found even after an End was seen. Missing ids count as dead ends.
func HasPathToEnd(nodes map[string]*domain.Node, id string) PathResult {
	var (
		res    PathResult
		stack  []pathFrame
		onPath = make(map[string]bool)
	)

	enter := func(id string) {
		if onPath[id] {
			res.Circular = true
			return
		}
		n, ok := nodes[id]
		if !ok || n == nil {
			return
		}
		if n.Type == domain.NodeTypeEnd {
			res.HasEnd = true
			return
		}
		if len(n.Children) == 0 {
			return
		}
		onPath[id] = true
		stack = append(stack, pathFrame{id: id})
	}

	enter(id)
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		children := nodes[top.id].Children
		if top.next >= len(children) {
			delete(onPath, top.id)
			stack = stack[:len(stack)-1]
			continue
		}
		child := children[top.next]
		top.next++
		enter(child)
	}
	return res
}

// Validate returns the diagnostics for a workflow, ordered by node id.
// A circular finding, if any, comes last.
func Validate(nodes map[string]*domain.Node, rootID string) []Warning {
	ids := make([]string, 0, len(nodes))
	for id, n := range nodes {
		if n != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var warnings []Warning
	for _, id := range ids {
		n := nodes[id]
		if n.Type == domain.NodeTypeStart {
			continue
		}
		if n.Type != domain.NodeTypeEnd && len(n.Children) == 0 {
			warnings = append(warnings, Warning{
				NodeID:   n.ID,
				Type:     TypeOrphaned,
				Message:  fmt.Sprintf(`"%s" has no path to completion`, n.Label),
				Severity: SeverityWarning,
			})
		}
		if n.Type == domain.NodeTypeBranch && len(n.Children) < 2 {
			warnings = append(warnings, Warning{
				NodeID:   n.ID,
				Type:     TypeIncompleteBranch,
				Message:  fmt.Sprintf(`Branch "%s" needs at least 2 paths`, n.Label),
				Severity: SeverityWarning,
			})
		}
	}

	if HasPathToEnd(nodes, rootID).Circular {
		warnings = append(warnings, Warning{
			Type:     TypeCircular,
			Message:  "Circular dependency detected in workflow",
			Severity: SeverityError,
		})
	}
	return warnings
}

// ValidateSnapshot is Validate over a snapshot.
func ValidateSnapshot(s *domain.Snapshot) []Warning {
	return Validate(s.Nodes, s.RootID)
}

// IsComplete reports whether at least one End node exists anywhere.
func IsComplete(nodes map[string]*domain.Node) bool {
	for _, n := range nodes {
		if n != nil && n.Type == domain.NodeTypeEnd {
			return true
		}
	}
	return false
}

// ReachableNodes returns the ids reachable from rootID through children links.
// Dangling child ids are included: they are reachable, just not resolvable.
func ReachableNodes(nodes map[string]*domain.Node, rootID string) map[string]struct{} {
	reachable := make(map[string]struct{})
	queue := []string{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, seen := reachable[id]; seen {
			continue
		}
		reachable[id] = struct{}{}
		if n, ok := nodes[id]; ok && n != nil {
			queue = append(queue, n.Children...)
		}
	}
	return reachable
}
