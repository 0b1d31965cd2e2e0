package layout

import (
	"github.com/aretw0/arbor/pkg/domain"
)

// Positions maps node ids to the top-left corner of their footprint.
type Positions map[string]Point

// Compute lays out the tree reachable from rootID.
//
// Every reachable node gets a position; unreachable nodes are absent. Child ids
// that name no node are skipped (no slot, no gap). A child already on the
// current root-to-node path is skipped as well, so malformed cyclic input
// still terminates.
func Compute(nodes map[string]*domain.Node, rootID string) Positions {
	positions := make(Positions)
	if _, ok := lookup(nodes, rootID); !ok {
		return positions
	}
	widths := subtreeWidths(nodes, rootID)
	place(nodes, rootID, widths, positions)
	return positions
}

// ComputeSnapshot lays out a snapshot from its root.
func ComputeSnapshot(s *domain.Snapshot) Positions {
	return Compute(s.Nodes, s.RootID)
}

// SubtreeWidth returns the horizontal footprint of the subtree rooted at id,
// or 0 if id names no node.
func SubtreeWidth(nodes map[string]*domain.Node, id string) float64 {
	if _, ok := lookup(nodes, id); !ok {
		return 0
	}
	return subtreeWidths(nodes, id)[id]
}

func lookup(nodes map[string]*domain.Node, id string) (*domain.Node, bool) {
	n, ok := nodes[id]
	return n, ok && n != nil
}

type widthFrame struct {
	id   string
	next int
}

// subtreeWidths is the post-order pass, with an explicit stack.
// A leaf is as wide as its footprint; an inner node spans its children plus
// the gaps between them, floored at its own footprint.
func subtreeWidths(nodes map[string]*domain.Node, rootID string) map[string]float64 {
	widths := make(map[string]float64)
	onPath := map[string]bool{rootID: true}
	stack := []widthFrame{{id: rootID}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		n := nodes[top.id]

		if top.next < len(n.Children) {
			childID := n.Children[top.next]
			top.next++
			if _, done := widths[childID]; done {
				continue
			}
			if _, ok := lookup(nodes, childID); !ok || onPath[childID] {
				continue
			}
			onPath[childID] = true
			stack = append(stack, widthFrame{id: childID})
			continue
		}

		own := Footprint(n.Type).Width
		total, count := 0.0, 0
		for _, childID := range n.Children {
			w, ok := widths[childID]
			if !ok {
				continue
			}
			total += w
			count++
		}
		if count > 1 {
			total += float64(count-1) * HorizontalGap
		}
		if total < own {
			total = own
		}
		widths[top.id] = total
		delete(onPath, top.id)
		stack = stack[:len(stack)-1]
	}
	return widths
}

type placeFrame struct {
	id      string
	depth   int
	offsetX float64
}

// place is the pre-order pass. The explicit path slice mirrors the recursion
// stack so that cycles can be detected exactly as the recursive form would.
func place(nodes map[string]*domain.Node, rootID string, widths map[string]float64, positions Positions) {
	var path []string
	onPath := make(map[string]bool)
	stack := []placeFrame{{id: rootID}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for len(path) > f.depth {
			delete(onPath, path[len(path)-1])
			path = path[:len(path)-1]
		}
		path = append(path, f.id)
		onPath[f.id] = true

		n := nodes[f.id]
		y := float64(f.depth) * RowPitch

		children := make([]string, 0, len(n.Children))
		for _, childID := range n.Children {
			if _, ok := widths[childID]; !ok || onPath[childID] {
				continue
			}
			children = append(children, childID)
		}

		if len(children) == 0 {
			positions[f.id] = Point{X: f.offsetX, Y: y}
			continue
		}

		childrenWidth := 0.0
		for i, childID := range children {
			childrenWidth += widths[childID]
			if i < len(children)-1 {
				childrenWidth += HorizontalGap
			}
		}
		own := Footprint(n.Type).Width
		positions[f.id] = Point{X: f.offsetX + (childrenWidth-own)/2, Y: y}

		offsets := make([]float64, len(children))
		childX := f.offsetX
		for i, childID := range children {
			offsets[i] = childX
			childX += widths[childID] + HorizontalGap
		}
		// Push in reverse so children are visited left to right.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, placeFrame{id: children[i], depth: f.depth + 1, offsetX: offsets[i]})
		}
	}
}
