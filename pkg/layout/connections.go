package layout

import (
	"sort"

	"github.com/aretw0/arbor/pkg/domain"
)

// Connection is a rendered edge between a parent and one of its children.
type Connection struct {
	ID      string  `json:"id"`
	From    string  `json:"from"`
	To      string  `json:"to"`
	Path    string  `json:"path"`
	Segment Segment `json:"segment"`

	// Label is the child's branch label; LabelX/LabelY is the segment midpoint.
	Label  string  `json:"label,omitempty"`
	LabelX float64 `json:"label_x"`
	LabelY float64 `json:"label_y"`
}

// Connections lists the edges whose two ends both have a position.
// Parents are visited in id order and children in stored order.
func Connections(nodes map[string]*domain.Node, positions Positions) []Connection {
	parents := make([]string, 0, len(positions))
	for id := range positions {
		parents = append(parents, id)
	}
	sort.Strings(parents)

	var out []Connection
	for _, id := range parents {
		parent, ok := nodes[id]
		if !ok || parent == nil {
			continue
		}
		for _, childID := range parent.Children {
			child, ok := nodes[childID]
			if !ok || child == nil {
				continue
			}
			childPos, ok := positions[childID]
			if !ok {
				continue
			}
			seg := ConnectionPoints(positions[id], childPos, parent.Type, child.Type)
			out = append(out, Connection{
				ID:      id + "-" + childID,
				From:    id,
				To:      childID,
				Path:    CurvePath(seg),
				Segment: seg,
				Label:   child.BranchLabel,
				LabelX:  (seg.StartX + seg.EndX) / 2,
				LabelY:  (seg.StartY + seg.EndY) / 2,
			})
		}
	}
	return out
}
