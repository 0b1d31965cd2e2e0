package ops

import (
	"unicode/utf8"

	"github.com/aretw0/arbor/pkg/domain"
)

// AddNode creates a child of parentID and selects it.
// It is a no-op if the parent does not exist or is an End node, and for a
// Start or unknown nodeType.
func AddNode(s *domain.Snapshot, parentID string, nodeType domain.NodeType, branchLabel string, ids domain.IDSource, clock domain.Clock) *domain.Snapshot {
	if !nodeType.Valid() || nodeType == domain.NodeTypeStart {
		return s
	}
	parent, ok := s.Node(parentID)
	if !ok || parent.Type == domain.NodeTypeEnd {
		return s
	}
	if ids == nil {
		ids = domain.UUIDSource{}
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}

	node := &domain.Node{
		ID:          ids.NewID(),
		Type:        nodeType,
		Label:       "New " + nodeType.Title(),
		Children:    []string{},
		ParentID:    parentID,
		BranchLabel: branchLabel,
		Metadata:    domain.NodeMetadata{CreatedAt: clock.Now().UnixMilli()},
	}
	if nodeType == domain.NodeTypeBranch {
		node.BranchLabels = domain.DefaultBranchLabels()
	}

	next := s.Clone()
	p := parent.Clone()
	p.Children = append(p.Children, node.ID)
	next.Nodes[parentID] = p
	next.Nodes[node.ID] = node
	next.SelectedNodeID = node.ID
	next.Version = s.Version + 1
	return next
}

// DeleteNode removes a node and reconnects its children to its parent.
//
// The parent keeps its remaining children in order, followed by the deleted
// node's children in order. Each reconnected child is re-parented and takes
// the deleted node's BranchLabel (possibly empty).
// It is a no-op if the node does not exist or is the Start node.
func DeleteNode(s *domain.Snapshot, nodeID string) *domain.Snapshot {
	node, ok := s.Node(nodeID)
	if !ok || node.Type == domain.NodeTypeStart {
		return s
	}

	next := s.Clone()
	if parent, ok := s.Node(node.ParentID); ok {
		p := parent.Clone()
		kept := p.Children[:0]
		for _, id := range p.Children {
			if id != nodeID {
				kept = append(kept, id)
			}
		}
		p.Children = append(kept, node.Children...)
		next.Nodes[p.ID] = p

		for _, childID := range node.Children {
			child, ok := s.Node(childID)
			if !ok {
				continue
			}
			c := child.Clone()
			c.ParentID = p.ID
			c.BranchLabel = node.BranchLabel
			next.Nodes[childID] = c
		}
	}

	delete(next.Nodes, nodeID)
	if s.SelectedNodeID == nodeID {
		next.SelectedNodeID = ""
	}
	next.Version = s.Version + 1
	return next
}

// UpdateNode shallow-merges the non-nil fields of u into the node.
// Labels are truncated to domain.MaxLabelLength runes.
// It is a no-op if the node does not exist, or if the update would turn a
// node into a Start node or a Start node into something else.
func UpdateNode(s *domain.Snapshot, nodeID string, u NodeUpdate) *domain.Snapshot {
	node, ok := s.Node(nodeID)
	if !ok {
		return s
	}
	if u.Type != nil && (*u.Type == domain.NodeTypeStart) != (node.Type == domain.NodeTypeStart) {
		return s
	}

	n := node.Clone()
	u.apply(n)

	next := s.Clone()
	next.Nodes[nodeID] = n
	next.Version = s.Version + 1
	return next
}

// SelectNode sets the UI focus. An empty id clears it.
// The version is left untouched and the node map is shared with s,
// since selection is neither structural nor content.
func SelectNode(s *domain.Snapshot, nodeID string) *domain.Snapshot {
	if s.SelectedNodeID == nodeID {
		return s
	}
	next := *s
	next.SelectedNodeID = nodeID
	return &next
}

// AddBranchLabel appends a label to a Branch node.
// It is a no-op if the node does not exist or is not a Branch.
func AddBranchLabel(s *domain.Snapshot, nodeID, label string) *domain.Snapshot {
	node, ok := s.Node(nodeID)
	if !ok || node.Type != domain.NodeTypeBranch {
		return s
	}

	n := node.Clone()
	if n.BranchLabels == nil {
		n.BranchLabels = domain.DefaultBranchLabels()
	}
	n.BranchLabels = append(n.BranchLabels, label)

	next := s.Clone()
	next.Nodes[nodeID] = n
	next.Version = s.Version + 1
	return next
}

// UpdateBranchLabel replaces the label at index on a Branch node.
// An index past the end pads the list with empty labels.
// It is a no-op if the node does not exist, is not a Branch, or index is negative.
func UpdateBranchLabel(s *domain.Snapshot, nodeID string, index int, label string) *domain.Snapshot {
	node, ok := s.Node(nodeID)
	if !ok || node.Type != domain.NodeTypeBranch || index < 0 {
		return s
	}

	n := node.Clone()
	if n.BranchLabels == nil {
		n.BranchLabels = domain.DefaultBranchLabels()
	}
	for len(n.BranchLabels) <= index {
		n.BranchLabels = append(n.BranchLabels, "")
	}
	n.BranchLabels[index] = label

	next := s.Clone()
	next.Nodes[nodeID] = n
	next.Version = s.Version + 1
	return next
}

// TruncateLabel cuts a label to domain.MaxLabelLength runes.
func TruncateLabel(label string) string {
	if utf8.RuneCountInString(label) <= domain.MaxLabelLength {
		return label
	}
	return string([]rune(label)[:domain.MaxLabelLength])
}
