package domain

import (
	"encoding/json"
	"strings"
)

// NodeType defines the role of a node in the workflow tree.
type NodeType string

const (
	// NodeTypeStart is the root of every workflow. It is never deletable and never a child.
	NodeTypeStart NodeType = "start"
	// NodeTypeAction is a plain step.
	NodeTypeAction NodeType = "action"
	// NodeTypeBranch fans out into labelled paths.
	NodeTypeBranch NodeType = "branch"
	// NodeTypeEnd terminates a path. It never has children.
	NodeTypeEnd NodeType = "end"
)

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeStart, NodeTypeAction, NodeTypeBranch, NodeTypeEnd:
		return true
	}
	return false
}

// Title returns the capitalized type name, e.g. "Branch".
func (t NodeType) Title() string {
	s := string(t)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseNodeType converts user input (case-insensitive) into a NodeType.
func ParseNodeType(s string) (NodeType, bool) {
	t := NodeType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

// ParseChildType is ParseNodeType limited to the types that may be added
// under a parent. Start is only ever the root.
func ParseChildType(s string) (NodeType, bool) {
	t, ok := ParseNodeType(s)
	return t, ok && t != NodeTypeStart
}

// NodeMetadata holds bookkeeping data that does not affect the tree shape.
type NodeMetadata struct {
	// CreatedAt is the creation time in milliseconds since the Unix epoch.
	CreatedAt int64 `json:"createdAt" yaml:"createdAt" mapstructure:"createdAt"`
}

// Node represents a vertex in the workflow tree.
type Node struct {
	ID    string   `json:"id" yaml:"id"`
	Type  NodeType `json:"type" yaml:"type"`
	Label string   `json:"label" yaml:"label"`

	// Children is ordered: it is the left-to-right rendering order.
	Children []string `json:"children" yaml:"children"`

	// ParentID is empty for the root.
	ParentID string `json:"parentId" yaml:"parentId,omitempty"`

	// BranchLabel tags the edge from the parent to this node.
	BranchLabel string `json:"branchLabel,omitempty" yaml:"branchLabel,omitempty"`

	// BranchLabels are owned by Branch nodes, one per outgoing edge.
	BranchLabels []string `json:"branchLabels,omitempty" yaml:"branchLabels,omitempty"`

	Metadata NodeMetadata `json:"metadata" yaml:"metadata"`
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Clone returns a deep copy of the node. Slices are never shared with the original.
func (n *Node) Clone() *Node {
	c := *n
	c.Children = append(make([]string, 0, len(n.Children)), n.Children...)
	if n.BranchLabels != nil {
		c.BranchLabels = append(make([]string, 0, len(n.BranchLabels)), n.BranchLabels...)
	}
	return &c
}

// nodeJSON mirrors Node but renders an empty ParentID as null.
type nodeJSON struct {
	ID           string       `json:"id"`
	Type         NodeType     `json:"type"`
	Label        string       `json:"label"`
	Children     []string     `json:"children"`
	ParentID     *string      `json:"parentId"`
	BranchLabel  string       `json:"branchLabel,omitempty"`
	BranchLabels []string     `json:"branchLabels,omitempty"`
	Metadata     NodeMetadata `json:"metadata"`
}

// MarshalJSON encodes the root's missing parent as null, matching the document format.
func (n Node) MarshalJSON() ([]byte, error) {
	out := nodeJSON{
		ID:           n.ID,
		Type:         n.Type,
		Label:        n.Label,
		Children:     n.Children,
		BranchLabel:  n.BranchLabel,
		BranchLabels: n.BranchLabels,
		Metadata:     n.Metadata,
	}
	if out.Children == nil {
		out.Children = []string{}
	}
	if n.ParentID != "" {
		out.ParentID = &n.ParentID
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts null or a missing parentId for the root.
func (n *Node) UnmarshalJSON(data []byte) error {
	var in nodeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*n = Node{
		ID:           in.ID,
		Type:         in.Type,
		Label:        in.Label,
		Children:     in.Children,
		BranchLabel:  in.BranchLabel,
		BranchLabels: in.BranchLabels,
		Metadata:     in.Metadata,
	}
	if in.ParentID != nil {
		n.ParentID = *in.ParentID
	}
	if n.Children == nil {
		n.Children = []string{}
	}
	return nil
}
