package domain

// Snapshot is the state of the workflow tree at one point in edit history.
//
// Snapshots are immutable by convention: once a Snapshot is handed to the
// editor history it is never modified. Operations build a new Snapshot,
// copying the node map and only the nodes they touch.
type Snapshot struct {
	Nodes          map[string]*Node `json:"nodes"`
	RootID         string           `json:"rootId"`
	SelectedNodeID string           `json:"selectedNodeId,omitempty"`

	// Version is incremented on every structural or content change.
	// Selection changes do not touch it.
	Version int `json:"version"`
}

// NewSnapshot creates the initial workflow: a single Start node.
func NewSnapshot(clock Clock) *Snapshot {
	if clock == nil {
		clock = SystemClock{}
	}
	root := &Node{
		ID:       StartNodeID,
		Type:     NodeTypeStart,
		Label:    StartLabel,
		Children: []string{},
		Metadata: NodeMetadata{CreatedAt: clock.Now().UnixMilli()},
	}
	return &Snapshot{
		Nodes:  map[string]*Node{root.ID: root},
		RootID: root.ID,
	}
}

// Node looks up a node by id.
func (s *Snapshot) Node(id string) (*Node, bool) {
	n, ok := s.Nodes[id]
	return n, ok && n != nil
}

// Root returns the root node, or nil if the root id is dangling.
func (s *Snapshot) Root() *Node {
	n, _ := s.Node(s.RootID)
	return n
}

// Selected returns the selected node, if any.
func (s *Snapshot) Selected() (*Node, bool) {
	if s.SelectedNodeID == "" {
		return nil, false
	}
	return s.Node(s.SelectedNodeID)
}

// Clone returns a shallow copy: a new node map sharing the node pointers.
// Callers replace the nodes they modify with Node.Clone() copies.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.Nodes = make(map[string]*Node, len(s.Nodes))
	for id, n := range s.Nodes {
		c.Nodes[id] = n
	}
	return &c
}

// Len returns the number of nodes.
func (s *Snapshot) Len() int {
	return len(s.Nodes)
}
