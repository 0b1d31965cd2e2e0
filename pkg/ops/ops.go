package ops

import "github.com/aretw0/arbor/pkg/domain"

// Op is a named edit. The name is reported to hooks, logs and metrics.
type Op struct {
	Name string
	Fn   func(*domain.Snapshot) *domain.Snapshot
}

// Run applies the operation. A nil Fn is a no-op.
func (o Op) Run(s *domain.Snapshot) *domain.Snapshot {
	if o.Fn == nil {
		return s
	}
	return o.Fn(s)
}

func (o Op) String() string { return o.Name }

// Operation names.
const (
	NameAdd               = "add_node"
	NameDelete            = "delete_node"
	NameUpdate            = "update_node"
	NameAddBranchLabel    = "add_branch_label"
	NameUpdateBranchLabel = "update_branch_label"
)

// Add returns an Op that appends a new node of type t under parentID.
func Add(parentID string, t domain.NodeType, branchLabel string, ids domain.IDSource, clock domain.Clock) Op {
	return Op{
		Name: NameAdd,
		Fn: func(s *domain.Snapshot) *domain.Snapshot {
			return AddNode(s, parentID, t, branchLabel, ids, clock)
		},
	}
}

// Delete returns an Op that removes nodeID and reconnects its children.
func Delete(nodeID string) Op {
	return Op{
		Name: NameDelete,
		Fn: func(s *domain.Snapshot) *domain.Snapshot {
			return DeleteNode(s, nodeID)
		},
	}
}

// Update returns an Op that merges u into nodeID.
func Update(nodeID string, u NodeUpdate) Op {
	return Op{
		Name: NameUpdate,
		Fn: func(s *domain.Snapshot) *domain.Snapshot {
			return UpdateNode(s, nodeID, u)
		},
	}
}

// AddLabel returns an Op that appends a branch label.
func AddLabel(nodeID, label string) Op {
	return Op{
		Name: NameAddBranchLabel,
		Fn: func(s *domain.Snapshot) *domain.Snapshot {
			return AddBranchLabel(s, nodeID, label)
		},
	}
}

// UpdateLabel returns an Op that replaces the branch label at index.
func UpdateLabel(nodeID string, index int, label string) Op {
	return Op{
		Name: NameUpdateBranchLabel,
		Fn: func(s *domain.Snapshot) *domain.Snapshot {
			return UpdateBranchLabel(s, nodeID, index, label)
		},
	}
}
