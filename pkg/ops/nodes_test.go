package ops_test

import (
	"math/rand"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clock = domain.FixedClock{T: time.UnixMilli(1700000000000)}

func newStart() *domain.Snapshot {
	return domain.NewSnapshot(clock)
}

// add is a test helper that fails if the add is a no-op and returns the new node id.
func add(t *testing.T, s *domain.Snapshot, ids domain.IDSource, parent string, nt domain.NodeType, label string) (*domain.Snapshot, string) {
	t.Helper()
	next := ops.AddNode(s, parent, nt, label, ids, clock)
	require.NotSame(t, s, next, "add under %s should apply", parent)
	return next, next.SelectedNodeID
}

func TestAddNode(t *testing.T) {
	ids := domain.NewSequenceSource("n")
	s := newStart()

	next := ops.AddNode(s, domain.StartNodeID, domain.NodeTypeAction, "", ids, clock)

	require.NotSame(t, s, next)
	n, ok := next.Node("n-1")
	require.True(t, ok)
	assert.Equal(t, "New Action", n.Label)
	assert.Equal(t, domain.StartNodeID, n.ParentID)
	assert.Empty(t, n.Children)
	assert.Nil(t, n.BranchLabels)
	assert.Equal(t, int64(1700000000000), n.Metadata.CreatedAt)
	assert.Equal(t, []string{"n-1"}, next.Root().Children)
	assert.Equal(t, "n-1", next.SelectedNodeID)
	assert.Equal(t, 1, next.Version)

	// The input is untouched.
	assert.Empty(t, s.Root().Children)
	assert.Equal(t, 0, s.Version)
	assert.Equal(t, 1, s.Len())
}

func TestAddNode_Branch(t *testing.T) {
	ids := domain.NewSequenceSource("n")
	s, id := add(t, newStart(), ids, domain.StartNodeID, domain.NodeTypeBranch, "")

	n, _ := s.Node(id)
	assert.Equal(t, "New Branch", n.Label)
	assert.Equal(t, []string{"True", "False"}, n.BranchLabels)

	s, child := add(t, s, ids, id, domain.NodeTypeEnd, "True")
	c, _ := s.Node(child)
	assert.Equal(t, "True", c.BranchLabel)
}

func TestAddNode_NoOp(t *testing.T) {
	ids := domain.NewSequenceSource("n")
	s, end := add(t, newStart(), ids, domain.StartNodeID, domain.NodeTypeEnd, "")

	t.Run("Missing Parent", func(t *testing.T) {
		assert.Same(t, s, ops.AddNode(s, "ghost", domain.NodeTypeAction, "", ids, clock))
	})

	t.Run("End Parent", func(t *testing.T) {
		assert.Same(t, s, ops.AddNode(s, end, domain.NodeTypeAction, "", ids, clock))
	})

	t.Run("Start Child", func(t *testing.T) {
		assert.Same(t, s, ops.AddNode(s, domain.StartNodeID, domain.NodeTypeStart, "", ids, clock))
	})

	t.Run("Unknown Type", func(t *testing.T) {
		assert.Same(t, s, ops.AddNode(s, domain.StartNodeID, domain.NodeType("loop"), "", ids, clock))
	})
}

func TestDeleteNode_Reconnection(t *testing.T) {
	ids := domain.NewSequenceSource("n")
	s := newStart()
	s, p := add(t, s, ids, domain.StartNodeID, domain.NodeTypeBranch, "")
	s, s1 := add(t, s, ids, p, domain.NodeTypeEnd, "True")
	s, x := add(t, s, ids, p, domain.NodeTypeAction, "False")
	s, c1 := add(t, s, ids, x, domain.NodeTypeEnd, "")
	s, c2 := add(t, s, ids, x, domain.NodeTypeEnd, "other")
	s = ops.SelectNode(s, x)

	next := ops.DeleteNode(s, x)

	require.NotSame(t, s, next)
	_, exists := next.Node(x)
	assert.False(t, exists)

	parent, _ := next.Node(p)
	assert.Equal(t, []string{s1, c1, c2}, parent.Children)
	for _, id := range []string{c1, c2} {
		c, _ := next.Node(id)
		assert.Equal(t, p, c.ParentID)
		assert.Equal(t, "False", c.BranchLabel)
	}
	assert.Empty(t, next.SelectedNodeID)
	assert.Equal(t, s.Version+1, next.Version)

	// The previous snapshot still has the original shape.
	old, _ := s.Node(p)
	assert.Equal(t, []string{s1, x}, old.Children)
	oldChild, _ := s.Node(c2)
	assert.Equal(t, "other", oldChild.BranchLabel)
}

func TestDeleteNode_BranchScenario(t *testing.T) {
	ids := domain.NewSequenceSource("n")
	s := newStart()
	s, a := add(t, s, ids, domain.StartNodeID, domain.NodeTypeAction, "")
	s, b := add(t, s, ids, a, domain.NodeTypeBranch, "")
	s, e1 := add(t, s, ids, b, domain.NodeTypeEnd, "True")
	s, e2 := add(t, s, ids, b, domain.NodeTypeEnd, "False")

	next := ops.DeleteNode(s, b)

	action, _ := next.Node(a)
	assert.Equal(t, []string{e1, e2}, action.Children)
	for _, id := range []string{e1, e2} {
		e, _ := next.Node(id)
		assert.Equal(t, a, e.ParentID)
		assert.Empty(t, e.BranchLabel, "children inherit the deleted branch's own (empty) label")
	}
	assert.Equal(t, 4, next.Len())
}

func TestDeleteNode_NoOp(t *testing.T) {
	s := newStart()
	assert.Same(t, s, ops.DeleteNode(s, "ghost"))
	assert.Same(t, s, ops.DeleteNode(s, domain.StartNodeID))
}

func TestDeleteNode_KeepsSelectionOfOtherNode(t *testing.T) {
	ids := domain.NewSequenceSource("n")
	s, a := add(t, newStart(), ids, domain.StartNodeID, domain.NodeTypeAction, "")
	s, b := add(t, s, ids, domain.StartNodeID, domain.NodeTypeAction, "")
	s = ops.SelectNode(s, b)

	next := ops.DeleteNode(s, a)
	assert.Equal(t, b, next.SelectedNodeID)
}

func TestUpdateNode(t *testing.T) {
	ids := domain.NewSequenceSource("n")
	s, a := add(t, newStart(), ids, domain.StartNodeID, domain.NodeTypeAction, "")

	t.Run("Label", func(t *testing.T) {
		next := ops.UpdateNode(s, a, ops.SetLabel("Send email"))
		n, _ := next.Node(a)
		assert.Equal(t, "Send email", n.Label)
		assert.Equal(t, a, n.ID)
		assert.Equal(t, s.Version+1, next.Version)

		old, _ := s.Node(a)
		assert.Equal(t, "New Action", old.Label)
	})

	t.Run("Truncates Long Labels", func(t *testing.T) {
		long := strings.Repeat("é", domain.MaxLabelLength+10)
		next := ops.UpdateNode(s, a, ops.SetLabel(long))
		n, _ := next.Node(a)
		assert.Equal(t, strings.Repeat("é", domain.MaxLabelLength), n.Label)
	})

	t.Run("Empty Update Still Bumps Version", func(t *testing.T) {
		next := ops.UpdateNode(s, a, ops.NodeUpdate{})
		require.NotSame(t, s, next)
		assert.Equal(t, s.Version+1, next.Version)
	})

	t.Run("Missing Node", func(t *testing.T) {
		assert.Same(t, s, ops.UpdateNode(s, "ghost", ops.SetLabel("x")))
	})

	t.Run("Start Type Is Fixed", func(t *testing.T) {
		start, action := domain.NodeTypeStart, domain.NodeTypeAction
		assert.Same(t, s, ops.UpdateNode(s, a, ops.NodeUpdate{Type: &start}))
		assert.Same(t, s, ops.UpdateNode(s, domain.StartNodeID, ops.NodeUpdate{Type: &action}))

		next := ops.UpdateNode(s, domain.StartNodeID, ops.NodeUpdate{Type: &start})
		assert.NotSame(t, s, next)
	})
}

func TestSelectNode(t *testing.T) {
	ids := domain.NewSequenceSource("n")
	s, a := add(t, newStart(), ids, domain.StartNodeID, domain.NodeTypeAction, "")
	require.Equal(t, a, s.SelectedNodeID)

	assert.Same(t, s, ops.SelectNode(s, a))

	cleared := ops.SelectNode(s, "")
	require.NotSame(t, s, cleared)
	assert.Empty(t, cleared.SelectedNodeID)
	assert.Equal(t, s.Version, cleared.Version)
	assert.Equal(t, a, s.SelectedNodeID)

	// Selection shares the node map: nothing structural changed.
	cleared.Nodes["probe"] = nil
	_, shared := s.Nodes["probe"]
	assert.True(t, shared)
}

func TestBranchLabels(t *testing.T) {
	ids := domain.NewSequenceSource("n")
	s, b := add(t, newStart(), ids, domain.StartNodeID, domain.NodeTypeBranch, "")
	s, a := add(t, s, ids, domain.StartNodeID, domain.NodeTypeAction, "")

	t.Run("Add", func(t *testing.T) {
		next := ops.AddBranchLabel(s, b, "Maybe")
		n, _ := next.Node(b)
		assert.Equal(t, []string{"True", "False", "Maybe"}, n.BranchLabels)
		assert.Equal(t, s.Version+1, next.Version)
	})

	t.Run("Update", func(t *testing.T) {
		next := ops.UpdateBranchLabel(s, b, 1, "No")
		n, _ := next.Node(b)
		assert.Equal(t, []string{"True", "No"}, n.BranchLabels)

		old, _ := s.Node(b)
		assert.Equal(t, []string{"True", "False"}, old.BranchLabels)
	})

	t.Run("Update Past End Pads", func(t *testing.T) {
		next := ops.UpdateBranchLabel(s, b, 3, "Later")
		n, _ := next.Node(b)
		assert.Equal(t, []string{"True", "False", "", "Later"}, n.BranchLabels)
	})

	t.Run("Missing Labels Start From Defaults", func(t *testing.T) {
		bare := ops.UpdateNode(s, b, ops.NodeUpdate{BranchLabels: &[]string{}})
		n, _ := bare.Node(b)
		n.BranchLabels = nil

		next := ops.AddBranchLabel(bare, b, "Maybe")
		got, _ := next.Node(b)
		assert.Equal(t, []string{"True", "False", "Maybe"}, got.BranchLabels)
	})

	t.Run("No-Ops", func(t *testing.T) {
		assert.Same(t, s, ops.AddBranchLabel(s, a, "x"))
		assert.Same(t, s, ops.AddBranchLabel(s, "ghost", "x"))
		assert.Same(t, s, ops.UpdateBranchLabel(s, a, 0, "x"))
		assert.Same(t, s, ops.UpdateBranchLabel(s, b, -1, "x"))
	})
}

func TestOp(t *testing.T) {
	ids := domain.NewSequenceSource("n")
	s := newStart()

	op := ops.Add(domain.StartNodeID, domain.NodeTypeEnd, "", ids, clock)
	assert.Equal(t, ops.NameAdd, op.Name)
	next := op.Run(s)
	assert.Equal(t, 2, next.Len())

	assert.Same(t, next, ops.Delete(domain.StartNodeID).Run(next))
	assert.Same(t, next, ops.Op{Name: "nothing"}.Run(next))
}

// checkTree asserts that every node is reachable from a Start root exactly once
// and that parent and child links agree.
func checkTree(t *testing.T, s *domain.Snapshot) {
	t.Helper()
	root := s.Root()
	require.NotNil(t, root)
	require.Equal(t, domain.NodeTypeStart, root.Type)
	require.Empty(t, root.ParentID)

	seen := map[string]bool{root.ID: true}
	stack := []string{root.ID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n, _ := s.Node(id)
		if n.Type == domain.NodeTypeEnd {
			require.Empty(t, n.Children, "end node %s has children", id)
		}
		for _, c := range n.Children {
			child, ok := s.Node(c)
			require.True(t, ok, "dangling child %s of %s", c, id)
			require.Equal(t, id, child.ParentID)
			require.False(t, seen[c], "node %s reached twice", c)
			require.NotEqual(t, domain.NodeTypeStart, child.Type)
			seen[c] = true
			stack = append(stack, c)
		}
	}
	require.Len(t, seen, s.Len(), "unreachable nodes present")
}

func TestRandomEdits_PreserveTree(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ids := domain.NewSequenceSource("n")
	// Start is drawn too: adding one must always be refused.
	types := []domain.NodeType{domain.NodeTypeStart, domain.NodeTypeAction, domain.NodeTypeBranch, domain.NodeTypeEnd}

	s := newStart()
	for i := 0; i < 2000; i++ {
		keys := make([]string, 0, s.Len())
		for id := range s.Nodes {
			keys = append(keys, id)
		}
		sort.Strings(keys)
		target := keys[rng.Intn(len(keys))]

		var next *domain.Snapshot
		if rng.Intn(3) == 0 {
			next = ops.DeleteNode(s, target)
		} else {
			next = ops.AddNode(s, target, types[rng.Intn(len(types))], "", ids, clock)
		}

		if next == s {
			assert.Equal(t, s.Version, next.Version)
		} else {
			assert.Equal(t, s.Version+1, next.Version)
		}
		s = next
		checkTree(t, s)
	}
}
