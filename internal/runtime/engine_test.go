package runtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clock = domain.FixedClock{T: time.UnixMilli(1700000000000)}

func newEngine(opts ...runtime.Option) (*runtime.Engine, domain.IDSource) {
	return runtime.NewEngine(domain.NewSnapshot(clock), opts...), domain.NewSequenceSource("n")
}

func addAction(ids domain.IDSource, parent string) ops.Op {
	return ops.Add(parent, domain.NodeTypeAction, "", ids, clock)
}

func TestEngine_Apply(t *testing.T) {
	ctx := context.Background()
	e, ids := newEngine()
	initial := e.Current()

	require.True(t, e.Apply(ctx, addAction(ids, domain.StartNodeID)))

	assert.Equal(t, 2, e.HistoryLen())
	assert.Equal(t, 1, e.Index())
	assert.Equal(t, 1, e.Version())
	assert.True(t, e.CanUndo())
	assert.False(t, e.CanRedo())

	first, ok := e.At(0)
	require.True(t, ok)
	assert.Same(t, initial, first)
}

func TestEngine_NoOpLeavesHistory(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	before := e.Current()

	assert.False(t, e.Apply(ctx, ops.Delete(domain.StartNodeID)))
	assert.False(t, e.Apply(ctx, ops.Delete("ghost")))
	assert.False(t, e.Apply(ctx, ops.Op{Name: "empty"}))

	assert.Same(t, before, e.Current())
	assert.Equal(t, 1, e.HistoryLen())
	assert.Equal(t, 0, e.Index())
}

func TestEngine_UndoRedoInverse(t *testing.T) {
	ctx := context.Background()
	e, ids := newEngine()

	var seen []*domain.Snapshot
	seen = append(seen, e.Current())
	parent := domain.StartNodeID
	for i := 0; i < 5; i++ {
		require.True(t, e.Apply(ctx, addAction(ids, parent)))
		parent = e.Current().SelectedNodeID
		seen = append(seen, e.Current())
	}

	for i := len(seen) - 1; i > 0; i-- {
		pre := e.Current()
		require.True(t, e.Undo(ctx))
		assert.Same(t, seen[i-1], e.Current())
		require.True(t, e.Redo(ctx))
		assert.Same(t, pre, e.Current())
		require.True(t, e.Undo(ctx))
	}

	assert.False(t, e.Undo(ctx), "undo at index 0 is a no-op")
	assert.Same(t, seen[0], e.Current())

	for e.Redo(ctx) {
	}
	assert.Same(t, seen[len(seen)-1], e.Current())
	assert.False(t, e.Redo(ctx), "redo at the end is a no-op")
}

func TestEngine_ApplyDiscardsRedoTail(t *testing.T) {
	ctx := context.Background()
	e, ids := newEngine()

	require.True(t, e.Apply(ctx, addAction(ids, domain.StartNodeID)))
	require.True(t, e.Apply(ctx, addAction(ids, domain.StartNodeID)))
	require.True(t, e.Undo(ctx))
	require.True(t, e.CanRedo())

	require.True(t, e.Apply(ctx, ops.Add(domain.StartNodeID, domain.NodeTypeEnd, "", ids, clock)))

	assert.False(t, e.CanRedo())
	assert.Equal(t, 3, e.HistoryLen())
	assert.Equal(t, 2, e.Index())
	_, hasSecond := e.Current().Node("n-2")
	assert.False(t, hasSecond)
}

func TestEngine_HistoryBound(t *testing.T) {
	ctx := context.Background()
	e, ids := newEngine()

	const edits = domain.MaxHistory + 25
	for i := 0; i < edits; i++ {
		require.True(t, e.Apply(ctx, addAction(ids, domain.StartNodeID)))
	}

	assert.Equal(t, domain.MaxHistory, e.HistoryLen())
	assert.Equal(t, domain.MaxHistory-1, e.Index())
	assert.Equal(t, edits, e.Version())

	undos := 0
	for e.Undo(ctx) {
		undos++
	}
	assert.Equal(t, domain.MaxHistory-1, undos)
	assert.Equal(t, edits-domain.MaxHistory+1, e.Version(), "only the most recent snapshots are retained")
}

func TestEngine_HistoryLimitOption(t *testing.T) {
	ctx := context.Background()
	e, ids := newEngine(runtime.WithHistoryLimit(3), runtime.WithHistoryLimit(0))

	for i := 0; i < 5; i++ {
		e.Apply(ctx, addAction(ids, domain.StartNodeID))
	}
	assert.Equal(t, 3, e.HistoryLen())
}

func TestEngine_Select(t *testing.T) {
	ctx := context.Background()
	e, ids := newEngine()
	require.True(t, e.Apply(ctx, addAction(ids, domain.StartNodeID)))
	before := e.Current()

	require.True(t, e.Select(ctx, domain.StartNodeID))

	cur := e.Current()
	assert.Equal(t, domain.StartNodeID, cur.SelectedNodeID)
	assert.Equal(t, before.Version, cur.Version)
	assert.Equal(t, 2, e.HistoryLen())
	assert.Equal(t, 1, e.Index())

	assert.False(t, e.Select(ctx, domain.StartNodeID))

	// Undo then redo returns to the slot that holds the new selection.
	require.True(t, e.Undo(ctx))
	require.True(t, e.Redo(ctx))
	assert.Same(t, cur, e.Current())
}

func TestEngine_Load(t *testing.T) {
	ctx := context.Background()
	e, ids := newEngine()
	require.True(t, e.Apply(ctx, addAction(ids, domain.StartNodeID)))
	require.True(t, e.Apply(ctx, addAction(ids, domain.StartNodeID)))

	doc := &domain.Document{
		Nodes: map[string]*domain.Node{
			"root": {ID: "root", Type: domain.NodeTypeStart, Label: "Begin", Children: []string{}},
		},
		RootID: "root",
	}
	s := doc.Snapshot()
	s.SelectedNodeID = "root"

	e.Load(ctx, s)

	cur := e.Current()
	assert.Equal(t, "root", cur.RootID)
	assert.Empty(t, cur.SelectedNodeID)
	assert.Equal(t, 3, cur.Version)
	assert.Equal(t, 1, e.HistoryLen())
	assert.False(t, e.CanUndo())
	assert.False(t, e.CanRedo())
	assert.Equal(t, "root", s.SelectedNodeID, "the argument is not modified")
}

func TestEngine_Hooks(t *testing.T) {
	ctx := context.Background()
	var events []domain.EditEvent
	record := func(_ context.Context, ev *domain.EditEvent) { events = append(events, *ev) }

	e, ids := newEngine(runtime.WithHooks(domain.EditHooks{
		OnApply:  record,
		OnNoop:   record,
		OnUndo:   record,
		OnRedo:   record,
		OnLoad:   record,
		OnSelect: record,
	}))

	e.Apply(ctx, addAction(ids, domain.StartNodeID))
	e.Apply(ctx, ops.Delete("ghost"))
	e.Select(ctx, "")
	e.Undo(ctx)
	e.Redo(ctx)
	e.Load(ctx, domain.NewSnapshot(clock))

	require.Len(t, events, 6)
	types := make([]domain.EditEventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	assert.Equal(t, []domain.EditEventType{
		domain.EventApply, domain.EventNoop, domain.EventSelect,
		domain.EventUndo, domain.EventRedo, domain.EventLoad,
	}, types)

	assert.Equal(t, ops.NameAdd, events[0].Op)
	assert.Equal(t, 1, events[0].Version)
	assert.Equal(t, 2, events[0].HistoryLen)
	assert.Equal(t, 0, events[0].Before.Version)
	assert.Same(t, events[1].Before, events[1].After)
	assert.Equal(t, 0, events[3].Index)
	assert.Equal(t, 2, events[5].Version)
}

func TestEngine_HookMayReenter(t *testing.T) {
	ctx := context.Background()
	var e *runtime.Engine
	var observed int
	e, ids := newEngine(runtime.WithHooks(domain.EditHooks{
		OnApply: func(context.Context, *domain.EditEvent) { observed = e.Version() },
	}))

	e.Apply(ctx, addAction(ids, domain.StartNodeID))
	assert.Equal(t, 1, observed)
}

func TestEngine_NilInitial(t *testing.T) {
	e := runtime.NewEngine(nil)
	require.NotNil(t, e.Current().Root())
	assert.Equal(t, domain.StartNodeID, e.Current().RootID)
}
