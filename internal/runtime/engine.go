package runtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ops"
)

// Engine is the undo/redo state machine.
//
// Thread-safety: every method is a critical section guarded by a mutex, so
// read-current/compute-next/commit never interleaves between writers. Hooks
// run after the lock is released and may call back into the Engine.
type Engine struct {
	mu      sync.Mutex
	history []*domain.Snapshot
	index   int

	limit  int
	logger *slog.Logger
	hooks  domain.EditHooks
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.EditHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithHistoryLimit bounds the history length (default domain.MaxHistory).
// Values below 1 are ignored.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.limit = n
		}
	}
}

// NewEngine creates an engine whose history holds only initial.
// A nil initial snapshot starts from the single-Start workflow.
func NewEngine(initial *domain.Snapshot, opts ...Option) *Engine {
	e := &Engine{
		limit: domain.MaxHistory,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if initial == nil {
		initial = domain.NewSnapshot(nil)
	}
	e.history = []*domain.Snapshot{initial}
	return e
}

// Apply runs op against the current snapshot.
// It returns true when the result was committed as a new history entry.
func (e *Engine) Apply(ctx context.Context, op ops.Op) bool {
	e.mu.Lock()
	cur := e.history[e.index]
	next := op.Run(cur)
	if next == nil || next == cur {
		ev := e.event(domain.EventNoop, op.Name, cur, cur)
		e.mu.Unlock()

		e.logger.DebugContext(ctx, "edit ignored", "op", op.Name, "version", cur.Version)
		e.hooks.Fire(ctx, ev)
		return false
	}

	e.push(next)
	ev := e.event(domain.EventApply, op.Name, cur, next)
	e.mu.Unlock()

	e.logger.DebugContext(ctx, "edit applied", "op", op.Name, "version", next.Version, "index", ev.Index, "history_len", ev.HistoryLen)
	e.hooks.Fire(ctx, ev)
	return true
}

// push truncates the redo tail, appends s and enforces the history bound.
// Callers hold e.mu.
func (e *Engine) push(s *domain.Snapshot) {
	h := append(e.history[:e.index+1:e.index+1], s)
	if over := len(h) - e.limit; over > 0 {
		h = append([]*domain.Snapshot(nil), h[over:]...)
	}
	e.history = h
	e.index = len(h) - 1
}

// Select changes the focused node. An empty id clears the selection.
// The current history slot is replaced in place: no entry is added and the
// version does not change. It returns false if the selection was already id.
func (e *Engine) Select(ctx context.Context, nodeID string) bool {
	e.mu.Lock()
	cur := e.history[e.index]
	next := ops.SelectNode(cur, nodeID)
	if next == cur {
		e.mu.Unlock()
		return false
	}
	e.history[e.index] = next
	ev := e.event(domain.EventSelect, "select_node", cur, next)
	e.mu.Unlock()

	e.hooks.Fire(ctx, ev)
	return true
}

// Undo moves the cursor one entry back. It returns whether it moved.
func (e *Engine) Undo(ctx context.Context) bool {
	return e.move(ctx, -1, domain.EventUndo)
}

// Redo moves the cursor one entry forward. It returns whether it moved.
func (e *Engine) Redo(ctx context.Context) bool {
	return e.move(ctx, 1, domain.EventRedo)
}

func (e *Engine) move(ctx context.Context, delta int, typ domain.EditEventType) bool {
	e.mu.Lock()
	target := e.index + delta
	if target < 0 || target >= len(e.history) {
		e.mu.Unlock()
		return false
	}
	cur := e.history[e.index]
	e.index = target
	ev := e.event(typ, "", cur, e.history[target])
	e.mu.Unlock()

	e.logger.DebugContext(ctx, "history moved", "direction", string(typ), "index", ev.Index, "version", ev.Version)
	e.hooks.Fire(ctx, ev)
	return true
}

// Load replaces the state with s and resets the history to it.
//
// s is committed with a version one past the current one and no selection,
// so observers keyed on the version always see the load as a change.
func (e *Engine) Load(ctx context.Context, s *domain.Snapshot) {
	e.mu.Lock()
	cur := e.history[e.index]
	loaded := *s
	loaded.SelectedNodeID = ""
	loaded.Version = cur.Version + 1
	e.history = []*domain.Snapshot{&loaded}
	e.index = 0
	ev := e.event(domain.EventLoad, "load", cur, &loaded)
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "workflow loaded", "nodes", loaded.Len(), "root", loaded.RootID, "version", loaded.Version)
	e.hooks.Fire(ctx, ev)
}

// Current returns the displayed snapshot. It must not be modified.
func (e *Engine) Current() *domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history[e.index]
}

// Version returns the edit counter of the displayed snapshot.
func (e *Engine) Version() int {
	return e.Current().Version
}

// CanUndo reports whether Undo would move.
func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index > 0
}

// CanRedo reports whether Redo would move.
func (e *Engine) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index < len(e.history)-1
}

// Index returns the history cursor.
func (e *Engine) Index() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index
}

// HistoryLen returns the number of retained snapshots.
func (e *Engine) HistoryLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.history)
}

// At returns the snapshot at history position i, for inspection.
func (e *Engine) At(i int) (*domain.Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.history) {
		return nil, false
	}
	return e.history[i], true
}

func (e *Engine) event(typ domain.EditEventType, op string, before, after *domain.Snapshot) *domain.EditEvent {
	return &domain.EditEvent{
		Type:       typ,
		Op:         op,
		Version:    after.Version,
		Index:      e.index,
		HistoryLen: len(e.history),
		Before:     before,
		After:      after,
	}
}
