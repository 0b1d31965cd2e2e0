package arbor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/layout"
	"github.com/aretw0/arbor/pkg/ops"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/validator"
)

// DefaultWorkflowID is used when no WithWorkflowID option is given.
const DefaultWorkflowID = "default"

// Editor is the high-level entry point for the arbor library.
// It wraps the history engine with id generation, layout caching,
// validation and persistence.
//
// Thread-safety: edits are serialized by the engine; Editor is safe for
// concurrent use. Callers that need several edits to be atomic should use
// the session manager.
type Editor struct {
	engine *runtime.Engine
	cache  *layout.Cache

	store        ports.DocumentStore
	workflowID   string
	ids          domain.IDSource
	clock        domain.Clock
	hooks        []domain.EditHooks
	historyLimit int
	onLayout     func(time.Duration)
	logger       *slog.Logger

	mu        sync.Mutex
	createdAt time.Time
}

// New creates an Editor holding the initial workflow: a single Start node.
func New(opts ...Option) *Editor {
	e := &Editor{workflowID: DefaultWorkflowID}
	for _, opt := range opts {
		opt(e)
	}
	if e.ids == nil {
		e.ids = domain.UUIDSource{}
	}
	if e.clock == nil {
		e.clock = domain.SystemClock{}
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	e.logger = e.logger.With("workflow", e.workflowID)

	e.cache = layout.NewCache()
	e.cache.OnCompute = e.onLayout

	e.createdAt = e.clock.Now()
	e.engine = runtime.NewEngine(domain.NewSnapshot(e.clock),
		runtime.WithLogger(e.logger),
		runtime.WithHooks(domain.MergeHooks(e.hooks...)),
		runtime.WithHistoryLimit(e.historyLimit),
	)
	return e
}

// WorkflowID returns the id under which the workflow is stored.
func (e *Editor) WorkflowID() string { return e.workflowID }

// Apply runs an arbitrary operation. It returns whether history changed.
func (e *Editor) Apply(ctx context.Context, op ops.Op) bool {
	return e.engine.Apply(ctx, op)
}

// AddNode appends a new node under parentID and selects it.
// It returns the new id, or false if the parent is missing or an End node.
func (e *Editor) AddNode(ctx context.Context, parentID string, t domain.NodeType, branchLabel string) (string, bool) {
	if !e.engine.Apply(ctx, ops.Add(parentID, t, branchLabel, e.ids, e.clock)) {
		return "", false
	}
	return e.engine.Current().SelectedNodeID, true
}

// DeleteNode removes a node and reconnects its children to its parent.
func (e *Editor) DeleteNode(ctx context.Context, nodeID string) bool {
	return e.engine.Apply(ctx, ops.Delete(nodeID))
}

// UpdateNode merges u into a node.
func (e *Editor) UpdateNode(ctx context.Context, nodeID string, u ops.NodeUpdate) bool {
	return e.engine.Apply(ctx, ops.Update(nodeID, u))
}

// SelectNode sets the focused node; an empty id clears it.
func (e *Editor) SelectNode(ctx context.Context, nodeID string) bool {
	return e.engine.Select(ctx, nodeID)
}

// AddBranchLabel appends a label to a Branch node.
func (e *Editor) AddBranchLabel(ctx context.Context, nodeID, label string) bool {
	return e.engine.Apply(ctx, ops.AddLabel(nodeID, label))
}

// UpdateBranchLabel replaces the label at index on a Branch node.
func (e *Editor) UpdateBranchLabel(ctx context.Context, nodeID string, index int, label string) bool {
	return e.engine.Apply(ctx, ops.UpdateLabel(nodeID, index, label))
}

// Undo steps back in history.
func (e *Editor) Undo(ctx context.Context) bool { return e.engine.Undo(ctx) }

// Redo steps forward in history.
func (e *Editor) Redo(ctx context.Context) bool { return e.engine.Redo(ctx) }

// CanUndo reports whether Undo would move.
func (e *Editor) CanUndo() bool { return e.engine.CanUndo() }

// CanRedo reports whether Redo would move.
func (e *Editor) CanRedo() bool { return e.engine.CanRedo() }

// Current returns the displayed snapshot. It must be treated as read-only.
func (e *Editor) Current() *domain.Snapshot { return e.engine.Current() }

// Version returns the edit counter of the displayed snapshot.
func (e *Editor) Version() int { return e.engine.Version() }

// HistoryLen returns the number of retained snapshots.
func (e *Editor) HistoryLen() int { return e.engine.HistoryLen() }

// Index returns the history cursor.
func (e *Editor) Index() int { return e.engine.Index() }

// Layout returns node positions for the displayed snapshot.
// The result is cached until the next structural or content change.
func (e *Editor) Layout() layout.Positions {
	return e.cache.Get(e.engine.Current())
}

// Validate runs the advisory checks on the displayed snapshot.
func (e *Editor) Validate() []validator.Warning {
	return validator.ValidateSnapshot(e.engine.Current())
}

// Document exports the displayed snapshot, stamped with the current time.
func (e *Editor) Document() *domain.Document {
	return domain.NewDocument(e.engine.Current(), e.created(), e.clock.Now())
}

// Export encodes the displayed snapshot as a document.
func (e *Editor) Export(format domain.Format) ([]byte, error) {
	return domain.EncodeDocument(e.Document(), format)
}

// Load replaces the workflow with doc and discards the undo history.
// An invalid document is rejected with domain.ErrInvalidDocument and the
// current state is left untouched.
func (e *Editor) Load(ctx context.Context, doc *domain.Document) error {
	if err := doc.Validate(); err != nil {
		e.logger.WarnContext(ctx, "document rejected", "err", err)
		return fmt.Errorf("failed to load workflow: %w", err)
	}
	created, ok := domain.ParseTimestamp(doc.CreatedAt)
	if !ok {
		created = e.clock.Now()
	}
	e.setCreated(created)
	e.engine.Load(ctx, doc.Snapshot())
	return nil
}

// Import decodes data and loads it.
func (e *Editor) Import(ctx context.Context, data []byte, format domain.Format) error {
	doc, err := domain.DecodeDocument(data, format)
	if err != nil {
		return fmt.Errorf("failed to import workflow: %w", err)
	}
	return e.Load(ctx, doc)
}

// Reset starts a new workflow with a single Start node and no undo history.
func (e *Editor) Reset(ctx context.Context) {
	e.setCreated(e.clock.Now())
	e.engine.Load(ctx, domain.NewSnapshot(e.clock))
}

// Save persists the displayed snapshot in the configured store.
func (e *Editor) Save(ctx context.Context) error {
	if e.store == nil {
		return domain.ErrNoStore
	}
	doc := e.Document()
	if err := e.store.Save(ctx, e.workflowID, doc); err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", e.workflowID, err)
	}
	e.logger.InfoContext(ctx, "workflow saved", "nodes", len(doc.Nodes), "version", e.Version())
	return nil
}

// Open loads the workflow from the configured store.
// It returns domain.ErrWorkflowNotFound if nothing was saved yet.
func (e *Editor) Open(ctx context.Context) error {
	if e.store == nil {
		return domain.ErrNoStore
	}
	doc, err := e.store.Load(ctx, e.workflowID)
	if err != nil {
		return fmt.Errorf("failed to open workflow %s: %w", e.workflowID, err)
	}
	return e.Load(ctx, doc)
}

func (e *Editor) created() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.createdAt
}

func (e *Editor) setCreated(t time.Time) {
	e.mu.Lock()
	e.createdAt = t
	e.mu.Unlock()
}
