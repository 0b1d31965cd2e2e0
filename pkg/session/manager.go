package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock is held if the holder dies.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// HooksFactory builds the hooks of the editor for one workflow.
type HooksFactory func(workflowID string) domain.EditHooks

// Manager orchestrates workflow access, ensuring safe concurrent edits.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.DocumentStore

	mu    sync.Mutex            // guards locks
	locks map[string]*lockEntry // active per-workflow locks

	edMu    sync.Mutex
	editors map[string]*arbor.Editor

	locker     ports.DistributedLocker
	lockTTL    time.Duration
	editorOpts []arbor.Option
	hooks      HooksFactory
	logger     *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock lease (default DefaultLockTTL).
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager and the editors it creates.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithEditorOptions appends options applied to every editor the Manager creates.
func WithEditorOptions(opts ...arbor.Option) Option {
	return func(m *Manager) {
		m.editorOpts = append(m.editorOpts, opts...)
	}
}

// WithHooks registers per-workflow hooks (e.g. SSE broadcasting).
func WithHooks(fn HooksFactory) Option {
	return func(m *Manager) {
		m.hooks = fn
	}
}

// NewManager creates a new Manager with the given persistence store.
func NewManager(store ports.DocumentStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		editors: make(map[string]*arbor.Editor),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(workflowID) after unlocking.
func (m *Manager) acquire(workflowID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[workflowID]
	if !exists {
		entry = &lockEntry{}
		m.locks[workflowID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(workflowID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[workflowID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, workflowID)
	}
}

// WithLock executes a function while holding the lock for the workflow.
func (m *Manager) WithLock(ctx context.Context, workflowID string, fn func(context.Context) error) error {
	entry := m.acquire(workflowID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(workflowID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, workflowID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"workflow", workflowID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// WithEditor runs fn with the workflow's editor while holding its lock.
// The editor is created (and loaded from the store, if saved) on first use.
func (m *Manager) WithEditor(ctx context.Context, workflowID string, fn func(context.Context, *arbor.Editor) error) error {
	return m.WithLock(ctx, workflowID, func(ctx context.Context) error {
		ed, err := m.editor(ctx, workflowID, true)
		if err != nil {
			return err
		}
		return fn(ctx, ed)
	})
}

// WithExistingEditor is WithEditor for workflows that are already open or
// stored. For any other id it returns domain.ErrWorkflowNotFound and leaves
// no editor behind.
func (m *Manager) WithExistingEditor(ctx context.Context, workflowID string, fn func(context.Context, *arbor.Editor) error) error {
	return m.WithLock(ctx, workflowID, func(ctx context.Context) error {
		ed, err := m.editor(ctx, workflowID, false)
		if err != nil {
			return err
		}
		return fn(ctx, ed)
	})
}

// Editor returns the workflow's editor, creating it on first use.
// Edits made through the returned editor are not serialized with WithEditor.
func (m *Manager) Editor(ctx context.Context, workflowID string) (*arbor.Editor, error) {
	var ed *arbor.Editor
	err := m.WithLock(ctx, workflowID, func(ctx context.Context) error {
		var err error
		ed, err = m.editor(ctx, workflowID, true)
		return err
	})
	return ed, err
}

// editor returns the cached editor or builds one. Callers hold the workflow lock.
// Without create, a workflow missing from the store is reported instead of started.
func (m *Manager) editor(ctx context.Context, workflowID string, create bool) (*arbor.Editor, error) {
	if workflowID == "" {
		return nil, fmt.Errorf("workflowID cannot be empty")
	}

	m.edMu.Lock()
	ed, ok := m.editors[workflowID]
	m.edMu.Unlock()
	if ok {
		return ed, nil
	}

	opts := []arbor.Option{
		arbor.WithStore(m.store),
		arbor.WithWorkflowID(workflowID),
		arbor.WithLogger(m.logger),
	}
	opts = append(opts, m.editorOpts...)
	if m.hooks != nil {
		opts = append(opts, arbor.WithHooks(m.hooks(workflowID)))
	}
	ed = arbor.New(opts...)

	if err := ed.Open(ctx); err != nil {
		if !create || !errors.Is(err, domain.ErrWorkflowNotFound) {
			return nil, err
		}
	}

	m.edMu.Lock()
	m.editors[workflowID] = ed
	m.edMu.Unlock()
	return ed, nil
}

// Persist saves the workflow's current snapshot to the store.
func (m *Manager) Persist(ctx context.Context, workflowID string) error {
	return m.WithEditor(ctx, workflowID, func(ctx context.Context, ed *arbor.Editor) error {
		return ed.Save(ctx)
	})
}

// Delete removes the workflow from the store and drops its editor.
func (m *Manager) Delete(ctx context.Context, workflowID string) error {
	return m.WithLock(ctx, workflowID, func(ctx context.Context) error {
		m.evict(workflowID)
		return m.store.Delete(ctx, workflowID)
	})
}

// Evict drops the cached editor; the next access reloads it from the store.
// Unsaved edits are lost.
func (m *Manager) Evict(ctx context.Context, workflowID string) error {
	return m.WithLock(ctx, workflowID, func(context.Context) error {
		m.evict(workflowID)
		return nil
	})
}

func (m *Manager) evict(workflowID string) {
	m.edMu.Lock()
	delete(m.editors, workflowID)
	m.edMu.Unlock()
}

// List returns the ids of stored workflows and of open editors, sorted.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	stored, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(stored))
	ids := make([]string, 0, len(stored))
	for _, id := range stored {
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	m.edMu.Lock()
	for id := range m.editors {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	m.edMu.Unlock()

	sort.Strings(ids)
	return ids, nil
}

// Store returns the underlying document store.
func (m *Manager) Store() ports.DocumentStore {
	return m.store
}
