package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
	loads int
	mu    sync.Mutex
}

func (s *SlowStore) Load(ctx context.Context, workflowID string) (*domain.Document, error) {
	time.Sleep(5 * time.Millisecond) // simulate IO
	s.mu.Lock()
	s.loads++
	s.mu.Unlock()
	return s.Store.Load(ctx, workflowID)
}

type brokenStore struct{ *memory.Store }

func (brokenStore) Load(context.Context, string) (*domain.Document, error) {
	return nil, errors.New("connection refused")
}

func TestManager_ConcurrentEdits(t *testing.T) {
	store := &SlowStore{Store: memory.NewStore()}
	mgr := session.NewManager(store, session.WithEditorOptions(arbor.WithIDSource(domain.NewSequenceSource("n"))))
	ctx := context.Background()

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := mgr.WithEditor(ctx, "race", func(ctx context.Context, ed *arbor.Editor) error {
				_, ok := ed.AddNode(ctx, domain.StartNodeID, domain.NodeTypeAction, "")
				if !ok {
					return errors.New("add did not apply")
				}
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	ed, err := mgr.Editor(ctx, "race")
	require.NoError(t, err)
	assert.Equal(t, writers+1, ed.Current().Len())
	assert.Equal(t, writers, ed.Version())
	assert.Equal(t, 1, store.loads, "the editor is loaded once and then cached")
}

func TestManager_PersistAndReload(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	first := session.NewManager(store)
	err := first.WithEditor(ctx, "flow", func(ctx context.Context, ed *arbor.Editor) error {
		id, _ := ed.AddNode(ctx, domain.StartNodeID, domain.NodeTypeBranch, "")
		ed.AddNode(ctx, id, domain.NodeTypeEnd, "True")
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, first.Persist(ctx, "flow"))

	second := session.NewManager(store)
	ed, err := second.Editor(ctx, "flow")
	require.NoError(t, err)
	assert.Equal(t, 3, ed.Current().Len())
	assert.False(t, ed.CanUndo(), "a reloaded workflow starts with a fresh history")

	fresh, err := second.Editor(ctx, "new-flow")
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Current().Len())
}

func TestManager_EvictDiscardsUnsavedEdits(t *testing.T) {
	ctx := context.Background()
	mgr := session.NewManager(memory.NewStore())

	ed, err := mgr.Editor(ctx, "flow")
	require.NoError(t, err)
	ed.AddNode(ctx, domain.StartNodeID, domain.NodeTypeEnd, "")

	require.NoError(t, mgr.Evict(ctx, "flow"))

	again, err := mgr.Editor(ctx, "flow")
	require.NoError(t, err)
	assert.NotSame(t, ed, again)
	assert.Equal(t, 1, again.Current().Len())
}

func TestManager_List(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	mgr := session.NewManager(store)

	require.NoError(t, mgr.Persist(ctx, "saved"))
	_, err := mgr.Editor(ctx, "open-only")
	require.NoError(t, err)

	ids, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"open-only", "saved"}, ids)

	require.NoError(t, mgr.Delete(ctx, "saved"))
	ids, err = mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"open-only"}, ids)
}

func TestManager_WithExistingEditor(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	mgr := session.NewManager(store)
	read := func(id string) error {
		return mgr.WithExistingEditor(ctx, id, func(context.Context, *arbor.Editor) error { return nil })
	}

	assert.ErrorIs(t, read("ghost"), domain.ErrWorkflowNotFound)
	ids, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids, "a failed read leaves nothing open")

	_, err = mgr.Editor(ctx, "open")
	require.NoError(t, err)
	assert.NoError(t, read("open"))

	other := session.NewManager(store)
	require.NoError(t, other.Persist(ctx, "stored"))
	assert.NoError(t, read("stored"))

	ids, err = mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"open", "stored"}, ids)
}

func TestManager_StoreFailure(t *testing.T) {
	mgr := session.NewManager(brokenStore{memory.NewStore()})

	_, err := mgr.Editor(context.Background(), "flow")
	assert.ErrorContains(t, err, "connection refused")

	_, err = mgr.Editor(context.Background(), "")
	assert.Error(t, err)
}

func TestManager_Hooks(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	applied := map[string]int{}

	mgr := session.NewManager(memory.NewStore(), session.WithHooks(func(workflowID string) domain.EditHooks {
		return domain.EditHooks{
			OnApply: func(context.Context, *domain.EditEvent) {
				mu.Lock()
				applied[workflowID]++
				mu.Unlock()
			},
		}
	}))

	for _, id := range []string{"a", "b", "a"} {
		err := mgr.WithEditor(ctx, id, func(ctx context.Context, ed *arbor.Editor) error {
			ed.AddNode(ctx, domain.StartNodeID, domain.NodeTypeAction, "")
			return nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, map[string]int{"a": 2, "b": 1}, applied)
}

func TestManager_DistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	locker := redis.NewLocker(client, "test:")
	mgr := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(time.Minute))
	ctx := context.Background()

	err := mgr.WithLock(ctx, "flow", func(context.Context) error {
		assert.True(t, mr.Exists("test:lock:flow"), "lock is held during fn")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("test:lock:flow"), "lock is released after fn")

	// Another replica holds the lock: acquisition fails when the context expires.
	unlock, err := locker.Lock(ctx, "busy", time.Minute)
	require.NoError(t, err)
	defer func() { _ = unlock(ctx) }()

	short, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	err = mgr.WithLock(short, "busy", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
