package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 2000

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("workflow-%d", i)
		_ = mgr.Persist(ctx, id)
		_ = mgr.Delete(ctx, id)
	}

	if lockCount := len(mgr.locks); lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
	if editorCount := len(mgr.editors); editorCount != 0 {
		t.Errorf("%d editors remaining after Delete", editorCount)
	}
}
