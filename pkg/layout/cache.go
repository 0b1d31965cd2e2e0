package layout

import (
	"reflect"
	"sync"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
)

// Cache memoizes the layout of the most recent snapshot.
//
// Positions are reused only while the version, root and node map of the
// snapshot are unchanged. Selection changes share the node map and keep the
// version, so they never trigger a recomputation.
type Cache struct {
	// OnCompute, when set, observes the duration of every recomputation.
	OnCompute func(time.Duration)

	mu        sync.Mutex
	valid     bool
	version   int
	rootID    string
	nodesPtr  uintptr
	positions Positions
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the layout of s, recomputing it if s differs from the cached key.
// The returned map must be treated as read-only.
func (c *Cache) Get(s *domain.Snapshot) Positions {
	c.mu.Lock()
	defer c.mu.Unlock()

	ptr := reflect.ValueOf(s.Nodes).Pointer()
	if c.valid && c.version == s.Version && c.rootID == s.RootID && c.nodesPtr == ptr {
		return c.positions
	}

	start := time.Now()
	c.positions = ComputeSnapshot(s)
	if c.OnCompute != nil {
		c.OnCompute(time.Since(start))
	}
	c.valid = true
	c.version = s.Version
	c.rootID = s.RootID
	c.nodesPtr = ptr
	return c.positions
}

// Invalidate drops the cached layout.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.positions = nil
}
