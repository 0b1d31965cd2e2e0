package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDSource produces node ids that are unique within the process lifetime.
type IDSource interface {
	NewID() string
}

// UUIDSource generates time-sortable ids backed by UUIDv7
// (millisecond timestamp plus random bits).
//
// Thread-safety: UUIDSource is stateless and safe for concurrent use.
type UUIDSource struct{}

// NewID returns an id of the form "node-<uuidv7>".
// Panics if the system random source fails.
func (UUIDSource) NewID() string {
	return "node-" + uuid.Must(uuid.NewV7()).String()
}

// SequenceSource returns predictable ids ("<prefix>-1", "<prefix>-2", ...) for tests.
type SequenceSource struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceSource creates a SequenceSource. An empty prefix defaults to "node".
func NewSequenceSource(prefix string) *SequenceSource {
	if prefix == "" {
		prefix = "node"
	}
	return &SequenceSource{prefix: prefix}
}

// NewID returns the next id in the sequence.
func (s *SequenceSource) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", s.prefix, s.n)
}

// Clock provides creation timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.T }
