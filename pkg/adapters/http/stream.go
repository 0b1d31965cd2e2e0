package http

import (
	"log/slog"
	"sync"

	"github.com/aretw0/arbor/internal/logging"
)

// StreamManager fans out change notifications to the SSE clients of each workflow.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // workflow id -> channels
	logger      *slog.Logger
}

// NewStreamManager creates a manager with no subscribers.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a buffered channel for the workflow.
// The returned func unregisters and closes it.
func (sm *StreamManager) Subscribe(workflowID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[workflowID]; !ok {
		sm.subscribers[workflowID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[workflowID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[workflowID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, workflowID)
				}
			}
		})
	}
}

// Subscribers returns the number of open streams for the workflow.
func (sm *StreamManager) Subscribers(workflowID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[workflowID])
}

// Broadcast sends msg to every subscriber of the workflow.
// Slow clients whose buffer is full miss the message.
func (sm *StreamManager) Broadcast(workflowID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sm.logger.Debug("broadcasting", "workflow", workflowID, "payload_size", len(msg))

	for ch := range sm.subscribers[workflowID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: client buffer full, dropping message", "workflow", workflowID)
		}
	}
}
