package executor

import (
	"sync"

	"github.com/helmsman-wf/helmsman/pkg/domain"
)

// eventBuffer accumulates terminal outcomes until the scheduler drains them.
// Writes are serialized; a drain atomically swaps in an empty buffer, so
// outcomes are delivered exactly once.
type eventBuffer struct {
	mu       sync.Mutex
	outcomes map[domain.TaskInstanceKey]domain.Outcome
}

func newEventBuffer() *eventBuffer {
	return &eventBuffer{
		outcomes: make(map[domain.TaskInstanceKey]domain.Outcome),
	}
}

func (b *eventBuffer) add(key domain.TaskInstanceKey, outcome domain.Outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outcomes[key] = outcome
}

func (b *eventBuffer) drain() map[domain.TaskInstanceKey]domain.Outcome {
	b.mu.Lock()
	defer b.mu.Unlock()

	drained := b.outcomes
	b.outcomes = make(map[domain.TaskInstanceKey]domain.Outcome)
	return drained
}

func (b *eventBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.outcomes)
}
