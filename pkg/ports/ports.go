package ports

import (
	"context"
	"time"

	"github.com/helmsman-wf/helmsman/pkg/domain"
)

// Handle represents one dispatched, in-flight task on the broker. A handle is
// owned exclusively by the executor entry that created it and is discarded
// when that entry resolves.
type Handle interface {
	// Token returns the broker correlation token for this dispatch.
	Token() string

	// State polls the current remote state without blocking indefinitely;
	// adapters apply a bounded wait internally. An error means the state
	// could not be determined for this handle only.
	State(ctx context.Context) (domain.TaskState, error)

	// Wait blocks until the task reaches a terminal state or ctx is done.
	// Intended for collaborators outside the sync loop; the executor never
	// calls it during a sync pass.
	Wait(ctx context.Context) (domain.TaskState, error)
}

// Broker is the message broker boundary: submit a command for remote
// execution and get back a pollable handle.
type Broker interface {
	// Submit enqueues cmd on the named queue and returns a handle for state
	// polling. A failed submission returns the transport error; callers wrap
	// it with task context.
	Submit(ctx context.Context, queue string, cmd domain.Command) (Handle, error)

	// Close releases all transport resources.
	Close() error
}

// Executor is the orchestrator-facing contract. The scheduler drives it from
// a single control loop: Queue work, call Heartbeat periodically, drain
// terminal outcomes, and Shutdown at the end.
type Executor interface {
	// Queue accepts one unit of work. Returns ErrDuplicateKey if key is
	// already pending or in flight.
	Queue(key domain.TaskInstanceKey, cmd domain.Command, queue string, priority int) error

	// TriggerPending dispatches queued work to the broker, subject to the
	// global and per-queue parallelism budgets.
	TriggerPending(ctx context.Context) error

	// Sync reconciles the state of every in-flight task exactly once.
	// Per-task problems never surface; only executor-fatal errors do.
	Sync(ctx context.Context) error

	// Heartbeat runs TriggerPending then Sync.
	Heartbeat(ctx context.Context) error

	// DrainEvents atomically returns and clears the buffered terminal
	// outcomes.
	DrainEvents() map[domain.TaskInstanceKey]domain.Outcome

	// Shutdown stops the executor. With wait set it blocks until the
	// in-flight table empties or ctx expires, then proceeds anyway.
	Shutdown(ctx context.Context, wait bool) error
}

// MetricsCollector receives executor measurements. Implemented by the
// prometheus adapter for production and the noop adapter for tests.
type MetricsCollector interface {
	IncTasksQueued(queue string)
	IncTasksDispatched(queue string)
	IncTaskOutcome(state domain.TaskState)
	IncFetchFailures()
	SetInFlight(count int)
	SetPending(count int)
	ObserveSyncDuration(d time.Duration)
}
