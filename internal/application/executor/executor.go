package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/helmsman-wf/helmsman/pkg/domain"
	"github.com/helmsman-wf/helmsman/pkg/ports"
)

// drainPollInterval paces the synchronous-shutdown reconciliation loop.
const drainPollInterval = 100 * time.Millisecond

// Options configures an Executor.
type Options struct {
	// Parallelism caps concurrently in-flight tasks system-wide.
	Parallelism int

	// QueueParallelism optionally caps in-flight tasks per named queue.
	QueueParallelism map[string]int

	// SyncFanout is the number of concurrent state polls per sync pass.
	SyncFanout int

	// DispatchFailureLimit is the number of consecutive failed submissions
	// tolerated before TriggerPending returns a fatal error.
	DispatchFailureLimit int
}

// Executor is the broker-backed implementation of ports.Executor. It owns the
// pending queue, the in-flight table, the last-observed-state table, and the
// event buffer; the in-flight table is the single source of truth for what is
// currently dispatched.
type Executor struct {
	broker  ports.Broker
	metrics ports.MetricsCollector
	logger  *zap.Logger
	opts    Options

	mu              sync.Mutex
	pending         []*pendingTask
	nextSeq         uint64
	inFlight        map[domain.TaskInstanceKey]ports.Handle
	inFlightQueue   map[domain.TaskInstanceKey]string
	inFlightByQueue map[string]int
	lastState       map[domain.TaskInstanceKey]domain.TaskState
	dispatching     map[domain.TaskInstanceKey]struct{}
	failStreak      int
	closed          bool

	events *eventBuffer

	// stopCh cancels the sync fan-out on shutdown.
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates an executor on top of broker. Zero option fields fall back to
// conservative defaults.
func New(broker ports.Broker, metrics ports.MetricsCollector, logger *zap.Logger, opts Options) *Executor {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 32
	}
	if opts.SyncFanout <= 0 {
		opts.SyncFanout = 8
	}
	if opts.DispatchFailureLimit <= 0 {
		opts.DispatchFailureLimit = 5
	}

	return &Executor{
		broker:          broker,
		metrics:         metrics,
		logger:          logger,
		opts:            opts,
		inFlight:        make(map[domain.TaskInstanceKey]ports.Handle),
		inFlightQueue:   make(map[domain.TaskInstanceKey]string),
		inFlightByQueue: make(map[string]int),
		lastState:       make(map[domain.TaskInstanceKey]domain.TaskState),
		dispatching:     make(map[domain.TaskInstanceKey]struct{}),
		events:          newEventBuffer(),
		stopCh:          make(chan struct{}),
	}
}

// Queue accepts one unit of work into the pending queue. The key must not be
// pending or in flight already.
func (e *Executor) Queue(key domain.TaskInstanceKey, cmd domain.Command, queue string, priority int) error {
	if key.WorkflowID == "" || key.TaskID == "" {
		return fmt.Errorf("incomplete task instance key: %s", key)
	}
	if len(cmd) == 0 {
		return fmt.Errorf("empty command for %s", key)
	}
	if queue == "" {
		return fmt.Errorf("empty queue name for %s", key)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrExecutorClosed
	}
	if e.knownLocked(key) {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}

	e.pending = append(e.pending, &pendingTask{
		key:      key,
		command:  cmd.Clone(),
		queue:    queue,
		priority: priority,
		seq:      e.nextSeq,
	})
	e.nextSeq++

	e.metrics.IncTasksQueued(queue)
	e.metrics.SetPending(len(e.pending))

	e.logger.Debug("task queued",
		zap.String("task", key.String()),
		zap.String("queue", queue),
		zap.Int("priority", priority))

	return nil
}

// knownLocked reports whether key is pending, being dispatched, or in flight.
// Caller holds e.mu.
func (e *Executor) knownLocked(key domain.TaskInstanceKey) bool {
	if _, ok := e.inFlight[key]; ok {
		return true
	}
	if _, ok := e.dispatching[key]; ok {
		return true
	}
	for _, p := range e.pending {
		if p.key == key {
			return true
		}
	}
	return false
}

// TriggerPending dispatches as much pending work as the parallelism budgets
// allow. Entries that fail to submit are requeued at the tail; after
// DispatchFailureLimit consecutive failures a fatal error is returned instead
// of looping forever.
func (e *Executor) TriggerPending(ctx context.Context) error {
	batch := e.reserveBatch()
	if len(batch) == 0 {
		return nil
	}

	var fatal error
	for _, task := range batch {
		handle, err := e.broker.Submit(ctx, task.queue, task.command)
		if err != nil {
			derr := &DispatchError{Key: task.key, Queue: task.queue, Cause: err}
			if ferr := e.recordDispatchFailure(task, derr); ferr != nil && fatal == nil {
				fatal = ferr
			}
			continue
		}
		e.recordDispatchSuccess(task, handle)
	}

	e.mu.Lock()
	e.metrics.SetPending(len(e.pending))
	e.metrics.SetInFlight(len(e.inFlight))
	e.mu.Unlock()

	return fatal
}

// reserveBatch moves dispatchable entries from pending into the dispatching
// set, respecting both budgets. A full global budget stops the scan; a full
// queue budget only skips entries on that queue.
func (e *Executor) reserveBatch() []*pendingTask {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || len(e.pending) == 0 {
		return nil
	}

	sortPending(e.pending)

	free := e.opts.Parallelism - len(e.inFlight) - len(e.dispatching)
	queueUse := make(map[string]int, len(e.inFlightByQueue))
	for q, n := range e.inFlightByQueue {
		queueUse[q] = n
	}

	var batch []*pendingTask
	remaining := e.pending[:0]
	for i, task := range e.pending {
		if free <= 0 {
			remaining = append(remaining, e.pending[i:]...)
			break
		}
		if limit, ok := e.opts.QueueParallelism[task.queue]; ok && queueUse[task.queue] >= limit {
			remaining = append(remaining, task)
			continue
		}

		e.dispatching[task.key] = struct{}{}
		queueUse[task.queue]++
		free--
		batch = append(batch, task)
	}
	e.pending = remaining

	return batch
}

// recordDispatchSuccess commits a submitted task into the in-flight table.
func (e *Executor) recordDispatchSuccess(task *pendingTask, handle ports.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.dispatching, task.key)
	e.inFlight[task.key] = handle
	e.inFlightQueue[task.key] = task.queue
	e.inFlightByQueue[task.queue]++
	e.lastState[task.key] = domain.StatePending
	e.failStreak = 0

	e.metrics.IncTasksDispatched(task.queue)

	e.logger.Debug("task dispatched",
		zap.String("task", task.key.String()),
		zap.String("queue", task.queue),
		zap.String("token", handle.Token()))
}

// recordDispatchFailure requeues a task whose submission failed and returns a
// fatal error once the consecutive-failure budget is exhausted. The key is
// never silently dropped: either it goes back to pending or the whole
// executor escalates.
func (e *Executor) recordDispatchFailure(task *pendingTask, derr *DispatchError) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.dispatching, task.key)
	task.seq = e.nextSeq
	e.nextSeq++
	e.pending = append(e.pending, task)
	e.failStreak++

	e.logger.Warn("dispatch failed, task requeued",
		zap.String("task", task.key.String()),
		zap.String("queue", task.queue),
		zap.Int("consecutive_failures", e.failStreak),
		zap.Error(derr.Cause))

	if e.failStreak >= e.opts.DispatchFailureLimit {
		return fmt.Errorf("broker unreachable after %d consecutive dispatch failures: %w",
			e.failStreak, derr)
	}
	return nil
}

// syncTarget is one in-flight entry snapshotted for a sync pass.
type syncTarget struct {
	key    domain.TaskInstanceKey
	handle ports.Handle
}

// pollResult is the classified result of polling one handle.
type pollResult struct {
	key     domain.TaskInstanceKey
	state   domain.TaskState
	err     error
	skipped bool
}

// Sync reconciles the remote state of every in-flight task exactly once.
// Polls fan out across a bounded worker pool and are isolated per key: a poll
// that fails is converted into a FAILED outcome for that key and never aborts
// the pass. Sync returns only after every poll has completed or been skipped
// due to shutdown.
func (e *Executor) Sync(ctx context.Context) error {
	start := time.Now()

	e.mu.Lock()
	targets := make([]syncTarget, 0, len(e.inFlight))
	for key, handle := range e.inFlight {
		targets = append(targets, syncTarget{key: key, handle: handle})
	}
	e.mu.Unlock()

	if len(targets) == 0 {
		e.metrics.ObserveSyncDuration(time.Since(start))
		return nil
	}

	results := e.pollAll(ctx, targets)

	e.mu.Lock()
	for _, res := range results {
		if res.skipped {
			continue
		}
		e.applyLocked(res)
	}
	e.metrics.SetInFlight(len(e.inFlight))
	e.mu.Unlock()

	e.metrics.ObserveSyncDuration(time.Since(start))
	return nil
}

// pollAll fans targets out across SyncFanout workers and joins them all
// before returning. Shutdown skips any poll not yet started.
func (e *Executor) pollAll(ctx context.Context, targets []syncTarget) []pollResult {
	work := make(chan syncTarget)
	out := make(chan pollResult, len(targets))

	workers := e.opts.SyncFanout
	if workers > len(targets) {
		workers = len(targets)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for target := range work {
				select {
				case <-e.stopCh:
					out <- pollResult{key: target.key, skipped: true}
					continue
				case <-ctx.Done():
					out <- pollResult{key: target.key, skipped: true}
					continue
				default:
				}

				state, err := target.handle.State(ctx)
				if err == nil && !state.Valid() {
					err = fmt.Errorf("unexpected task state %q", state)
				}
				out <- pollResult{key: target.key, state: state, err: err}
			}
		}()
	}

	for _, target := range targets {
		work <- target
	}
	close(work)
	wg.Wait()
	close(out)

	results := make([]pollResult, 0, len(targets))
	for res := range out {
		results = append(results, res)
	}
	return results
}

// applyLocked applies one poll result to the shared tables. Caller holds e.mu.
func (e *Executor) applyLocked(res pollResult) {
	if _, ok := e.inFlight[res.key]; !ok {
		// Resolved by a concurrent pass; nothing to do.
		return
	}

	if res.err != nil {
		// A handle whose state cannot be determined is failed rather than
		// left dangling: dropping the key would leak a permanently
		// "running" task.
		e.logger.Error(fmt.Sprintf("%s: task %s: %T: %v", FetchErrMsgHeader, res.key, res.err, res.err),
			zap.String("task", res.key.String()),
			zap.String("error_type", fmt.Sprintf("%T", res.err)),
			zap.Error(res.err))

		e.metrics.IncFetchFailures()
		e.resolveLocked(res.key, domain.Outcome{
			State:  domain.StateFailed,
			Detail: fmt.Sprintf("%s: %T: %v", FetchErrMsgHeader, res.err, res.err),
		})
		return
	}

	if res.state.Terminal() {
		e.resolveLocked(res.key, domain.Outcome{State: res.state})
		return
	}

	// Non-terminal: record only changes, suppressing duplicate reports.
	if e.lastState[res.key] != res.state {
		e.logger.Debug("task state changed",
			zap.String("task", res.key.String()),
			zap.String("from", string(e.lastState[res.key])),
			zap.String("to", string(res.state)))
		e.lastState[res.key] = res.state
	}
}

// resolveLocked writes a terminal outcome and removes every trace of the key
// from the in-flight and last-observed tables. Caller holds e.mu.
func (e *Executor) resolveLocked(key domain.TaskInstanceKey, outcome domain.Outcome) {
	e.events.add(key, outcome)

	queue := e.inFlightQueue[key]
	delete(e.inFlight, key)
	delete(e.inFlightQueue, key)
	delete(e.lastState, key)
	if queue != "" {
		if e.inFlightByQueue[queue]--; e.inFlightByQueue[queue] <= 0 {
			delete(e.inFlightByQueue, queue)
		}
	}

	e.metrics.IncTaskOutcome(outcome.State)

	e.logger.Info("task resolved",
		zap.String("task", key.String()),
		zap.String("state", string(outcome.State)))
}

// Heartbeat dispatches pending work and reconciles in-flight state. Called
// periodically by the scheduler; per-task problems never raise out of it,
// only executor-fatal conditions do.
func (e *Executor) Heartbeat(ctx context.Context) error {
	if err := e.TriggerPending(ctx); err != nil {
		return err
	}
	return e.Sync(ctx)
}

// DrainEvents atomically returns and clears the buffered terminal outcomes.
func (e *Executor) DrainEvents() map[domain.TaskInstanceKey]domain.Outcome {
	return e.events.drain()
}

// Shutdown stops the executor. With wait set it keeps reconciling until the
// in-flight table empties or ctx expires, then proceeds anyway. Without wait
// it cancels the sync fan-out immediately. Transport resources are released
// before returning either way.
func (e *Executor) Shutdown(ctx context.Context, wait bool) error {
	if wait {
		e.drainInFlight(ctx)
	}

	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.stopOnce.Do(func() { close(e.stopCh) })

	if err := e.broker.Close(); err != nil {
		return fmt.Errorf("failed to close broker: %w", err)
	}

	e.logger.Info("executor shut down")
	return nil
}

// drainInFlight runs sync passes until every in-flight task resolves or ctx
// expires.
func (e *Executor) drainInFlight(ctx context.Context) {
	for {
		e.mu.Lock()
		remaining := len(e.inFlight)
		e.mu.Unlock()
		if remaining == 0 {
			return
		}

		if err := e.Sync(ctx); err != nil {
			e.logger.Warn("sync during shutdown failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			e.mu.Lock()
			remaining = len(e.inFlight)
			e.mu.Unlock()
			e.logger.Warn("shutdown wait expired with tasks still in flight",
				zap.Int("remaining", remaining))
			return
		case <-time.After(drainPollInterval):
		}
	}
}

// Snapshot is a read-only view of the executor's tables for operational
// endpoints.
type Snapshot struct {
	Pending        int `json:"pending"`
	InFlight       int `json:"in_flight"`
	BufferedEvents int `json:"buffered_events"`
	Parallelism    int `json:"parallelism"`
}

// Snapshot returns current table sizes.
func (e *Executor) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot{
		Pending:        len(e.pending),
		InFlight:       len(e.inFlight),
		BufferedEvents: e.events.len(),
		Parallelism:    e.opts.Parallelism,
	}
}
