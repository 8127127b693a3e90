// Package executor implements the broker-backed distributed executor.
//
// The executor mediates between the orchestrator's scheduling decisions and
// remote execution:
//   - Queue accepts work into a priority-ordered pending queue
//   - TriggerPending dispatches pending work to the message broker, subject
//     to the global and per-queue parallelism budgets
//   - Sync reconciles the remote state of every in-flight task, isolating
//     per-task lookup failures from the rest of the pass
//   - DrainEvents hands terminal outcomes back to the scheduler
//
// All shared tables (pending, in-flight, last-observed state) live behind a
// single mutex; broker round trips happen outside it.
package executor
