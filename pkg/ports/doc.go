// Package ports defines the interfaces between the dispatch core and its
// collaborators: the scheduler-facing Executor contract, the message broker
// boundary, and the metrics collector consumed by the executor.
//
// Adapters under pkg/adapters implement the broker and metrics ports; the
// concrete executor lives in internal/application/executor.
package ports
