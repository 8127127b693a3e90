// Package domain holds the core value types of the dispatch core.
//
// Types:
//   - TaskInstanceKey: identity of one attempt of one task instance
//   - Command: opaque argv handed to a remote task runner
//   - TaskState / Outcome: remote state and terminal result of an attempt
//   - ExecutionContext + BuildCommand: deterministic command construction
package domain
