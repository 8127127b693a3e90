package domain

import (
	"fmt"
	"time"
)

// TaskInstanceKey identifies one attempt of one task instance at one logical
// schedule point. It is comparable and used as the map key everywhere in the
// dispatch core; never mutated after creation.
type TaskInstanceKey struct {
	WorkflowID  string
	TaskID      string
	LogicalDate time.Time
	TryNumber   int
}

// String renders the key for logs.
func (k TaskInstanceKey) String() string {
	return fmt.Sprintf("%s.%s@%s#%d",
		k.WorkflowID, k.TaskID, k.LogicalDate.Format(time.RFC3339), k.TryNumber)
}

// TaskState is the remote state of a dispatched task as reported by the
// broker's result backend.
type TaskState string

const (
	StatePending TaskState = "pending"
	StateRunning TaskState = "running"
	StateSuccess TaskState = "success"
	StateFailed  TaskState = "failed"
)

// Terminal reports whether no further state transition is expected.
func (s TaskState) Terminal() bool {
	return s == StateSuccess || s == StateFailed
}

// Valid reports whether s is one of the closed set of task states. Anything
// else coming off the wire is treated as a lookup error by the executor.
func (s TaskState) Valid() bool {
	switch s {
	case StatePending, StateRunning, StateSuccess, StateFailed:
		return true
	}
	return false
}

// Outcome is a terminal result for one task attempt. Detail carries optional
// diagnostic info, e.g. the cause of a failed remote state lookup.
type Outcome struct {
	State  TaskState `json:"state"`
	Detail string    `json:"detail,omitempty"`
}
