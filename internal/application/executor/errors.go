package executor

import (
	"errors"
	"fmt"

	"github.com/helmsman-wf/helmsman/pkg/domain"
)

// FetchErrMsgHeader is the fixed marker every failed remote state lookup is
// logged with. Log-scraping tooling alerts on this literal; do not reword it.
const FetchErrMsgHeader = "Error fetching remote task state"

// ErrDuplicateKey is returned by Queue when the key is already pending or in
// flight. This is a caller bug, not a retryable condition.
var ErrDuplicateKey = errors.New("task instance key already queued or in flight")

// ErrExecutorClosed is returned when work is offered after Shutdown.
var ErrExecutorClosed = errors.New("executor is shut down")

// DispatchError wraps a failed broker submission with the task it was for.
type DispatchError struct {
	Key   domain.TaskInstanceKey
	Queue string
	Cause error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("failed to dispatch %s to queue %s: %v", e.Key, e.Queue, e.Cause)
}

func (e *DispatchError) Unwrap() error {
	return e.Cause
}
