package executor

import (
	"sort"

	"github.com/helmsman-wf/helmsman/pkg/domain"
)

// pendingTask is one accepted but not yet dispatched unit of work.
type pendingTask struct {
	key      domain.TaskInstanceKey
	command  domain.Command
	queue    string
	priority int

	// seq preserves enqueue order among equal priorities. Requeued entries
	// get a fresh seq, which places them at the tail of their priority band.
	seq uint64
}

// sortPending orders tasks by priority descending, enqueue order ascending.
// Priority is a dispatch tie-break, not a preemption guarantee.
func sortPending(tasks []*pendingTask) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].priority != tasks[j].priority {
			return tasks[i].priority > tasks[j].priority
		}
		return tasks[i].seq < tasks[j].seq
	})
}
