package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortPendingPriorityThenSeq(t *testing.T) {
	tasks := []*pendingTask{
		{key: key("c"), priority: 0, seq: 3},
		{key: key("a"), priority: 5, seq: 1},
		{key: key("d"), priority: 0, seq: 2},
		{key: key("b"), priority: 5, seq: 0},
	}

	sortPending(tasks)

	var order []string
	for _, task := range tasks {
		order = append(order, task.key.TaskID)
	}
	assert.Equal(t, []string{"b", "a", "d", "c"}, order)
}

func TestSortPendingStable(t *testing.T) {
	tasks := []*pendingTask{
		{key: key("first"), priority: 1, seq: 0},
		{key: key("second"), priority: 1, seq: 1},
	}

	sortPending(tasks)

	assert.Equal(t, "first", tasks[0].key.TaskID)
	assert.Equal(t, "second", tasks[1].key.TaskID)
}
