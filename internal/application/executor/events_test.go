package executor

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmsman-wf/helmsman/pkg/domain"
)

func TestEventBufferDrainSwapsAtomically(t *testing.T) {
	buf := newEventBuffer()
	buf.add(key("a"), domain.Outcome{State: domain.StateSuccess})
	buf.add(key("b"), domain.Outcome{State: domain.StateFailed, Detail: "boom"})

	assert.Equal(t, 2, buf.len())

	drained := buf.drain()
	require.Len(t, drained, 2)
	assert.Equal(t, "boom", drained[key("b")].Detail)

	assert.Empty(t, buf.drain())
	assert.Equal(t, 0, buf.len())
}

func TestEventBufferConcurrentWrites(t *testing.T) {
	buf := newEventBuffer()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			k := key(fmt.Sprintf("task-%d", n))
			buf.add(k, domain.Outcome{State: domain.StateSuccess})
		}(i)
	}
	wg.Wait()

	assert.Len(t, buf.drain(), 50)
}
