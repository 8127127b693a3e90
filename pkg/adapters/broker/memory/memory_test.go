package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmsman-wf/helmsman/pkg/domain"
)

func TestSubmitWalksScriptedSequence(t *testing.T) {
	b := NewBroker()
	b.Script("true",
		Step{State: domain.StatePending},
		Step{State: domain.StateRunning},
		Step{State: domain.StateSuccess},
	)

	h, err := b.Submit(context.Background(), "default", domain.Command{"true"})
	require.NoError(t, err)
	require.NotEmpty(t, h.Token())

	ctx := context.Background()
	for _, want := range []domain.TaskState{domain.StatePending, domain.StateRunning, domain.StateSuccess} {
		got, err := h.State(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// Last step repeats.
	got, err := h.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StateSuccess, got)
}

func TestSubmitDefaultSequence(t *testing.T) {
	b := NewBroker()

	h, err := b.Submit(context.Background(), "default", domain.Command{"anything"})
	require.NoError(t, err)

	got, err := h.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StateRunning, got)

	got, err = h.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StateSuccess, got)
}

func TestScriptedPollError(t *testing.T) {
	pollErr := errors.New("backend exploded")

	b := NewBroker()
	b.Script("flaky", Step{Err: pollErr})

	h, err := b.Submit(context.Background(), "default", domain.Command{"flaky"})
	require.NoError(t, err)

	_, err = h.State(context.Background())
	assert.ErrorIs(t, err, pollErr)
}

func TestFailSubmits(t *testing.T) {
	b := NewBroker()
	b.FailSubmits(1)

	_, err := b.Submit(context.Background(), "default", domain.Command{"true"})
	require.Error(t, err)

	_, err = b.Submit(context.Background(), "default", domain.Command{"true"})
	require.NoError(t, err)
	assert.Len(t, b.Submissions(), 1)
}

func TestSubmitAfterCloseFails(t *testing.T) {
	b := NewBroker()
	require.NoError(t, b.Close())
	assert.True(t, b.Closed())

	_, err := b.Submit(context.Background(), "default", domain.Command{"true"})
	assert.Error(t, err)
}

func TestWaitReachesTerminalState(t *testing.T) {
	b := NewBroker()
	b.Script("slow",
		Step{State: domain.StatePending},
		Step{State: domain.StateRunning},
		Step{State: domain.StateFailed},
	)

	h, err := b.Submit(context.Background(), "default", domain.Command{"slow"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	state, err := h.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, state)
}
