package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() TaskInstanceKey {
	return TaskInstanceKey{
		WorkflowID:  "etl_daily",
		TaskID:      "load_orders",
		LogicalDate: time.Date(2026, 8, 20, 6, 0, 0, 0, time.UTC),
		TryNumber:   2,
	}
}

func TestBuildCommandDeterministic(t *testing.T) {
	ectx := ExecutionContext{
		Executable: "helmsman",
		Pool:       "default",
		Local:      true,
		ExtraFlags: map[string]string{
			"--raw":     "",
			"--cfg":     "/etc/helmsman/helmsman.env",
			"--attempt": "tracked",
		},
	}

	first := BuildCommand(testKey(), ectx)
	second := BuildCommand(testKey(), ectx)

	require.Equal(t, first, second)
	assert.Equal(t, "helmsman", first[0])
	assert.Contains(t, first, "--local")
	assert.Contains(t, first, "etl_daily")
	assert.Contains(t, first, "load_orders")
}

func TestBuildCommandFlagOrderIsSorted(t *testing.T) {
	ectx := ExecutionContext{
		ExtraFlags: map[string]string{
			"--zeta":  "z",
			"--alpha": "a",
		},
	}

	cmd := BuildCommand(testKey(), ectx)

	var alphaIdx, zetaIdx int
	for i, arg := range cmd {
		switch arg {
		case "--alpha":
			alphaIdx = i
		case "--zeta":
			zetaIdx = i
		}
	}
	assert.Less(t, alphaIdx, zetaIdx, "flags must be emitted in sorted order")
}

func TestBuildCommandDefaults(t *testing.T) {
	cmd := BuildCommand(testKey(), ExecutionContext{})

	require.GreaterOrEqual(t, len(cmd), 6)
	assert.Equal(t, Command{"helmsman", "tasks", "run"}, cmd[:3])
	assert.NotContains(t, cmd, "--local")
	assert.NotContains(t, cmd, "--pool")
}

func TestCommandClone(t *testing.T) {
	orig := Command{"helmsman", "tasks", "run"}
	clone := orig.Clone()
	clone[0] = "mutated"

	assert.Equal(t, "helmsman", orig[0])
	assert.Nil(t, Command(nil).Clone())
}

func TestTaskStateTerminal(t *testing.T) {
	assert.True(t, StateSuccess.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StatePending.Terminal())
	assert.False(t, StateRunning.Terminal())
}

func TestTaskStateValid(t *testing.T) {
	assert.True(t, StateRunning.Valid())
	assert.False(t, TaskState("revoked").Valid())
	assert.False(t, TaskState("").Valid())
}

func TestTaskInstanceKeyString(t *testing.T) {
	s := testKey().String()
	assert.Contains(t, s, "etl_daily.load_orders@")
	assert.Contains(t, s, "#2")
}
