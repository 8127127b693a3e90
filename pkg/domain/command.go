package domain

import (
	"fmt"
	"sort"
	"time"
)

// Command is the ordered argument list a remote task runner executes. It is
// opaque to the dispatch core and immutable once built.
type Command []string

// Clone returns an independent copy of the command.
func (c Command) Clone() Command {
	if c == nil {
		return nil
	}
	out := make(Command, len(c))
	copy(out, c)
	return out
}

// ExecutionContext carries everything besides the key that goes into a run
// command. Values are fixed per orchestrator deployment, not per task.
type ExecutionContext struct {
	// Executable is the orchestrator CLI binary on the worker, e.g. "helmsman".
	Executable string

	// Subcommand is the run verb, e.g. "run".
	Subcommand string

	// Pool optionally names the resource pool the task runs under.
	Pool string

	// ExtraFlags are appended in a deterministic order. Map form so callers
	// cannot depend on insertion order.
	ExtraFlags map[string]string

	// Local requests in-process execution on the worker rather than a
	// re-dispatch through the worker's own executor.
	Local bool
}

// BuildCommand builds the argv for one task attempt. Pure and deterministic:
// identical (key, ectx) inputs always yield an identical command, which keeps
// retries idempotent and commands testable.
func BuildCommand(key TaskInstanceKey, ectx ExecutionContext) Command {
	exe := ectx.Executable
	if exe == "" {
		exe = "helmsman"
	}
	sub := ectx.Subcommand
	if sub == "" {
		sub = "run"
	}

	cmd := Command{
		exe, "tasks", sub,
		key.WorkflowID,
		key.TaskID,
		key.LogicalDate.UTC().Format(time.RFC3339),
		"--try-number", fmt.Sprintf("%d", key.TryNumber),
	}

	if ectx.Local {
		cmd = append(cmd, "--local")
	}
	if ectx.Pool != "" {
		cmd = append(cmd, "--pool", ectx.Pool)
	}

	if len(ectx.ExtraFlags) > 0 {
		flags := make([]string, 0, len(ectx.ExtraFlags))
		for f := range ectx.ExtraFlags {
			flags = append(flags, f)
		}
		sort.Strings(flags)
		for _, f := range flags {
			cmd = append(cmd, f)
			if v := ectx.ExtraFlags[f]; v != "" {
				cmd = append(cmd, v)
			}
		}
	}

	return cmd
}
