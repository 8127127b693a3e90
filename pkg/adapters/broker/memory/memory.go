package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helmsman-wf/helmsman/pkg/domain"
	"github.com/helmsman-wf/helmsman/pkg/ports"
)

// Step is one scripted poll result: either a state or an error.
type Step struct {
	State domain.TaskState
	Err   error
}

// Broker implements ports.Broker in memory. Poll results are scripted per
// command executable, which makes executor behavior reproducible in tests and
// local development.
type Broker struct {
	mu sync.Mutex

	// scripts maps cmd[0] to the poll sequence every dispatch of that
	// command walks through. The last step repeats once reached.
	scripts map[string][]Step

	// handles tracks live dispatches by token.
	handles map[string]*handle

	// submitFailures makes the next N submissions fail.
	submitFailures int

	// submitted records every accepted dispatch in order.
	submitted []Submission

	closed bool
}

// Submission records one accepted dispatch.
type Submission struct {
	Token   string
	Queue   string
	Command domain.Command
}

// NewBroker creates an empty in-memory broker. Unscripted commands walk the
// default sequence running → success.
func NewBroker() *Broker {
	return &Broker{
		scripts: make(map[string][]Step),
		handles: make(map[string]*handle),
	}
}

// Script sets the poll sequence for dispatches whose command starts with name.
func (b *Broker) Script(name string, steps ...Step) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scripts[name] = steps
}

// FailSubmits makes the next n calls to Submit return a transport error.
func (b *Broker) FailSubmits(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submitFailures = n
}

// Submissions returns all accepted dispatches in submit order.
func (b *Broker) Submissions() []Submission {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Submission, len(b.submitted))
	copy(out, b.submitted)
	return out
}

// Closed reports whether Close has been called.
func (b *Broker) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Submit registers the command and returns a handle walking its script.
func (b *Broker) Submit(ctx context.Context, queue string, cmd domain.Command) (ports.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("broker is closed")
	}
	if b.submitFailures > 0 {
		b.submitFailures--
		return nil, fmt.Errorf("injected transport failure")
	}
	if len(cmd) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	steps := b.scripts[cmd[0]]
	if len(steps) == 0 {
		steps = []Step{{State: domain.StateRunning}, {State: domain.StateSuccess}}
	}

	token := uuid.New().String()
	h := &handle{token: token, steps: steps}
	b.handles[token] = h
	b.submitted = append(b.submitted, Submission{Token: token, Queue: queue, Command: cmd.Clone()})

	return h, nil
}

// Close marks the broker closed; further submissions fail.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// handle walks a scripted poll sequence. The last step repeats.
type handle struct {
	mu    sync.Mutex
	token string
	steps []Step
	pos   int
}

func (h *handle) Token() string {
	return h.token
}

func (h *handle) State(ctx context.Context) (domain.TaskState, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	step := h.steps[h.pos]
	if h.pos < len(h.steps)-1 {
		h.pos++
	}
	if step.Err != nil {
		return "", step.Err
	}
	return step.State, nil
}

func (h *handle) Wait(ctx context.Context) (domain.TaskState, error) {
	for {
		state, err := h.State(ctx)
		if err == nil && state.Terminal() {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}
