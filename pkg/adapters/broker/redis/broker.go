package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helmsman-wf/helmsman/pkg/domain"
	"github.com/helmsman-wf/helmsman/pkg/ports"
)

const (
	// resultTTL bounds how long a terminal result record lingers after the
	// executor has observed it.
	resultTTL = time.Minute

	// defaultWaitInterval paces the terminal-wait helper between polls.
	defaultWaitInterval = 500 * time.Millisecond
)

// Broker implements ports.Broker on Redis. Commands are pushed as JSON
// envelopes onto per-queue lists; workers write a result record under the
// correlation token, which handles poll from the result backend.
type Broker struct {
	queue       *redis.Client
	results     *redis.Client
	logger      *zap.Logger
	pollTimeout time.Duration
}

// envelope is the wire format of one queued command.
type envelope struct {
	Token   string         `json:"token"`
	Command domain.Command `json:"command"`
}

// resultRecord is the wire format a worker writes to the result backend.
type resultRecord struct {
	State domain.TaskState `json:"state"`
	Error string           `json:"error,omitempty"`
}

// NewBroker creates a Redis broker. queue and results may be the same client
// when broker and result backend share a Redis instance.
func NewBroker(queue, results *redis.Client, pollTimeout time.Duration, logger *zap.Logger) *Broker {
	return &Broker{
		queue:       queue,
		results:     results,
		logger:      logger,
		pollTimeout: pollTimeout,
	}
}

// Submit pushes cmd onto the named queue and returns a pollable handle.
func (b *Broker) Submit(ctx context.Context, queue string, cmd domain.Command) (ports.Handle, error) {
	token := uuid.New().String()

	data, err := json.Marshal(envelope{Token: token, Command: cmd})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command envelope: %w", err)
	}

	if err := b.queue.RPush(ctx, queueKey(queue), data).Err(); err != nil {
		return nil, fmt.Errorf("failed to push to queue %s: %w", queue, err)
	}

	b.logger.Debug("command submitted",
		zap.String("token", token),
		zap.String("queue", queue),
		zap.Int("argc", len(cmd)))

	return &handle{broker: b, token: token}, nil
}

// Close releases nothing itself; the Redis clients are owned and closed by
// the caller that constructed them.
func (b *Broker) Close() error {
	return nil
}

// handle polls the result backend for one dispatched command.
type handle struct {
	broker *Broker
	token  string
}

// Token returns the correlation token minted at submit time.
func (h *handle) Token() string {
	return h.token
}

// State fetches the current remote state. The configured poll timeout bounds
// the round trip; a missing result record reads as pending, since workers
// only write the record once they pick the command up.
func (h *handle) State(ctx context.Context) (domain.TaskState, error) {
	ctx, cancel := context.WithTimeout(ctx, h.broker.pollTimeout)
	defer cancel()

	data, err := h.broker.results.Get(ctx, resultKey(h.token)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return domain.StatePending, nil
		}
		return "", fmt.Errorf("failed to get result for token %s: %w", h.token, err)
	}

	var rec resultRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", fmt.Errorf("malformed result record for token %s: %w", h.token, err)
	}
	if !rec.State.Valid() {
		return "", fmt.Errorf("unexpected task state %q for token %s", rec.State, h.token)
	}

	if rec.State.Terminal() {
		// Best effort: let the record expire shortly after it was observed.
		h.broker.results.Expire(context.WithoutCancel(ctx), resultKey(h.token), resultTTL)
	}

	return rec.State, nil
}

// Wait polls until the task reaches a terminal state or ctx is done. Only for
// collaborators outside the sync loop.
func (h *handle) Wait(ctx context.Context) (domain.TaskState, error) {
	ticker := time.NewTicker(defaultWaitInterval)
	defer ticker.Stop()

	for {
		state, err := h.State(ctx)
		if err == nil && state.Terminal() {
			return state, nil
		}
		if err != nil {
			h.broker.logger.Debug("wait poll failed",
				zap.String("token", h.token),
				zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// queueKey returns the Redis list key for a queue.
func queueKey(queue string) string {
	return fmt.Sprintf("helmsman:queue:%s", queue)
}

// resultKey returns the Redis key for a result record.
func resultKey(token string) string {
	return fmt.Sprintf("helmsman:result:%s", token)
}
