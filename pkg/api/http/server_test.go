package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helmsman-wf/helmsman/internal/application/executor"
	"github.com/helmsman-wf/helmsman/pkg/adapters/broker/memory"
	"github.com/helmsman-wf/helmsman/pkg/adapters/metrics/noop"
	"github.com/helmsman-wf/helmsman/pkg/domain"
)

func newTestServer(t *testing.T) (*Server, *executor.Executor) {
	t.Helper()
	exec := executor.New(memory.NewBroker(), noop.NewCollector(), zap.NewNop(), executor.Options{Parallelism: 4})
	return NewServer(&Config{Port: 0, Executor: exec, Logger: zap.NewNop()}), exec
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	s.router.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestHandleExecutorState(t *testing.T) {
	s, exec := newTestServer(t)

	k := domain.TaskInstanceKey{WorkflowID: "wf", TaskID: "t1", TryNumber: 1}
	require.NoError(t, exec.Queue(k, domain.Command{"true"}, "default", 0))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/executor/state", nil)
	s.router.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)

	var body struct {
		Data executor.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.Pending)
	assert.Equal(t, 0, body.Data.InFlight)
	assert.Equal(t, 4, body.Data.Parallelism)
}

func TestHandleMetricsEndpointRegistered(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
}

func TestServerShutdown(t *testing.T) {
	s, _ := newTestServer(t)
	assert.NoError(t, s.Shutdown(context.Background()))
}
