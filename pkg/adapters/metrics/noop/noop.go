// Package noop provides a metrics collector that discards everything.
// Used in tests, where the prometheus adapter's default-registry
// registration is process-global.
package noop

import (
	"time"

	"github.com/helmsman-wf/helmsman/pkg/domain"
)

// Collector implements ports.MetricsCollector and does nothing.
type Collector struct{}

// NewCollector creates a no-op metrics collector.
func NewCollector() *Collector { return &Collector{} }

func (*Collector) IncTasksQueued(string)             {}
func (*Collector) IncTasksDispatched(string)         {}
func (*Collector) IncTaskOutcome(domain.TaskState)   {}
func (*Collector) IncFetchFailures()                 {}
func (*Collector) SetInFlight(int)                   {}
func (*Collector) SetPending(int)                    {}
func (*Collector) ObserveSyncDuration(time.Duration) {}
