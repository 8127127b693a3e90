package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/helmsman-wf/helmsman/pkg/domain"
)

// Collector implements ports.MetricsCollector using Prometheus.
type Collector struct {
	tasksQueued     *prometheus.CounterVec
	tasksDispatched *prometheus.CounterVec
	taskOutcomes    *prometheus.CounterVec
	fetchFailures   prometheus.Counter
	inFlight        prometheus.Gauge
	pending         prometheus.Gauge
	syncDuration    prometheus.Histogram
}

// NewCollector creates a new Prometheus metrics collector. Metrics register
// on the default registry, so construct at most one per process.
func NewCollector() *Collector {
	return &Collector{
		tasksQueued: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helmsman_executor_tasks_queued_total",
				Help: "Total number of tasks accepted into the pending queue",
			},
			[]string{"queue"},
		),
		tasksDispatched: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helmsman_executor_tasks_dispatched_total",
				Help: "Total number of tasks dispatched to the broker",
			},
			[]string{"queue"},
		),
		taskOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helmsman_executor_task_outcomes_total",
				Help: "Total number of terminal task outcomes by state",
			},
			[]string{"state"},
		),
		fetchFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "helmsman_executor_fetch_failures_total",
				Help: "Total number of remote state lookups that failed",
			},
		),
		inFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "helmsman_executor_in_flight",
				Help: "Number of tasks currently dispatched and unresolved",
			},
		),
		pending: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "helmsman_executor_pending",
				Help: "Number of tasks queued but not yet dispatched",
			},
		),
		syncDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "helmsman_executor_sync_duration_seconds",
				Help:    "Duration of one state reconciliation pass",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
		),
	}
}

// IncTasksQueued increments the count of queued tasks.
func (c *Collector) IncTasksQueued(queue string) {
	c.tasksQueued.WithLabelValues(queue).Inc()
}

// IncTasksDispatched increments the count of dispatched tasks.
func (c *Collector) IncTasksDispatched(queue string) {
	c.tasksDispatched.WithLabelValues(queue).Inc()
}

// IncTaskOutcome increments the count of terminal outcomes for a state.
func (c *Collector) IncTaskOutcome(state domain.TaskState) {
	c.taskOutcomes.WithLabelValues(string(state)).Inc()
}

// IncFetchFailures increments the count of failed remote state lookups.
func (c *Collector) IncFetchFailures() {
	c.fetchFailures.Inc()
}

// SetInFlight sets the current in-flight gauge.
func (c *Collector) SetInFlight(count int) {
	c.inFlight.Set(float64(count))
}

// SetPending sets the current pending gauge.
func (c *Collector) SetPending(count int) {
	c.pending.Set(float64(count))
}

// ObserveSyncDuration records the duration of one sync pass.
func (c *Collector) ObserveSyncDuration(d time.Duration) {
	c.syncDuration.Observe(d.Seconds())
}
