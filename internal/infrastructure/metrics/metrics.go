package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application's Prometheus collectors on a private
// registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	statusTransitions  *prometheus.CounterVec
	internsDeactivated prometheus.Counter
	orphansRemoved     prometheus.Counter
	jobRuns            *prometheus.CounterVec
}

// New creates and registers all collectors
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		statusTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "internhub_task_status_transitions_total",
				Help: "Task status changes by cause",
			},
			[]string{"event", "from", "to"},
		),
		internsDeactivated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "internhub_interns_deactivated_total",
			Help: "Interns set inactive by the inactivity sweep",
		}),
		orphansRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "internhub_orphaned_feedback_removed_total",
			Help: "Feedback records deleted because their task no longer exists",
		}),
		jobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "internhub_job_runs_total",
				Help: "Background job runs by outcome",
			},
			[]string{"job", "result"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestsTotal,
		m.RequestDuration,
		m.statusTransitions,
		m.internsDeactivated,
		m.orphansRemoved,
		m.jobRuns,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) StatusTransition(event, from, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(event, from, to).Inc()
}

func (m *Metrics) InternsDeactivated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.internsDeactivated.Add(float64(n))
}

func (m *Metrics) OrphansRemoved(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.orphansRemoved.Add(float64(n))
}

// JobRun records one job execution; result is "ok", "error" or "skipped".
func (m *Metrics) JobRun(job, result string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
}
