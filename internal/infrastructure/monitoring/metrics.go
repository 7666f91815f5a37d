package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so components can run without monitoring wired in.
type Metrics struct {
	// Tool call metrics
	ToolCalls    *prometheus.CounterVec
	ToolDuration *prometheus.HistogramVec
	ToolRejected prometheus.Counter

	// Process metrics
	ProcessesSpawned *prometheus.CounterVec
	ProcessesKilled  prometheus.Counter
	ExecTimeouts     prometheus.Counter

	// Registry metrics
	SessionsActive prometheus.Gauge
	JobsTracked    *prometheus.GaugeVec
	JobsEvicted    prometheus.Counter

	// History metrics
	HistoryWrites *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates a metrics collector on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewMetricsWith(reg, reg)
}

// NewMetricsWith creates a metrics collector registered on reg.
func NewMetricsWith(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: gatherer,

		ToolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_server_tool_calls_total",
				Help: "Total number of tool calls",
			},
			[]string{"tool", "status"},
		),
		ToolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shell_server_tool_duration_seconds",
				Help:    "Tool call duration in seconds",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"tool"},
		),
		ToolRejected: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "shell_server_tool_rejected_total",
				Help: "Tool calls rejected by the rate limiter",
			},
		),

		ProcessesSpawned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_server_processes_spawned_total",
				Help: "Pty processes spawned, by mode",
			},
			[]string{"mode"},
		),
		ProcessesKilled: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "shell_server_processes_killed_total",
				Help: "Pty processes terminated by the server",
			},
		),
		ExecTimeouts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "shell_server_exec_timeouts_total",
				Help: "Command executions that hit their timeout",
			},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "shell_server_sessions_active",
				Help: "Number of live persistent sessions",
			},
		),
		JobsTracked: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "shell_server_jobs_tracked",
				Help: "Background jobs tracked, by status",
			},
			[]string{"status"},
		),
		JobsEvicted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "shell_server_jobs_evicted_total",
				Help: "Finished background jobs dropped by the retention policy",
			},
		),

		HistoryWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_server_history_writes_total",
				Help: "History appends, by result",
			},
			[]string{"result"},
		),
	}
}

// Handler returns the Prometheus exposition handler for this collector.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordToolCall records a finished tool call
func (m *Metrics) RecordToolCall(tool, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ToolCalls.WithLabelValues(tool, status).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// IncToolRejected counts a rate-limited call
func (m *Metrics) IncToolRejected() {
	if m == nil {
		return
	}
	m.ToolRejected.Inc()
}

// IncSpawned counts a spawned process
func (m *Metrics) IncSpawned(mode string) {
	if m == nil {
		return
	}
	m.ProcessesSpawned.WithLabelValues(mode).Inc()
}

// IncKilled counts a process kill
func (m *Metrics) IncKilled() {
	if m == nil {
		return
	}
	m.ProcessesKilled.Inc()
}

// IncTimeout counts an execution timeout
func (m *Metrics) IncTimeout() {
	if m == nil {
		return
	}
	m.ExecTimeouts.Inc()
}

// SetSessionsActive sets the number of live sessions
func (m *Metrics) SetSessionsActive(count int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(count))
}

// SetJobs sets the tracked job count for one status
func (m *Metrics) SetJobs(status string, count int) {
	if m == nil {
		return
	}
	m.JobsTracked.WithLabelValues(status).Set(float64(count))
}

// AddJobsEvicted counts jobs dropped by retention
func (m *Metrics) AddJobsEvicted(n int) {
	if m == nil || n == 0 {
		return
	}
	m.JobsEvicted.Add(float64(n))
}

// RecordHistoryWrite counts a history append
func (m *Metrics) RecordHistoryWrite(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.HistoryWrites.WithLabelValues(result).Inc()
}
