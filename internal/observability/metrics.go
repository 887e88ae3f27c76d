package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	httpRequestTotal    *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	chatRequestTotal    *prometheus.CounterVec
	chatRequestDuration prometheus.Histogram
	activeConversations prometheus.Gauge

	knowledgeSearchDuration prometheus.Histogram
	knowledgeSyncDuration   prometheus.Histogram
	knowledgeChunksTotal    prometheus.Gauge

	toolExecutionTotal    *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec
	toolErrorsTotal       *prometheus.CounterVec

	agentRunTotal    *prometheus.CounterVec
	agentRunDuration *prometheus.HistogramVec
	agentErrorsTotal *prometheus.CounterVec
	providerCooldown *prometheus.GaugeVec

	delegationTotal *prometheus.CounterVec

	enrollmentTotal *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			httpRequestTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total HTTP requests by route and status code.",
				},
				[]string{"route", "status"},
			),
			httpRequestDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request duration in seconds by route.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"route"},
			),
			chatRequestTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "chat_requests_total",
					Help: "Total chat requests by status.",
				},
				[]string{"status"},
			),
			chatRequestDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "chat_request_duration_seconds",
					Help:    "End-to-end chat request duration in seconds.",
					Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
				},
			),
			activeConversations: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "active_conversations",
					Help: "Current active websocket conversation count.",
				},
			),
			knowledgeSearchDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "knowledge_search_duration_seconds",
					Help:    "Knowledge base search duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			knowledgeSyncDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "knowledge_sync_duration_seconds",
					Help:    "Knowledge base sync duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			knowledgeChunksTotal: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "knowledge_chunks_total",
					Help: "Total knowledge base chunks indexed.",
				},
			),
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_execution_total",
					Help: "Total tool executions by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "tool_execution_duration_seconds",
					Help:    "Tool execution duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			toolErrorsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_errors_total",
					Help: "Total tool execution errors by tool.",
				},
				[]string{"tool"},
			),
			agentRunTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agent_run_total",
					Help: "Total agent runs by provider and status.",
				},
				[]string{"provider", "status"},
			),
			agentRunDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "agent_run_duration_seconds",
					Help:    "Agent run duration in seconds by provider.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"provider"},
			),
			agentErrorsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agent_errors_total",
					Help: "Total agent errors by provider.",
				},
				[]string{"provider"},
			),
			providerCooldown: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "provider_cooldown_active",
					Help: "Provider cooldown active state (1 active, 0 inactive).",
				},
				[]string{"provider"},
			),
			delegationTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "specialist_delegation_total",
					Help: "Total manager delegations by specialist and status.",
				},
				[]string{"specialist", "status"},
			),
			enrollmentTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "enrollment_operations_total",
					Help: "Total enrollment operations by action and status.",
				},
				[]string{"action", "status"},
			),
		}

		prometheus.MustRegister(
			m.httpRequestTotal,
			m.httpRequestDuration,
			m.chatRequestTotal,
			m.chatRequestDuration,
			m.activeConversations,
			m.knowledgeSearchDuration,
			m.knowledgeSyncDuration,
			m.knowledgeChunksTotal,
			m.toolExecutionTotal,
			m.toolExecutionDuration,
			m.toolErrorsTotal,
			m.agentRunTotal,
			m.agentRunDuration,
			m.agentErrorsTotal,
			m.providerCooldown,
			m.delegationTotal,
			m.enrollmentTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordHTTPRequest(route, status string, duration time.Duration) {
	m := getMetrics()
	m.httpRequestTotal.WithLabelValues(route, status).Inc()
	m.httpRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func RecordChatRequest(duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.chatRequestTotal.WithLabelValues(status).Inc()
	m.chatRequestDuration.Observe(duration.Seconds())
}

func SetActiveConversations(count int) {
	m := getMetrics()
	m.activeConversations.Set(float64(count))
}

func RecordKnowledgeSearch(duration time.Duration) {
	m := getMetrics()
	m.knowledgeSearchDuration.Observe(duration.Seconds())
}

func RecordKnowledgeSync(duration time.Duration) {
	m := getMetrics()
	m.knowledgeSyncDuration.Observe(duration.Seconds())
}

func SetKnowledgeChunks(total int) {
	m := getMetrics()
	m.knowledgeChunksTotal.Set(float64(total))
}

func RecordToolExecution(tool string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.toolExecutionTotal.WithLabelValues(tool, status).Inc()
	m.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
	if !success {
		m.toolErrorsTotal.WithLabelValues(tool).Inc()
	}
}

func RecordAgentRun(provider string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.agentRunTotal.WithLabelValues(provider, status).Inc()
	m.agentRunDuration.WithLabelValues(provider).Observe(duration.Seconds())
	if !success {
		m.agentErrorsTotal.WithLabelValues(provider).Inc()
	}
}

func SetProviderCooldown(provider string, active bool) {
	m := getMetrics()
	value := 0.0
	if active {
		value = 1.0
	}
	m.providerCooldown.WithLabelValues(provider).Set(value)
}

func RecordDelegation(specialist string, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.delegationTotal.WithLabelValues(specialist, status).Inc()
}

func RecordEnrollmentOperation(action string, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.enrollmentTotal.WithLabelValues(action, status).Inc()
}
