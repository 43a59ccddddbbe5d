package triage

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/remedy/internal/booking"
)

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	TriagesTotal     *prometheus.CounterVec
	TriageDuration   *prometheus.HistogramVec
	ClassifyDuration prometheus.Histogram
	ClassifyFailures prometheus.Counter
	BookingsTotal    *prometheus.CounterVec
	AgentDuration    *prometheus.HistogramVec
	AgentLLMTime     *prometheus.HistogramVec
	AgentToolTime    prometheus.Histogram
	AgentTokensIn    prometheus.Histogram
	AgentTokensOut   prometheus.Histogram
	AgentToolCalls   prometheus.Histogram
	LLMCallsTotal    prometheus.Counter
	LLMTokensIn      prometheus.Counter
	LLMTokensOut     prometheus.Counter
	LLMDuration      prometheus.Histogram
	ToolCallsTotal   *prometheus.CounterVec
	ToolDuration     *prometheus.HistogramVec
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TriagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remedy_triages_total",
			Help: "Total triage turns by outcome.",
		}, []string{"outcome"}),
		TriageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "remedy_triage_duration_seconds",
			Help:    "Duration of triage turns in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s .. ~256s
		}, []string{"outcome"}),
		ClassifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "remedy_classify_duration_seconds",
			Help:    "Duration of severity classification calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}),
		ClassifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remedy_classify_failures_total",
			Help: "Total severity classifications rejected as invalid.",
		}),
		BookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remedy_bookings_total",
			Help: "Total booking attempts by result.",
		}, []string{"result"}),
		AgentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "remedy_agent_duration_seconds",
			Help:    "Duration of booking agent runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s .. ~512s
		}, []string{"status", "model"}),
		AgentLLMTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "remedy_agent_llm_time_seconds",
			Help:    "Total LLM time per booking agent run in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s .. ~512s
		}, []string{"model"}),
		AgentToolTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "remedy_agent_tool_time_seconds",
			Help:    "Total tool execution time per booking agent run in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s .. ~256s
		}),
		AgentTokensIn: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "remedy_agent_tokens_input",
			Help:    "Input tokens consumed per booking agent run.",
			Buckets: prometheus.ExponentialBuckets(100, 2, 12), // 100 .. ~409600
		}),
		AgentTokensOut: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "remedy_agent_tokens_output",
			Help:    "Output tokens consumed per booking agent run.",
			Buckets: prometheus.ExponentialBuckets(100, 2, 12), // 100 .. ~409600
		}),
		AgentToolCalls: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "remedy_agent_tool_calls",
			Help:    "Tool calls per booking agent run.",
			Buckets: prometheus.LinearBuckets(0, 1, 16), // 0 .. 15
		}),
		LLMCallsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remedy_llm_calls_total",
			Help: "Total LLM provider calls.",
		}),
		LLMTokensIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remedy_llm_tokens_input_total",
			Help: "Total LLM input tokens consumed.",
		}),
		LLMTokensOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remedy_llm_tokens_output_total",
			Help: "Total LLM output tokens consumed.",
		}),
		LLMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "remedy_llm_call_duration_seconds",
			Help:    "Duration of individual LLM calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}),
		ToolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remedy_tool_calls_total",
			Help: "Total tool executions by tool name and status.",
		}, []string{"tool", "status"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "remedy_tool_duration_seconds",
			Help:    "Duration of tool executions in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8), // 0.1s .. ~12.8s
		}, []string{"tool"}),
	}

	reg.MustRegister(
		m.TriagesTotal,
		m.TriageDuration,
		m.ClassifyDuration,
		m.ClassifyFailures,
		m.BookingsTotal,
		m.AgentDuration,
		m.AgentLLMTime,
		m.AgentToolTime,
		m.AgentTokensIn,
		m.AgentTokensOut,
		m.AgentToolCalls,
		m.LLMCallsTotal,
		m.LLMTokensIn,
		m.LLMTokensOut,
		m.LLMDuration,
		m.ToolCallsTotal,
		m.ToolDuration,
	)

	return m
}

// Hooks returns a booking.EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() booking.EngineHooks {
	return booking.EngineHooks{
		OnLLMCall: func(inputTokens, outputTokens int, duration float64) {
			m.LLMCallsTotal.Inc()
			m.LLMTokensIn.Add(float64(inputTokens))
			m.LLMTokensOut.Add(float64(outputTokens))
			m.LLMDuration.Observe(duration)
		},
		OnToolCall: func(name string, duration float64, isError bool) {
			status := "success"
			if isError {
				status = "error"
			}
			m.ToolCallsTotal.WithLabelValues(name, status).Inc()
			m.ToolDuration.WithLabelValues(name).Observe(duration)
		},
		OnComplete: func(e *booking.CompleteEvent) {
			m.AgentDuration.WithLabelValues(string(e.Status), e.Model).Observe(e.Duration)
			m.AgentLLMTime.WithLabelValues(e.Model).Observe(e.LLMTime)
			m.AgentToolTime.Observe(e.ToolTime)
			m.AgentTokensIn.Observe(float64(e.TokensIn))
			m.AgentTokensOut.Observe(float64(e.TokensOut))
			m.AgentToolCalls.Observe(float64(e.ToolCalls))
		},
	}
}
