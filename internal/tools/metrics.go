package tools

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK            = "ok"
	outcomeUnknownTool   = "unknown_tool"
	outcomeInvalidArgs   = "invalid_arguments"
	outcomeHandlerFailed = "error"

	// unknownToolLabel stands in for names that match no descriptor, so the
	// tool label only takes registered values.
	unknownToolLabel = "unknown"
)

// Metrics counts dispatched calls per tool and outcome. A nil *Metrics records
// nothing.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "huly_cef",
			Name:      "tool_calls_total",
			Help:      "Tool calls by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "huly_cef",
			Name:      "tool_call_duration_seconds",
			Help:      "Time spent dispatching a tool call, validation included.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 3, 5, 10, 30},
		}, []string{"tool"}),
	}
}

func (m *Metrics) observe(tool string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.calls.WithLabelValues(tool, outcome(err)).Inc()
	m.duration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

func outcome(err error) string {
	var (
		unknown *UnknownToolError
		invalid *ValidationError
	)

	switch {
	case err == nil:
		return outcomeOK
	case errors.As(err, &unknown):
		return outcomeUnknownTool
	case errors.As(err, &invalid):
		return outcomeInvalidArgs
	default:
		return outcomeHandlerFailed
	}
}
