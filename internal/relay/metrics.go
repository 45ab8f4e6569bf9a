package relay

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/flemzord/tgrelay/internal/history"
)

const metricsNamespace = "tgrelay"

// Metrics holds the relay's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	messages   *prometheus.CounterVec
	completion prometheus.Histogram
	window     prometheus.Histogram
	sinkErrors prometheus.Counter
}

// NewMetrics registers the relay collectors on reg. When store is non-nil,
// gauges for stored conversations and turns are registered as well.
func NewMetrics(reg prometheus.Registerer, store *history.Store) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_total",
			Help:      "Inbound messages by outcome (succeeded, failed, skipped).",
		}, []string{"outcome"}),
		completion: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "completion_duration_seconds",
			Help:      "Time spent waiting for the completion provider.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		window: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "window_messages",
			Help:      "Messages sent per completion, system and new user message included.",
			Buckets:   prometheus.LinearBuckets(2, 4, 10),
		}),
		sinkErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "debug_sink_errors_total",
			Help:      "Failed writes to debug sinks.",
		}),
	}

	if store != nil {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "history_conversations",
			Help:      "Conversations with at least one stored exchange.",
		}, func() float64 { return float64(store.Stats().Conversations) })
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "history_turns",
			Help:      "Stored turns across all conversations.",
		}, func() float64 { return float64(store.Stats().Turns) })
	}
	return m
}

func (m *Metrics) observeResult(r Result) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(r.outcome()).Inc()
}

func (m *Metrics) observeCompletion(d time.Duration, windowLen int) {
	if m == nil {
		return
	}
	m.completion.Observe(d.Seconds())
	m.window.Observe(float64(windowLen))
}

func (m *Metrics) sinkError() {
	if m == nil {
		return
	}
	m.sinkErrors.Inc()
}
