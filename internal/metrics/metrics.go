package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/char5742/kbdpad/internal/translator"
)

const namespace = "kbdpad"

// Metrics は変換ループの統計を Prometheus のカウンタとして公開する
type Metrics struct {
	registry *prometheus.Registry

	received      *prometheus.CounterVec
	emitted       prometheus.Counter
	emitFailures  prometheus.Counter
	fetchFailures prometheus.Counter
	forwarded     prometheus.Counter

	stats struct {
		received      atomic.Uint64
		emitted       atomic.Uint64
		emitFailures  atomic.Uint64
		fetchFailures atomic.Uint64
		forwarded     atomic.Uint64
	}
}

// Stats は /api/status で返す統計のスナップショット
type Stats struct {
	Received      uint64 `json:"received"`
	Emitted       uint64 `json:"emitted"`
	EmitFailures  uint64 `json:"emit_failures"`
	FetchFailures uint64 `json:"fetch_failures"`
	Forwarded     uint64 `json:"forwarded"`
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "input_events_total",
			Help:      "Events read from the physical keyboard, by kind.",
		}, []string{"kind"}),
		emitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "output_events_total",
			Help:      "Events written to the virtual gamepad.",
		}),
		emitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emit_failures_total",
			Help:      "Event groups that could not be written to the virtual gamepad.",
		}),
		fetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Failed reads from the physical keyboard.",
		}),
		forwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwarded_keys_total",
			Help:      "Unmapped key events forwarded to the passthrough keyboard.",
		}),
	}
	m.registry.MustRegister(m.received, m.emitted, m.emitFailures, m.fetchFailures, m.forwarded)
	return m
}

func (m *Metrics) Received(kind translator.Kind) {
	m.received.WithLabelValues(kind.String()).Inc()
	m.stats.received.Add(1)
}

func (m *Metrics) Emitted(events int) {
	m.emitted.Add(float64(events))
	m.stats.emitted.Add(uint64(events))
}

func (m *Metrics) EmitFailed() {
	m.emitFailures.Inc()
	m.stats.emitFailures.Add(1)
}

func (m *Metrics) FetchFailed() {
	m.fetchFailures.Inc()
	m.stats.fetchFailures.Add(1)
}

func (m *Metrics) Forwarded() {
	m.forwarded.Inc()
	m.stats.forwarded.Add(1)
}

func (m *Metrics) Snapshot() Stats {
	return Stats{
		Received:      m.stats.received.Load(),
		Emitted:       m.stats.emitted.Load(),
		EmitFailures:  m.stats.emitFailures.Load(),
		FetchFailures: m.stats.fetchFailures.Load(),
		Forwarded:     m.stats.forwarded.Load(),
	}
}

// Handler は /metrics 用のハンドラ
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
