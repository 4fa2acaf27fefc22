package metrics

import "github.com/prometheus/client_golang/prometheus"

// CartMetrics counts cart mutations, persistence failures and change broadcasts.
type CartMetrics struct {
	ops             *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
	broadcasts      prometheus.Counter
	subscribers     prometheus.Gauge
}

// NewCartMetrics registers the cart metrics on reg. A nil registerer yields a no-op recorder.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	m := &CartMetrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "operations_total",
			Help:      "Cart operations applied, by operation.",
		}, []string{"op"}),
		persistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "persist_failures_total",
			Help:      "Cart blob writes that failed, by storage backend.",
		}, []string{"backend"}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "change_signals_total",
			Help:      "Cart change signals broadcast to subscribers.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "event_subscribers",
			Help:      "Open cart change subscriptions.",
		}),
	}
	reg.MustRegister(m.ops, m.persistFailures, m.broadcasts, m.subscribers)
	return m
}

// IncOp counts an applied cart mutation.
func (m *CartMetrics) IncOp(op string) {
	if m == nil || m.ops == nil {
		return
	}
	m.ops.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncPersistFailure counts a failed blob write.
func (m *CartMetrics) IncPersistFailure(backend string) {
	if m == nil || m.persistFailures == nil {
		return
	}
	m.persistFailures.WithLabelValues(normalizeLabel(backend)).Inc()
}

// IncBroadcast counts a change signal.
func (m *CartMetrics) IncBroadcast() {
	if m == nil || m.broadcasts == nil {
		return
	}
	m.broadcasts.Inc()
}

// SubscriberAdded tracks an opened subscription.
func (m *CartMetrics) SubscriberAdded() {
	if m == nil || m.subscribers == nil {
		return
	}
	m.subscribers.Inc()
}

// SubscriberRemoved tracks a closed subscription.
func (m *CartMetrics) SubscriberRemoved() {
	if m == nil || m.subscribers == nil {
		return
	}
	m.subscribers.Dec()
}
