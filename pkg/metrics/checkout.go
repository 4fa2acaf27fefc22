package metrics

import "github.com/prometheus/client_golang/prometheus"

// Checkout outcomes.
const (
	CheckoutCreated   = "created"
	CheckoutEmpty     = "empty_cart"
	CheckoutFailed    = "failed"
	CheckoutCompleted = "completed"
	CheckoutExpired   = "expired"
)

// CheckoutMetrics counts payment session handoffs and webhook outcomes.
type CheckoutMetrics struct {
	sessions      *prometheus.CounterVec
	skippedAddons *prometheus.CounterVec
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	m := &CheckoutMetrics{
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "sessions_total",
			Help:      "Checkout sessions by outcome.",
		}, []string{"outcome"}),
		skippedAddons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "skipped_addons_total",
			Help:      "Flagged add-ons left out of a checkout because their price id is not configured.",
		}, []string{"addon"}),
	}
	reg.MustRegister(m.sessions, m.skippedAddons)
	return m
}

// IncSession counts a checkout outcome.
func (m *CheckoutMetrics) IncSession(outcome string) {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncSkippedAddon counts an add-on dropped for a missing price id.
func (m *CheckoutMetrics) IncSkippedAddon(slug string) {
	if m == nil || m.skippedAddons == nil {
		return
	}
	m.skippedAddons.WithLabelValues(normalizeLabel(slug)).Inc()
}
