// internal/pkg/telemetry/metrics.go
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the cart, checkout and
// reconciliation flow. A nil *Metrics is valid and records nothing.
type Metrics struct {
	CartMutations     *prometheus.CounterVec
	CheckoutStarted   prometheus.Counter
	CheckoutCompleted prometheus.Counter
	CheckoutRejected  *prometheus.CounterVec
	PaymentSessions   *prometheus.CounterVec
	WebhookReceived   *prometheus.CounterVec
	Reconciliations   *prometheus.CounterVec
	StockDecrements   prometheus.Counter
	OrderValue        prometheus.Histogram
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "cart_mutations_total",
			Help:      "Cart mutations by operation and identity kind.",
		}, []string{"operation", "identity"}),
		CheckoutStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "checkout_started_total",
			Help:      "Checkout attempts received.",
		}),
		CheckoutCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "checkout_completed_total",
			Help:      "Checkouts that produced a payment redirect.",
		}),
		CheckoutRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "checkout_rejected_total",
			Help:      "Checkouts rejected before payment, by reason.",
		}, []string{"reason"}),
		PaymentSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "payment_sessions_total",
			Help:      "Payment session creation attempts by provider and result.",
		}, []string{"provider", "result"}),
		WebhookReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "webhook_events_total",
			Help:      "Verified provider events by event type.",
		}, []string{"event_type"}),
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "reconciliations_total",
			Help:      "Payment reconciliation outcomes.",
		}, []string{"outcome"}),
		StockDecrements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "stock_decrements_total",
			Help:      "Stock decrements applied on payment confirmation.",
		}),
		OrderValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "order_value_minor_units",
			Help:      "Order totals at creation, in minor currency units.",
			Buckets:   []float64{500, 1000, 2500, 5000, 10000, 25000, 50000, 100000},
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.CartMutations,
			m.CheckoutStarted,
			m.CheckoutCompleted,
			m.CheckoutRejected,
			m.PaymentSessions,
			m.WebhookReceived,
			m.Reconciliations,
			m.StockDecrements,
			m.OrderValue,
		)
	}
	return m
}

func (m *Metrics) CartMutation(operation, identity string) {
	if m == nil {
		return
	}
	m.CartMutations.WithLabelValues(operation, identity).Inc()
}

func (m *Metrics) CheckoutStart() {
	if m == nil {
		return
	}
	m.CheckoutStarted.Inc()
}

func (m *Metrics) CheckoutComplete() {
	if m == nil {
		return
	}
	m.CheckoutCompleted.Inc()
}

func (m *Metrics) CheckoutReject(reason string) {
	if m == nil {
		return
	}
	m.CheckoutRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) PaymentSession(provider string, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.PaymentSessions.WithLabelValues(provider, result).Inc()
}

func (m *Metrics) Webhook(eventType string) {
	if m == nil {
		return
	}
	m.WebhookReceived.WithLabelValues(eventType).Inc()
}

func (m *Metrics) Reconciled(outcome string) {
	if m == nil {
		return
	}
	m.Reconciliations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StockDecremented() {
	if m == nil {
		return
	}
	m.StockDecrements.Inc()
}

func (m *Metrics) OrderCreated(totalMinor int64) {
	if m == nil {
		return
	}
	m.OrderValue.Observe(float64(totalMinor))
}
