package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics records order and payment outcomes.
type StorefrontMetrics struct {
	submitDuration *prometheus.HistogramVec
	orders         *prometheus.CounterVec
	payments       *prometheus.CounterVec
}

// Order outcomes.
const (
	OutcomePlaced = "placed"
	OutcomeFailed = "failed"
)

// Payment outcomes.
const (
	PaymentCreated            = "created"
	PaymentVerified           = "verified"
	PaymentFailed             = "failed"
	PaymentVerifyFailed       = "verify_failed"
	PaymentGatewayUnavailable = "gateway_unavailable"
)

// NewStorefrontMetrics registers the storefront metrics on the provided registerer.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	submitDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_submit_duration_seconds",
		Help:    "Duration of upstream order submissions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_total",
		Help: "Order submissions by outcome.",
	}, []string{"outcome"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_attempts_total",
		Help: "Payment attempt phases by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(submitDuration, orders, payments)
	return &StorefrontMetrics{
		submitDuration: submitDuration,
		orders:         orders,
		payments:       payments,
	}
}

// ObserveSubmit records the duration of one order submission.
func (m *StorefrontMetrics) ObserveSubmit(outcome string, duration time.Duration) {
	if m == nil || m.submitDuration == nil {
		return
	}
	m.submitDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncOrder increments the order counter for the given outcome.
func (m *StorefrontMetrics) IncOrder(outcome string) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncPayment increments the payment counter for the given outcome.
func (m *StorefrontMetrics) IncPayment(outcome string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(label string) string {
	if label == "" {
		return "unknown"
	}
	return label
}
