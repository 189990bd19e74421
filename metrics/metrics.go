package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus instruments for the subscription engine
type Metrics struct {
	subscriptionsCreated *prometheus.CounterVec
	subscriptionUpdates  *prometheus.CounterVec
	reconciledTotal      prometheus.Counter
	statusDrift          prometheus.Gauge
}

// New registers the subscription engine instruments on registry
func New(registry *prometheus.Registry) *Metrics {
	return &Metrics{
		subscriptionsCreated: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscriptions_created_total",
				Help: "The total number of created subscriptions",
			},
			[]string{"payment_status"},
		),
		subscriptionUpdates: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscription_updates_total",
				Help: "The total number of operator updates by patched field",
			},
			[]string{"field"},
		),
		reconciledTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "subscription_reconciled_total",
				Help: "The total number of stored statuses aligned by the reconciler",
			},
		),
		statusDrift: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "subscription_status_drift",
				Help: "Subscriptions whose stored status differed from the computed one at the last sweep",
			},
		),
	}
}

// IncSubscriptionCreated counts one created subscription
func (m *Metrics) IncSubscriptionCreated(paymentStatus string) {
	m.subscriptionsCreated.WithLabelValues(paymentStatus).Inc()
}

// IncSubscriptionUpdate counts one patched field
func (m *Metrics) IncSubscriptionUpdate(field string) {
	m.subscriptionUpdates.WithLabelValues(field).Inc()
}

// AddReconciled counts statuses aligned by a sweep
func (m *Metrics) AddReconciled(n int) {
	m.reconciledTotal.Add(float64(n))
}

// SetStatusDrift records the drift observed by a sweep
func (m *Metrics) SetStatusDrift(n int) {
	m.statusDrift.Set(float64(n))
}
