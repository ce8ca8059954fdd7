package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wristwatch"

// Business holds the cart and payment funnel metrics.
type Business struct {
	CartItemsAdded     prometheus.Counter
	CheckoutStarted    prometheus.Counter
	PaymentInitialized *prometheus.CounterVec // outcome
	PaymentVerified    *prometheus.CounterVec // outcome
	OrdersPaid         prometheus.Counter
	OrderValue         prometheus.Histogram
	WebhookReceived    *prometheus.CounterVec // event, outcome
	ProviderLatency    *prometheus.HistogramVec
}

// NewBusiness registers the metrics on reg. Tests pass a fresh registry.
func NewBusiness(reg prometheus.Registerer) *Business {
	f := promauto.With(reg)

	return &Business{
		CartItemsAdded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_items_added_total",
			Help:      "Cart add operations that succeeded",
		}),
		CheckoutStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_started_total",
			Help:      "Payment initializations attempted with a non-empty cart",
		}),
		PaymentInitialized: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_initialized_total",
			Help:      "Provider initialization results",
		}, []string{"outcome"}),
		PaymentVerified: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_verified_total",
			Help:      "Reconciliation results by outcome",
		}, []string{"outcome"}),
		OrdersPaid: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_paid_total",
			Help:      "Orders that transitioned to paid",
		}),
		OrderValue: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_value",
			Help:      "Order totals in major currency units",
			Buckets:   []float64{1000, 5000, 10000, 50000, 100000, 500000, 1000000},
		}),
		WebhookReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_received_total",
			Help:      "Provider webhooks by event and outcome",
		}, []string{"event", "outcome"}),
		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_provider_duration_seconds",
			Help:      "Latency of payment provider calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"call"}),
	}
}

// NewNop returns metrics bound to a private registry that nobody scrapes.
func NewNop() *Business {
	return NewBusiness(prometheus.NewRegistry())
}
