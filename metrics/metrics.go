package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Reconciliations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_reconciliations_total",
			Help: "Payment reconciliations by flow (purchase, booking) and outcome",
		},
		[]string{"flow", "outcome"},
	)

	GatewayLookups = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "presence_gateway_lookup_seconds",
			Help:    "Time taken by the payment gateway to answer a verification lookup",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"gateway", "result"},
	)

	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_notifications_total",
			Help: "Notification emails by kind and result",
		},
		[]string{"kind", "result"},
	)

	DuplicateBookingReferences = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "presence_duplicate_booking_references_total",
			Help: "Paid bookings recorded with a payment reference already used by another booking",
		},
	)

	ExchangeRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "presence_exchange_rate",
			Help: "Last fetched reference to settlement currency rate",
		},
	)

	ExchangeRateFallback = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "presence_exchange_rate_fallback",
			Help: "1 while prices are converted with the fallback rate",
		},
	)
)

func Register() {
	prometheus.MustRegister(
		Reconciliations,
		GatewayLookups,
		Notifications,
		DuplicateBookingReferences,
		ExchangeRate,
		ExchangeRateFallback,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
