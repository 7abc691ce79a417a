package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess  = "success"
	OutcomeSoldOut  = "sold_out"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	purchases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blocktix_purchases_total",
			Help: "Purchase attempts by outcome",
		},
		[]string{"outcome"},
	)

	ticketsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "blocktix_tickets_issued_total",
			Help: "Tickets issued by successful purchases",
		},
	)

	transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blocktix_ticket_transitions_total",
			Help: "Ticket lifecycle transitions by kind and outcome",
		},
		[]string{"transition", "outcome"},
	)

	purchaseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "blocktix_purchase_duration_seconds",
			Help:    "Time spent inside the purchase transaction",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)
)

func TrackPurchase(outcome string, issued int, started time.Time) {
	purchases.WithLabelValues(outcome).Inc()
	if issued > 0 {
		ticketsIssued.Add(float64(issued))
	}
	purchaseDuration.Observe(time.Since(started).Seconds())
}

func TrackTransition(transition, outcome string) {
	transitions.WithLabelValues(transition, outcome).Inc()
}
