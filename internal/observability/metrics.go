package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "minibank",
			Subsystem: "ledger",
			Name:      "transactions_total",
			Help:      "Transactions persisted by kind and terminal status",
		},
		[]string{"kind", "status"},
	)

	TransactionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "minibank",
			Subsystem: "ledger",
			Name:      "transaction_errors_total",
			Help:      "Engine calls that returned an error instead of a transaction",
		},
		[]string{"kind", "code"},
	)

	RateLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "minibank",
			Subsystem: "fx",
			Name:      "rate_lookups_total",
			Help:      "Exchange rate cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	ForexRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "minibank",
			Subsystem: "fx",
			Name:      "provider_requests_total",
			Help:      "Spot rate requests to the forex provider by result",
		},
		[]string{"result"},
	)

	TransferLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "minibank",
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Money movement latency per operation",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

// Rate lookup outcomes.
const (
	RateHitForward = "hit_forward"
	RateHitReverse = "hit_reverse"
	RateFetched    = "fetched"
)
