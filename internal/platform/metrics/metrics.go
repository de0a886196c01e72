package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks the claims core: lifecycle transitions, settlements,
// asset replacements, invoices and dropped notifications.
type Metrics struct {
	ClaimsCreated        prometheus.Counter
	ClaimTransitions     *prometheus.CounterVec
	ClaimsSettled        prometheus.Counter
	SettlementPayout     prometheus.Counter
	AssetsReplaced       prometheus.Counter
	InvoicesIssued       prometheus.Counter
	NotificationFailures *prometheus.CounterVec
	SettleDuration       prometheus.Histogram
}

// New registers all metrics on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ClaimsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "insurledger_claims_created_total",
			Help: "Total number of claims reported",
		}),
		ClaimTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "insurledger_claim_transitions_total",
			Help: "Claim lifecycle transitions by target state",
		}, []string{"to"}),
		ClaimsSettled: f.NewCounter(prometheus.CounterOpts{
			Name: "insurledger_claims_settled_total",
			Help: "Total number of claims settled",
		}),
		SettlementPayout: f.NewCounter(prometheus.CounterOpts{
			Name: "insurledger_settlement_payout_total",
			Help: "Sum of final payouts across settlements",
		}),
		AssetsReplaced: f.NewCounter(prometheus.CounterOpts{
			Name: "insurledger_assets_replaced_total",
			Help: "Total number of assets replaced after a claim",
		}),
		InvoicesIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "insurledger_invoices_issued_total",
			Help: "Total number of invoices issued",
		}),
		NotificationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "insurledger_notification_failures_total",
			Help: "Notifications dropped because a sink failed",
		}, []string{"category"}),
		SettleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "insurledger_settle_duration_seconds",
			Help:    "Duration of Settle operations including the transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// The helpers below are nil-safe so services can run without metrics.

func (m *Metrics) IncClaimCreated() {
	if m != nil {
		m.ClaimsCreated.Inc()
	}
}

func (m *Metrics) IncTransition(to string) {
	if m != nil {
		m.ClaimTransitions.WithLabelValues(to).Inc()
	}
}

func (m *Metrics) ObserveSettlement(payout float64, start time.Time) {
	if m == nil {
		return
	}
	m.ClaimsSettled.Inc()
	m.SettlementPayout.Add(payout)
	m.SettleDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncAssetReplaced() {
	if m != nil {
		m.AssetsReplaced.Inc()
	}
}

func (m *Metrics) IncInvoiceIssued() {
	if m != nil {
		m.InvoicesIssued.Inc()
	}
}

func (m *Metrics) IncNotificationFailure(category string) {
	if m != nil {
		m.NotificationFailures.WithLabelValues(category).Inc()
	}
}
