package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncClaimCreated()
	m.IncTransition("SENT_TO_INSURER")
	m.IncTransition("SENT_TO_INSURER")
	m.ObserveSettlement(430, time.Now())
	m.IncNotificationFailure("CLAIM_SETTLED")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClaimsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ClaimTransitions.WithLabelValues("SENT_TO_INSURER")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClaimsSettled))
	assert.Equal(t, 430.0, testutil.ToFloat64(m.SettlementPayout))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationFailures.WithLabelValues("CLAIM_SETTLED")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncClaimCreated()
		m.IncTransition("IN_REPAIR")
		m.ObserveSettlement(1, time.Now())
		m.IncAssetReplaced()
		m.IncInvoiceIssued()
		m.IncNotificationFailure("OTHER")
	})
}
