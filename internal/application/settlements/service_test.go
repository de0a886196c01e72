package settlements

import (
	"context"
	"errors"
	"testing"

	"insurledger-backend/internal/application/claims"
	"insurledger-backend/internal/application/custody"
	"insurledger-backend/internal/application/notifications"
	"insurledger-backend/internal/domain"
	"insurledger-backend/internal/infrastructure/blob"
	"insurledger-backend/internal/pkg/testutil"
	"insurledger-backend/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const analyst domain.Actor = "analyst-3"

func TestComputePayout(t *testing.T) {
	cases := []struct {
		claimed, deductible, depreciation, want string
	}{
		{"500", "50", "20", "430"},
		{"100", "100", "0", "0"},
		{"100", "80", "40", "0"},
		{"0", "0", "0", "0"},
		{"1234.56", "100.00", "34.56", "1100"},
	}
	for _, tc := range cases {
		got, err := ComputePayout(testutil.Dec(tc.claimed), testutil.Dec(tc.deductible), testutil.Dec(tc.depreciation))
		require.NoError(t, err)
		assert.True(t, testutil.Dec(tc.want).Equal(got), "%s-%s-%s = %s", tc.claimed, tc.deductible, tc.depreciation, got)
		assert.False(t, got.IsNegative())
	}

	_, err := ComputePayout(testutil.Dec("-1"), decimal.Zero, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = ComputePayout(decimal.Zero, testutil.Dec("-0.01"), decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = ComputePayout(decimal.Zero, decimal.Zero, testutil.Dec("-5"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

type env struct {
	db       *gorm.DB
	claims   *claims.Service
	svc      *Service
	blobs    *blob.Memory
	metrics  *metrics.Metrics
	policy   *domain.Policy
	asset    *domain.Asset
	keeperID uuid.UUID
}

func setup(t *testing.T) *env {
	db := testutil.NewDB(t)
	m := metrics.New(prometheus.NewRegistry())
	blobs := blob.NewMemory()
	emitter := &notifications.Emitter{Sink: &notifications.StoreSink{DB: db}, Metrics: m}
	keeper := testutil.SeedCustodian(t, db, "1100000200")
	return &env{
		db: db,
		claims: &claims.Service{
			DB: db, Custody: &custody.Service{DB: db, Metrics: m},
			Blobs: blobs, Notifier: emitter, Metrics: m,
		},
		svc:      &Service{DB: db, Blobs: blobs, Notifier: emitter, Metrics: m},
		blobs:    blobs,
		metrics:  m,
		policy:   testutil.SeedPolicy(t, db, "1000", "900"),
		asset:    testutil.SeedAsset(t, db, keeper, "UTPL-PRJ-01"),
		keeperID: keeper.CustodianID,
	}
}

func (e *env) newClaim(t *testing.T) *domain.Claim {
	t.Helper()
	c, err := e.claims.Create(context.Background(), analyst, claims.CreateInput{
		PolicyID:    e.policy.PolicyID,
		CustodianID: e.keeperID,
		AssetID:     e.asset.AssetID,
		EventDate:   testutil.Date(2026, 5, 4),
		Type:        "Electrical damage",
		Location:    "Lab 3",
		Cause:       "Power surge",
	})
	require.NoError(t, err)
	return c
}

func settleInput() SettleInput {
	return SettleInput{
		SettlementDate: testutil.Date(2026, 6, 1),
		ClaimedAmount:  testutil.Dec("500"),
		Deductible:     testutil.Dec("50"),
		Depreciation:   testutil.Dec("20"),
	}
}

func TestSettle(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	c := e.newClaim(t)

	st, err := e.svc.Settle(ctx, analyst, c.ClaimID, settleInput())
	require.NoError(t, err)
	assert.True(t, testutil.Dec("430").Equal(st.FinalPayout))
	assert.False(t, st.Paid)

	reloaded, err := e.claims.Get(ctx, c.ClaimID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimSettled, reloaded.State)
	require.NotNil(t, reloaded.ActualValue)
	assert.True(t, testutil.Dec("430").Equal(*reloaded.ActualValue))

	events, err := e.claims.History(ctx, c.ClaimID)
	require.NoError(t, err)
	assert.Equal(t, claims.EventSettled, events[len(events)-1].EventType)

	var n domain.Notification
	require.NoError(t, e.db.Where("category = ?", domain.NotifyClaimSettled).First(&n).Error)
	assert.Contains(t, n.Message, "430.00")
	assert.Equal(t, 1.0, promtest.ToFloat64(e.metrics.ClaimsSettled))
	assert.Equal(t, 430.0, promtest.ToFloat64(e.metrics.SettlementPayout))
}

func TestSettle_SecondAttemptAlreadySettled(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	c := e.newClaim(t)
	_, err := e.svc.Settle(ctx, analyst, c.ClaimID, settleInput())
	require.NoError(t, err)

	again := settleInput()
	again.ClaimedAmount = testutil.Dec("900")
	_, err = e.svc.Settle(ctx, analyst, c.ClaimID, again)
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)

	st, err := e.svc.Get(ctx, c.ClaimID)
	require.NoError(t, err)
	assert.True(t, testutil.Dec("500").Equal(st.ClaimedAmount))
}

func TestSettle_Concurrent(t *testing.T) {
	e := setup(t)
	c := e.newClaim(t)

	const attempts = 4
	results := make([]error, attempts)
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		i := i
		g.Go(func() error {
			_, results[i] = e.svc.Settle(context.Background(), analyst, c.ClaimID, settleInput())
			return nil
		})
	}
	require.NoError(t, g.Wait())

	won, lost := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, domain.ErrAlreadySettled):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, attempts-1, lost)

	var rows int64
	require.NoError(t, e.db.Model(&domain.Settlement{}).Where("claim_id = ?", c.ClaimID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestSettle_StateChecks(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	_, err := e.svc.Settle(ctx, analyst, uuid.New(), settleInput())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	c := e.newClaim(t)
	_, err = e.claims.Reject(ctx, analyst, c.ClaimID, "fraud")
	require.NoError(t, err)
	_, err = e.svc.Settle(ctx, analyst, c.ClaimID, settleInput())
	assert.ErrorIs(t, err, domain.ErrStateViolation)

	bad := settleInput()
	bad.Deductible = testutil.Dec("-1")
	_, err = e.svc.Settle(ctx, analyst, c.ClaimID, bad)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSettle_SignedDocument(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	c := e.newClaim(t)

	in := settleInput()
	in.SignedDoc = &SignedDocument{Filename: "finiquito.pdf", Data: []byte("%PDF")}
	st, err := e.svc.Settle(ctx, analyst, c.ClaimID, in)
	require.NoError(t, err)
	require.NotNil(t, st.SignedDocRef)
	assert.True(t, e.blobs.Has(*st.SignedDocRef))

	_, err = e.svc.Settle(ctx, analyst, c.ClaimID, in)
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)
	assert.Equal(t, 1, e.blobs.Len())

	in.SignedDoc = &SignedDocument{Filename: "finiquito.exe", Data: []byte("MZ")}
	_, err = e.svc.Settle(ctx, analyst, c.ClaimID, in)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSettle_ClaimUpdateFailureRollsBack(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	c := e.newClaim(t)

	injected := errors.New("claim update failed")
	require.NoError(t, e.db.Callback().Update().Before("gorm:update").Register("test:fail_claim_update", func(tx *gorm.DB) {
		if tx.Statement.Table == (domain.Claim{}).TableName() {
			_ = tx.AddError(injected)
		}
	}))

	in := settleInput()
	in.SignedDoc = &SignedDocument{Filename: "finiquito.pdf", Data: []byte("%PDF")}
	_, err := e.svc.Settle(ctx, analyst, c.ClaimID, in)
	assert.ErrorIs(t, err, injected)

	var n int64
	require.NoError(t, e.db.Model(&domain.Settlement{}).Where("claim_id = ?", c.ClaimID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, e.db.Model(&domain.ClaimEvent{}).Where("claim_id = ? AND to_state = ?", c.ClaimID, domain.ClaimSettled).Count(&n).Error)
	assert.Zero(t, n)

	reloaded, err := e.claims.Get(ctx, c.ClaimID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimReported, reloaded.State)
	assert.Nil(t, reloaded.ActualValue)
	assert.Zero(t, e.blobs.Len(), "signed document is removed when the transaction fails")
	assert.Zero(t, promtest.ToFloat64(e.metrics.ClaimsSettled))
}

func TestMarkPaid(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	c := e.newClaim(t)

	_, err := e.svc.MarkPaid(ctx, analyst, c.ClaimID, testutil.Date(2026, 6, 10))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.svc.Settle(ctx, analyst, c.ClaimID, settleInput())
	require.NoError(t, err)

	_, err = e.svc.MarkPaid(ctx, analyst, c.ClaimID, testutil.Date(2026, 5, 1))
	assert.ErrorIs(t, err, domain.ErrValidation)

	st, err := e.svc.MarkPaid(ctx, analyst, c.ClaimID, testutil.Date(2026, 6, 10))
	require.NoError(t, err)
	assert.True(t, st.Paid)

	reloaded, err := e.svc.Get(ctx, c.ClaimID)
	require.NoError(t, err)
	assert.True(t, reloaded.Paid)
	require.NotNil(t, reloaded.PaymentDate)
}

// Full claim journey: report, send to insurer, replace the asset, settle.
func TestClaimLifecycle_EndToEnd(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	assert.True(t, testutil.Dec("1000").Equal(e.policy.TotalPremium))
	assert.True(t, testutil.Dec("900").Equal(e.policy.BasePremium))

	c := e.newClaim(t)
	assert.Equal(t, domain.ClaimReported, c.State)

	_, err := e.claims.SendToInsurer(ctx, analyst, c.ClaimID)
	require.NoError(t, err)

	repaired, err := e.claims.RecordRepairOutcome(ctx, analyst, c.ClaimID, domain.OutcomeReplaced,
		&custody.ReplacementInput{Serial: "X1", Brand: "Epson", Model: "EB-X49"})
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimInRepair, repaired.State)

	old, err := e.claims.Custody.GetAsset(ctx, e.asset.AssetID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssetInactive, old.State)
	replacement, err := e.claims.Custody.GetAsset(ctx, repaired.AssetID)
	require.NoError(t, err)
	assert.Equal(t, e.asset.Code+"-R", replacement.Code)

	st, err := e.svc.Settle(ctx, analyst, c.ClaimID, settleInput())
	require.NoError(t, err)
	assert.True(t, testutil.Dec("430").Equal(st.FinalPayout))

	final, err := e.claims.Get(ctx, c.ClaimID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimSettled, final.State)
	assert.Equal(t, replacement.AssetID, final.AssetID)

	_, err = e.svc.Settle(ctx, analyst, c.ClaimID, settleInput())
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)

	_, err = e.claims.Edit(ctx, analyst, c.ClaimID, claims.EditInput{})
	assert.ErrorIs(t, err, domain.ErrStateViolation)

	events, err := e.claims.History(ctx, c.ClaimID)
	require.NoError(t, err)
	var types []string
	for _, ev := range events {
		types = append(types, ev.EventType)
	}
	assert.Equal(t, []string{claims.EventCreated, claims.EventTransition, claims.EventTransition, claims.EventSettled}, types)
}
