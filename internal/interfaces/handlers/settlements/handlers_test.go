package settlements

import (
	"context"
	"testing"

	claimsvc "insurledger-backend/internal/application/claims"
	custsvc "insurledger-backend/internal/application/custody"
	setsvc "insurledger-backend/internal/application/settlements"
	"insurledger-backend/internal/infrastructure/blob"
	"insurledger-backend/internal/pkg/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSettlementsTest(t *testing.T) (*fiber.App, *blob.Memory, string) {
	db := testutil.NewDB(t)
	blobs := blob.NewMemory()
	claims := &claimsvc.Service{DB: db, Custody: &custsvc.Service{DB: db}, Blobs: blobs}
	h := &Handlers{Service: &setsvc.Service{DB: db, Blobs: blobs}}
	app := testutil.NewApp()
	app.Post("/claims/:claim_id/settlement", h.Settle)
	app.Get("/claims/:claim_id/settlement", h.Get)
	app.Post("/claims/:claim_id/settlement/paid", h.MarkPaid)

	policy := testutil.SeedPolicy(t, db, "1000", "900")
	keeper := testutil.SeedCustodian(t, db, "1100000300")
	asset := testutil.SeedAsset(t, db, keeper, "SRV-01")
	claim, err := claims.Create(context.Background(), testutil.Actor, claimsvc.CreateInput{
		PolicyID:       policy.PolicyID,
		CustodianID:    keeper.CustodianID,
		AssetID:        asset.AssetID,
		EventDate:      testutil.Date(2026, 4, 1),
		Type:           "Theft",
		Location:       "Server room",
		Cause:          "Break-in",
		EstimatedValue: testutil.Dec("500"),
	})
	require.NoError(t, err)
	return app, blobs, claim.ClaimID.String()
}

func TestSettle_JSON(t *testing.T) {
	app, _, id := setupSettlementsTest(t)
	status, out := testutil.Do(t, app, testutil.JSONRequest(t, "POST", "/claims/"+id+"/settlement", map[string]interface{}{
		"number":          "LIQ-001",
		"settlement_date": "2026-05-10",
		"claimed_amount":  "500",
		"deductible":      "50",
		"depreciation":    "20",
	}))
	require.Equal(t, fiber.StatusCreated, status, out)
	assert.Equal(t, "430", testutil.Data(t, out)["final_payout"])

	status, out = testutil.Do(t, app, testutil.JSONRequest(t, "POST", "/claims/"+id+"/settlement", map[string]interface{}{
		"claimed_amount": "500", "deductible": "50", "depreciation": "20",
	}))
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "AlreadySettled", testutil.ErrorKind(t, out))

	status, out = testutil.Do(t, app, testutil.JSONRequest(t, "GET", "/claims/"+id+"/settlement", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "LIQ-001", testutil.Data(t, out)["number"])
}

func TestSettle_NegativeAmount(t *testing.T) {
	app, _, id := setupSettlementsTest(t)
	status, out := testutil.Do(t, app, testutil.JSONRequest(t, "POST", "/claims/"+id+"/settlement", map[string]interface{}{
		"claimed_amount": "500", "deductible": "-1",
	}))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "ValidationError", testutil.ErrorKind(t, out))
}

func TestSettle_MultipartWithSignedDocument(t *testing.T) {
	app, blobs, id := setupSettlementsTest(t)
	status, out := testutil.Do(t, app, testutil.UploadRequest(t, "/claims/"+id+"/settlement", "signed_document", "finiquito.pdf", []byte("%PDF-1.5"), map[string]string{
		"settlement_date": "2026-05-10",
		"claimed_amount":  "1234.56",
		"deductible":      "100.00",
		"depreciation":    "34.56",
	}))
	require.Equal(t, fiber.StatusCreated, status, out)
	st := testutil.Data(t, out)
	assert.Equal(t, "1100", st["final_payout"])
	assert.NotNil(t, st["signed_doc_ref"])
	assert.Equal(t, 1, blobs.Len())

	status, out = testutil.Do(t, app, testutil.UploadRequest(t, "/claims/"+id+"/settlement", "", "", nil, map[string]string{"claimed_amount": "abc"}))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "ValidationError", testutil.ErrorKind(t, out))
}

func TestMarkPaid(t *testing.T) {
	app, _, id := setupSettlementsTest(t)
	status, out := testutil.Do(t, app, testutil.JSONRequest(t, "POST", "/claims/"+id+"/settlement/paid", map[string]string{"payment_date": "2026-05-20"}))
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NotFound", testutil.ErrorKind(t, out))

	status, _ = testutil.Do(t, app, testutil.JSONRequest(t, "POST", "/claims/"+id+"/settlement", map[string]interface{}{
		"settlement_date": "2026-05-10", "claimed_amount": "500", "deductible": "50",
	}))
	require.Equal(t, fiber.StatusCreated, status)

	status, out = testutil.Do(t, app, testutil.JSONRequest(t, "POST", "/claims/"+id+"/settlement/paid", map[string]string{"payment_date": "2026-05-01"}))
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, out = testutil.Do(t, app, testutil.JSONRequest(t, "POST", "/claims/"+id+"/settlement/paid", map[string]string{"payment_date": "2026-05-20"}))
	require.Equal(t, fiber.StatusOK, status, out)
	assert.Equal(t, true, testutil.Data(t, out)["paid"])
}
