package claims

import (
	"testing"

	claimsvc "insurledger-backend/internal/application/claims"
	custsvc "insurledger-backend/internal/application/custody"
	"insurledger-backend/internal/domain"
	"insurledger-backend/internal/infrastructure/blob"
	"insurledger-backend/internal/pkg/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	app       *fiber.App
	db        *gorm.DB
	blobs     *blob.Memory
	policy    *domain.Policy
	custodian *domain.Custodian
	asset     *domain.Asset
}

func setupClaimsTest(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	blobs := blob.NewMemory()
	h := &Handlers{Service: &claimsvc.Service{DB: db, Custody: &custsvc.Service{DB: db}, Blobs: blobs}}
	app := testutil.NewApp()
	app.Post("/claims", h.Create)
	app.Get("/claims", h.List)
	app.Delete("/claims/documents/:document_id", h.RemoveDocument)
	app.Get("/claims/:claim_id", h.Get)
	app.Patch("/claims/:claim_id", h.Edit)
	app.Delete("/claims/:claim_id", h.Delete)
	app.Get("/claims/:claim_id/history", h.History)
	app.Post("/claims/:claim_id/request-documentation", h.RequestDocumentation())
	app.Post("/claims/:claim_id/complete-documentation", h.CompleteDocumentation())
	app.Post("/claims/:claim_id/send-to-insurer", h.SendToInsurer())
	app.Post("/claims/:claim_id/repair-outcome", h.RecordRepairOutcome())
	app.Post("/claims/:claim_id/reject", h.Reject())
	app.Post("/claims/:claim_id/documents", h.AddDocument)
	app.Get("/claims/:claim_id/documents", h.ListDocuments)
	app.Get("/policies/:policy_id/claims", h.ListByPolicy)

	c := testutil.SeedCustodian(t, db, "1100000200")
	return &fixture{
		app:       app,
		db:        db,
		blobs:     blobs,
		policy:    testutil.SeedPolicy(t, db, "1000", "900"),
		custodian: c,
		asset:     testutil.SeedAsset(t, db, c, "LAB-PC-01"),
	}
}

func (f *fixture) create(t *testing.T, number string) (int, map[string]interface{}) {
	t.Helper()
	return testutil.Do(t, f.app, testutil.JSONRequest(t, "POST", "/claims", map[string]interface{}{
		"number":          number,
		"policy_id":       f.policy.PolicyID,
		"custodian_id":    f.custodian.CustodianID,
		"asset_id":        f.asset.AssetID,
		"event_date":      "2026-03-02",
		"notified_date":   "2026-03-03",
		"type":            "Accidental damage",
		"location":        "Library, 2nd floor",
		"cause":           "Dropped from desk",
		"estimated_value": "500.00",
	}))
}

func (f *fixture) post(t *testing.T, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	return testutil.Do(t, f.app, testutil.JSONRequest(t, "POST", path, body))
}

func TestCreateClaim(t *testing.T) {
	f := setupClaimsTest(t)
	status, out := f.create(t, "CLM-001")
	require.Equal(t, fiber.StatusCreated, status, out)
	c := testutil.Data(t, out)
	assert.Equal(t, "REPORTED", c["state"])
	assert.Equal(t, "500", c["estimated_value"])

	status, out = f.create(t, "CLM-001")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "Conflict", testutil.ErrorKind(t, out))

	status, out = testutil.Do(t, f.app, testutil.JSONRequest(t, "GET", "/policies/"+f.policy.PolicyID.String()+"/claims", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, out["data"], 1)
}

func TestCreateClaim_AssetHeldByAnotherCustodian(t *testing.T) {
	f := setupClaimsTest(t)
	other := testutil.SeedCustodian(t, f.db, "1100000201")
	f.asset = testutil.SeedAsset(t, f.db, other, "LAB-PC-02")

	status, out := f.create(t, "CLM-002")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "IntegrityViolation", testutil.ErrorKind(t, out))
}

func TestClaimLifecycle_OverHTTP(t *testing.T) {
	f := setupClaimsTest(t)
	_, out := f.create(t, "CLM-003")
	id := testutil.Data(t, out)["claim_id"].(string)

	status, out := f.post(t, "/claims/"+id+"/request-documentation", nil)
	require.Equal(t, fiber.StatusOK, status, out)
	assert.Equal(t, "DOCUMENTATION", testutil.Data(t, out)["state"])

	status, out = f.post(t, "/claims/"+id+"/send-to-insurer", nil)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "StateViolation", testutil.ErrorKind(t, out))

	status, _ = f.post(t, "/claims/"+id+"/complete-documentation", nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = f.post(t, "/claims/"+id+"/send-to-insurer", nil)
	require.Equal(t, fiber.StatusOK, status)

	status, out = f.post(t, "/claims/"+id+"/repair-outcome", map[string]interface{}{"outcome": "REPLACED"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "ValidationError", testutil.ErrorKind(t, out))

	status, out = f.post(t, "/claims/"+id+"/repair-outcome", map[string]interface{}{
		"outcome":     "REPLACED",
		"replacement": map[string]string{"serial": "X1", "brand": "HP", "model": "ProDesk 400"},
	})
	require.Equal(t, fiber.StatusOK, status, out)
	c := testutil.Data(t, out)
	assert.Equal(t, "IN_REPAIR", c["state"])
	assert.Equal(t, "REPLACED", c["outcome"])
	assert.NotEqual(t, f.asset.AssetID.String(), c["asset_id"])

	status, out = testutil.Do(t, f.app, testutil.JSONRequest(t, "GET", "/claims/"+id+"/history", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, out["data"], 5)
}

func TestRejectAndEdit(t *testing.T) {
	f := setupClaimsTest(t)
	_, out := f.create(t, "CLM-004")
	id := testutil.Data(t, out)["claim_id"].(string)

	status, out := testutil.Do(t, f.app, testutil.JSONRequest(t, "PATCH", "/claims/"+id, map[string]interface{}{
		"cause":           "Power surge",
		"estimated_value": "650.50",
	}))
	require.Equal(t, fiber.StatusOK, status, out)
	assert.Equal(t, "Power surge", testutil.Data(t, out)["cause"])

	status, out = f.post(t, "/claims/"+id+"/reject", map[string]string{"reason": "outside coverage"})
	require.Equal(t, fiber.StatusOK, status, out)
	assert.Equal(t, "REJECTED", testutil.Data(t, out)["state"])

	status, out = f.post(t, "/claims/"+id+"/reject", nil)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "StateViolation", testutil.ErrorKind(t, out))
}

func TestClaimDocumentsAndDelete(t *testing.T) {
	f := setupClaimsTest(t)
	_, out := f.create(t, "CLM-005")
	id := testutil.Data(t, out)["claim_id"].(string)

	status, out := testutil.Do(t, f.app, testutil.UploadRequest(t, "/claims/"+id+"/documents", "file", "report.pdf", []byte("%PDF-1.4"), map[string]string{
		"kind":        "TECHNICAL_REPORT",
		"description": "Technician assessment",
	}))
	require.Equal(t, fiber.StatusCreated, status, out)
	assert.Equal(t, 1, f.blobs.Len())

	status, out = testutil.Do(t, f.app, testutil.UploadRequest(t, "/claims/"+id+"/documents", "file", "report.pdf", []byte("%PDF-1.4"), map[string]string{"kind": "SELFIE"}))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "ValidationError", testutil.ErrorKind(t, out))

	status, out = testutil.Do(t, f.app, testutil.JSONRequest(t, "GET", "/claims/"+id+"/documents", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, out["data"], 1)

	status, _ = testutil.Do(t, f.app, testutil.JSONRequest(t, "DELETE", "/claims/"+id, nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 0, f.blobs.Len())

	status, out = testutil.Do(t, f.app, testutil.JSONRequest(t, "GET", "/claims/"+id, nil))
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NotFound", testutil.ErrorKind(t, out))
}
