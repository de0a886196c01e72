package policies

import (
	"testing"

	polsvc "insurledger-backend/internal/application/policies"
	"insurledger-backend/internal/infrastructure/blob"
	"insurledger-backend/internal/pkg/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPoliciesTest(t *testing.T) (*fiber.App, *blob.Memory) {
	db := testutil.NewDB(t)
	blobs := blob.NewMemory()
	h := &Handlers{Service: &polsvc.Service{DB: db, Blobs: blobs}}
	app := testutil.NewApp()
	app.Post("/insurers", h.CreateInsurer)
	app.Post("/brokers", h.CreateBroker)
	app.Get("/policies/stats", h.Stats)
	app.Delete("/policies/documents/:document_id", h.RemoveDocument)
	app.Post("/policies", h.CreatePolicy)
	app.Get("/policies", h.ListPolicies)
	app.Get("/policies/:policy_id", h.GetPolicy)
	app.Put("/policies/:policy_id", h.UpdatePolicy)
	app.Delete("/policies/:policy_id", h.DeletePolicy)
	app.Post("/policies/:policy_id/documents", h.AddDocument)
	return app, blobs
}

func createPolicy(t *testing.T, app *fiber.App, number, total, base string) (int, map[string]interface{}) {
	t.Helper()
	status, out := testutil.Do(t, app, testutil.JSONRequest(t, "POST", "/insurers", map[string]string{
		"name": "Seguros Andinos", "tax_id": "1790012345001",
	}))
	require.Equal(t, fiber.StatusCreated, status, out)
	insurerID := testutil.Data(t, out)["insurer_id"]

	status, out = testutil.Do(t, app, testutil.JSONRequest(t, "POST", "/brokers", map[string]string{
		"name": "Asesores Unidos", "email": "office@asesores.example",
	}))
	require.Equal(t, fiber.StatusCreated, status, out)
	brokerID := testutil.Data(t, out)["broker_id"]

	return testutil.Do(t, app, testutil.JSONRequest(t, "POST", "/policies", map[string]interface{}{
		"number":         number,
		"insurer_id":     insurerID,
		"broker_id":      brokerID,
		"coverage_start": "2026-01-01",
		"coverage_end":   "2026-12-31",
		"insured_amount": "50000",
		"line":           "Electronic equipment",
		"base_premium":   base,
		"total_premium":  total,
	}))
}

func TestCreatePolicy_Created(t *testing.T) {
	app, _ := setupPoliciesTest(t)
	status, out := createPolicy(t, app, "POL-100", "1000", "900")
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "success", out["status"])
	p := testutil.Data(t, out)
	assert.Equal(t, "POL-100", p["number"])
	assert.Equal(t, true, p["active"])
	assert.Equal(t, testutil.Actor, p["created_by"])

	status, out = testutil.Do(t, app, testutil.JSONRequest(t, "GET", "/policies/"+p["policy_id"].(string), nil))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "POL-100", testutil.Data(t, out)["number"])
	assert.Contains(t, out["metadata"], "expired")

	status, out = testutil.Do(t, app, testutil.JSONRequest(t, "GET", "/policies", nil))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, out["data"], 1)
}

func TestCreatePolicy_TotalBelowBase(t *testing.T) {
	app, _ := setupPoliciesTest(t)
	status, out := createPolicy(t, app, "POL-101", "800", "900")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "ValidationError", testutil.ErrorKind(t, out))
}

func TestCreatePolicy_MissingActor(t *testing.T) {
	app, _ := setupPoliciesTest(t)
	req := testutil.JSONRequest(t, "POST", "/brokers", map[string]string{"name": "B", "email": "b@example.com"})
	req.Header.Del("X-Actor-Id")
	status, out := testutil.Do(t, app, req)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "ValidationError", testutil.ErrorKind(t, out))
}

func TestGetPolicy_NotFoundAndBadID(t *testing.T) {
	app, _ := setupPoliciesTest(t)
	status, out := testutil.Do(t, app, testutil.JSONRequest(t, "GET", "/policies/6f1c2b7e-0d0a-4b8e-9a51-0c7f3f6d2a11", nil))
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NotFound", testutil.ErrorKind(t, out))

	status, _ = testutil.Do(t, app, testutil.JSONRequest(t, "GET", "/policies/not-a-uuid", nil))
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestPolicyDocuments_UploadAndRemove(t *testing.T) {
	app, blobs := setupPoliciesTest(t)
	_, out := createPolicy(t, app, "POL-102", "1000", "900")
	id := testutil.Data(t, out)["policy_id"].(string)

	status, out := testutil.Do(t, app, testutil.UploadRequest(t, "/policies/"+id+"/documents", "file", "contract.pdf", []byte("%PDF-1.7"), map[string]string{"kind": "annex"}))
	require.Equal(t, fiber.StatusCreated, status, out)
	doc := testutil.Data(t, out)
	assert.Equal(t, "ANNEX", doc["kind"])
	assert.Equal(t, 1, blobs.Len())

	status, out = testutil.Do(t, app, testutil.UploadRequest(t, "/policies/"+id+"/documents", "file", "contract.exe", []byte("MZ"), nil))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "ValidationError", testutil.ErrorKind(t, out))

	status, _ = testutil.Do(t, app, testutil.JSONRequest(t, "DELETE", "/policies/documents/"+doc["document_id"].(string), nil))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 0, blobs.Len())
}

func TestDeletePolicyAndStats(t *testing.T) {
	app, _ := setupPoliciesTest(t)
	_, out := createPolicy(t, app, "POL-103", "1000", "900")
	id := testutil.Data(t, out)["policy_id"].(string)

	status, out := testutil.Do(t, app, testutil.JSONRequest(t, "GET", "/policies/stats?as_of=2027-02-01", nil))
	require.Equal(t, fiber.StatusOK, status)
	stats := testutil.Data(t, out)
	assert.Equal(t, float64(1), stats["active"])
	assert.Equal(t, float64(1), stats["expired"])

	status, _ = testutil.Do(t, app, testutil.JSONRequest(t, "DELETE", "/policies/"+id, nil))
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = testutil.Do(t, app, testutil.JSONRequest(t, "GET", "/policies/"+id, nil))
	assert.Equal(t, fiber.StatusNotFound, status)
}
