package router

import (
	"io"
	"net/http/httptest"
	"testing"

	"insurledger-backend/internal/config"
	"insurledger-backend/internal/infrastructure/blob"
	"insurledger-backend/internal/pkg/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouterTest(t *testing.T) (*fiber.App, *Deps) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	deps := Deps{
		DB:         testutil.NewDB(t),
		Rdb:        rdb,
		Blobs:      blob.NewMemory(),
		Registry:   prometheus.NewRegistry(),
		SyncNotify: true,
	}
	app := NewApp(&config.Config{Env: "test", FrontendURLEndsWith: ".insurledger.app"}, deps)
	return app, &deps
}

func TestClaimToSettlementOverAPI(t *testing.T) {
	app, deps := setupRouterTest(t)
	policy := testutil.SeedPolicy(t, deps.DB, "1000", "900")

	status, out := testutil.Do(t, app, testutil.JSONRequest(t, "POST", "/api/v1/custodians", map[string]string{
		"national_id": "1712345681",
		"full_name":   "Luis Andrade",
		"email":       "landrade@example.edu",
	}))
	require.Equal(t, fiber.StatusCreated, status, out)
	custodianID := testutil.Data(t, out)["custodian_id"].(string)

	status, out = testutil.Do(t, app, testutil.JSONRequest(t, "POST", "/api/v1/custodians/"+custodianID+"/assets", map[string]string{
		"code": "PROJ-07", "description": "Projector", "brand": "Epson",
	}))
	require.Equal(t, fiber.StatusCreated, status, out)
	assetID := testutil.Data(t, out)["asset_id"].(string)

	status, out = testutil.Do(t, app, testutil.JSONRequest(t, "POST", "/api/v1/claims", map[string]interface{}{
		"policy_id":       policy.PolicyID,
		"custodian_id":    custodianID,
		"asset_id":        assetID,
		"event_date":      "2026-04-01",
		"type":            "Electrical damage",
		"location":        "Room 204",
		"cause":           "Power surge",
		"estimated_value": "800",
	}))
	require.Equal(t, fiber.StatusCreated, status, out)
	claimID := testutil.Data(t, out)["claim_id"].(string)

	status, out = testutil.Do(t, app, testutil.JSONRequest(t, "POST", "/api/v1/claims/"+claimID+"/settlement", map[string]interface{}{
		"settlement_date": "2026-05-02",
		"claimed_amount":  "800",
		"deductible":      "80",
		"depreciation":    "120",
	}))
	require.Equal(t, fiber.StatusCreated, status, out)
	assert.Equal(t, "600", testutil.Data(t, out)["final_payout"])

	status, out = testutil.Do(t, app, testutil.JSONRequest(t, "GET", "/api/v1/claims/"+claimID, nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "SETTLED", testutil.Data(t, out)["state"])

	status, out = testutil.Do(t, app, testutil.JSONRequest(t, "GET", "/api/v1/notifications", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, out["data"])

	status, out = testutil.Do(t, app, testutil.JSONRequest(t, "GET", "/api/v1/policies/stats?as_of=2026-06-01", nil))
	require.Equal(t, fiber.StatusOK, status, out)
	assert.Equal(t, float64(1), testutil.Data(t, out)["active"])

	req := httptest.NewRequest("GET", "/metrics", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "insurledger_claims_created_total 1")
	assert.Contains(t, string(body), "insurledger_claims_settled_total 1")
}

func TestHealthRoutes(t *testing.T) {
	app, _ := setupRouterTest(t)

	status, out := testutil.Do(t, app, testutil.JSONRequest(t, "GET", "/api/v1/claims/not-a-uuid", nil))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "ValidationError", testutil.ErrorKind(t, out))

	status, out = testutil.Do(t, app, testutil.JSONRequest(t, "GET", "/health/json", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "insurledger-api", out["service"])
	traffic := out["traffic"].(map[string]interface{})
	assert.Equal(t, float64(1), traffic["totalRequests"])
	assert.Equal(t, float64(0), traffic["failedCount"])
	assert.Contains(t, out, "ledger")

	status, _ = testutil.Do(t, app, testutil.JSONRequest(t, "GET", "/api/v1/nope", nil))
	assert.Equal(t, fiber.StatusNotFound, status)
}
