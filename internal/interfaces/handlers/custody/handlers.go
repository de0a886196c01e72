package custody

import (
	custsvc "insurledger-backend/internal/application/custody"
	"insurledger-backend/internal/domain"
	"insurledger-backend/internal/middleware"
	"insurledger-backend/internal/pkg/request"
	"insurledger-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *custsvc.Service
}

type custodianBody struct {
	NationalID  string  `json:"national_id"`
	FullName    string  `json:"full_name"`
	Email       string  `json:"email"`
	Department  *string `json:"department"`
	City        *string `json:"city"`
	Building    *string `json:"building"`
	Workstation *string `json:"workstation"`
}

// POST /api/v1/custodians
func (h *Handlers) CreateCustodian(c *fiber.Ctx) error {
	var body custodianBody
	if err := request.Body(c, &body); err != nil {
		return err
	}
	cu, err := h.Service.CreateCustodian(c.UserContext(), middleware.GetActor(c), custsvc.CustodianInput(body))
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Custodian created successfully", cu, nil)
}

// GET /api/v1/custodians/:custodian_id
func (h *Handlers) GetCustodian(c *fiber.Ctx) error {
	id, err := request.ID(c, "custodian_id")
	if err != nil {
		return err
	}
	cu, err := h.Service.GetCustodian(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, "Custodian fetched successfully", cu, nil)
}

// GET /api/v1/custodians/:custodian_id/assets
func (h *Handlers) ListAssets(c *fiber.Ctx) error {
	id, err := request.ID(c, "custodian_id")
	if err != nil {
		return err
	}
	if _, err := h.Service.GetCustodian(c.UserContext(), id); err != nil {
		return err
	}
	assets, err := h.Service.ListAssets(c.UserContext(), id)
	if err != nil {
		return err
	}
	active := 0
	for _, a := range assets {
		if a.State == domain.AssetActive {
			active++
		}
	}
	return response.List(c, "Assets fetched successfully", assets, fiber.Map{
		"active":   active,
		"capacity": domain.MaxAssetsPerCustodian,
	})
}

type assetBody struct {
	Code        string                   `json:"code"`
	LegacyCode  *string                  `json:"legacy_code"`
	Description string                   `json:"description"`
	Serial      string                   `json:"serial"`
	Model       string                   `json:"model"`
	Brand       string                   `json:"brand"`
	Location    string                   `json:"location"`
	Condition   domain.PhysicalCondition `json:"condition"`
}

// POST /api/v1/custodians/:custodian_id/assets
func (h *Handlers) CreateAsset(c *fiber.Ctx) error {
	id, err := request.ID(c, "custodian_id")
	if err != nil {
		return err
	}
	var body assetBody
	if err := request.Body(c, &body); err != nil {
		return err
	}
	a, err := h.Service.CreateAsset(c.UserContext(), middleware.GetActor(c), id, custsvc.AssetInput(body))
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Asset created successfully", a, nil)
}

// GET /api/v1/assets/:asset_id
func (h *Handlers) GetAsset(c *fiber.Ctx) error {
	id, err := request.ID(c, "asset_id")
	if err != nil {
		return err
	}
	a, err := h.Service.GetAsset(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, "Asset fetched successfully", a, nil)
}

type replacementBody struct {
	Serial   string `json:"serial"`
	Brand    string `json:"brand"`
	Model    string `json:"model"`
	Location string `json:"location"`
}

// POST /api/v1/assets/:asset_id/replace
func (h *Handlers) ReplaceAsset(c *fiber.Ctx) error {
	id, err := request.ID(c, "asset_id")
	if err != nil {
		return err
	}
	var body replacementBody
	if err := request.Body(c, &body); err != nil {
		return err
	}
	a, err := h.Service.ReplaceAsset(c.UserContext(), middleware.GetActor(c), id, custsvc.ReplacementInput(body))
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Asset replaced successfully", a, nil)
}

// GET /api/v1/custodians/:custodian_id/assets/:asset_id/validate
func (h *Handlers) Validate(c *fiber.Ctx) error {
	custodianID, err := request.ID(c, "custodian_id")
	if err != nil {
		return err
	}
	assetID, err := request.ID(c, "asset_id")
	if err != nil {
		return err
	}
	if err := h.Service.Validate(c.UserContext(), custodianID, assetID); err != nil {
		return err
	}
	return response.Success(c, "Asset is held by custodian", fiber.Map{"valid": true}, nil)
}
