package claims

import (
	claimsvc "insurledger-backend/internal/application/claims"
	custsvc "insurledger-backend/internal/application/custody"
	"insurledger-backend/internal/domain"
	"insurledger-backend/internal/middleware"
	"insurledger-backend/internal/pkg/request"
	"insurledger-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *claimsvc.Service
}

type createBody struct {
	Number          *string         `json:"number"`
	PolicyID        uuid.UUID       `json:"policy_id"`
	CustodianID     uuid.UUID       `json:"custodian_id"`
	AssetID         uuid.UUID       `json:"asset_id"`
	EventDate       request.Date    `json:"event_date"`
	NotifiedDate    request.Date    `json:"notified_date"`
	Type            string          `json:"type"`
	Location        string          `json:"location"`
	Cause           string          `json:"cause"`
	CoverageApplied *string         `json:"coverage_applied"`
	EstimatedValue  decimal.Decimal `json:"estimated_value"`
}

// POST /api/v1/claims
func (h *Handlers) Create(c *fiber.Ctx) error {
	var body createBody
	if err := request.Body(c, &body); err != nil {
		return err
	}
	claim, err := h.Service.Create(c.UserContext(), middleware.GetActor(c), claimsvc.CreateInput{
		Number:          body.Number,
		PolicyID:        body.PolicyID,
		CustodianID:     body.CustodianID,
		AssetID:         body.AssetID,
		EventDate:       body.EventDate.Time,
		NotifiedDate:    body.NotifiedDate.Time,
		Type:            body.Type,
		Location:        body.Location,
		Cause:           body.Cause,
		CoverageApplied: body.CoverageApplied,
		EstimatedValue:  body.EstimatedValue,
	})
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Claim created successfully", claim, nil)
}

// GET /api/v1/claims
func (h *Handlers) List(c *fiber.Ctx) error {
	list, err := h.Service.List(c.UserContext())
	if err != nil {
		return err
	}
	return response.List(c, "Claims fetched successfully", list, nil)
}

// GET /api/v1/policies/:policy_id/claims
func (h *Handlers) ListByPolicy(c *fiber.Ctx) error {
	id, err := request.ID(c, "policy_id")
	if err != nil {
		return err
	}
	list, err := h.Service.ListByPolicy(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.List(c, "Claims fetched successfully", list, nil)
}

// GET /api/v1/claims/:claim_id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := request.ID(c, "claim_id")
	if err != nil {
		return err
	}
	claim, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, "Claim fetched successfully", claim, nil)
}

// GET /api/v1/claims/:claim_id/history
func (h *Handlers) History(c *fiber.Ctx) error {
	id, err := request.ID(c, "claim_id")
	if err != nil {
		return err
	}
	events, err := h.Service.History(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.List(c, "Claim history fetched successfully", events, nil)
}

type editBody struct {
	Number          *string          `json:"number"`
	CustodianID     *uuid.UUID       `json:"custodian_id"`
	AssetID         *uuid.UUID       `json:"asset_id"`
	EventDate       *request.Date    `json:"event_date"`
	Type            *string          `json:"type"`
	Location        *string          `json:"location"`
	Cause           *string          `json:"cause"`
	CoverageApplied *string          `json:"coverage_applied"`
	EstimatedValue  *decimal.Decimal `json:"estimated_value"`
}

// PATCH /api/v1/claims/:claim_id
func (h *Handlers) Edit(c *fiber.Ctx) error {
	id, err := request.ID(c, "claim_id")
	if err != nil {
		return err
	}
	var body editBody
	if err := request.Body(c, &body); err != nil {
		return err
	}
	claim, err := h.Service.Edit(c.UserContext(), middleware.GetActor(c), id, claimsvc.EditInput{
		Number:          body.Number,
		CustodianID:     body.CustodianID,
		AssetID:         body.AssetID,
		EventDate:       body.EventDate.Ptr(),
		Type:            body.Type,
		Location:        body.Location,
		Cause:           body.Cause,
		CoverageApplied: body.CoverageApplied,
		EstimatedValue:  body.EstimatedValue,
	})
	if err != nil {
		return err
	}
	return response.Success(c, "Claim updated successfully", claim, nil)
}

// DELETE /api/v1/claims/:claim_id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, err := request.ID(c, "claim_id")
	if err != nil {
		return err
	}
	if err := h.Service.Delete(c.UserContext(), middleware.GetActor(c), id); err != nil {
		return err
	}
	return response.Success(c, "Claim deleted successfully", fiber.Map{"claim_id": id}, nil)
}

type stepFn func(c *fiber.Ctx, actor domain.Actor, id uuid.UUID) (*domain.Claim, error)

func (h *Handlers) step(message string, fn stepFn) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := request.ID(c, "claim_id")
		if err != nil {
			return err
		}
		claim, err := fn(c, middleware.GetActor(c), id)
		if err != nil {
			return err
		}
		return response.Success(c, message, claim, nil)
	}
}

// POST /api/v1/claims/:claim_id/request-documentation
func (h *Handlers) RequestDocumentation() fiber.Handler {
	return h.step("Documentation requested", func(c *fiber.Ctx, actor domain.Actor, id uuid.UUID) (*domain.Claim, error) {
		return h.Service.RequestDocumentation(c.UserContext(), actor, id)
	})
}

// POST /api/v1/claims/:claim_id/complete-documentation
func (h *Handlers) CompleteDocumentation() fiber.Handler {
	return h.step("Documentation completed", func(c *fiber.Ctx, actor domain.Actor, id uuid.UUID) (*domain.Claim, error) {
		return h.Service.CompleteDocumentation(c.UserContext(), actor, id)
	})
}

// POST /api/v1/claims/:claim_id/send-to-insurer
func (h *Handlers) SendToInsurer() fiber.Handler {
	return h.step("Claim sent to insurer", func(c *fiber.Ctx, actor domain.Actor, id uuid.UUID) (*domain.Claim, error) {
		return h.Service.SendToInsurer(c.UserContext(), actor, id)
	})
}

type outcomeBody struct {
	Outcome     domain.RepairOutcome `json:"outcome"`
	Replacement *struct {
		Serial   string `json:"serial"`
		Brand    string `json:"brand"`
		Model    string `json:"model"`
		Location string `json:"location"`
	} `json:"replacement"`
}

// POST /api/v1/claims/:claim_id/repair-outcome
func (h *Handlers) RecordRepairOutcome() fiber.Handler {
	return h.step("Repair outcome recorded", func(c *fiber.Ctx, actor domain.Actor, id uuid.UUID) (*domain.Claim, error) {
		var body outcomeBody
		if err := request.Body(c, &body); err != nil {
			return nil, err
		}
		var repl *custsvc.ReplacementInput
		if body.Replacement != nil {
			r := custsvc.ReplacementInput(*body.Replacement)
			repl = &r
		}
		return h.Service.RecordRepairOutcome(c.UserContext(), actor, id, body.Outcome, repl)
	})
}

type rejectBody struct {
	Reason string `json:"reason"`
}

// POST /api/v1/claims/:claim_id/reject
func (h *Handlers) Reject() fiber.Handler {
	return h.step("Claim rejected", func(c *fiber.Ctx, actor domain.Actor, id uuid.UUID) (*domain.Claim, error) {
		var body rejectBody
		if len(c.Body()) > 0 {
			if err := request.Body(c, &body); err != nil {
				return nil, err
			}
		}
		return h.Service.Reject(c.UserContext(), actor, id, body.Reason)
	})
}

// POST /api/v1/claims/:claim_id/documents (multipart: file, kind, description)
func (h *Handlers) AddDocument(c *fiber.Ctx) error {
	id, err := request.ID(c, "claim_id")
	if err != nil {
		return err
	}
	name, data, err := request.Upload(c, "file")
	if err != nil {
		return err
	}
	doc, err := h.Service.AddDocument(c.UserContext(), middleware.GetActor(c), id, claimsvc.DocumentInput{
		Kind:        domain.DocumentKind(c.FormValue("kind")),
		Description: c.FormValue("description"),
		Filename:    name,
		Data:        data,
	})
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Document uploaded successfully", doc, nil)
}

// GET /api/v1/claims/:claim_id/documents
func (h *Handlers) ListDocuments(c *fiber.Ctx) error {
	id, err := request.ID(c, "claim_id")
	if err != nil {
		return err
	}
	docs, err := h.Service.ListDocuments(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.List(c, "Documents fetched successfully", docs, nil)
}

// DELETE /api/v1/claims/documents/:document_id
func (h *Handlers) RemoveDocument(c *fiber.Ctx) error {
	id, err := request.ID(c, "document_id")
	if err != nil {
		return err
	}
	if err := h.Service.RemoveDocument(c.UserContext(), middleware.GetActor(c), id); err != nil {
		return err
	}
	return response.Success(c, "Document removed successfully", fiber.Map{"document_id": id}, nil)
}
