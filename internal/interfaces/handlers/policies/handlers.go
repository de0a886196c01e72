package policies

import (
	"time"

	polsvc "insurledger-backend/internal/application/policies"
	"insurledger-backend/internal/middleware"
	"insurledger-backend/internal/pkg/request"
	"insurledger-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *polsvc.Service
}

type insurerBody struct {
	Name         string `json:"name"`
	TaxID        string `json:"tax_id"`
	Contact      string `json:"contact"`
	ContactEmail string `json:"contact_email"`
	Phone        string `json:"phone"`
}

// POST /api/v1/insurers
func (h *Handlers) CreateInsurer(c *fiber.Ctx) error {
	var body insurerBody
	if err := request.Body(c, &body); err != nil {
		return err
	}
	ins, err := h.Service.CreateInsurer(c.UserContext(), middleware.GetActor(c), polsvc.InsurerInput{
		Name:         body.Name,
		TaxID:        body.TaxID,
		Contact:      body.Contact,
		ContactEmail: body.ContactEmail,
		Phone:        body.Phone,
	})
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Insurer created successfully", ins, nil)
}

type brokerBody struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	ExternalID *string `json:"external_id"`
}

// POST /api/v1/brokers
func (h *Handlers) CreateBroker(c *fiber.Ctx) error {
	var body brokerBody
	if err := request.Body(c, &body); err != nil {
		return err
	}
	b, err := h.Service.CreateBroker(c.UserContext(), middleware.GetActor(c), polsvc.BrokerInput{
		Name:       body.Name,
		Email:      body.Email,
		ExternalID: body.ExternalID,
	})
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Broker created successfully", b, nil)
}

type policyBody struct {
	Number        string          `json:"number"`
	InsurerID     uuid.UUID       `json:"insurer_id"`
	BrokerID      uuid.UUID       `json:"broker_id"`
	CoverageStart request.Date    `json:"coverage_start"`
	CoverageEnd   request.Date    `json:"coverage_end"`
	InsuredAmount decimal.Decimal `json:"insured_amount"`
	Line          string          `json:"line"`
	InsuredObject string          `json:"insured_object"`
	BasePremium   decimal.Decimal `json:"base_premium"`
	TotalPremium  decimal.Decimal `json:"total_premium"`
	Active        *bool           `json:"active"`
	Renewable     bool            `json:"renewable"`
	IssueDate     request.Date    `json:"issue_date"`
}

func (b policyBody) input() polsvc.PolicyInput {
	active := true
	if b.Active != nil {
		active = *b.Active
	}
	return polsvc.PolicyInput{
		Number:        b.Number,
		InsurerID:     b.InsurerID,
		BrokerID:      b.BrokerID,
		CoverageStart: b.CoverageStart.Time,
		CoverageEnd:   b.CoverageEnd.Time,
		InsuredAmount: b.InsuredAmount,
		Line:          b.Line,
		InsuredObject: b.InsuredObject,
		BasePremium:   b.BasePremium,
		TotalPremium:  b.TotalPremium,
		Active:        active,
		Renewable:     b.Renewable,
		IssueDate:     b.IssueDate.Time,
	}
}

// POST /api/v1/policies
func (h *Handlers) CreatePolicy(c *fiber.Ctx) error {
	var body policyBody
	if err := request.Body(c, &body); err != nil {
		return err
	}
	p, err := h.Service.CreatePolicy(c.UserContext(), middleware.GetActor(c), body.input())
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Policy created successfully", p, nil)
}

// GET /api/v1/policies
func (h *Handlers) ListPolicies(c *fiber.Ctx) error {
	list, err := h.Service.ListPolicies(c.UserContext())
	if err != nil {
		return err
	}
	return response.List(c, "Policies fetched successfully", list, nil)
}

// GET /api/v1/policies/:policy_id
func (h *Handlers) GetPolicy(c *fiber.Ctx) error {
	id, err := request.ID(c, "policy_id")
	if err != nil {
		return err
	}
	p, err := h.Service.GetPolicy(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, "Policy fetched successfully", p, fiber.Map{
		"expired": p.ExpiredAt(time.Now().UTC()),
	})
}

// PUT /api/v1/policies/:policy_id
func (h *Handlers) UpdatePolicy(c *fiber.Ctx) error {
	id, err := request.ID(c, "policy_id")
	if err != nil {
		return err
	}
	var body policyBody
	if err := request.Body(c, &body); err != nil {
		return err
	}
	p, err := h.Service.UpdatePolicy(c.UserContext(), middleware.GetActor(c), id, body.input())
	if err != nil {
		return err
	}
	return response.Success(c, "Policy updated successfully", p, nil)
}

// DELETE /api/v1/policies/:policy_id
func (h *Handlers) DeletePolicy(c *fiber.Ctx) error {
	id, err := request.ID(c, "policy_id")
	if err != nil {
		return err
	}
	if err := h.Service.DeletePolicy(c.UserContext(), middleware.GetActor(c), id); err != nil {
		return err
	}
	return response.Success(c, "Policy deleted successfully", fiber.Map{"policy_id": id}, nil)
}

// GET /api/v1/policies/stats?as_of=YYYY-MM-DD
func (h *Handlers) Stats(c *fiber.Ctx) error {
	asOf, err := request.ParseDate(c.Query("as_of"))
	if err != nil {
		return err
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	active, err := h.Service.CountActive(c.UserContext())
	if err != nil {
		return err
	}
	expired, err := h.Service.CountExpired(c.UserContext(), asOf)
	if err != nil {
		return err
	}
	return response.Success(c, "Policy stats fetched successfully", fiber.Map{
		"active":  active,
		"expired": expired,
		"as_of":   asOf.Format("2006-01-02"),
	}, nil)
}

// POST /api/v1/policies/:policy_id/documents (multipart: file, kind)
func (h *Handlers) AddDocument(c *fiber.Ctx) error {
	id, err := request.ID(c, "policy_id")
	if err != nil {
		return err
	}
	name, data, err := request.Upload(c, "file")
	if err != nil {
		return err
	}
	doc, err := h.Service.AddPolicyDocument(c.UserContext(), middleware.GetActor(c), id, c.FormValue("kind"), name, data)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Document uploaded successfully", doc, nil)
}

// DELETE /api/v1/policies/documents/:document_id
func (h *Handlers) RemoveDocument(c *fiber.Ctx) error {
	id, err := request.ID(c, "document_id")
	if err != nil {
		return err
	}
	if err := h.Service.RemovePolicyDocument(c.UserContext(), middleware.GetActor(c), id); err != nil {
		return err
	}
	return response.Success(c, "Document removed successfully", fiber.Map{"document_id": id}, nil)
}
