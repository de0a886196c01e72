package invoicing

import (
	invsvc "insurledger-backend/internal/application/invoicing"
	"insurledger-backend/internal/middleware"
	"insurledger-backend/internal/pkg/request"
	"insurledger-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *invsvc.Service
}

type figuresBody struct {
	Premium      decimal.Decimal `json:"premium"`
	IssueDate    request.Date    `json:"issue_date"`
	PaymentDate  *request.Date   `json:"payment_date"`
	Withholdings decimal.Decimal `json:"withholdings"`
	Paid         bool            `json:"paid"`
}

func (b figuresBody) input() invsvc.Input {
	return invsvc.Input{
		Premium:      b.Premium,
		IssueDate:    b.IssueDate.Time,
		PaymentDate:  b.PaymentDate.Ptr(),
		Withholdings: b.Withholdings,
		Paid:         b.Paid,
	}
}

type createBody struct {
	PolicyID      uuid.UUID `json:"policy_id"`
	Number        string    `json:"number"`
	AccountingDoc *string   `json:"accounting_doc"`
	figuresBody
}

// POST /api/v1/invoices
func (h *Handlers) Create(c *fiber.Ctx) error {
	var body createBody
	if err := request.Body(c, &body); err != nil {
		return err
	}
	inv, err := h.Service.Create(c.UserContext(), middleware.GetActor(c), invsvc.CreateInput{
		PolicyID:      body.PolicyID,
		Number:        body.Number,
		AccountingDoc: body.AccountingDoc,
		Input:         body.input(),
	})
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Invoice created successfully", inv, nil)
}

// POST /api/v1/invoices/preview derives the figures without storing anything.
func (h *Handlers) Preview(c *fiber.Ctx) error {
	var body figuresBody
	if err := request.Body(c, &body); err != nil {
		return err
	}
	figures, err := invsvc.Derive(body.input())
	if err != nil {
		return err
	}
	return response.Success(c, "Invoice figures derived", figures, nil)
}

// GET /api/v1/invoices/:invoice_id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := request.ID(c, "invoice_id")
	if err != nil {
		return err
	}
	inv, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, "Invoice fetched successfully", inv, nil)
}

type updateBody struct {
	AccountingDoc *string `json:"accounting_doc"`
	figuresBody
}

// PUT /api/v1/invoices/:invoice_id
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, err := request.ID(c, "invoice_id")
	if err != nil {
		return err
	}
	var body updateBody
	if err := request.Body(c, &body); err != nil {
		return err
	}
	inv, err := h.Service.Update(c.UserContext(), middleware.GetActor(c), id, invsvc.UpdateInput{
		AccountingDoc: body.AccountingDoc,
		Input:         body.input(),
	})
	if err != nil {
		return err
	}
	return response.Success(c, "Invoice updated successfully", inv, nil)
}

type paidBody struct {
	PaymentDate request.Date `json:"payment_date"`
}

// POST /api/v1/invoices/:invoice_id/paid
func (h *Handlers) MarkPaid(c *fiber.Ctx) error {
	id, err := request.ID(c, "invoice_id")
	if err != nil {
		return err
	}
	var body paidBody
	if len(c.Body()) > 0 {
		if err := request.Body(c, &body); err != nil {
			return err
		}
	}
	inv, err := h.Service.MarkPaid(c.UserContext(), middleware.GetActor(c), id, body.PaymentDate.Time)
	if err != nil {
		return err
	}
	return response.Success(c, "Invoice marked as paid", inv, nil)
}

// GET /api/v1/policies/:policy_id/invoices
func (h *Handlers) ListByPolicy(c *fiber.Ctx) error {
	id, err := request.ID(c, "policy_id")
	if err != nil {
		return err
	}
	list, err := h.Service.ListByPolicy(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.List(c, "Invoices fetched successfully", list, nil)
}

// GET /api/v1/policies/:policy_id/outstanding
func (h *Handlers) Outstanding(c *fiber.Ctx) error {
	id, err := request.ID(c, "policy_id")
	if err != nil {
		return err
	}
	total, err := h.Service.Outstanding(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, "Outstanding balance fetched successfully", fiber.Map{
		"policy_id":   id,
		"outstanding": total.StringFixed(2),
	}, nil)
}
