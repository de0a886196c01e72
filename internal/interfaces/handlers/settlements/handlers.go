package settlements

import (
	"strings"

	setsvc "insurledger-backend/internal/application/settlements"
	"insurledger-backend/internal/domain"
	"insurledger-backend/internal/middleware"
	"insurledger-backend/internal/pkg/request"
	"insurledger-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *setsvc.Service
}

type settleBody struct {
	Number         *string         `json:"number"`
	SettlementDate request.Date    `json:"settlement_date"`
	ClaimedAmount  decimal.Decimal `json:"claimed_amount"`
	Deductible     decimal.Decimal `json:"deductible"`
	Depreciation   decimal.Decimal `json:"depreciation"`
}

// POST /api/v1/claims/:claim_id/settlement
// Accepts JSON, or multipart with the same fields plus an optional
// signed_document file.
func (h *Handlers) Settle(c *fiber.Ctx) error {
	id, err := request.ID(c, "claim_id")
	if err != nil {
		return err
	}
	var in setsvc.SettleInput
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		in, err = settleForm(c)
	} else {
		var body settleBody
		err = request.Body(c, &body)
		in = setsvc.SettleInput{
			Number:         body.Number,
			SettlementDate: body.SettlementDate.Time,
			ClaimedAmount:  body.ClaimedAmount,
			Deductible:     body.Deductible,
			Depreciation:   body.Depreciation,
		}
	}
	if err != nil {
		return err
	}
	st, err := h.Service.Settle(c.UserContext(), middleware.GetActor(c), id, in)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Claim settled successfully", st, nil)
}

func settleForm(c *fiber.Ctx) (setsvc.SettleInput, error) {
	var in setsvc.SettleInput
	if n := strings.TrimSpace(c.FormValue("number")); n != "" {
		in.Number = &n
	}
	date, err := request.ParseDate(c.FormValue("settlement_date"))
	if err != nil {
		return in, err
	}
	in.SettlementDate = date
	for field, dst := range map[string]*decimal.Decimal{
		"claimed_amount": &in.ClaimedAmount,
		"deductible":     &in.Deductible,
		"depreciation":   &in.Depreciation,
	} {
		raw := strings.TrimSpace(c.FormValue(field))
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return in, domain.Validation("invalid %s %q", field, raw)
		}
		*dst = d
	}
	if _, err := c.FormFile("signed_document"); err == nil {
		name, data, err := request.Upload(c, "signed_document")
		if err != nil {
			return in, err
		}
		in.SignedDoc = &setsvc.SignedDocument{Filename: name, Data: data}
	}
	return in, nil
}

// GET /api/v1/claims/:claim_id/settlement
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := request.ID(c, "claim_id")
	if err != nil {
		return err
	}
	st, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, "Settlement fetched successfully", st, nil)
}

type paidBody struct {
	PaymentDate request.Date `json:"payment_date"`
}

// POST /api/v1/claims/:claim_id/settlement/paid
func (h *Handlers) MarkPaid(c *fiber.Ctx) error {
	id, err := request.ID(c, "claim_id")
	if err != nil {
		return err
	}
	var body paidBody
	if len(c.Body()) > 0 {
		if err := request.Body(c, &body); err != nil {
			return err
		}
	}
	st, err := h.Service.MarkPaid(c.UserContext(), middleware.GetActor(c), id, body.PaymentDate.Time)
	if err != nil {
		return err
	}
	return response.Success(c, "Settlement marked as paid", st, nil)
}
