package invoicing

import (
	"time"

	"insurledger-backend/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	socialContributionRate = decimal.RequireFromString("0.035")
	ruralInsuranceRate     = decimal.RequireFromString("0.005")
	vatRate                = decimal.RequireFromString("0.15")
	earlyPaymentRate       = decimal.RequireFromString("0.05")
)

// EarlyPaymentDays is the window, in days from issue, that earns the discount.
const EarlyPaymentDays = 20

// issuanceTiers maps an upper premium bound (inclusive) to its flat fee.
var issuanceTiers = []struct {
	upTo decimal.Decimal
	fee  decimal.Decimal
}{
	{decimal.NewFromInt(250), decimal.RequireFromString("0.50")},
	{decimal.NewFromInt(500), decimal.RequireFromString("1.00")},
	{decimal.NewFromInt(1000), decimal.RequireFromString("3.00")},
	{decimal.NewFromInt(2000), decimal.RequireFromString("5.00")},
	{decimal.NewFromInt(4000), decimal.RequireFromString("7.00")},
}

var topIssuanceFee = decimal.RequireFromString("9.00")

// Input holds the caller-owned fields of an invoice.
type Input struct {
	Premium      decimal.Decimal
	IssueDate    time.Time
	PaymentDate  *time.Time
	Withholdings decimal.Decimal
	Paid         bool
}

// Figures holds every derived invoice field.
type Figures struct {
	SocialContribution   decimal.Decimal `json:"social_contribution"`
	RuralInsuranceFee    decimal.Decimal `json:"rural_insurance_fee"`
	IssuanceFee          decimal.Decimal `json:"issuance_fee"`
	TaxableBase          decimal.Decimal `json:"taxable_base"`
	VAT                  decimal.Decimal `json:"vat"`
	TotalInvoiced        decimal.Decimal `json:"total_invoiced"`
	EarlyPaymentDiscount decimal.Decimal `json:"early_payment_discount"`
	AmountDue            decimal.Decimal `json:"amount_due"`
	StatusMessage        string          `json:"status_message"`
}

// Derive computes the tax and fee cascade. It is a pure function of in:
// the same input always yields the same figures. Rounding is half-to-even
// at two decimals.
func Derive(in Input) (Figures, error) {
	if in.Premium.IsNegative() {
		return Figures{}, domain.Validation("premium cannot be negative")
	}
	if in.Withholdings.IsNegative() {
		return Figures{}, domain.Validation("withholdings cannot be negative")
	}
	if in.IssueDate.IsZero() {
		return Figures{}, domain.Validation("issue date is required")
	}

	var f Figures
	f.SocialContribution = in.Premium.Mul(socialContributionRate).RoundBank(2)
	f.RuralInsuranceFee = in.Premium.Mul(ruralInsuranceRate).RoundBank(2)
	f.IssuanceFee = IssuanceFee(in.Premium)
	f.TaxableBase = in.Premium.Add(f.SocialContribution).Add(f.RuralInsuranceFee).Add(f.IssuanceFee)
	f.VAT = f.TaxableBase.Mul(vatRate).RoundBank(2)
	f.TotalInvoiced = f.TaxableBase.Add(f.VAT)
	f.EarlyPaymentDiscount = decimal.Zero
	if in.PaymentDate != nil && daysBetween(in.IssueDate, *in.PaymentDate) <= EarlyPaymentDays {
		f.EarlyPaymentDiscount = in.Premium.Mul(earlyPaymentRate).RoundBank(2)
	}
	f.AmountDue = f.TotalInvoiced.Sub(in.Withholdings).Sub(f.EarlyPaymentDiscount)

	switch {
	case in.Paid:
		f.StatusMessage = domain.InvoicePaid
	case !f.AmountDue.IsPositive():
		f.StatusMessage = domain.InvoiceSettled
	default:
		f.StatusMessage = domain.InvoicePending
	}
	return f, nil
}

// IssuanceFee is the flat fee for the premium's tier.
func IssuanceFee(premium decimal.Decimal) decimal.Decimal {
	for _, t := range issuanceTiers {
		if premium.LessThanOrEqual(t.upTo) {
			return t.fee
		}
	}
	return topIssuanceFee
}

// daysBetween counts calendar days from a to b; negative when b precedes a.
// A payment recorded before the issue date therefore still earns the discount.
func daysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// Apply copies the caller fields and figures onto inv.
func (f Figures) Apply(in Input, inv *domain.Invoice) {
	inv.Premium = in.Premium
	inv.IssueDate = in.IssueDate
	inv.PaymentDate = in.PaymentDate
	inv.Withholdings = in.Withholdings
	inv.Paid = in.Paid
	inv.SocialContribution = f.SocialContribution
	inv.RuralInsuranceFee = f.RuralInsuranceFee
	inv.IssuanceFee = f.IssuanceFee
	inv.TaxableBase = f.TaxableBase
	inv.VAT = f.VAT
	inv.TotalInvoiced = f.TotalInvoiced
	inv.EarlyPaymentDiscount = f.EarlyPaymentDiscount
	inv.AmountDue = f.AmountDue
	inv.StatusMessage = f.StatusMessage
}
