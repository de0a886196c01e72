package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice status messages, recomputed on every save.
const (
	InvoicePaid    = "Paid"
	InvoiceSettled = "Settled"
	InvoicePending = "Pending"
)

// Invoice is a billing record derived from a policy premium. Every column
// from SocialContribution to StatusMessage is derived; callers never set them.
type Invoice struct {
	InvoiceID            uuid.UUID       `gorm:"column:invoice_id;type:uuid;primaryKey" json:"invoice_id"`
	PolicyID             uuid.UUID       `gorm:"column:policy_id;type:uuid;not null;index" json:"policy_id"`
	Number               string          `gorm:"column:number;type:varchar(50);not null;uniqueIndex" json:"number"`
	AccountingDoc        *string         `gorm:"column:accounting_doc;type:varchar(50)" json:"accounting_doc"`
	IssueDate            time.Time       `gorm:"column:issue_date;type:date;not null" json:"issue_date"`
	PaymentDate          *time.Time      `gorm:"column:payment_date;type:date" json:"payment_date"`
	Premium              decimal.Decimal `gorm:"column:premium;type:decimal(12,2);not null" json:"premium"`
	SocialContribution   decimal.Decimal `gorm:"column:social_contribution;type:decimal(10,2);not null;default:0" json:"social_contribution"`
	RuralInsuranceFee    decimal.Decimal `gorm:"column:rural_insurance_fee;type:decimal(10,2);not null;default:0" json:"rural_insurance_fee"`
	IssuanceFee          decimal.Decimal `gorm:"column:issuance_fee;type:decimal(10,2);not null;default:0" json:"issuance_fee"`
	TaxableBase          decimal.Decimal `gorm:"column:taxable_base;type:decimal(12,2);not null;default:0" json:"taxable_base"`
	VAT                  decimal.Decimal `gorm:"column:vat;type:decimal(12,2);not null;default:0" json:"vat"`
	TotalInvoiced        decimal.Decimal `gorm:"column:total_invoiced;type:decimal(12,2);not null;default:0" json:"total_invoiced"`
	Withholdings         decimal.Decimal `gorm:"column:withholdings;type:decimal(12,2);not null;default:0" json:"withholdings"`
	EarlyPaymentDiscount decimal.Decimal `gorm:"column:early_payment_discount;type:decimal(10,2);not null;default:0" json:"early_payment_discount"`
	AmountDue            decimal.Decimal `gorm:"column:amount_due;type:decimal(12,2);not null;default:0" json:"amount_due"`
	StatusMessage        string          `gorm:"column:status_message;type:varchar(255)" json:"status_message"`
	Paid                 bool            `gorm:"column:paid;not null;default:false" json:"paid"`
	CreatedBy            Actor           `gorm:"column:created_by" json:"created_by"`
	UpdatedBy            Actor           `gorm:"column:updated_by" json:"updated_by"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

func (Invoice) TableName() string {
	return "Invoices"
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.InvoiceID == uuid.Nil {
		i.InvoiceID = uuid.New()
	}
	return nil
}
