package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Settlement is the final financial resolution of a claim. One per claim.
type Settlement struct {
	SettlementID   uuid.UUID       `gorm:"column:settlement_id;type:uuid;primaryKey" json:"settlement_id"`
	ClaimID        uuid.UUID       `gorm:"column:claim_id;type:uuid;not null;uniqueIndex" json:"claim_id"`
	Number         *string         `gorm:"column:number;type:varchar(50)" json:"number"`
	SettlementDate time.Time       `gorm:"column:settlement_date;type:date;not null" json:"settlement_date"`
	ClaimedAmount  decimal.Decimal `gorm:"column:claimed_amount;type:decimal(12,2);not null" json:"claimed_amount"`
	Deductible     decimal.Decimal `gorm:"column:deductible;type:decimal(12,2);not null" json:"deductible"`
	Depreciation   decimal.Decimal `gorm:"column:depreciation;type:decimal(12,2);not null;default:0" json:"depreciation"`
	FinalPayout    decimal.Decimal `gorm:"column:final_payout;type:decimal(12,2);not null" json:"final_payout"`
	SignedDocRef   *string         `gorm:"column:signed_doc_ref" json:"signed_doc_ref"`
	PaymentDate    *time.Time      `gorm:"column:payment_date;type:date" json:"payment_date"`
	Paid           bool            `gorm:"column:paid;not null;default:false" json:"paid"`
	CreatedBy      Actor           `gorm:"column:created_by" json:"created_by"`
	UpdatedBy      Actor           `gorm:"column:updated_by" json:"updated_by"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (Settlement) TableName() string {
	return "Settlements"
}

func (s *Settlement) BeforeCreate(tx *gorm.DB) error {
	if s.SettlementID == uuid.Nil {
		s.SettlementID = uuid.New()
	}
	return nil
}
