package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Insurer is the carrier that underwrites a policy.
type Insurer struct {
	InsurerID    uuid.UUID `gorm:"column:insurer_id;type:uuid;primaryKey" json:"insurer_id"`
	Name         string    `gorm:"column:name;type:varchar(100);not null" json:"name"`
	TaxID        string    `gorm:"column:tax_id;type:varchar(13);not null;uniqueIndex" json:"tax_id"`
	Contact      string    `gorm:"column:contact;type:varchar(100)" json:"contact"`
	ContactEmail string    `gorm:"column:contact_email" json:"contact_email"`
	Phone        string    `gorm:"column:phone;type:varchar(20)" json:"phone"`
	CreatedBy    Actor     `gorm:"column:created_by" json:"created_by"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (Insurer) TableName() string {
	return "Insurers"
}

func (i *Insurer) BeforeCreate(tx *gorm.DB) error {
	if i.InsurerID == uuid.Nil {
		i.InsurerID = uuid.New()
	}
	return nil
}

// Broker intermediates a policy and receives its alerts by email.
type Broker struct {
	BrokerID   uuid.UUID `gorm:"column:broker_id;type:uuid;primaryKey" json:"broker_id"`
	Name       string    `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Email      string    `gorm:"column:email;not null" json:"email"`
	ExternalID *string   `gorm:"column:external_id;type:varchar(50)" json:"external_id"`
	CreatedBy  Actor     `gorm:"column:created_by" json:"created_by"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (Broker) TableName() string {
	return "Brokers"
}

func (b *Broker) BeforeCreate(tx *gorm.DB) error {
	if b.BrokerID == uuid.Nil {
		b.BrokerID = uuid.New()
	}
	return nil
}

// Policy is an insurance contract covering a set of assets for a period.
type Policy struct {
	PolicyID      uuid.UUID       `gorm:"column:policy_id;type:uuid;primaryKey" json:"policy_id"`
	Number        string          `gorm:"column:number;type:varchar(50);not null;uniqueIndex" json:"number"`
	InsurerID     uuid.UUID       `gorm:"column:insurer_id;type:uuid;not null;index" json:"insurer_id"`
	BrokerID      uuid.UUID       `gorm:"column:broker_id;type:uuid;not null;index" json:"broker_id"`
	CoverageStart time.Time       `gorm:"column:coverage_start;type:date;not null" json:"coverage_start"`
	CoverageEnd   time.Time       `gorm:"column:coverage_end;type:date;not null" json:"coverage_end"`
	InsuredAmount decimal.Decimal `gorm:"column:insured_amount;type:decimal(15,2);not null" json:"insured_amount"`
	Line          string          `gorm:"column:line;type:varchar(100)" json:"line"`
	InsuredObject string          `gorm:"column:insured_object;type:varchar(100)" json:"insured_object"`
	BasePremium   decimal.Decimal `gorm:"column:base_premium;type:decimal(12,2);not null" json:"base_premium"`
	TotalPremium  decimal.Decimal `gorm:"column:total_premium;type:decimal(12,2);not null" json:"total_premium"`
	Active        bool            `gorm:"column:active;not null" json:"active"`
	Renewable     bool            `gorm:"column:renewable;not null;default:false" json:"renewable"`
	IssueDate     time.Time       `gorm:"column:issue_date;type:date" json:"issue_date"`
	CreatedBy     Actor           `gorm:"column:created_by" json:"created_by"`
	UpdatedBy     Actor           `gorm:"column:updated_by" json:"updated_by"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (Policy) TableName() string {
	return "Policies"
}

func (p *Policy) BeforeCreate(tx *gorm.DB) error {
	if p.PolicyID == uuid.Nil {
		p.PolicyID = uuid.New()
	}
	return nil
}

// CheckPremiums enforces total premium >= base premium.
func (p *Policy) CheckPremiums() error {
	if p.BasePremium.IsNegative() {
		return Validation("base premium cannot be negative")
	}
	if p.TotalPremium.LessThan(p.BasePremium) {
		return Validation("total premium %s cannot be lower than base premium %s",
			p.TotalPremium.StringFixed(2), p.BasePremium.StringFixed(2))
	}
	if !p.CoverageEnd.IsZero() && p.CoverageEnd.Before(p.CoverageStart) {
		return Validation("coverage end cannot precede coverage start")
	}
	return nil
}

// ExpiredAt reports whether the coverage window closed before asOf.
func (p *Policy) ExpiredAt(asOf time.Time) bool {
	return p.CoverageEnd.Before(asOf)
}

// PolicyDocument is a stored file (contract, annex) attached to a policy.
type PolicyDocument struct {
	DocumentID uuid.UUID `gorm:"column:document_id;type:uuid;primaryKey" json:"document_id"`
	PolicyID   uuid.UUID `gorm:"column:policy_id;type:uuid;not null;index" json:"policy_id"`
	BlobRef    string    `gorm:"column:blob_ref;not null" json:"blob_ref"`
	Kind       string    `gorm:"column:kind;type:varchar(50);not null" json:"kind"`
	UploadedBy Actor     `gorm:"column:uploaded_by" json:"uploaded_by"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (PolicyDocument) TableName() string {
	return "PolicyDocuments"
}

func (d *PolicyDocument) BeforeCreate(tx *gorm.DB) error {
	if d.DocumentID == uuid.Nil {
		d.DocumentID = uuid.New()
	}
	return nil
}
