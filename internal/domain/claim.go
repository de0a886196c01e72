package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ClaimState is the lifecycle position of a claim.
type ClaimState string

const (
	ClaimReported      ClaimState = "REPORTED"
	ClaimDocumentation ClaimState = "DOCUMENTATION"
	ClaimSentToInsurer ClaimState = "SENT_TO_INSURER"
	ClaimInRepair      ClaimState = "IN_REPAIR"
	ClaimSettled       ClaimState = "SETTLED"
	ClaimRejected      ClaimState = "REJECTED"
)

// Terminal reports whether no further transition is possible.
func (s ClaimState) Terminal() bool {
	return s == ClaimSettled || s == ClaimRejected
}

// RepairOutcome is what the insurer decided to do with the damaged asset.
type RepairOutcome string

const (
	OutcomeFixed    RepairOutcome = "FIXED"
	OutcomeReplaced RepairOutcome = "REPLACED"
)

// Claim is a reported loss or damage event against a policy-covered asset.
type Claim struct {
	ClaimID         uuid.UUID        `gorm:"column:claim_id;type:uuid;primaryKey" json:"claim_id"`
	Number          *string          `gorm:"column:number;type:varchar(50);uniqueIndex" json:"number"`
	PolicyID        uuid.UUID        `gorm:"column:policy_id;type:uuid;not null;index" json:"policy_id"`
	CustodianID     uuid.UUID        `gorm:"column:custodian_id;type:uuid;not null;index" json:"custodian_id"`
	AssetID         uuid.UUID        `gorm:"column:asset_id;type:uuid;not null;index" json:"asset_id"`
	EventDate       time.Time        `gorm:"column:event_date;type:date;not null" json:"event_date"`
	NotifiedDate    time.Time        `gorm:"column:notified_date;type:date;not null" json:"notified_date"`
	Type            string           `gorm:"column:type;type:varchar(100);not null" json:"type"`
	Location        string           `gorm:"column:location;type:varchar(255);not null" json:"location"`
	Cause           string           `gorm:"column:cause;type:text;not null" json:"cause"`
	CoverageApplied *string          `gorm:"column:coverage_applied;type:varchar(100)" json:"coverage_applied"`
	State           ClaimState       `gorm:"column:state;type:varchar(50);not null;default:'REPORTED';index" json:"state"`
	Outcome         *RepairOutcome   `gorm:"column:outcome;type:varchar(20)" json:"outcome"`
	EstimatedValue  decimal.Decimal  `gorm:"column:estimated_value;type:decimal(12,2);not null;default:0" json:"estimated_value"`
	ActualValue     *decimal.Decimal `gorm:"column:actual_value;type:decimal(12,2)" json:"actual_value"`
	CreatedBy       Actor            `gorm:"column:created_by" json:"created_by"`
	UpdatedBy       Actor            `gorm:"column:updated_by" json:"updated_by"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

func (Claim) TableName() string {
	return "Claims"
}

func (c *Claim) BeforeCreate(tx *gorm.DB) error {
	if c.ClaimID == uuid.Nil {
		c.ClaimID = uuid.New()
	}
	return nil
}

// ClaimEvent is one entry of a claim's audit trail, written in the same
// transaction as the change it records.
type ClaimEvent struct {
	EventID   uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	ClaimID   uuid.UUID      `gorm:"column:claim_id;type:uuid;not null;index" json:"claim_id"`
	EventType string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	FromState *ClaimState    `gorm:"column:from_state;type:varchar(50)" json:"from_state"`
	ToState   ClaimState     `gorm:"column:to_state;type:varchar(50);not null" json:"to_state"`
	Actor     Actor          `gorm:"column:actor;not null" json:"actor"`
	EventData datatypes.JSON `gorm:"column:event_data" json:"event_data"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (ClaimEvent) TableName() string {
	return "ClaimEvents"
}

func (e *ClaimEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}

// DocumentKind classifies claim evidence.
type DocumentKind string

const (
	DocTechnicalReport DocumentKind = "TECHNICAL_REPORT"
	DocPoliceReport    DocumentKind = "POLICE_REPORT"
	DocPhotos          DocumentKind = "PHOTOS"
	DocRepairInvoice   DocumentKind = "REPAIR_INVOICE"
	DocOther           DocumentKind = "OTHER"
)

func (k DocumentKind) Valid() bool {
	switch k {
	case DocTechnicalReport, DocPoliceReport, DocPhotos, DocRepairInvoice, DocOther:
		return true
	}
	return false
}

// ClaimDocument references a file held by the blob store.
type ClaimDocument struct {
	DocumentID  uuid.UUID    `gorm:"column:document_id;type:uuid;primaryKey" json:"document_id"`
	ClaimID     uuid.UUID    `gorm:"column:claim_id;type:uuid;not null;index" json:"claim_id"`
	BlobRef     string       `gorm:"column:blob_ref;not null" json:"blob_ref"`
	Kind        DocumentKind `gorm:"column:kind;type:varchar(20);not null" json:"kind"`
	Description *string      `gorm:"column:description;type:varchar(200)" json:"description"`
	UploadedBy  Actor        `gorm:"column:uploaded_by" json:"uploaded_by"`
	CreatedAt   time.Time    `json:"createdAt"`
}

func (ClaimDocument) TableName() string {
	return "ClaimDocuments"
}

func (d *ClaimDocument) BeforeCreate(tx *gorm.DB) error {
	if d.DocumentID == uuid.Nil {
		d.DocumentID = uuid.New()
	}
	return nil
}
