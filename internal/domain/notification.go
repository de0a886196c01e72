package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationCategory tags what an alert is about.
type NotificationCategory string

const (
	NotifyPolicyExpiry      NotificationCategory = "POLICY_EXPIRY"
	NotifyPaymentPending    NotificationCategory = "PAYMENT_PENDING"
	NotifyClaimDocDelay     NotificationCategory = "CLAIM_DOC_DELAY"
	NotifyClaimInsurerDelay NotificationCategory = "CLAIM_INSURER_DELAY"
	NotifyPolicyCreated     NotificationCategory = "POLICY_CREATED"
	NotifyClaimCreated      NotificationCategory = "CLAIM_CREATED"
	NotifyInvoiceCreated    NotificationCategory = "INVOICE_CREATED"
	NotifyClaimSettled      NotificationCategory = "CLAIM_SETTLED"
	NotifyOther             NotificationCategory = "OTHER"
)

// NotificationStatus is the read state of an alert.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "PENDING"
	NotificationRead    NotificationStatus = "READ"
	NotificationEmailed NotificationStatus = "EMAILED"
)

// Notification is an alert addressed to an actor.
type Notification struct {
	NotificationID uuid.UUID            `gorm:"column:notification_id;type:uuid;primaryKey" json:"notification_id"`
	Target         Actor                `gorm:"column:target;not null;index" json:"target"`
	Category       NotificationCategory `gorm:"column:category;type:varchar(50);not null" json:"category"`
	Message        string               `gorm:"column:message;type:text;not null" json:"message"`
	ReferenceID    *string              `gorm:"column:reference_id;type:varchar(50)" json:"reference_id"`
	Status         NotificationStatus   `gorm:"column:status;type:varchar(50);not null;default:'PENDING'" json:"status"`
	Emailed        bool                 `gorm:"column:emailed;not null;default:false" json:"emailed"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

func (Notification) TableName() string {
	return "Notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.NotificationID == uuid.Nil {
		n.NotificationID = uuid.New()
	}
	if n.Status == "" {
		n.Status = NotificationPending
	}
	return nil
}
