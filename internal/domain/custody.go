package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxAssetsPerCustodian is the hard cap on asset records a custodian can hold,
// inactive ones included. Replacements are exempt.
const MaxAssetsPerCustodian = 5

// PhysicalCondition of an asset as recorded on the handover certificate.
type PhysicalCondition string

const (
	ConditionGood PhysicalCondition = "good"
	ConditionFair PhysicalCondition = "fair"
	ConditionPoor PhysicalCondition = "poor"
)

func (c PhysicalCondition) Valid() bool {
	switch c {
	case ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// OperationalState of an asset. Assets are deactivated, never deleted.
type OperationalState string

const (
	AssetActive   OperationalState = "ACTIVE"
	AssetInactive OperationalState = "INACTIVE"
)

// Custodian is the person accountable for a set of assets.
type Custodian struct {
	CustodianID uuid.UUID `gorm:"column:custodian_id;type:uuid;primaryKey" json:"custodian_id"`
	NationalID  string    `gorm:"column:national_id;type:varchar(20);not null;uniqueIndex" json:"national_id"`
	FullName    string    `gorm:"column:full_name;type:varchar(150);not null" json:"full_name"`
	Email       string    `gorm:"column:email" json:"email"`
	Department  *string   `gorm:"column:department;type:varchar(100)" json:"department"`
	City        *string   `gorm:"column:city;type:varchar(100)" json:"city"`
	Building    *string   `gorm:"column:building;type:varchar(100)" json:"building"`
	Workstation *string   `gorm:"column:workstation;type:varchar(150)" json:"workstation"`
	CreatedBy   Actor     `gorm:"column:created_by" json:"created_by"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Custodian) TableName() string {
	return "Custodians"
}

func (c *Custodian) BeforeCreate(tx *gorm.DB) error {
	if c.CustodianID == uuid.Nil {
		c.CustodianID = uuid.New()
	}
	return nil
}

// Asset is a tracked physical item held by exactly one custodian.
// CustodianID changes only through replacement, which mints a new asset.
type Asset struct {
	AssetID         uuid.UUID         `gorm:"column:asset_id;type:uuid;primaryKey" json:"asset_id"`
	CustodianID     uuid.UUID         `gorm:"column:custodian_id;type:uuid;not null;index" json:"custodian_id"`
	Code            string            `gorm:"column:code;type:varchar(50);not null;uniqueIndex" json:"code"`
	LegacyCode      *string           `gorm:"column:legacy_code;type:varchar(50)" json:"legacy_code"`
	Description     string            `gorm:"column:description;type:text;not null" json:"description"`
	Serial          string            `gorm:"column:serial;type:varchar(100)" json:"serial"`
	Model           string            `gorm:"column:model;type:varchar(100)" json:"model"`
	Brand           string            `gorm:"column:brand;type:varchar(100)" json:"brand"`
	Location        string            `gorm:"column:location;type:varchar(100)" json:"location"`
	Condition       PhysicalCondition `gorm:"column:condition;type:varchar(10);not null;default:'good'" json:"condition"`
	State           OperationalState  `gorm:"column:state;type:varchar(10);not null;default:'ACTIVE';index" json:"state"`
	ReplacesAssetID *uuid.UUID        `gorm:"column:replaces_asset_id;type:uuid" json:"replaces_asset_id"`
	CreatedBy       Actor             `gorm:"column:created_by" json:"created_by"`
	UpdatedBy       Actor             `gorm:"column:updated_by" json:"updated_by"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

func (Asset) TableName() string {
	return "Assets"
}

func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if a.AssetID == uuid.Nil {
		a.AssetID = uuid.New()
	}
	return nil
}

func (a *Asset) IsActive() bool {
	return a.State == AssetActive
}
