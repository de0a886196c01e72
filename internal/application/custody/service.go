// Package custody keeps the asset-to-custodian ledger: who holds which
// asset, the per-custodian cap, and atomic asset replacement.
package custody

import (
	"context"
	"errors"
	"strings"
	"time"

	"insurledger-backend/internal/domain"
	"insurledger-backend/internal/infrastructure/database"
	"insurledger-backend/internal/infrastructure/lock"
	"insurledger-backend/internal/pkg/validation"
	"insurledger-backend/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Service struct {
	DB        *gorm.DB
	TxTimeout time.Duration
	Locker    lock.Locker
	Metrics   *metrics.Metrics
}

type CustodianInput struct {
	NationalID  string
	FullName    string
	Email       string
	Department  *string
	City        *string
	Building    *string
	Workstation *string
}

type AssetInput struct {
	Code        string
	LegacyCode  *string
	Description string
	Serial      string
	Model       string
	Brand       string
	Location    string
	Condition   domain.PhysicalCondition
}

// ReplacementInput carries what the insurer delivered in place of the old asset.
type ReplacementInput struct {
	Serial   string
	Brand    string
	Model    string
	Location string
}

// Check validates the replacement details; all three identifiers are mandatory.
func (in ReplacementInput) Check() error {
	var missing []string
	if strings.TrimSpace(in.Serial) == "" {
		missing = append(missing, "serial")
	}
	if strings.TrimSpace(in.Brand) == "" {
		missing = append(missing, "brand")
	}
	if strings.TrimSpace(in.Model) == "" {
		missing = append(missing, "model")
	}
	if len(missing) > 0 {
		return domain.Validation("replacement asset requires %s", strings.Join(missing, ", "))
	}
	return nil
}

func (s *Service) CreateCustodian(ctx context.Context, actor domain.Actor, in CustodianInput) (*domain.Custodian, error) {
	if err := actor.Require(); err != nil {
		return nil, err
	}
	if !validation.IsValidNationalID(in.NationalID) {
		return nil, domain.Validation("national id must be 10 or 13 digits")
	}
	if !validation.IsValidFullname(in.FullName) {
		return nil, domain.Validation("full name is required")
	}
	if in.Email != "" && !validation.IsValidEmail(in.Email) {
		return nil, domain.Validation("invalid email %q", in.Email)
	}
	c := &domain.Custodian{
		NationalID:  in.NationalID,
		FullName:    strings.TrimSpace(in.FullName),
		Email:       in.Email,
		Department:  in.Department,
		City:        in.City,
		Building:    in.Building,
		Workstation: in.Workstation,
		CreatedBy:   actor,
	}
	db := s.DB.WithContext(ctx)
	if taken, err := database.Exists(db, &domain.Custodian{}, "national_id = ?", in.NationalID); err != nil {
		return nil, err
	} else if taken {
		return nil, domain.Conflict("custodian with national id %s already exists", in.NationalID)
	}
	if err := db.Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.Conflict("custodian with national id %s already exists", in.NationalID)
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) GetCustodian(ctx context.Context, id uuid.UUID) (*domain.Custodian, error) {
	var c domain.Custodian
	if err := s.DB.WithContext(ctx).Where("custodian_id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("custodian %s not found", id)
		}
		return nil, err
	}
	return &c, nil
}

// ListAssets returns every asset the custodian ever held, active ones first.
func (s *Service) ListAssets(ctx context.Context, custodianID uuid.UUID) ([]domain.Asset, error) {
	if _, err := s.GetCustodian(ctx, custodianID); err != nil {
		return nil, err
	}
	var assets []domain.Asset
	err := s.DB.WithContext(ctx).
		Where("custodian_id = ?", custodianID).
		Order("state ASC").Order("code ASC").
		Find(&assets).Error
	return assets, err
}

func (s *Service) GetAsset(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	return loadAsset(s.DB.WithContext(ctx), id)
}

// CreateAsset registers a new ACTIVE asset under custodianID. The custodian
// row is locked so two concurrent creations cannot both pass the cap check.
func (s *Service) CreateAsset(ctx context.Context, actor domain.Actor, custodianID uuid.UUID, in AssetInput) (*domain.Asset, error) {
	if err := actor.Require(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Code) == "" || strings.TrimSpace(in.Description) == "" {
		return nil, domain.Validation("asset code and description are required")
	}
	cond := in.Condition
	if cond == "" {
		cond = domain.ConditionGood
	}
	if !cond.Valid() {
		return nil, domain.Validation("invalid physical condition %q", in.Condition)
	}

	asset := &domain.Asset{
		CustodianID: custodianID,
		Code:        strings.TrimSpace(in.Code),
		LegacyCode:  in.LegacyCode,
		Description: in.Description,
		Serial:      orNA(in.Serial),
		Model:       orNA(in.Model),
		Brand:       in.Brand,
		Location:    in.Location,
		Condition:   cond,
		State:       domain.AssetActive,
		CreatedBy:   actor,
		UpdatedBy:   actor,
	}
	err := database.Transact(ctx, s.DB, s.TxTimeout, func(tx *gorm.DB) error {
		var c domain.Custodian
		if err := database.ForUpdate(tx).Where("custodian_id = ?", custodianID).First(&c).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("custodian %s not found", custodianID)
			}
			return err
		}
		// Deactivated assets stay on the custodian's record and count too.
		var held int64
		if err := tx.Model(&domain.Asset{}).
			Where("custodian_id = ?", custodianID).
			Count(&held).Error; err != nil {
			return err
		}
		if held >= domain.MaxAssetsPerCustodian {
			return domain.CapacityExceeded("custodian %s already holds %d assets", c.NationalID, held)
		}
		if taken, err := database.Exists(tx, &domain.Asset{}, "code = ?", asset.Code); err != nil {
			return err
		} else if taken {
			return domain.Conflict("asset code %s already exists", asset.Code)
		}
		if err := tx.Create(asset).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.Conflict("asset code %s already exists", asset.Code)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("asset", asset.Code).Str("custodian", custodianID.String()).Str("actor", actor.String()).Msg("asset registered")
	return asset, nil
}

// ReplaceAsset deactivates oldID and mints its replacement in one transaction.
func (s *Service) ReplaceAsset(ctx context.Context, actor domain.Actor, oldID uuid.UUID, in ReplacementInput) (*domain.Asset, error) {
	unlock, err := lock.Hold(ctx, s.Locker, "asset:"+oldID.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	var replacement *domain.Asset
	err = database.Transact(ctx, s.DB, s.TxTimeout, func(tx *gorm.DB) error {
		var err error
		replacement, err = s.ReplaceAssetTx(tx, actor, oldID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.IncAssetReplaced()
	return replacement, nil
}

// ReplaceAssetTx performs the replacement inside the caller's transaction.
// The caller owns commit and rollback; any error leaves tx to be rolled back.
func (s *Service) ReplaceAssetTx(tx *gorm.DB, actor domain.Actor, oldID uuid.UUID, in ReplacementInput) (*domain.Asset, error) {
	if err := actor.Require(); err != nil {
		return nil, err
	}
	if err := in.Check(); err != nil {
		return nil, err
	}
	var old domain.Asset
	if err := database.ForUpdate(tx).Where("asset_id = ?", oldID).First(&old).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("asset %s not found", oldID)
		}
		return nil, err
	}
	if !old.IsActive() {
		return nil, domain.IntegrityViolation("asset %s is %s and cannot be replaced", old.Code, old.State)
	}

	res := tx.Model(&domain.Asset{}).
		Where("asset_id = ? AND state = ?", old.AssetID, domain.AssetActive).
		Updates(map[string]interface{}{"state": domain.AssetInactive, "updated_by": actor})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, domain.Conflict("asset %s changed during replacement", old.Code)
	}

	location := in.Location
	if location == "" {
		location = old.Location
	}
	prev := old.AssetID
	replacement := &domain.Asset{
		CustodianID:     old.CustodianID,
		Code:            old.Code + "-R",
		Description:     "Replacement of: " + old.Description,
		Serial:          strings.TrimSpace(in.Serial),
		Model:           strings.TrimSpace(in.Model),
		Brand:           strings.TrimSpace(in.Brand),
		Location:        location,
		Condition:       domain.ConditionGood,
		State:           domain.AssetActive,
		ReplacesAssetID: &prev,
		CreatedBy:       actor,
		UpdatedBy:       actor,
	}
	if taken, err := database.Exists(tx, &domain.Asset{}, "code = ?", replacement.Code); err != nil {
		return nil, err
	} else if taken {
		return nil, domain.Conflict("asset code %s already exists", replacement.Code)
	}
	if err := tx.Create(replacement).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.Conflict("asset code %s already exists", replacement.Code)
		}
		return nil, err
	}
	return replacement, nil
}

// Validate checks that assetID belongs to custodianID and is ACTIVE. It never writes.
func (s *Service) Validate(ctx context.Context, custodianID, assetID uuid.UUID) error {
	return ValidateTx(s.DB.WithContext(ctx), custodianID, assetID)
}

// ValidateTx is Validate against an open transaction.
func ValidateTx(tx *gorm.DB, custodianID, assetID uuid.UUID) error {
	var c domain.Custodian
	if err := tx.Select("custodian_id").Where("custodian_id = ?", custodianID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFound("custodian %s not found", custodianID)
		}
		return err
	}
	asset, err := loadAsset(tx, assetID)
	if err != nil {
		return err
	}
	return Check(custodianID, asset)
}

// Check is the custody invariant on already-loaded values.
func Check(custodianID uuid.UUID, asset *domain.Asset) error {
	if asset.CustodianID != custodianID {
		return domain.IntegrityViolation("asset %s is not held by custodian %s", asset.Code, custodianID)
	}
	if !asset.IsActive() {
		return domain.IntegrityViolation("asset %s is %s", asset.Code, asset.State)
	}
	return nil
}

func loadAsset(db *gorm.DB, id uuid.UUID) (*domain.Asset, error) {
	var a domain.Asset
	if err := db.Where("asset_id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("asset %s not found", id)
		}
		return nil, err
	}
	return &a, nil
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return strings.TrimSpace(s)
}
