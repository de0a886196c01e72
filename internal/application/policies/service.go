// Package policies manages insurers, brokers and the policies they issue.
package policies

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"insurledger-backend/internal/application/notifications"
	"insurledger-backend/internal/domain"
	"insurledger-backend/internal/infrastructure/blob"
	"insurledger-backend/internal/infrastructure/database"
	"insurledger-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	DB        *gorm.DB
	Blobs     blob.Store
	Notifier  *notifications.Emitter
	TxTimeout time.Duration
}

type InsurerInput struct {
	Name         string
	TaxID        string
	Contact      string
	ContactEmail string
	Phone        string
}

func (s *Service) CreateInsurer(ctx context.Context, actor domain.Actor, in InsurerInput) (*domain.Insurer, error) {
	if err := actor.Require(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.Validation("insurer name is required")
	}
	if !validation.IsValidNationalID(in.TaxID) {
		return nil, domain.Validation("insurer tax id must be 10 or 13 digits")
	}
	if in.ContactEmail != "" && !validation.IsValidEmail(in.ContactEmail) {
		return nil, domain.Validation("invalid contact email %q", in.ContactEmail)
	}
	ins := &domain.Insurer{
		Name:         strings.TrimSpace(in.Name),
		TaxID:        in.TaxID,
		Contact:      in.Contact,
		ContactEmail: in.ContactEmail,
		Phone:        in.Phone,
		CreatedBy:    actor,
	}
	db := s.DB.WithContext(ctx)
	if taken, err := database.Exists(db, &domain.Insurer{}, "tax_id = ?", in.TaxID); err != nil {
		return nil, err
	} else if taken {
		return nil, domain.Conflict("insurer with tax id %s already exists", in.TaxID)
	}
	if err := db.Create(ins).Error; err != nil {
		return nil, err
	}
	return ins, nil
}

type BrokerInput struct {
	Name       string
	Email      string
	ExternalID *string
}

func (s *Service) CreateBroker(ctx context.Context, actor domain.Actor, in BrokerInput) (*domain.Broker, error) {
	if err := actor.Require(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.Validation("broker name is required")
	}
	if !validation.IsValidEmail(in.Email) {
		return nil, domain.Validation("invalid broker email %q", in.Email)
	}
	b := &domain.Broker{Name: strings.TrimSpace(in.Name), Email: in.Email, ExternalID: in.ExternalID, CreatedBy: actor}
	if err := s.DB.WithContext(ctx).Create(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}

type PolicyInput struct {
	Number        string
	InsurerID     uuid.UUID
	BrokerID      uuid.UUID
	CoverageStart time.Time
	CoverageEnd   time.Time
	InsuredAmount decimal.Decimal
	Line          string
	InsuredObject string
	BasePremium   decimal.Decimal
	TotalPremium  decimal.Decimal
	Active        bool
	Renewable     bool
	IssueDate     time.Time
}

func (in PolicyInput) apply(p *domain.Policy) {
	p.Number = strings.TrimSpace(in.Number)
	p.InsurerID = in.InsurerID
	p.BrokerID = in.BrokerID
	p.CoverageStart = in.CoverageStart
	p.CoverageEnd = in.CoverageEnd
	p.InsuredAmount = in.InsuredAmount
	p.Line = in.Line
	p.InsuredObject = in.InsuredObject
	p.BasePremium = in.BasePremium
	p.TotalPremium = in.TotalPremium
	p.Active = in.Active
	p.Renewable = in.Renewable
	p.IssueDate = in.IssueDate
	if p.IssueDate.IsZero() {
		p.IssueDate = in.CoverageStart
	}
}

func (s *Service) checkPolicy(tx *gorm.DB, p *domain.Policy) error {
	if p.Number == "" {
		return domain.Validation("policy number is required")
	}
	if p.CoverageStart.IsZero() || p.CoverageEnd.IsZero() {
		return domain.Validation("coverage start and end are required")
	}
	if p.InsuredAmount.IsNegative() {
		return domain.Validation("insured amount cannot be negative")
	}
	if err := p.CheckPremiums(); err != nil {
		return err
	}
	if ok, err := database.Exists(tx, &domain.Insurer{}, "insurer_id = ?", p.InsurerID); err != nil {
		return err
	} else if !ok {
		return domain.NotFound("insurer %s not found", p.InsurerID)
	}
	if ok, err := database.Exists(tx, &domain.Broker{}, "broker_id = ?", p.BrokerID); err != nil {
		return err
	} else if !ok {
		return domain.NotFound("broker %s not found", p.BrokerID)
	}
	if taken, err := database.Exists(tx, &domain.Policy{}, "number = ? AND policy_id <> ?", p.Number, p.PolicyID); err != nil {
		return err
	} else if taken {
		return domain.Conflict("policy %s already exists", p.Number)
	}
	return nil
}

// CreatePolicy registers a policy. Total premium must not be below base premium.
func (s *Service) CreatePolicy(ctx context.Context, actor domain.Actor, in PolicyInput) (*domain.Policy, error) {
	if err := actor.Require(); err != nil {
		return nil, err
	}
	p := &domain.Policy{CreatedBy: actor, UpdatedBy: actor}
	in.apply(p)
	err := database.Transact(ctx, s.DB, s.TxTimeout, func(tx *gorm.DB) error {
		if err := s.checkPolicy(tx, p); err != nil {
			return err
		}
		return tx.Create(p).Error
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("policy", p.Number).Str("actor", actor.String()).Msg("policy created")
	s.Notifier.Emit(ctx, actor, domain.NotifyPolicyCreated,
		fmt.Sprintf("Policy %s registered, coverage until %s", p.Number, p.CoverageEnd.Format("2006-01-02")), p.PolicyID.String())
	return p, nil
}

func (s *Service) GetPolicy(ctx context.Context, id uuid.UUID) (*domain.Policy, error) {
	var p domain.Policy
	if err := s.DB.WithContext(ctx).Where("policy_id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("policy %s not found", id)
		}
		return nil, err
	}
	return &p, nil
}

func (s *Service) ListPolicies(ctx context.Context) ([]domain.Policy, error) {
	var out []domain.Policy
	err := s.DB.WithContext(ctx).Order("coverage_end DESC").Find(&out).Error
	return out, err
}

func (s *Service) UpdatePolicy(ctx context.Context, actor domain.Actor, id uuid.UUID, in PolicyInput) (*domain.Policy, error) {
	if err := actor.Require(); err != nil {
		return nil, err
	}
	var p domain.Policy
	err := database.Transact(ctx, s.DB, s.TxTimeout, func(tx *gorm.DB) error {
		if err := database.ForUpdate(tx).Where("policy_id = ?", id).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("policy %s not found", id)
			}
			return err
		}
		in.apply(&p)
		p.UpdatedBy = actor
		if err := s.checkPolicy(tx, &p); err != nil {
			return err
		}
		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePolicy removes a policy that no claim or invoice refers to.
func (s *Service) DeletePolicy(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := actor.Require(); err != nil {
		return err
	}
	var refs []string
	err := database.Transact(ctx, s.DB, s.TxTimeout, func(tx *gorm.DB) error {
		var p domain.Policy
		if err := database.ForUpdate(tx).Where("policy_id = ?", id).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("policy %s not found", id)
			}
			return err
		}
		for _, dep := range []struct {
			model interface{}
			what  string
		}{{&domain.Claim{}, "claims"}, {&domain.Invoice{}, "invoices"}} {
			if used, err := database.Exists(tx, dep.model, "policy_id = ?", id); err != nil {
				return err
			} else if used {
				return domain.IntegrityViolation("policy %s still has %s", p.Number, dep.what)
			}
		}
		var docs []domain.PolicyDocument
		if err := tx.Where("policy_id = ?", id).Find(&docs).Error; err != nil {
			return err
		}
		for _, d := range docs {
			refs = append(refs, d.BlobRef)
		}
		if err := tx.Where("policy_id = ?", id).Delete(&domain.PolicyDocument{}).Error; err != nil {
			return err
		}
		return tx.Delete(&p).Error
	})
	if err != nil {
		return err
	}
	s.releaseBlobs(ctx, refs...)
	return nil
}

// CountActive counts policies flagged active.
func (s *Service) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&domain.Policy{}).Where("active = ?", true).Count(&n).Error
	return n, err
}

// CountExpired counts policies whose coverage ended before the day of asOf.
func (s *Service) CountExpired(ctx context.Context, asOf time.Time) (int64, error) {
	day := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	var n int64
	err := s.DB.WithContext(ctx).Model(&domain.Policy{}).Where("coverage_end < ?", day).Count(&n).Error
	return n, err
}

// AddPolicyDocument stores a contract or annex for the policy.
func (s *Service) AddPolicyDocument(ctx context.Context, actor domain.Actor, policyID uuid.UUID, kind, filename string, data []byte) (*domain.PolicyDocument, error) {
	if err := actor.Require(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(kind) == "" {
		kind = "CONTRACT"
	}
	if !validation.IsAllowedDocument(filename) || !validation.IsAllowedSize(len(data)) {
		return nil, domain.Validation("document must be a .pdf, .jpg, .jpeg or .png of at most 5MB")
	}
	if s.Blobs == nil {
		return nil, errors.New("document storage is not configured")
	}
	if _, err := s.GetPolicy(ctx, policyID); err != nil {
		return nil, err
	}
	ref, err := s.Blobs.Store(ctx, data, blob.Key("policies", policyID, filename))
	if err != nil {
		return nil, err
	}
	doc := &domain.PolicyDocument{PolicyID: policyID, BlobRef: ref, Kind: strings.ToUpper(kind), UploadedBy: actor}
	if err := s.DB.WithContext(ctx).Create(doc).Error; err != nil {
		s.releaseBlobs(ctx, ref)
		return nil, err
	}
	return doc, nil
}

// RemovePolicyDocument deletes the record, then the stored file.
func (s *Service) RemovePolicyDocument(ctx context.Context, actor domain.Actor, documentID uuid.UUID) error {
	if err := actor.Require(); err != nil {
		return err
	}
	var doc domain.PolicyDocument
	db := s.DB.WithContext(ctx)
	if err := db.Where("document_id = ?", documentID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFound("document %s not found", documentID)
		}
		return err
	}
	if err := db.Delete(&doc).Error; err != nil {
		return err
	}
	s.releaseBlobs(ctx, doc.BlobRef)
	return nil
}

func (s *Service) releaseBlobs(ctx context.Context, refs ...string) {
	if s.Blobs == nil {
		return
	}
	for _, ref := range refs {
		if err := s.Blobs.Delete(context.WithoutCancel(ctx), ref); err != nil && !errors.Is(err, blob.ErrNotFound) {
			log.Warn().Err(err).Str("ref", ref).Msg("blob delete failed")
		}
	}
}
