// Package settlements computes a claim's final payout and closes the claim.
package settlements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"insurledger-backend/internal/application/claims"
	"insurledger-backend/internal/application/notifications"
	"insurledger-backend/internal/domain"
	"insurledger-backend/internal/infrastructure/blob"
	"insurledger-backend/internal/infrastructure/database"
	"insurledger-backend/internal/infrastructure/lock"
	"insurledger-backend/internal/pkg/validation"
	"insurledger-backend/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	DB        *gorm.DB
	Blobs     blob.Store
	Notifier  *notifications.Emitter
	Metrics   *metrics.Metrics
	Locker    lock.Locker
	TxTimeout time.Duration
}

// SignedDocument is the settlement paper signed by the claimant.
type SignedDocument struct {
	Filename string
	Data     []byte
}

type SettleInput struct {
	Number         *string
	SettlementDate time.Time
	ClaimedAmount  decimal.Decimal
	Deductible     decimal.Decimal
	Depreciation   decimal.Decimal
	SignedDoc      *SignedDocument
}

// Settle records the settlement and moves the claim to SETTLED in one
// transaction. A claim is settled at most once; every later attempt fails
// with AlreadySettled and writes nothing.
func (s *Service) Settle(ctx context.Context, actor domain.Actor, claimID uuid.UUID, in SettleInput) (*domain.Settlement, error) {
	start := time.Now()
	if err := actor.Require(); err != nil {
		return nil, err
	}
	payout, err := ComputePayout(in.ClaimedAmount, in.Deductible, in.Depreciation)
	if err != nil {
		return nil, err
	}
	if in.SignedDoc != nil {
		if !validation.IsAllowedDocument(in.SignedDoc.Filename) || !validation.IsAllowedSize(len(in.SignedDoc.Data)) {
			return nil, domain.Validation("signed document must be a .pdf, .jpg, .jpeg or .png of at most 5MB")
		}
		if s.Blobs == nil {
			return nil, errors.New("document storage is not configured")
		}
	}
	date := in.SettlementDate
	if date.IsZero() {
		date = time.Now().UTC().Truncate(24 * time.Hour)
	}

	unlock, err := lock.Hold(ctx, s.Locker, "claim:"+claimID.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	settlement := &domain.Settlement{
		ClaimID:        claimID,
		Number:         in.Number,
		SettlementDate: date,
		ClaimedAmount:  in.ClaimedAmount,
		Deductible:     in.Deductible,
		Depreciation:   in.Depreciation,
		FinalPayout:    payout,
		CreatedBy:      actor,
		UpdatedBy:      actor,
	}
	if in.SignedDoc != nil {
		ref, err := s.Blobs.Store(ctx, in.SignedDoc.Data, blob.Key("settlements", claimID, in.SignedDoc.Filename))
		if err != nil {
			return nil, fmt.Errorf("store signed settlement: %w", err)
		}
		settlement.SignedDocRef = &ref
	}

	var claim domain.Claim
	err = database.Transact(ctx, s.DB, s.TxTimeout, func(tx *gorm.DB) error {
		if err := claims.LockClaim(tx, claimID, &claim); err != nil {
			return err
		}
		settled, err := database.Exists(tx, &domain.Settlement{}, "claim_id = ?", claimID)
		if err != nil {
			return err
		}
		if settled || claim.State == domain.ClaimSettled {
			return domain.AlreadySettled("claim %s is already settled", claimID)
		}
		if claim.State == domain.ClaimRejected {
			return domain.StateViolation("claim %s was rejected and cannot be settled", claimID)
		}
		if err := tx.Create(settlement).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.AlreadySettled("claim %s is already settled", claimID)
			}
			return err
		}
		return claims.MarkSettledTx(tx, actor, &claim, payout, settlement.SettlementID)
	})
	if err != nil {
		if settlement.SignedDocRef != nil {
			if derr := s.Blobs.Delete(context.WithoutCancel(ctx), *settlement.SignedDocRef); derr != nil {
				log.Warn().Err(derr).Str("ref", *settlement.SignedDocRef).Msg("orphaned signed settlement")
			}
		}
		return nil, err
	}

	s.Metrics.ObserveSettlement(payout.InexactFloat64(), start)
	s.Metrics.IncTransition(string(domain.ClaimSettled))
	log.Info().
		Str("claim_id", claimID.String()).
		Str("payout", payout.StringFixed(2)).
		Str("actor", actor.String()).
		Msg("claim settled")
	s.Notifier.Emit(ctx, actor, domain.NotifyClaimSettled,
		fmt.Sprintf("Claim settled with a final payout of %s", payout.StringFixed(2)), claimID.String())
	return settlement, nil
}

// MarkPaid records that the payout reached the claimant.
func (s *Service) MarkPaid(ctx context.Context, actor domain.Actor, claimID uuid.UUID, paymentDate time.Time) (*domain.Settlement, error) {
	if err := actor.Require(); err != nil {
		return nil, err
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	var st domain.Settlement
	err := database.Transact(ctx, s.DB, s.TxTimeout, func(tx *gorm.DB) error {
		if err := database.ForUpdate(tx).Where("claim_id = ?", claimID).First(&st).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("claim %s has no settlement", claimID)
			}
			return err
		}
		if paymentDate.Before(st.SettlementDate) {
			return domain.Validation("payment date cannot precede settlement date")
		}
		st.Paid = true
		st.PaymentDate = &paymentDate
		st.UpdatedBy = actor
		return tx.Model(&domain.Settlement{}).Where("settlement_id = ?", st.SettlementID).
			Updates(map[string]interface{}{"paid": true, "payment_date": paymentDate, "updated_by": actor}).Error
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Service) Get(ctx context.Context, claimID uuid.UUID) (*domain.Settlement, error) {
	var st domain.Settlement
	if err := s.DB.WithContext(ctx).Where("claim_id = ?", claimID).First(&st).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("claim %s has no settlement", claimID)
		}
		return nil, err
	}
	return &st, nil
}
