// Package claims runs the claim lifecycle: creation against a policy and a
// custodian's asset, operator-driven transitions, edits and deletion.
package claims

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"insurledger-backend/internal/application/custody"
	"insurledger-backend/internal/application/notifications"
	"insurledger-backend/internal/domain"
	"insurledger-backend/internal/infrastructure/blob"
	"insurledger-backend/internal/infrastructure/database"
	"insurledger-backend/internal/infrastructure/lock"
	"insurledger-backend/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event types written to the claim audit trail.
const (
	EventCreated    = "CREATED"
	EventTransition = "TRANSITION"
	EventEdited     = "EDITED"
	EventDocument   = "DOCUMENT"
	EventSettled    = "SETTLED"
)

type Service struct {
	DB        *gorm.DB
	Custody   *custody.Service
	Blobs     blob.Store
	Notifier  *notifications.Emitter
	Metrics   *metrics.Metrics
	Locker    lock.Locker
	TxTimeout time.Duration
}

type CreateInput struct {
	Number          *string
	PolicyID        uuid.UUID
	CustodianID     uuid.UUID
	AssetID         uuid.UUID
	EventDate       time.Time
	NotifiedDate    time.Time
	Type            string
	Location        string
	Cause           string
	CoverageApplied *string
	EstimatedValue  decimal.Decimal
}

func (in CreateInput) check() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"type", in.Type},
		{"location", in.Location},
		{"cause", in.Cause},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return domain.Validation("claim requires %s", strings.Join(missing, ", "))
	}
	if in.EventDate.IsZero() {
		return domain.Validation("event date is required")
	}
	if in.EstimatedValue.IsNegative() {
		return domain.Validation("estimated value cannot be negative")
	}
	return nil
}

// Create files a claim in REPORTED. The policy must be active and the asset
// must be an ACTIVE asset held by the named custodian.
func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput) (*domain.Claim, error) {
	if err := actor.Require(); err != nil {
		return nil, err
	}
	if err := in.check(); err != nil {
		return nil, err
	}
	notified := in.NotifiedDate
	if notified.IsZero() {
		notified = time.Now().UTC().Truncate(24 * time.Hour)
	}
	claim := &domain.Claim{
		Number:          normalizeNumber(in.Number),
		PolicyID:        in.PolicyID,
		CustodianID:     in.CustodianID,
		AssetID:         in.AssetID,
		EventDate:       in.EventDate,
		NotifiedDate:    notified,
		Type:            strings.TrimSpace(in.Type),
		Location:        strings.TrimSpace(in.Location),
		Cause:           in.Cause,
		CoverageApplied: in.CoverageApplied,
		State:           domain.ClaimReported,
		EstimatedValue:  in.EstimatedValue,
		CreatedBy:       actor,
		UpdatedBy:       actor,
	}

	var policy domain.Policy
	err := database.Transact(ctx, s.DB, s.TxTimeout, func(tx *gorm.DB) error {
		if err := tx.Where("policy_id = ?", in.PolicyID).First(&policy).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("policy %s not found", in.PolicyID)
			}
			return err
		}
		if !policy.Active {
			return domain.IntegrityViolation("policy %s is not active", policy.Number)
		}
		if err := custody.ValidateTx(tx, in.CustodianID, in.AssetID); err != nil {
			return err
		}
		if err := s.checkNumber(tx, claim.Number, uuid.Nil); err != nil {
			return err
		}
		if err := tx.Create(claim).Error; err != nil {
			return mapWriteErr(err)
		}
		return AppendEvent(tx, claim.ClaimID, EventCreated, nil, claim.State, actor, map[string]interface{}{
			"policy_number":   policy.Number,
			"estimated_value": claim.EstimatedValue.StringFixed(2),
		})
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.IncClaimCreated()
	log.Info().Str("claim_id", claim.ClaimID.String()).Str("policy", policy.Number).Str("actor", actor.String()).Msg("claim reported")
	s.Notifier.Emit(ctx, actor, domain.NotifyClaimCreated,
		fmt.Sprintf("Claim reported against policy %s: %s", policy.Number, claim.Type), claim.ClaimID.String())
	return claim, nil
}

// RequestDocumentation moves a REPORTED claim into document collection.
func (s *Service) RequestDocumentation(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Claim, error) {
	return s.transition(ctx, actor, id, domain.ClaimReported, domain.ClaimDocumentation, nil)
}

// CompleteDocumentation returns a claim to REPORTED once its paperwork is in.
func (s *Service) CompleteDocumentation(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Claim, error) {
	return s.transition(ctx, actor, id, domain.ClaimDocumentation, domain.ClaimReported, nil)
}

func (s *Service) SendToInsurer(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Claim, error) {
	return s.transition(ctx, actor, id, domain.ClaimReported, domain.ClaimSentToInsurer, nil)
}

// RecordRepairOutcome applies the insurer's decision. REPLACED swaps the asset
// through the custody ledger inside the same transaction and re-points the claim.
func (s *Service) RecordRepairOutcome(ctx context.Context, actor domain.Actor, id uuid.UUID, outcome domain.RepairOutcome, replacement *custody.ReplacementInput) (*domain.Claim, error) {
	switch outcome {
	case domain.OutcomeFixed:
	case domain.OutcomeReplaced:
		if replacement == nil {
			return nil, domain.Validation("replacement asset requires serial, brand, model")
		}
		if err := replacement.Check(); err != nil {
			return nil, err
		}
	default:
		return nil, domain.Validation("unknown repair outcome %q", outcome)
	}

	unlock, err := lock.Hold(ctx, s.Locker, "claim:"+id.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	claim, err := s.transition(ctx, actor, id, domain.ClaimSentToInsurer, domain.ClaimInRepair, func(tx *gorm.DB, c *domain.Claim, data map[string]interface{}) error {
		o := outcome
		c.Outcome = &o
		data["outcome"] = outcome
		if outcome != domain.OutcomeReplaced {
			return nil
		}
		newAsset, err := s.Custody.ReplaceAssetTx(tx, actor, c.AssetID, *replacement)
		if err != nil {
			return err
		}
		data["old_asset_id"] = c.AssetID
		data["new_asset_id"] = newAsset.AssetID
		data["new_asset_code"] = newAsset.Code
		c.AssetID = newAsset.AssetID
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome == domain.OutcomeReplaced {
		s.Metrics.IncAssetReplaced()
	}
	return claim, nil
}

// Reject closes any non-terminal claim.
func (s *Service) Reject(ctx context.Context, actor domain.Actor, id uuid.UUID, reason string) (*domain.Claim, error) {
	return s.transition(ctx, actor, id, "", domain.ClaimRejected, func(tx *gorm.DB, c *domain.Claim, data map[string]interface{}) error {
		if strings.TrimSpace(reason) != "" {
			data["reason"] = strings.TrimSpace(reason)
		}
		return nil
	})
}

type mutateFn func(tx *gorm.DB, c *domain.Claim, data map[string]interface{}) error

// transition moves claim id from `from` to `to` under a row lock. An empty
// `from` accepts any non-terminal state.
func (s *Service) transition(ctx context.Context, actor domain.Actor, id uuid.UUID, from, to domain.ClaimState, mutate mutateFn) (*domain.Claim, error) {
	if err := actor.Require(); err != nil {
		return nil, err
	}
	var claim domain.Claim
	err := database.Transact(ctx, s.DB, s.TxTimeout, func(tx *gorm.DB) error {
		if err := LockClaim(tx, id, &claim); err != nil {
			return err
		}
		prev := claim.State
		if from == "" && prev.Terminal() {
			return domain.StateViolation("claim is %s and cannot move to %s", prev, to)
		}
		if from != "" && prev != from {
			return domain.StateViolation("claim is %s; %s requires %s", prev, to, from)
		}
		data := map[string]interface{}{}
		if mutate != nil {
			if err := mutate(tx, &claim, data); err != nil {
				return err
			}
		}
		claim.State = to
		claim.UpdatedBy = actor
		res := tx.Model(&domain.Claim{}).
			Where("claim_id = ? AND state = ?", claim.ClaimID, prev).
			Updates(map[string]interface{}{
				"state":      claim.State,
				"outcome":    claim.Outcome,
				"asset_id":   claim.AssetID,
				"updated_by": actor,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return domain.Conflict("claim %s changed concurrently", id)
		}
		return AppendEvent(tx, claim.ClaimID, EventTransition, &prev, to, actor, data)
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.IncTransition(string(to))
	log.Info().Str("claim_id", id.String()).Str("to", string(to)).Str("actor", actor.String()).Msg("claim transition")
	return &claim, nil
}

type EditInput struct {
	Number          *string
	CustodianID     *uuid.UUID
	AssetID         *uuid.UUID
	EventDate       *time.Time
	Type            *string
	Location        *string
	Cause           *string
	CoverageApplied *string
	EstimatedValue  *decimal.Decimal
}

// Edit changes non-status fields. Custody is re-validated whenever the
// custodian or asset changes.
func (s *Service) Edit(ctx context.Context, actor domain.Actor, id uuid.UUID, in EditInput) (*domain.Claim, error) {
	if err := actor.Require(); err != nil {
		return nil, err
	}
	var claim domain.Claim
	err := database.Transact(ctx, s.DB, s.TxTimeout, func(tx *gorm.DB) error {
		if err := LockClaim(tx, id, &claim); err != nil {
			return err
		}
		if claim.State == domain.ClaimSettled {
			return domain.StateViolation("claim %s is settled and cannot be edited", id)
		}
		changed := map[string]interface{}{}
		custodyChanged := false
		if in.CustodianID != nil && *in.CustodianID != claim.CustodianID {
			claim.CustodianID = *in.CustodianID
			changed["custodian_id"] = claim.CustodianID
			custodyChanged = true
		}
		if in.AssetID != nil && *in.AssetID != claim.AssetID {
			claim.AssetID = *in.AssetID
			changed["asset_id"] = claim.AssetID
			custodyChanged = true
		}
		if custodyChanged {
			if err := custody.ValidateTx(tx, claim.CustodianID, claim.AssetID); err != nil {
				return err
			}
		}
		if in.Number != nil {
			claim.Number = normalizeNumber(in.Number)
			if err := s.checkNumber(tx, claim.Number, claim.ClaimID); err != nil {
				return err
			}
			changed["number"] = claim.Number
		}
		if in.EventDate != nil {
			if in.EventDate.IsZero() {
				return domain.Validation("event date is required")
			}
			claim.EventDate = *in.EventDate
			changed["event_date"] = claim.EventDate
		}
		for col, pair := range map[string]struct {
			src *string
			dst *string
		}{
			"type":     {in.Type, &claim.Type},
			"location": {in.Location, &claim.Location},
			"cause":    {in.Cause, &claim.Cause},
		} {
			if pair.src == nil {
				continue
			}
			if strings.TrimSpace(*pair.src) == "" {
				return domain.Validation("%s cannot be empty", col)
			}
			*pair.dst = strings.TrimSpace(*pair.src)
			changed[col] = *pair.dst
		}
		if in.CoverageApplied != nil {
			claim.CoverageApplied = in.CoverageApplied
			changed["coverage_applied"] = claim.CoverageApplied
		}
		if in.EstimatedValue != nil {
			if in.EstimatedValue.IsNegative() {
				return domain.Validation("estimated value cannot be negative")
			}
			claim.EstimatedValue = *in.EstimatedValue
			changed["estimated_value"] = claim.EstimatedValue
		}
		if len(changed) == 0 {
			return nil
		}
		changed["updated_by"] = actor
		claim.UpdatedBy = actor
		if err := tx.Model(&domain.Claim{}).Where("claim_id = ?", claim.ClaimID).Updates(changed).Error; err != nil {
			return mapWriteErr(err)
		}
		fields := make([]string, 0, len(changed))
		for k := range changed {
			if k != "updated_by" {
				fields = append(fields, k)
			}
		}
		return AppendEvent(tx, claim.ClaimID, EventEdited, &claim.State, claim.State, actor, map[string]interface{}{"fields": fields})
	})
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// Delete removes a claim in any state together with its documents, settlement
// and audit trail. Stored files are released after commit; a failed blob
// delete is logged and does not undo the deletion.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := actor.Require(); err != nil {
		return err
	}
	var refs []string
	err := database.Transact(ctx, s.DB, s.TxTimeout, func(tx *gorm.DB) error {
		var claim domain.Claim
		if err := LockClaim(tx, id, &claim); err != nil {
			return err
		}
		var docs []domain.ClaimDocument
		if err := tx.Where("claim_id = ?", id).Find(&docs).Error; err != nil {
			return err
		}
		for _, d := range docs {
			refs = append(refs, d.BlobRef)
		}
		var settlement domain.Settlement
		err := tx.Where("claim_id = ?", id).First(&settlement).Error
		switch {
		case err == nil:
			if settlement.SignedDocRef != nil {
				refs = append(refs, *settlement.SignedDocRef)
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		for _, model := range []interface{}{&domain.ClaimDocument{}, &domain.Settlement{}, &domain.ClaimEvent{}} {
			if err := tx.Where("claim_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&claim).Error
	})
	if err != nil {
		return err
	}
	log.Info().Str("claim_id", id.String()).Str("actor", actor.String()).Int("files", len(refs)).Msg("claim deleted")
	s.releaseBlobs(ctx, refs...)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	var c domain.Claim
	if err := s.DB.WithContext(ctx).Where("claim_id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("claim %s not found", id)
		}
		return nil, err
	}
	return &c, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Claim, error) {
	var claims []domain.Claim
	err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&claims).Error
	return claims, err
}

func (s *Service) ListByPolicy(ctx context.Context, policyID uuid.UUID) ([]domain.Claim, error) {
	var claims []domain.Claim
	err := s.DB.WithContext(ctx).Where("policy_id = ?", policyID).Order("event_date DESC").Find(&claims).Error
	return claims, err
}

// History returns the claim's audit trail, oldest first.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]domain.ClaimEvent, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	var events []domain.ClaimEvent
	err := s.DB.WithContext(ctx).Where("claim_id = ?", id).Order("created_at ASC").Find(&events).Error
	return events, err
}

// MarkSettledTx finalises a claim locked by the caller's transaction: state
// SETTLED and actual value set to the payout, with an audit entry.
func MarkSettledTx(tx *gorm.DB, actor domain.Actor, claim *domain.Claim, payout decimal.Decimal, settlementID uuid.UUID) error {
	prev := claim.State
	res := tx.Model(&domain.Claim{}).
		Where("claim_id = ? AND state = ?", claim.ClaimID, prev).
		Updates(map[string]interface{}{
			"state":        domain.ClaimSettled,
			"actual_value": payout,
			"updated_by":   actor,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return domain.Conflict("claim %s changed concurrently", claim.ClaimID)
	}
	claim.State = domain.ClaimSettled
	claim.ActualValue = &payout
	claim.UpdatedBy = actor
	return AppendEvent(tx, claim.ClaimID, EventSettled, &prev, domain.ClaimSettled, actor, map[string]interface{}{
		"settlement_id": settlementID,
		"final_payout":  payout.StringFixed(2),
	})
}

// AppendEvent writes one audit entry in tx.
func AppendEvent(tx *gorm.DB, claimID uuid.UUID, eventType string, from *domain.ClaimState, to domain.ClaimState, actor domain.Actor, data map[string]interface{}) error {
	var payload datatypes.JSON
	if len(data) > 0 {
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode claim event: %w", err)
		}
		payload = datatypes.JSON(b)
	}
	var fromCopy *domain.ClaimState
	if from != nil {
		f := *from
		fromCopy = &f
	}
	return tx.Create(&domain.ClaimEvent{
		ClaimID:   claimID,
		EventType: eventType,
		FromState: fromCopy,
		ToState:   to,
		Actor:     actor,
		EventData: payload,
	}).Error
}

// LockClaim loads claim id with a row lock held until tx ends.
func LockClaim(tx *gorm.DB, id uuid.UUID, into *domain.Claim) error {
	if err := database.ForUpdate(tx).Where("claim_id = ?", id).First(into).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFound("claim %s not found", id)
		}
		return err
	}
	return nil
}

func (s *Service) checkNumber(tx *gorm.DB, number *string, self uuid.UUID) error {
	if number == nil {
		return nil
	}
	taken, err := database.Exists(tx, &domain.Claim{}, "number = ? AND claim_id <> ?", *number, self)
	if err != nil {
		return err
	}
	if taken {
		return domain.Conflict("claim number %s already exists", *number)
	}
	return nil
}

func (s *Service) releaseBlobs(ctx context.Context, refs ...string) {
	if s.Blobs == nil {
		return
	}
	dctx := context.WithoutCancel(ctx)
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := s.Blobs.Delete(dctx, ref); err != nil && !errors.Is(err, blob.ErrNotFound) {
			log.Warn().Err(err).Str("ref", ref).Msg("blob delete failed")
		}
	}
}

func normalizeNumber(n *string) *string {
	if n == nil || strings.TrimSpace(*n) == "" {
		return nil
	}
	v := strings.TrimSpace(*n)
	return &v
}

func mapWriteErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.Wrap(err, domain.KindConflict, "duplicate claim number")
	}
	return err
}
