// Package invoicing issues policy invoices and keeps their tax and fee
// figures derived from the premium on every save.
package invoicing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"insurledger-backend/internal/application/notifications"
	"insurledger-backend/internal/domain"
	"insurledger-backend/internal/infrastructure/database"
	"insurledger-backend/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	DB        *gorm.DB
	Notifier  *notifications.Emitter
	Metrics   *metrics.Metrics
	TxTimeout time.Duration
}

type CreateInput struct {
	PolicyID      uuid.UUID
	Number        string
	AccountingDoc *string
	Input
}

// UpdateInput replaces the caller-owned fields; figures are re-derived.
type UpdateInput struct {
	AccountingDoc *string
	Input
}

func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput) (*domain.Invoice, error) {
	if err := actor.Require(); err != nil {
		return nil, err
	}
	number := strings.TrimSpace(in.Number)
	if number == "" {
		return nil, domain.Validation("invoice number is required")
	}
	figures, err := Derive(in.Input)
	if err != nil {
		return nil, err
	}
	inv := &domain.Invoice{
		PolicyID:      in.PolicyID,
		Number:        number,
		AccountingDoc: in.AccountingDoc,
		CreatedBy:     actor,
		UpdatedBy:     actor,
	}
	figures.Apply(in.Input, inv)

	var policy domain.Policy
	err = database.Transact(ctx, s.DB, s.TxTimeout, func(tx *gorm.DB) error {
		if err := tx.Where("policy_id = ?", in.PolicyID).First(&policy).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("policy %s not found", in.PolicyID)
			}
			return err
		}
		if taken, err := database.Exists(tx, &domain.Invoice{}, "number = ?", number); err != nil {
			return err
		} else if taken {
			return domain.Conflict("invoice %s already exists", number)
		}
		if err := tx.Create(inv).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.Conflict("invoice %s already exists", number)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.IncInvoiceIssued()
	log.Info().Str("invoice", inv.Number).Str("policy", policy.Number).Str("amount_due", inv.AmountDue.StringFixed(2)).Msg("invoice issued")
	ref := inv.InvoiceID.String()
	s.Notifier.Emit(ctx, actor, domain.NotifyInvoiceCreated,
		fmt.Sprintf("Invoice %s issued for policy %s: total %s", inv.Number, policy.Number, inv.TotalInvoiced.StringFixed(2)), ref)
	if !inv.Paid && inv.AmountDue.IsPositive() {
		s.Notifier.Emit(ctx, actor, domain.NotifyPaymentPending,
			fmt.Sprintf("Invoice %s has %s pending payment", inv.Number, inv.AmountDue.StringFixed(2)), ref)
	}
	return inv, nil
}

// Update rewrites the caller fields and re-derives every figure.
func (s *Service) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in UpdateInput) (*domain.Invoice, error) {
	if err := actor.Require(); err != nil {
		return nil, err
	}
	if _, err := Derive(in.Input); err != nil {
		return nil, err
	}
	return s.save(ctx, actor, id, func(inv *domain.Invoice) Input {
		inv.AccountingDoc = in.AccountingDoc
		return in.Input
	})
}

// MarkPaid flags the invoice as paid on paymentDate. The discount window is
// evaluated against that date.
func (s *Service) MarkPaid(ctx context.Context, actor domain.Actor, id uuid.UUID, paymentDate time.Time) (*domain.Invoice, error) {
	if err := actor.Require(); err != nil {
		return nil, err
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	return s.save(ctx, actor, id, func(inv *domain.Invoice) Input {
		return Input{
			Premium:      inv.Premium,
			IssueDate:    inv.IssueDate,
			PaymentDate:  &paymentDate,
			Withholdings: inv.Withholdings,
			Paid:         true,
		}
	})
}

// save loads id under lock, lets edit produce the new input, re-derives and writes.
func (s *Service) save(ctx context.Context, actor domain.Actor, id uuid.UUID, edit func(inv *domain.Invoice) Input) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := database.Transact(ctx, s.DB, s.TxTimeout, func(tx *gorm.DB) error {
		if err := database.ForUpdate(tx).Where("invoice_id = ?", id).First(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("invoice %s not found", id)
			}
			return err
		}
		in := edit(&inv)
		figures, err := Derive(in)
		if err != nil {
			return err
		}
		figures.Apply(in, &inv)
		inv.UpdatedBy = actor
		return tx.Save(&inv).Error
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var inv domain.Invoice
	if err := s.DB.WithContext(ctx).Where("invoice_id = ?", id).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("invoice %s not found", id)
		}
		return nil, err
	}
	return &inv, nil
}

func (s *Service) ListByPolicy(ctx context.Context, policyID uuid.UUID) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := s.DB.WithContext(ctx).Where("policy_id = ?", policyID).Order("issue_date DESC").Find(&invoices).Error
	return invoices, err
}

// Outstanding sums the amount due over unpaid invoices of a policy.
func (s *Service) Outstanding(ctx context.Context, policyID uuid.UUID) (decimal.Decimal, error) {
	invoices, err := s.ListByPolicy(ctx, policyID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, inv := range invoices {
		if !inv.Paid && inv.AmountDue.IsPositive() {
			total = total.Add(inv.AmountDue)
		}
	}
	return total, nil
}
