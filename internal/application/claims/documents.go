package claims

import (
	"context"
	"errors"
	"strings"

	"insurledger-backend/internal/domain"
	"insurledger-backend/internal/infrastructure/blob"
	"insurledger-backend/internal/infrastructure/database"
	"insurledger-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type DocumentInput struct {
	Kind        domain.DocumentKind
	Description string
	Filename    string
	Data        []byte
}

// AddDocument stores evidence for a claim. The file is written to the blob
// store first and removed again if the row cannot be inserted.
func (s *Service) AddDocument(ctx context.Context, actor domain.Actor, claimID uuid.UUID, in DocumentInput) (*domain.ClaimDocument, error) {
	if err := actor.Require(); err != nil {
		return nil, err
	}
	if !in.Kind.Valid() {
		return nil, domain.Validation("unknown document kind %q", in.Kind)
	}
	if !validation.IsAllowedDocument(in.Filename) {
		return nil, domain.Validation("file type not allowed, use .pdf, .jpg, .jpeg or .png")
	}
	if !validation.IsAllowedSize(len(in.Data)) {
		return nil, domain.Validation("file must be between 1 byte and 5MB")
	}
	if s.Blobs == nil {
		return nil, errors.New("document storage is not configured")
	}
	claim, err := s.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.State == domain.ClaimSettled {
		return nil, domain.StateViolation("documents cannot be added to a settled claim")
	}

	ref, err := s.Blobs.Store(ctx, in.Data, blob.Key("claims", claimID, in.Filename))
	if err != nil {
		return nil, err
	}
	doc := &domain.ClaimDocument{
		ClaimID:    claimID,
		BlobRef:    ref,
		Kind:       in.Kind,
		UploadedBy: actor,
	}
	if d := strings.TrimSpace(in.Description); d != "" {
		doc.Description = &d
	}
	err = database.Transact(ctx, s.DB, s.TxTimeout, func(tx *gorm.DB) error {
		var locked domain.Claim
		if err := LockClaim(tx, claimID, &locked); err != nil {
			return err
		}
		if locked.State == domain.ClaimSettled {
			return domain.StateViolation("documents cannot be added to a settled claim")
		}
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		return AppendEvent(tx, claimID, EventDocument, &locked.State, locked.State, actor, map[string]interface{}{
			"document_id": doc.DocumentID,
			"kind":        doc.Kind,
		})
	})
	if err != nil {
		s.releaseBlobs(ctx, ref)
		return nil, err
	}
	log.Info().Str("claim_id", claimID.String()).Str("kind", string(doc.Kind)).Msg("claim document stored")
	return doc, nil
}

// RemoveDocument deletes the record, then the stored file.
func (s *Service) RemoveDocument(ctx context.Context, actor domain.Actor, documentID uuid.UUID) error {
	if err := actor.Require(); err != nil {
		return err
	}
	var doc domain.ClaimDocument
	err := database.Transact(ctx, s.DB, s.TxTimeout, func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).First(&doc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("document %s not found", documentID)
			}
			return err
		}
		return tx.Delete(&doc).Error
	})
	if err != nil {
		return err
	}
	s.releaseBlobs(ctx, doc.BlobRef)
	return nil
}

func (s *Service) ListDocuments(ctx context.Context, claimID uuid.UUID) ([]domain.ClaimDocument, error) {
	if _, err := s.Get(ctx, claimID); err != nil {
		return nil, err
	}
	var docs []domain.ClaimDocument
	err := s.DB.WithContext(ctx).Where("claim_id = ?", claimID).Order("created_at DESC").Find(&docs).Error
	return docs, err
}
