package notifications

import (
	"context"
	"errors"

	"insurledger-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is the read side of the inbox written by StoreSink.
type Service struct {
	DB *gorm.DB
}

// ListForActor returns the actor's alerts, newest first.
func (s *Service) ListForActor(ctx context.Context, actor domain.Actor, unreadOnly bool) ([]domain.Notification, error) {
	if err := actor.Require(); err != nil {
		return nil, err
	}
	q := s.DB.WithContext(ctx).Where("target = ?", actor)
	if unreadOnly {
		q = q.Where("status <> ?", domain.NotificationRead)
	}
	var out []domain.Notification
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead flags one of the actor's alerts as read. Alerts addressed to
// someone else are reported as not found.
func (s *Service) MarkRead(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Notification, error) {
	if err := actor.Require(); err != nil {
		return nil, err
	}
	var n domain.Notification
	err := s.DB.WithContext(ctx).Where("notification_id = ? AND target = ?", id, actor).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("notification %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	if n.Status == domain.NotificationRead {
		return &n, nil
	}
	n.Status = domain.NotificationRead
	if err := s.DB.WithContext(ctx).Model(&n).Update("status", n.Status).Error; err != nil {
		return nil, err
	}
	return &n, nil
}
