package notifications

import (
	"context"
	"errors"

	"insurledger-backend/internal/domain"

	"gorm.io/gorm"
)

// Sink receives lifecycle alerts. Delivery transport lives behind it.
type Sink interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// StoreSink persists alerts to the Notifications table (the in-app inbox).
type StoreSink struct {
	DB *gorm.DB
}

func (s *StoreSink) Notify(ctx context.Context, n domain.Notification) error {
	return s.DB.WithContext(ctx).Create(&n).Error
}

// MultiSink fans an alert out to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Notify(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
