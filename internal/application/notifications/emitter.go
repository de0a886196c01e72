package notifications

import (
	"context"
	"time"

	"insurledger-backend/internal/domain"
	"insurledger-backend/internal/platform/metrics"

	"github.com/rs/zerolog/log"
)

const emitTimeout = 10 * time.Second

// Emitter is how services raise alerts once their transaction has committed.
// Emit never returns an error: a failing sink is logged and counted, and the
// operation that triggered it stands.
type Emitter struct {
	Sink    Sink
	Metrics *metrics.Metrics
	// Async hands delivery to a goroutine. Tests leave it false.
	Async bool
}

// Emit sends an alert to target about reference.
func (e *Emitter) Emit(ctx context.Context, target domain.Actor, category domain.NotificationCategory, message, reference string) {
	if e == nil || e.Sink == nil {
		return
	}
	n := domain.Notification{
		Target:   target,
		Category: category,
		Message:  message,
		Status:   domain.NotificationPending,
	}
	if reference != "" {
		n.ReferenceID = &reference
	}
	// Detached from the request: delivery must not be cut short by the caller returning.
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
	if e.Async {
		go func() {
			defer cancel()
			e.deliver(dctx, n)
		}()
		return
	}
	defer cancel()
	e.deliver(dctx, n)
}

func (e *Emitter) deliver(ctx context.Context, n domain.Notification) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("category", string(n.Category)).Msg("notification sink panicked")
			e.Metrics.IncNotificationFailure(string(n.Category))
		}
	}()
	if err := e.Sink.Notify(ctx, n); err != nil {
		log.Warn().Err(err).
			Str("category", string(n.Category)).
			Str("target", n.Target.String()).
			Msg("notification dropped")
		e.Metrics.IncNotificationFailure(string(n.Category))
	}
}
