package service

import (
	"context"
	"slices"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/logger"
	"github.com/pesio-ai/be-catering-requests/internal/metrics"
	"github.com/pesio-ai/be-catering-requests/internal/repository"
)

// EventPublisher forwards committed events to an external delivery system.
type EventPublisher interface {
	PublishEvent(ctx context.Context, actorID string, ev domain.Event)
}

// Emitter turns committed workflow events into stored notifications and
// publishes them. It never returns an error: a lost notification must not
// fail the operation that produced it.
type Emitter struct {
	store     repository.Store
	publisher EventPublisher
	log       *logger.Logger
}

// NewEmitter creates an emitter. publisher may be nil.
func NewEmitter(store repository.Store, publisher EventPublisher, log *logger.Logger) *Emitter {
	return &Emitter{
		store:     store,
		publisher: publisher,
		log:       log,
	}
}

// Emit stores one notification per recipient of each event. The actor is
// never notified about their own action. Call only after the triggering
// transaction has committed.
func (e *Emitter) Emit(ctx context.Context, actorID string, events []domain.Event) {
	if e == nil || len(events) == 0 {
		return
	}
	// The triggering work is already committed; a client abandoning the
	// call should not drop the notification.
	ctx = context.WithoutCancel(ctx)

	for _, ev := range events {
		ev.Recipients = recipientsExcept(ev.Recipients, actorID)
		if len(ev.Recipients) == 0 {
			continue
		}

		err := e.store.InTransaction(ctx, func(q repository.Queries) error {
			createdAt := now()
			for _, userID := range ev.Recipients {
				n := &domain.Notification{
					ID:        newID(),
					UserID:    userID,
					Type:      ev.Type,
					Title:     ev.Title,
					Message:   ev.Message,
					RequestID: ev.RequestID,
					InvoiceID: ev.InvoiceID,
					PaymentID: ev.PaymentID,
					CreatedAt: createdAt,
				}
				if err := q.CreateNotification(ctx, n); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			metrics.RecordNotificationFailure(string(ev.Type))
			e.log.Warn().Err(err).
				Str("type", string(ev.Type)).
				Int("recipients", len(ev.Recipients)).
				Msg("Failed to store notification (non-fatal)")
			continue
		}

		if e.publisher != nil {
			e.publisher.PublishEvent(ctx, actorID, ev)
		}
	}
}

func recipientsExcept(recipients []string, actorID string) []string {
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r == "" || r == actorID || slices.Contains(out, r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// NotificationService serves the recipient side of notifications.
type NotificationService struct {
	store repository.Store
	log   *logger.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(store repository.Store, log *logger.Logger) *NotificationService {
	return &NotificationService{store: store, log: log}
}

// ListNotifications returns the actor's notifications, newest first.
func (s *NotificationService) ListNotifications(ctx context.Context, actor domain.Actor, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	limit, _ = page(limit, 0)
	var out []*domain.Notification
	err := s.store.View(ctx, func(q repository.Queries) error {
		var err error
		out, err = q.ListNotifications(ctx, actor.UserID, repository.NotificationFilter{
			UnreadOnly: unreadOnly,
			Limit:      limit,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead marks one of the actor's notifications read. Notifications of
// other users are reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, actor domain.Actor, id string) (*domain.Notification, error) {
	var n *domain.Notification
	err := s.store.InTransaction(ctx, func(q repository.Queries) error {
		var err error
		n, err = q.MarkNotificationRead(ctx, id, actor.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// MarkAllRead marks every unread notification of the actor read.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor domain.Actor) (int64, error) {
	var updated int64
	err := s.store.InTransaction(ctx, func(q repository.Queries) error {
		var err error
		updated, err = q.MarkAllNotificationsRead(ctx, actor.UserID)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.log.Debug().
		Str("user_id", actor.UserID).
		Int64("updated", updated).
		Msg("Notifications marked read")

	return updated, nil
}

// UnreadCount returns how many notifications the actor has not read.
func (s *NotificationService) UnreadCount(ctx context.Context, actor domain.Actor) (int, error) {
	var count int
	err := s.store.View(ctx, func(q repository.Queries) error {
		var err error
		count, err = q.CountUnreadNotifications(ctx, actor.UserID)
		return err
	})
	return count, err
}
