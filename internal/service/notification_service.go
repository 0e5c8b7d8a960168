package service

import (
	"context"
	"fmt"
	"time"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"
	"insurance-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

type notificationService struct {
	repo ports.NotificationRepository
	log  zerolog.Logger
}

// NewNotificationService records notifications in repo.
func NewNotificationService(repo ports.NotificationRepository, log zerolog.Logger) ports.NotificationService {
	return &notificationService{repo: repo, log: log}
}

// Notify persists n. Failures are logged and never reach the caller, so a
// settled payment is not undone by a notification outage.
func (s *notificationService) Notify(ctx context.Context, n *domain.Notification) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.log.Warn().Err(err).
			Str("recipient_id", n.RecipientID.String()).
			Str("event", string(n.Event)).
			Msg("failed to record notification")
		return
	}
	s.log.Debug().
		Str("recipient_id", n.RecipientID.String()).
		Str("event", string(n.Event)).
		Msg("notification recorded")
}

func (s *notificationService) List(ctx context.Context, recipientID uuid.UUID, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	list, err := s.repo.ListByRecipient(ctx, recipientID, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list notifications: %w", err))
	}
	return list, nil
}

// notify builds and sends a notification through n.
func notify(ctx context.Context, n ports.Notifier, recipient uuid.UUID, sender *uuid.UUID, event domain.NotificationEvent, format string, args ...any) {
	n.Notify(ctx, &domain.Notification{
		ID:          uuid.New(),
		RecipientID: recipient,
		SenderID:    sender,
		Event:       event,
		Message:     fmt.Sprintf(format, args...),
		CreatedAt:   time.Now().UTC(),
	})
}
