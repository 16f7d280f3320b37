package notification_service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"futsal-club/internal/models"
	"futsal-club/internal/repository"
	"futsal-club/internal/service"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Channel delivers a stored notification to one medium. A channel that has
// no address for the user returns nil.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, user *models.User, n *models.Notification) error
}

const DefaultDeliveryTimeout = 15 * time.Second

type notificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	channels      []Channel
	timeout       time.Duration
	now           service.Clock
	logger        *zap.Logger

	wg sync.WaitGroup
}

func NewNotificationService(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	channels []Channel,
	now service.Clock,
	logger *zap.Logger,
) service.Notifier {
	return &notificationService{
		notifications: notifications,
		users:         users,
		channels:      channels,
		timeout:       DefaultDeliveryTimeout,
		now:           now,
		logger:        logger.Named("notification"),
	}
}

func (s *notificationService) Notify(ctx context.Context, n *models.Notification) error {
	if n.RecipientID <= 0 || n.Title == "" {
		return fmt.Errorf("%w: notification needs a recipient and a title", service.ErrInvalidInput)
	}
	if n.Type == "" {
		n.Type = models.NotifyGeneral
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	s.dispatch(ctx, *n)
	return nil
}

func (s *notificationService) NotifyOnce(ctx context.Context, n *models.Notification) (bool, error) {
	if n.Subject != "" {
		exists, err := s.notifications.ExistsUnread(ctx, n.RecipientID, n.Type, n.Subject)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
	}
	if err := s.Notify(ctx, n); err != nil {
		return false, err
	}
	return true, nil
}

func (s *notificationService) NotifyFinanceManagers(ctx context.Context, n models.Notification) error {
	managers, err := s.users.ListFinanceManagers(ctx)
	if err != nil {
		return err
	}
	if len(managers) == 0 {
		s.logger.Warn("no finance managers to notify", zap.String("type", string(n.Type)))
		return nil
	}

	var errs error
	for _, m := range managers {
		msg := n
		msg.RecipientID = m.ID
		errs = multierr.Append(errs, s.Notify(ctx, &msg))
	}
	return errs
}

func (s *notificationService) ListUnread(ctx context.Context, recipientID int64) ([]models.Notification, error) {
	return s.notifications.ListUnread(ctx, recipientID)
}

func (s *notificationService) MarkRead(ctx context.Context, id int64) error {
	return s.notifications.MarkRead(ctx, id, s.now())
}

// dispatch fans n out to the channels in the background. The caller's
// cancellation does not reach the delivery; the timeout does.
func (s *notificationService) dispatch(ctx context.Context, n models.Notification) {
	if len(s.channels) == 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		log := s.logger.With(zap.Int64("notification_id", n.ID), zap.Int64("recipient_id", n.RecipientID))
		user, err := s.users.GetByID(ctx, n.RecipientID)
		if err != nil {
			log.Error("load recipient", zap.Error(err))
			return
		}
		if user == nil || !user.IsActive {
			log.Debug("recipient inactive, delivery skipped")
			return
		}
		for _, ch := range s.channels {
			if err := ch.Deliver(ctx, user, &n); err != nil {
				log.Warn("delivery failed", zap.String("channel", ch.Name()), zap.Error(err))
			}
		}
	}()
}

func (s *notificationService) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
