package notification

import (
	"context"
	"fmt"
	"time"

	"futsal-club/internal/models"
	"futsal-club/internal/repository"

	"github.com/jmoiron/sqlx"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (recipient_id, type, title, message, related_player_id, subject)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := repository.Executor(ctx, r.db).QueryRowxContext(ctx, query,
		n.RecipientID, n.Type, n.Title, n.Message, n.RelatedPlayerID, n.Subject,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification for user %d: %w", n.RecipientID, err)
	}
	return nil
}

func (r *notificationRepository) ExistsUnread(ctx context.Context, recipientID int64, typ models.NotificationType, subject string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE recipient_id = $1 AND type = $2 AND subject = $3 AND is_read = FALSE
		)
	`
	var exists bool
	if err := repository.Executor(ctx, r.db).GetContext(ctx, &exists, query, recipientID, typ, subject); err != nil {
		return false, fmt.Errorf("check unread %s for user %d: %w", typ, recipientID, err)
	}
	return exists, nil
}

func (r *notificationRepository) ListUnread(ctx context.Context, recipientID int64) ([]models.Notification, error) {
	query := `
		SELECT id, recipient_id, type, title, message, related_player_id, subject, is_read, created_at, read_at
		FROM notifications
		WHERE recipient_id = $1 AND is_read = FALSE
		ORDER BY created_at DESC, id DESC
	`
	var items []models.Notification
	if err := repository.Executor(ctx, r.db).SelectContext(ctx, &items, query, recipientID); err != nil {
		return nil, fmt.Errorf("list unread for user %d: %w", recipientID, err)
	}
	return items, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE notifications SET is_read = TRUE, read_at = $2 WHERE id = $1 AND is_read = FALSE`
	if _, err := repository.Executor(ctx, r.db).ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	return nil
}
