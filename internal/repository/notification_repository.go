package repository

import (
	"context"
	"fmt"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
)

const notificationColumns = `
	id, user_id, type, title, message, read,
	request_id, invoice_id, payment_id, created_at, read_at`

func scanNotification(sc rowScanner) (*domain.Notification, error) {
	n := &domain.Notification{}
	err := sc.Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.Title,
		&n.Message,
		&n.Read,
		&n.RequestID,
		&n.InvoiceID,
		&n.PaymentID,
		&n.CreatedAt,
		&n.ReadAt,
	)
	return n, err
}

func (q *pgQueries) CreateNotification(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, type, title, message, read,
		                           request_id, invoice_id, payment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := q.db.Exec(ctx, query,
		n.ID,
		n.UserID,
		n.Type,
		n.Title,
		n.Message,
		n.Read,
		n.RequestID,
		n.InvoiceID,
		n.PaymentID,
		n.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create notification")
	}
	return nil
}

func (q *pgQueries) ListNotifications(ctx context.Context, userID string, f NotificationFilter) ([]*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`
	if f.UnreadOnly {
		query += ` AND NOT read`
	}
	limit, _ := limitClause(f.Limit, 0)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT %d", limit)

	rows, err := q.db.Query(ctx, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list notifications")
	}
	defer rows.Close()

	notifications := make([]*domain.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan notification")
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead marks one of the recipient's notifications read.
// Other users' notifications are reported as not found.
func (q *pgQueries) MarkNotificationRead(ctx context.Context, id, userID string) (*domain.Notification, error) {
	query := `
		UPDATE notifications
		SET read = TRUE, read_at = COALESCE(read_at, NOW())
		WHERE id = $1 AND user_id = $2
		RETURNING ` + notificationColumns
	n, err := scanNotification(q.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, notFoundOr(err, "notification", id, "failed to mark notification read")
	}
	return n, nil
}

func (q *pgQueries) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE, read_at = NOW() WHERE user_id = $1 AND NOT read`, userID)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to mark notifications read")
	}
	return tag.RowsAffected(), nil
}

func (q *pgQueries) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var count int
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to count unread notifications")
	}
	return count, nil
}
