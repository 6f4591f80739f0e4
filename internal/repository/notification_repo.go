package repository

import (
	"context"

	"go.uber.org/zap"

	"acadtrack/internal/model"
)

type NotificationRepository struct {
	db     Querier
	logger *zap.Logger
}

func NewNotificationRepository(db Querier, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

func (r *NotificationRepository) Insert(ctx context.Context, n *model.Notification) (int, error) {
	query := `
        INSERT INTO notifications (user_id, title, body, reference_id, reference_type)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	var id int
	err := r.db.QueryRow(ctx, query,
		n.UserID,
		n.Title,
		n.Body,
		n.ReferenceID,
		n.ReferenceType,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to insert notification",
			zap.Int("user_id", n.UserID),
			zap.Error(err),
		)
		return 0, err
	}
	return id, nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID int) ([]model.Notification, error) {
	query := `
        SELECT id, user_id, title, body, reference_id, reference_type, is_read, created_at
        FROM notifications
        WHERE user_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list notifications", zap.Int("user_id", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Title,
			&n.Body,
			&n.ReferenceID,
			&n.ReferenceType,
			&n.IsRead,
			&n.CreatedAt,
		); err != nil {
			r.logger.Error("Failed to scan notification", zap.Error(err))
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID int) error {
	query := `
        UPDATE notifications
        SET is_read = TRUE
        WHERE id = $1 AND user_id = $2
    `
	_, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		r.logger.Error("Failed to mark notification read",
			zap.Int("notification_id", id),
			zap.Error(err),
		)
	}
	return err
}
