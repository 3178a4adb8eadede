package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/eportal/backend/models"
)

// Notifications stores per-user notification rows.
type Notifications struct {
	db Querier
}

// NewNotifications constructs a notification store over db.
func NewNotifications(db Querier) *Notifications {
	return &Notifications{db: db}
}

// Recent returns up to limit notifications, unread first, newest first.
func (n *Notifications) Recent(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	return n.list(ctx,
		`SELECT id, user_id, message, is_read, created_at FROM notifications
         WHERE user_id = $1
         ORDER BY is_read ASC, created_at DESC
         LIMIT $2`,
		userID, limit,
	)
}

// Unread returns up to limit unread notifications, newest first.
func (n *Notifications) Unread(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	return n.list(ctx,
		`SELECT id, user_id, message, is_read, created_at FROM notifications
         WHERE user_id = $1 AND is_read = FALSE
         ORDER BY created_at DESC
         LIMIT $2`,
		userID, limit,
	)
}

func (n *Notifications) list(ctx context.Context, query string, args ...any) ([]models.Notification, error) {
	rows, err := n.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Notification, error) {
		var item models.Notification
		err := row.Scan(&item.ID, &item.UserID, &item.Message, &item.IsRead, &item.CreatedAt)
		return item, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	return items, nil
}

// MarkAllRead flags every unread notification of the user as read.
func (n *Notifications) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	tag, err := n.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}
