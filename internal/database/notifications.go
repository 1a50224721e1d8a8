package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Alkitu/alkitu-template-sub002/internal/models"
)

func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	dataJSON, err := marshalJSONMap(n.Data)
	if err != nil {
		return fmt.Errorf("failed to encode notification data: %w", err)
	}

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	query := `INSERT INTO notifications (id, user_id, type, message, data, read, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = db.ExecContext(ctx, query, n.ID, n.UserID, n.Type, n.Message, dataJSON, n.Read, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (db *DB) ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]*models.Notification, error) {
	query := `SELECT id, user_id, type, message, data, read, created_at
              FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var (
			n        models.Notification
			dataJSON sql.NullString
		)
		err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &dataJSON, &n.Read, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if n.Data, err = unmarshalJSONMap(dataJSON); err != nil {
			return nil, fmt.Errorf("failed to decode notification data: %w", err)
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

func (db *DB) MarkNotificationRead(ctx context.Context, id string, userID int64) error {
	query := `UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`
	result, err := db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
