package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/alumni-network/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, n *models.Notification) error
	ListByUser(ctx context.Context, userID int, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id int, at time.Time) error
	MarkAllRead(ctx context.Context, userID int, at time.Time) (int, error)
}

type sqlNotificationRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLNotificationRepository(db *sql.DB, dialect Dialect) NotificationRepository {
	return &sqlNotificationRepository{db: db, dialect: dialect}
}

func (r *sqlNotificationRepository) Create(ctx context.Context, exec SQLExecutor, n *models.Notification) error {
	if exec == nil {
		exec = r.db
	}
	query := r.dialect.Rebind(`
		INSERT INTO notifications (user_id, kind, message, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`)
	if err := exec.QueryRowContext(ctx, query, n.UserID, n.Kind, n.Message, n.CreatedAt).Scan(&n.ID); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *sqlNotificationRepository) ListByUser(ctx context.Context, userID int, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := `SELECT id, user_id, kind, message, read_at, created_at FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += " AND read_at IS NULL"
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Message, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return out, nil
}

func (r *sqlNotificationRepository) MarkRead(ctx context.Context, userID, id int, at time.Time) error {
	query := r.dialect.Rebind(`UPDATE notifications SET read_at = COALESCE(read_at, ?) WHERE id = ? AND user_id = ?`)
	result, err := r.db.ExecContext(ctx, query, at, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return checkAffectedRows(result, ErrNotificationNotFound)
}

func (r *sqlNotificationRepository) MarkAllRead(ctx context.Context, userID int, at time.Time) (int, error) {
	query := r.dialect.Rebind(`UPDATE notifications SET read_at = ? WHERE user_id = ? AND read_at IS NULL`)
	result, err := r.db.ExecContext(ctx, query, at, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return int(n), nil
}
