package repository

import (
	"context"

	"github.com/Ansingh0305/BroCab/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID string) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	// MarkRead returns false when no unread notification with that id
	// belongs to the user.
	MarkRead(ctx context.Context, id int64, userID string) (bool, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type PGNotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) NotificationRepository {
	return &PGNotificationRepository{db: db}
}

func (r *PGNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return r.db.QueryRow(ctx, `INSERT INTO notifications (user_id, title, message, type, ride_id, is_read)
		VALUES ($1, $2, $3, $4, $5, false)
		RETURNING id, created_at, updated_at`,
		n.UserID, n.Title, n.Message, n.Type, n.RideID).
		Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
}

func (r *PGNotificationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	rows, err := r.db.Query(ctx, `SELECT id, user_id, title, message, type, ride_id, is_read, created_at, updated_at
		FROM notifications WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	notifications := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.RideID, &n.IsRead, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *PGNotificationRepository) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM notifications WHERE user_id=$1 AND is_read=false`, userID).Scan(&count)
	return count, err
}

func (r *PGNotificationRepository) MarkRead(ctx context.Context, id int64, userID string) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE notifications SET is_read=true, updated_at=now() WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *PGNotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE notifications SET is_read=true, updated_at=now() WHERE user_id=$1 AND is_read=false`, userID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

var _ NotificationRepository = (*PGNotificationRepository)(nil)
