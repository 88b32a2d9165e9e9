package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

func (r *Repository) InsertNotification(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (user_id, kind, subject, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	if err := r.queryer(ctx).QueryRow(ctx, query, n.UserID, n.Kind, n.Subject, n.Message).Scan(&n.ID, &n.CreatedAt); err != nil {
		return err
	}

	return nil
}

func (r *Repository) MarkNotificationPublished(ctx context.Context, id int64) error {
	query := `UPDATE notifications SET published_at = NOW() WHERE id = $1`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	if _, err := r.queryer(ctx).Exec(ctx, query, id); err != nil {
		return err
	}

	return nil
}
