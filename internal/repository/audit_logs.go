package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

func (r *Repository) InsertAuditLog(ctx context.Context, entry *domain.AuditLog) error {
	query := `
		INSERT INTO audit_logs (action, performed_by)
		VALUES ($1, $2)
		RETURNING id, timestamp
	`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	if err := r.queryer(ctx).QueryRow(ctx, query, entry.Action, entry.PerformedBy).Scan(&entry.ID, &entry.Timestamp); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetRecentAuditLogs(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	query := `
		SELECT id, action, performed_by, timestamp
		FROM audit_logs
		ORDER BY timestamp DESC, id DESC
		LIMIT $1
	`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	rows, err := r.queryer(ctx).Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]*domain.AuditLog, 0, limit)
	for rows.Next() {
		entry := &domain.AuditLog{}
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.PerformedBy, &entry.Timestamp); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return logs, nil
}
