package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

const assignmentColumns = `id, user_id, shift_id, is_emergency, notes, created_at`

func scanAssignment(row pgx.Row) (*domain.Assignment, error) {
	a := &domain.Assignment{}
	if err := row.Scan(&a.ID, &a.UserID, &a.ShiftID, &a.IsEmergency, &a.Notes, &a.CreatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

// CreateAssignment 插入一条排班记录，(user_id, shift_id) 重复时返回 assignments_user_id_shift_id_key 约束错误
func (r *Repository) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	query := `
		INSERT INTO assignments (user_id, shift_id, is_emergency, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	if err := r.queryer(ctx).QueryRow(ctx, query, a.UserID, a.ShiftID, a.IsEmergency, a.Notes).Scan(&a.ID, &a.CreatedAt); err != nil {
		return err
	}

	return nil
}

// InsertAssignmentIfAbsent 在 (user_id, shift_id) 已存在时不做任何修改并返回 false
func (r *Repository) InsertAssignmentIfAbsent(ctx context.Context, a *domain.Assignment) (bool, error) {
	query := `
		INSERT INTO assignments (user_id, shift_id, is_emergency, notes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, shift_id) DO NOTHING
		RETURNING id, created_at
	`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	err := r.queryer(ctx).QueryRow(ctx, query, a.UserID, a.ShiftID, a.IsEmergency, a.Notes).Scan(&a.ID, &a.CreatedAt)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	default:
		return false, err
	}
}

func (r *Repository) AssignmentExists(ctx context.Context, userID, shiftID int64) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM assignments WHERE user_id = $1 AND shift_id = $2)
	`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	exists := false
	if err := r.queryer(ctx).QueryRow(ctx, query, userID, shiftID).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

func (r *Repository) GetAssignmentByID(ctx context.Context, id int64) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	return scanAssignment(r.queryer(ctx).QueryRow(ctx, query, id))
}

// GetAssignments 在 userID 为 nil 时返回所有排班
func (r *Repository) GetAssignments(ctx context.Context, userID *int64) ([]*domain.Assignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE ($1::bigint IS NULL OR user_id = $1)
		ORDER BY id
	`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	rows, err := r.queryer(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]*domain.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *Repository) DeleteAssignment(ctx context.Context, id int64) error {
	query := `DELETE FROM assignments WHERE id = $1`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	tag, err := r.queryer(ctx).Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}
