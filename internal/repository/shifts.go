package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

const shiftColumns = `id, department_id, start_time, end_time, required_role, required_count, created_at, version`

func scanShift(row pgx.Row) (*domain.Shift, error) {
	shift := &domain.Shift{}
	dst := []any{
		&shift.ID,
		&shift.DepartmentID,
		&shift.StartTime,
		&shift.EndTime,
		&shift.RequiredRole,
		&shift.RequiredCount,
		&shift.CreatedAt,
		&shift.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	return shift, nil
}

func (r *Repository) CreateShift(ctx context.Context, shift *domain.Shift) error {
	query := `
		INSERT INTO shifts (department_id, start_time, end_time, required_role, required_count)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, version
	`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	params := []any{
		shift.DepartmentID,
		shift.StartTime,
		shift.EndTime,
		shift.RequiredRole,
		shift.RequiredCount,
	}
	if err := r.queryer(ctx).QueryRow(ctx, query, params...).Scan(&shift.ID, &shift.CreatedAt, &shift.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetShiftByID(ctx context.Context, id int64) (*domain.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE id = $1`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	return scanShift(r.queryer(ctx).QueryRow(ctx, query, id))
}

// GetShifts 在 departmentID 为 nil 时返回所有班次
func (r *Repository) GetShifts(ctx context.Context, departmentID *int64) ([]*domain.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE ($1::bigint IS NULL OR department_id = $1)
		ORDER BY start_time
	`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	rows, err := r.queryer(ctx).Query(ctx, query, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shifts := make([]*domain.Shift, 0)
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return shifts, nil
}

// GetEarliestOpenShift 返回某科室中尚未结束且开始时间最早的班次
func (r *Repository) GetEarliestOpenShift(ctx context.Context, departmentID int64, now time.Time) (*domain.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE department_id = $1 AND end_time >= $2
		ORDER BY start_time ASC, id ASC
		LIMIT 1
	`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	return scanShift(r.queryer(ctx).QueryRow(ctx, query, departmentID, now))
}

// GetDepartmentCoverage 返回科室的班次数量和排班数量
func (r *Repository) GetDepartmentCoverage(ctx context.Context, departmentID int64) (int64, int64, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM shifts WHERE department_id = $1),
			(SELECT COUNT(*) FROM assignments a JOIN shifts s ON s.id = a.shift_id WHERE s.department_id = $1)
	`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	var shifts, assignments int64
	if err := r.queryer(ctx).QueryRow(ctx, query, departmentID).Scan(&shifts, &assignments); err != nil {
		return 0, 0, err
	}

	return shifts, assignments, nil
}

func (r *Repository) DeleteShift(ctx context.Context, id int64) error {
	query := `DELETE FROM shifts WHERE id = $1`

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
