package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

// GetActiveStaffDuty 返回所有在职员工以及他们在 at 时刻所在的班次
// 每个员工只做一次 LATERAL 子查询；班次所属科室查不到时 current_department 为 NULL
func (r *Repository) GetActiveStaffDuty(ctx context.Context, at time.Time) ([]*domain.StaffingSnapshotEntry, error) {
	query := `
		SELECT
			u.id,
			u.full_name,
			u.email,
			u.role,
			u.department_id,
			cur.shift_id,
			d.name
		FROM users u
		LEFT JOIN LATERAL (
			SELECT a.shift_id, s.department_id
			FROM assignments a
			JOIN shifts s ON s.id = a.shift_id
			WHERE a.user_id = u.id AND s.start_time <= $1 AND s.end_time >= $1
			ORDER BY s.start_time ASC
			LIMIT 1
		) cur ON TRUE
		LEFT JOIN departments d ON d.id = cur.department_id
		WHERE u.is_active = TRUE
		ORDER BY u.id
	`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	rows, err := r.queryer(ctx).Query(ctx, query, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.StaffingSnapshotEntry, 0)
	for rows.Next() {
		e := &domain.StaffingSnapshotEntry{}
		dst := []any{&e.ID, &e.Name, &e.Email, &e.Role, &e.DepartmentID, &e.CurrentShiftID, &e.CurrentDepartment}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
