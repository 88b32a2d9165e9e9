package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

func (r *Repository) CreateDepartment(ctx context.Context, dept *domain.Department) error {
	query := `
		INSERT INTO departments (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at, version
	`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	if err := r.queryer(ctx).QueryRow(ctx, query, dept.Name, dept.Description).Scan(&dept.ID, &dept.CreatedAt, &dept.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetDepartmentByID(ctx context.Context, id int64) (*domain.Department, error) {
	query := `
		SELECT name, description, created_at, version
		FROM departments WHERE id = $1
	`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	dept := &domain.Department{
		ID: id,
	}

	if err := r.queryer(ctx).QueryRow(ctx, query, id).Scan(&dept.Name, &dept.Description, &dept.CreatedAt, &dept.Version); err != nil {
		return nil, err
	}

	return dept, nil
}

func (r *Repository) GetAllDepartments(ctx context.Context) ([]*domain.Department, error) {
	query := `
		SELECT id, name, description, created_at, version
		FROM departments ORDER BY name
	`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	rows, err := r.queryer(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	depts := make([]*domain.Department, 0)
	for rows.Next() {
		dept := &domain.Department{}
		if err := rows.Scan(&dept.ID, &dept.Name, &dept.Description, &dept.CreatedAt, &dept.Version); err != nil {
			return nil, err
		}
		depts = append(depts, dept)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return depts, nil
}
