package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

const assignmentUniqueConstraint = "assignments_user_id_shift_id_key"

type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetShiftByID(ctx context.Context, id int64) (*domain.Shift, error)
	AssignmentExists(ctx context.Context, userID, shiftID int64) (bool, error)
	CreateAssignment(ctx context.Context, a *domain.Assignment) error
	GetAssignmentByID(ctx context.Context, id int64) (*domain.Assignment, error)
	DeleteAssignment(ctx context.Context, id int64) error
	InsertAuditLog(ctx context.Context, entry *domain.AuditLog) error
}

type CreateAssignmentInput struct {
	UserID      int64
	ShiftID     int64
	IsEmergency bool
	Notes       *string
}

// Service 负责非紧急流程下的排班变更，每次变更都与审计日志在同一事务中提交
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) CreateAssignment(ctx context.Context, in CreateAssignmentInput, actor string) (*domain.Assignment, error) {
	var assignment *domain.Assignment

	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.store.GetUserByID(ctx, in.UserID)
		if err != nil {
			return notFound(err, ErrStaffNotFound)
		}
		shift, err := s.store.GetShiftByID(ctx, in.ShiftID)
		if err != nil {
			return notFound(err, ErrShiftNotFound)
		}

		// 紧急排班不检查角色
		if !in.IsEmergency && user.Role != shift.RequiredRole {
			return fmt.Errorf("%w: user is '%s' but shift requires '%s'", ErrRoleMismatch, user.Role, shift.RequiredRole)
		}

		exists, err := s.store.AssignmentExists(ctx, user.ID, shift.ID)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateAssignment
		}

		a := &domain.Assignment{
			UserID:      user.ID,
			ShiftID:     shift.ID,
			IsEmergency: in.IsEmergency,
			Notes:       in.Notes,
		}
		if err := s.store.CreateAssignment(ctx, a); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.ConstraintName == assignmentUniqueConstraint {
				return ErrDuplicateAssignment
			}
			return err
		}

		entry := &domain.AuditLog{
			Action:      fmt.Sprintf("ASSIGNMENT CREATED | user=%s | shift=%d | emergency=%t", user.FullName, shift.ID, in.IsEmergency),
			PerformedBy: actor,
		}
		if err := s.store.InsertAuditLog(ctx, entry); err != nil {
			return err
		}

		assignment = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	return assignment, nil
}

func (s *Service) DeleteAssignment(ctx context.Context, id int64, actor string) error {
	return s.store.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.store.GetAssignmentByID(ctx, id)
		if err != nil {
			return notFound(err, ErrAssignmentNotFound)
		}
		if err := s.store.DeleteAssignment(ctx, id); err != nil {
			return notFound(err, ErrAssignmentNotFound)
		}

		return s.store.InsertAuditLog(ctx, &domain.AuditLog{
			Action:      fmt.Sprintf("ASSIGNMENT REMOVED | id=%d | user=%d | shift=%d", a.ID, a.UserID, a.ShiftID),
			PerformedBy: actor,
		})
	})
}

func notFound(err, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return err
}
