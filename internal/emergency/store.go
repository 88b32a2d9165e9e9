package emergency

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

type snapshotStore interface {
	GetActiveStaffDuty(ctx context.Context, at time.Time) ([]*domain.StaffingSnapshotEntry, error)
}

type mutationStore interface {
	GetEarliestOpenShift(ctx context.Context, departmentID int64, now time.Time) (*domain.Shift, error)
	AssignmentExists(ctx context.Context, userID, shiftID int64) (bool, error)
	InsertAssignmentIfAbsent(ctx context.Context, a *domain.Assignment) (bool, error)
	InsertNotification(ctx context.Context, n *domain.Notification) error
}

type auditStore interface {
	InsertAuditLog(ctx context.Context, entry *domain.AuditLog) error
	GetRecentAuditLogs(ctx context.Context, limit int) ([]*domain.AuditLog, error)
}

// Store 是红色警报流程需要的全部持久化能力，*repository.Repository 满足该接口
type Store interface {
	snapshotStore
	mutationStore
	auditStore
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetDepartmentByID(ctx context.Context, id int64) (*domain.Department, error)
	MarkNotificationPublished(ctx context.Context, id int64) error
}
