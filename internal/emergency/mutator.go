package emergency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

type ApplyInput struct {
	EmergencyType string
	Notes         string
	Department    *domain.Department
	Reassignments []domain.Reassignment
	OnDuty        []*domain.StaffingSnapshotEntry
	Now           time.Time
}

type ApplyOutcome struct {
	Applied       []domain.AppliedAssignment
	Notifications []*domain.Notification
	// Skipped 记录没有被应用的调配及原因
	Skipped []string
}

// Mutator 把方案中的调配写入排班表，需要在事务中调用
type Mutator struct {
	store  mutationStore
	logger *slog.Logger
}

func NewMutator(store mutationStore, logger *slog.Logger) *Mutator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mutator{
		store:  store,
		logger: logger,
	}
}

func (m *Mutator) Apply(ctx context.Context, in ApplyInput) (*ApplyOutcome, error) {
	out := &ApplyOutcome{
		Applied:       make([]domain.AppliedAssignment, 0),
		Notifications: make([]*domain.Notification, 0),
		Skipped:       make([]string, 0),
	}
	if len(in.Reassignments) == 0 {
		return out, nil
	}

	// 目标班次在一次流程中只查询一次
	target, err := m.store.GetEarliestOpenShift(ctx, in.Department.ID, in.Now)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		target = nil
	case err != nil:
		return nil, fmt.Errorf("emergency: find target shift: %w", err)
	}

	note := "Emergency reallocation: " + in.EmergencyType
	if in.Notes != "" {
		note += " | " + in.Notes
	}
	for _, r := range in.Reassignments {
		staff := findStaff(in.OnDuty, r.StaffName)
		if staff == nil {
			m.skip(out, r.StaffName, "staff not on duty")
			continue
		}
		if target == nil {
			m.skip(out, staff.Name, "no open shift in "+in.Department.Name)
			continue
		}

		exists, err := m.store.AssignmentExists(ctx, staff.ID, target.ID)
		if err != nil {
			return nil, fmt.Errorf("emergency: check assignment: %w", err)
		}
		if exists {
			m.skip(out, staff.Name, "already assigned")
			continue
		}

		assignment := &domain.Assignment{
			UserID:      staff.ID,
			ShiftID:     target.ID,
			IsEmergency: true,
			Notes:       &note,
		}
		created, err := m.store.InsertAssignmentIfAbsent(ctx, assignment)
		if err != nil {
			return nil, fmt.Errorf("emergency: create assignment: %w", err)
		}
		if !created {
			m.skip(out, staff.Name, "already assigned")
			continue
		}

		n := shiftChangeNotification(staff, in.Department.Name, in.EmergencyType)
		if err := m.store.InsertNotification(ctx, n); err != nil {
			return nil, fmt.Errorf("emergency: record notification: %w", err)
		}

		out.Notifications = append(out.Notifications, n)
		out.Applied = append(out.Applied, domain.AppliedAssignment{
			StaffName:    staff.Name,
			Role:         staff.Role,
			ToDepartment: in.Department.Name,
		})
	}

	return out, nil
}

func (m *Mutator) skip(out *ApplyOutcome, name, reason string) {
	m.logger.Warn("紧急调配未应用", "staff", name, "reason", reason)
	out.Skipped = append(out.Skipped, fmt.Sprintf("%s: %s", name, reason))
}

// findStaff 在在岗名单中按姓名查找，不区分大小写
func findStaff(pool []*domain.StaffingSnapshotEntry, name string) *domain.StaffingSnapshotEntry {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	for _, s := range pool {
		if strings.EqualFold(s.Name, name) {
			return s
		}
	}
	return nil
}

func shiftChangeNotification(staff *domain.StaffingSnapshotEntry, toDepartment, emergencyType string) *domain.Notification {
	from := "Previous assignment"
	if staff.CurrentDepartment != nil {
		from = *staff.CurrentDepartment
	}
	reason := "EMERGENCY: " + emergencyType

	return &domain.Notification{
		UserID:  staff.ID,
		Kind:    domain.NotificationShiftChange,
		Subject: "Emergency reassignment to " + toDepartment,
		Message: fmt.Sprintf(
			"Hi %s, your assignment has been updated.\nFrom: %s\nTo:   %s\nReason: %s\nPlease acknowledge in MedRoster.",
			staff.Name, from, toDepartment, reason,
		),
		RecipientEmail: staff.Email,
		RecipientName:  staff.Name,
		FromDepartment: from,
		ToDepartment:   toDepartment,
		Reason:         reason,
	}
}
