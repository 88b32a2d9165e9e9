package emergency

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

type fakeUser struct {
	ID     int64
	Name   string
	Email  string
	Role   domain.Role
	Active bool
}

// fakeStore 在内存中模拟 repository，事务失败时回滚写入
type fakeStore struct {
	mu sync.Mutex

	departments   map[int64]*domain.Department
	users         []fakeUser
	shifts        []*domain.Shift
	assignments   []*domain.Assignment
	notifications []*domain.Notification
	audits        []*domain.AuditLog
	published     []int64
	auditLimit    int

	staffErr  error
	auditErr  error
	insertErr error
	nextID    int64
	clock     time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		departments: make(map[int64]*domain.Department),
		clock:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (s *fakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.assignments) + len(s.notifications) + len(s.audits)
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	a, n, l := len(s.assignments), len(s.notifications), len(s.audits)
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.assignments = s.assignments[:a]
		s.notifications = s.notifications[:n]
		s.audits = s.audits[:l]
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *fakeStore) GetDepartmentByID(_ context.Context, id int64) (*domain.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.departments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return d, nil
}

func (s *fakeStore) GetActiveStaffDuty(_ context.Context, at time.Time) ([]*domain.StaffingSnapshotEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staffErr != nil {
		return nil, s.staffErr
	}

	entries := make([]*domain.StaffingSnapshotEntry, 0)
	for _, u := range s.users {
		if !u.Active {
			continue
		}
		e := &domain.StaffingSnapshotEntry{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}

		var current *domain.Shift
		for _, a := range s.assignments {
			if a.UserID != u.ID {
				continue
			}
			for _, sh := range s.shifts {
				if sh.ID == a.ShiftID && sh.Covers(at) && (current == nil || sh.StartTime.Before(current.StartTime)) {
					current = sh
				}
			}
		}
		if current != nil {
			shiftID := current.ID
			e.CurrentShiftID = &shiftID
			if d, ok := s.departments[current.DepartmentID]; ok {
				name := d.Name
				e.CurrentDepartment = &name
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *fakeStore) GetEarliestOpenShift(_ context.Context, departmentID int64, now time.Time) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := make([]*domain.Shift, 0)
	for _, sh := range s.shifts {
		if sh.DepartmentID == departmentID && !sh.EndTime.Before(now) {
			candidates = append(candidates, sh)
		}
	}
	if len(candidates) == 0 {
		return nil, pgx.ErrNoRows
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].StartTime.Equal(candidates[j].StartTime) {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].StartTime.Before(candidates[j].StartTime)
	})
	return candidates[0], nil
}

func (s *fakeStore) AssignmentExists(_ context.Context, userID, shiftID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assignments {
		if a.UserID == userID && a.ShiftID == shiftID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) InsertAssignmentIfAbsent(ctx context.Context, a *domain.Assignment) (bool, error) {
	if s.insertErr != nil {
		return false, s.insertErr
	}
	exists, _ := s.AssignmentExists(ctx, a.UserID, a.ShiftID)
	if exists {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	a.CreatedAt = s.clock
	s.assignments = append(s.assignments, a)
	return true, nil
}

func (s *fakeStore) InsertNotification(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.id()
	n.CreatedAt = s.clock
	s.notifications = append(s.notifications, n)
	return nil
}

func (s *fakeStore) MarkNotificationPublished(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, id)
	return nil
}

func (s *fakeStore) InsertAuditLog(_ context.Context, entry *domain.AuditLog) error {
	if s.auditErr != nil {
		return s.auditErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = s.id()
	entry.Timestamp = s.clock
	s.audits = append(s.audits, entry)
	return nil
}

func (s *fakeStore) GetRecentAuditLogs(_ context.Context, limit int) ([]*domain.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLimit = limit

	out := make([]*domain.AuditLog, 0, len(s.audits))
	for i := len(s.audits) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.audits[i])
	}
	return out, nil
}

var errDatabaseDown = errors.New("database down")
