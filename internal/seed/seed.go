package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

var ErrAlreadySeeded = errors.New("数据库中已存在科室数据")

type Store interface {
	GetAllDepartments(ctx context.Context) ([]*domain.Department, error)
	CreateDepartment(ctx context.Context, dept *domain.Department) error
	CreateUser(ctx context.Context, user *domain.User) error
	CreateShift(ctx context.Context, shift *domain.Shift) error
	CreateAssignment(ctx context.Context, a *domain.Assignment) error
}

var demoDepartments = []domain.Department{
	{Name: "ICU", Description: "Intensive Care Unit"},
	{Name: "Emergency Room", Description: "24/7 emergency and trauma care"},
	{Name: "Cardiology", Description: "Heart and vascular care"},
	{Name: "Pediatrics", Description: "Care for infants, children and adolescents"},
	{Name: "General Ward", Description: "General inpatient care"},
}

type demoMember struct {
	username   string
	fullName   string
	role       domain.Role
	department string
	onDuty     bool
}

// 休班的员工会出现在红色警报的召回名单中
var demoStaff = []demoMember{
	{"ssmith", "Dr. Sarah Smith", domain.RoleDoctor, "Cardiology", true},
	{"ejones", "Emily Jones", domain.RoleNurse, "ICU", true},
	{"mgarcia", "Dr. Miguel Garcia", domain.RoleDoctor, "Emergency Room", true},
	{"kpatel", "Kavya Patel", domain.RoleNurse, "Emergency Room", true},
	{"dlee", "Daniel Lee", domain.RoleNurse, "Cardiology", true},
	{"abrown", "Dr. Alice Brown", domain.RoleDoctor, "ICU", false},
	{"rwilson", "Rachel Wilson", domain.RoleNurse, "Pediatrics", true},
	{"jtaylor", "Dr. James Taylor", domain.RoleDoctor, "Pediatrics", false},
	{"tmoore", "Tom Moore", domain.RoleStaff, "General Ward", true},
	{"lchen", "Lin Chen", domain.RoleNurse, "General Ward", false},
	{"nclark", "Nora Clark", domain.RoleNurse, "ICU", false},
	{"hwalker", "Hannah Walker", domain.RoleManager, "Emergency Room", true},
}

type Summary struct {
	Departments int
	Users       int
	Shifts      int
	Assignments int
}

// SeedDemoHospital 写入一套演示数据：每个科室有一个正在进行的班次和一个后续班次
func SeedDemoHospital(ctx context.Context, store Store, password, emailDomain string, now time.Time) (*Summary, error) {
	existing, err := store.GetAllDepartments(ctx)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrAlreadySeeded
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}

	deptIDs := make(map[string]int64, len(demoDepartments))
	for _, d := range demoDepartments {
		dept := d
		if err := store.CreateDepartment(ctx, &dept); err != nil {
			return nil, fmt.Errorf("创建科室 %s 失败: %w", dept.Name, err)
		}
		deptIDs[dept.Name] = dept.ID
		summary.Departments++
	}

	// 当前班次从整点开始，保证 now 落在班次内
	currentStart := now.Truncate(time.Hour).Add(-2 * time.Hour)
	currentEnd := currentStart.Add(8 * time.Hour)

	type shiftKey struct {
		department string
		role       domain.Role
	}
	currentShifts := make(map[shiftKey]int64)

	for _, m := range demoStaff {
		deptID := deptIDs[m.department]
		user := &domain.User{
			Username:     m.username,
			PasswordHash: string(passwordHash),
			FullName:     m.fullName,
			Email:        m.username + "@" + emailDomain,
			Role:         m.role,
			DepartmentID: &deptID,
		}
		if err := store.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("创建员工 %s 失败: %w", m.username, err)
		}
		summary.Users++

		if !m.onDuty {
			continue
		}

		key := shiftKey{department: m.department, role: m.role}
		shiftID, ok := currentShifts[key]
		if !ok {
			shift := &domain.Shift{
				DepartmentID:  deptID,
				StartTime:     currentStart,
				EndTime:       currentEnd,
				RequiredRole:  m.role,
				RequiredCount: 2,
			}
			if err := store.CreateShift(ctx, shift); err != nil {
				return nil, fmt.Errorf("创建班次失败: %w", err)
			}
			shiftID = shift.ID
			currentShifts[key] = shiftID
			summary.Shifts++
		}

		if err := store.CreateAssignment(ctx, &domain.Assignment{UserID: user.ID, ShiftID: shiftID}); err != nil {
			return nil, fmt.Errorf("创建排班失败: %w", err)
		}
		summary.Assignments++
	}

	// 每个科室再准备一个后续的护士班次，红色警报没有当前班次时会落到这里
	for _, d := range demoDepartments {
		next := &domain.Shift{
			DepartmentID:  deptIDs[d.Name],
			StartTime:     currentEnd,
			EndTime:       currentEnd.Add(8 * time.Hour),
			RequiredRole:  domain.RoleNurse,
			RequiredCount: 2,
		}
		if err := store.CreateShift(ctx, next); err != nil {
			return nil, fmt.Errorf("创建班次失败: %w", err)
		}
		summary.Shifts++
	}

	return summary, nil
}

// SeedRandomStaff 插入 n 个随机员工，返回成功插入的数量
func SeedRandomStaff(ctx context.Context, store Store, n int, password, emailDomain string, departmentID *int64) int {
	cnt := 0
	for i := 0; i < n; i++ {
		user, err := utils.GenerateRandomUser(password, emailDomain, departmentID)
		if err != nil {
			slog.Error("无法生成随机员工", slog.String("error", err.Error()))
			continue
		}

		if err := store.CreateUser(ctx, user); err != nil {
			slog.Error("无法插入员工", slog.String("error", err.Error()))
			continue
		}

		cnt++
	}

	return cnt
}
