package domain

import (
	"slices"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleDoctor  Role = "doctor"
	RoleNurse   Role = "nurse"
	RoleStaff   Role = "staff"
)

var AllRoles = []Role{RoleAdmin, RoleManager, RoleDoctor, RoleNurse, RoleStaff}

// ManagementRoles 可以触发红色警报、查看审计日志以及修改排班
var ManagementRoles = []Role{RoleAdmin, RoleManager}

func (r Role) Valid() bool {
	return slices.Contains(AllRoles, r)
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	DepartmentID *int64    `json:"departmentID"`
	CreatedAt    time.Time `json:"createdAt"`
	Version      int32     `json:"-"`
}
