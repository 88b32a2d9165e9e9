package roster

import "errors"

var (
	ErrStaffNotFound       = errors.New("staff not found")
	ErrShiftNotFound       = errors.New("shift not found")
	ErrAssignmentNotFound  = errors.New("assignment not found")
	ErrRoleMismatch        = errors.New("role mismatch")
	ErrDuplicateAssignment = errors.New("user already assigned to this shift")
)
