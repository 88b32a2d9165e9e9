package emergency

import "errors"

var (
	ErrDepartmentNotFound = errors.New("department not found")
	ErrRedAlertInProgress = errors.New("red alert already in progress for this department")
)
