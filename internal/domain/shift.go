package domain

import "time"

type Shift struct {
	ID            int64     `json:"id"`
	DepartmentID  int64     `json:"departmentID"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	RequiredRole  Role      `json:"requiredRole"`
	RequiredCount int32     `json:"requiredCount"`
	CreatedAt     time.Time `json:"createdAt"`
	Version       int32     `json:"-"`
}

// Covers 判断 t 是否落在班次的 [start, end] 区间内
func (s *Shift) Covers(t time.Time) bool {
	return !t.Before(s.StartTime) && !t.After(s.EndTime)
}
