package domain

// 以下类型对应 /ai 下的辅助排班接口

type ScheduleStaff struct {
	Name          string  `json:"name" validate:"required"`
	Role          string  `json:"role" validate:"required"`
	HoursThisWeek float64 `json:"hoursThisWeek"`
	LastShift     *string `json:"lastShift"`
}

type ShiftRequirement struct {
	ShiftID    string `json:"shiftID" validate:"required"`
	RoleNeeded string `json:"roleNeeded" validate:"required"`
	StartTime  string `json:"startTime" validate:"required"`
	EndTime    string `json:"endTime" validate:"required"`
	Department string `json:"department" validate:"required"`
}

type ScheduleRequest struct {
	Staff   []ScheduleStaff    `json:"staff" validate:"dive"`
	Shifts  []ShiftRequirement `json:"shifts" validate:"dive"`
	Context string             `json:"context"`
}

type SuggestedAssignment struct {
	StaffName  string `json:"staffName"`
	StaffRole  string `json:"staffRole"`
	ShiftID    string `json:"shiftID"`
	Department string `json:"department"`
	Reason     string `json:"reason"`
}

type ScheduleSuggestion struct {
	Assignments []SuggestedAssignment `json:"assignments"`
	Warnings    []string              `json:"warnings"`
	Summary     string                `json:"summary"`
}

type WorkloadEntry struct {
	Name           string  `json:"name"`
	Role           string  `json:"role"`
	HoursThisWeek  float64 `json:"hoursThisWeek"`
	ShiftsThisWeek float64 `json:"shiftsThisWeek"`
}

type AtRiskStaff struct {
	Name              string `json:"name"`
	Concern           string `json:"concern"`
	RecommendedAction string `json:"recommendedAction"`
}

type WorkloadAnalysis struct {
	FairnessScore   int           `json:"fairnessScore"`
	AtRiskStaff     []AtRiskStaff `json:"atRiskStaff"`
	OverallSummary  string        `json:"overallSummary"`
	Recommendations []string      `json:"recommendations"`
}
