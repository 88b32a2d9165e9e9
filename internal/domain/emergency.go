package domain

import "time"

// StaffingSnapshotEntry 是一次红色警报流程中某个在职员工的瞬时状态，不落库
type StaffingSnapshotEntry struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	Email             string  `json:"-"`
	Role              Role    `json:"role"`
	DepartmentID      *int64  `json:"departmentID"`
	CurrentShiftID    *int64  `json:"currentShiftID,omitempty"`
	CurrentDepartment *string `json:"currentDepartment,omitempty"`
}

func (e *StaffingSnapshotEntry) OnDuty() bool {
	return e.CurrentShiftID != nil
}

type Reassignment struct {
	StaffName      string `json:"staffName"`
	FromDepartment string `json:"fromDepartment"`
	ToDepartment   string `json:"toDepartment"`
	Urgency        string `json:"urgency"`
}

type CallInRequest struct {
	StaffName string `json:"staffName"`
	Role      string `json:"role"`
	Reason    string `json:"reason"`
}

type ReallocationPlan struct {
	ImmediateReassignments   []Reassignment  `json:"immediateReassignments"`
	CallInRequests           []CallInRequest `json:"callInRequests"`
	EstimatedCoverageMinutes int             `json:"estimatedCoverageMinutes"`
	CriticalWarning          string          `json:"criticalWarning"`
	VoiceAnnouncement        string          `json:"voiceAnnouncement"`
}

type AppliedAssignment struct {
	StaffName    string `json:"staffName"`
	Role         Role   `json:"role"`
	ToDepartment string `json:"toDepartment"`
}

type BroadcastStatus string

const (
	BroadcastVoiceSent BroadcastStatus = "voice_sent"
	BroadcastTextOnly  BroadcastStatus = "text_only"
)

type BroadcastResult struct {
	Status             BroadcastStatus `json:"status"`
	AudioFilename      *string         `json:"audioFilename"`
	Transcript         string          `json:"transcript"`
	AffectedDepartment string          `json:"affectedDepartment"`
	Error              string          `json:"error,omitempty"`
}

type RedAlertState string

const (
	RedAlertIdle               RedAlertState = "idle"
	RedAlertSnapshotBuilt      RedAlertState = "snapshot_built"
	RedAlertPlanObtained       RedAlertState = "plan_obtained"
	RedAlertAssignmentsApplied RedAlertState = "assignments_applied"
	RedAlertBroadcasted        RedAlertState = "broadcasted"
	RedAlertLogged             RedAlertState = "logged"
	RedAlertComplete           RedAlertState = "complete"
)

const (
	RedAlertStatusActive   = "red_alert_active"
	RedAlertStatusResolved = "resolved"
)

type RedAlertResult struct {
	Status              string              `json:"status"`
	IncidentID          string              `json:"incidentID"`
	EmergencyType       string              `json:"emergencyType"`
	AffectedDepartment  string              `json:"affectedDepartment"`
	ResponseTimeSeconds float64             `json:"responseTimeSeconds"`
	StaffOnDutyCount    int                 `json:"staffOnDutyCount"`
	StaffOffDutyCount   int                 `json:"staffOffDutyCount"`
	AIPlan              *ReallocationPlan   `json:"aiPlan"`
	AssignmentsCreated  []AppliedAssignment `json:"assignmentsCreated"`
	VoiceBroadcast      BroadcastResult     `json:"voiceBroadcast"`
	Timestamp           time.Time           `json:"timestamp"`
	State               RedAlertState       `json:"state"`
	AuditRecorded       bool                `json:"auditRecorded"`
	Degraded            bool                `json:"degraded"`
	Warnings            []string            `json:"warnings"`
}

type ResolveResult struct {
	Status     string    `json:"status"`
	Department string    `json:"department"`
	ResolvedBy string    `json:"resolvedBy"`
	Timestamp  time.Time `json:"timestamp"`
}
