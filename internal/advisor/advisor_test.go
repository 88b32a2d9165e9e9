package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

type fakeReasoner struct {
	available bool
	content   string
	text      string
	err       error
	calls     int
}

func (f *fakeReasoner) Available() bool { return f.available }

func (f *fakeReasoner) CompleteJSON(_ context.Context, _ JSONRequest, out any) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return decodeStrict(f.content, out)
}

func (f *fakeReasoner) Complete(_ context.Context, _ string, _ int, _ float32) (string, error) {
	f.calls++
	return f.text, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func icuInput() PlanInput {
	er := "ER"
	shiftID := int64(1)
	return PlanInput{
		EmergencyType: "Mass casualty",
		Department:    "ICU",
		OnDuty: []*domain.StaffingSnapshotEntry{
			{ID: 1, Name: "Dr. Smith", Role: domain.RoleDoctor, CurrentShiftID: &shiftID, CurrentDepartment: &er},
		},
		OffDuty: []*domain.StaffingSnapshotEntry{
			{ID: 2, Name: "Nurse Jones", Role: domain.RoleNurse},
		},
	}
}

func TestPolicyAdvisor_Unavailable(t *testing.T) {
	t.Parallel()

	reasoner := &fakeReasoner{available: false}
	p := NewPolicyAdvisor(NewLiveAdvisor(reasoner), discardLogger())

	plan := p.Plan(context.Background(), icuInput())

	if reasoner.calls != 0 {
		t.Fatalf("expected no reasoning call without credential, got %d", reasoner.calls)
	}
	if len(plan.ImmediateReassignments) != 0 || len(plan.CallInRequests) != 0 {
		t.Fatalf("expected empty fallback lists, got %+v", plan)
	}
	if plan.ImmediateReassignments == nil || plan.CallInRequests == nil {
		t.Fatalf("fallback lists must be empty, not nil")
	}
	if !strings.Contains(plan.CriticalWarning, "advisor unavailable") {
		t.Fatalf("expected advisor unavailable warning, got %q", plan.CriticalWarning)
	}
	if plan.EstimatedCoverageMinutes != fallbackCoverageMinutes {
		t.Fatalf("expected fallback ETA %d, got %d", fallbackCoverageMinutes, plan.EstimatedCoverageMinutes)
	}
	if !strings.Contains(plan.VoiceAnnouncement, "Mass casualty") || !strings.Contains(plan.VoiceAnnouncement, "ICU") {
		t.Fatalf("announcement must name type and department, got %q", plan.VoiceAnnouncement)
	}
}

func TestPolicyAdvisor_ErrorClasses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		err           error
		wantDiagnosis bool
	}{
		{
			name:          "quota api error",
			err:           &openai.APIError{HTTPStatusCode: 429, Code: "insufficient_quota", Message: "You exceeded your current quota"},
			wantDiagnosis: false,
		},
		{
			name:          "rate limit message",
			err:           errors.New("Rate limit reached for gpt-4o"),
			wantDiagnosis: false,
		},
		{
			name:          "transient error",
			err:           errors.New("dial tcp: connection reset by peer"),
			wantDiagnosis: true,
		},
		{
			name:          "deadline",
			err:           context.DeadlineExceeded,
			wantDiagnosis: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reasoner := &fakeReasoner{available: true, err: tt.err}
			p := NewPolicyAdvisor(NewLiveAdvisor(reasoner), discardLogger())

			plan := p.Plan(context.Background(), icuInput())

			if reasoner.calls != 1 {
				t.Fatalf("expected exactly one live attempt, got %d", reasoner.calls)
			}
			hasDiagnosis := strings.Contains(plan.CriticalWarning, "| AI error: ")
			if hasDiagnosis != tt.wantDiagnosis {
				t.Fatalf("diagnosis presence = %v, want %v (warning %q)", hasDiagnosis, tt.wantDiagnosis, plan.CriticalWarning)
			}
			if !strings.HasPrefix(plan.CriticalWarning, fallbackWarning) {
				t.Fatalf("expected fallback warning prefix, got %q", plan.CriticalWarning)
			}
		})
	}
}

func TestPolicyAdvisor_DiagnosisTruncated(t *testing.T) {
	t.Parallel()

	reasoner := &fakeReasoner{available: true, err: errors.New(strings.Repeat("x", 500))}
	p := NewPolicyAdvisor(NewLiveAdvisor(reasoner), discardLogger())

	plan := p.Plan(context.Background(), icuInput())

	_, diag, found := strings.Cut(plan.CriticalWarning, "| AI error: ")
	if !found {
		t.Fatalf("expected diagnosis in %q", plan.CriticalWarning)
	}
	if len(diag) != 200 {
		t.Fatalf("expected diagnosis truncated to 200 chars, got %d", len(diag))
	}
}

func TestPolicyAdvisor_LivePlanRepaired(t *testing.T) {
	t.Parallel()

	content := `{
		"immediateReassignments": [
			{"staffName": "  Dr. Smith ", "fromDepartment": "ER", "toDepartment": "", "urgency": ""},
			{"staffName": "", "fromDepartment": "ER", "toDepartment": "ICU", "urgency": "immediate"}
		],
		"callInRequests": [{"staffName": "Nurse Jones", "role": "nurse", "reason": "ICU surge"}],
		"estimatedCoverageMinutes": -5,
		"criticalWarning": "ER will run with one doctor",
		"voiceAnnouncement": ""
	}`
	reasoner := &fakeReasoner{available: true, content: content}
	p := NewPolicyAdvisor(NewLiveAdvisor(reasoner), discardLogger())

	plan := p.Plan(context.Background(), icuInput())

	if len(plan.ImmediateReassignments) != 1 {
		t.Fatalf("expected nameless reassignment to be dropped, got %+v", plan.ImmediateReassignments)
	}
	r := plan.ImmediateReassignments[0]
	if r.StaffName != "Dr. Smith" || r.ToDepartment != "ICU" || r.Urgency != "immediate" {
		t.Fatalf("unexpected repaired reassignment %+v", r)
	}
	if plan.EstimatedCoverageMinutes != 0 {
		t.Fatalf("expected negative ETA clamped to 0, got %d", plan.EstimatedCoverageMinutes)
	}
	if plan.VoiceAnnouncement == "" {
		t.Fatalf("expected empty announcement to be filled")
	}
	if plan.CriticalWarning != "ER will run with one doctor" {
		t.Fatalf("unexpected warning %q", plan.CriticalWarning)
	}
}

func TestPolicyAdvisor_MalformedResponse(t *testing.T) {
	t.Parallel()

	reasoner := &fakeReasoner{available: true, content: `{"immediateReassignments": [], "unexpected": true}`}
	p := NewPolicyAdvisor(NewLiveAdvisor(reasoner), discardLogger())

	plan := p.Plan(context.Background(), icuInput())

	if !strings.Contains(plan.CriticalWarning, "malformed response") {
		t.Fatalf("expected malformed response diagnosis, got %q", plan.CriticalWarning)
	}
}

func TestAssistant_SuggestScheduleFallback(t *testing.T) {
	t.Parallel()

	a := NewAssistant(&fakeReasoner{available: false}, discardLogger())
	out := a.SuggestSchedule(context.Background(), domain.ScheduleRequest{
		Staff: []domain.ScheduleStaff{
			{Name: "Dr. Smith", Role: "doctor"},
			{Name: "Nurse Jones", Role: "nurse"},
		},
		Shifts: []domain.ShiftRequirement{
			{ShiftID: "1", RoleNeeded: "doctor", Department: "ICU"},
			{ShiftID: "2", RoleNeeded: "doctor", Department: "ER"},
			{ShiftID: "3", RoleNeeded: "nurse", Department: "ER"},
		},
	})

	if len(out.Assignments) != 2 {
		t.Fatalf("expected 2 role-matched assignments, got %+v", out.Assignments)
	}
	if out.Assignments[0].StaffName != "Dr. Smith" || out.Assignments[1].StaffName != "Nurse Jones" {
		t.Fatalf("unexpected assignments %+v", out.Assignments)
	}
	if len(out.Warnings) != 1 || !strings.Contains(out.Warnings[0], "doctor") {
		t.Fatalf("expected one warning for the uncovered doctor shift, got %+v", out.Warnings)
	}
}

func TestAssistant_AnalyzeWorkloadFallback(t *testing.T) {
	t.Parallel()

	a := NewAssistant(&fakeReasoner{available: true, err: errors.New("upstream 500")}, discardLogger())
	out := a.AnalyzeWorkload(context.Background(), []domain.WorkloadEntry{
		{Name: "Dr. Smith", HoursThisWeek: 52, ShiftsThisWeek: 5},
		{Name: "Nurse Jones", HoursThisWeek: 30, ShiftsThisWeek: 7},
		{Name: "Tech Lee", HoursThisWeek: 40, ShiftsThisWeek: 5},
	})

	if out.FairnessScore != 50 {
		t.Fatalf("expected fallback fairness score 50, got %d", out.FairnessScore)
	}
	if len(out.AtRiskStaff) != 2 {
		t.Fatalf("expected 2 at-risk staff, got %+v", out.AtRiskStaff)
	}
	last := out.Recommendations[len(out.Recommendations)-1]
	if !strings.HasPrefix(last, "AI error fallback: ") {
		t.Fatalf("expected transient error recommendation, got %q", last)
	}
}

func TestAssistant_Tip(t *testing.T) {
	t.Parallel()

	if tip := NewAssistant(&fakeReasoner{available: false}, discardLogger()).Tip(context.Background()); tip != fallbackTip {
		t.Fatalf("expected fallback tip, got %q", tip)
	}

	live := NewAssistant(&fakeReasoner{available: true, text: "Stagger handovers."}, discardLogger())
	if tip := live.Tip(context.Background()); tip != "Stagger handovers." {
		t.Fatalf("expected live tip, got %q", tip)
	}
}

func TestNormalizeSchedulePayload(t *testing.T) {
	t.Parallel()

	raw := `{
		"staff_list": [
			{"full_name": "Dr. Smith", "position": "doctor", "hours": 12, "last": "2026-03-01"},
			"not-an-object"
		],
		"shift_requirements": [
			{"id": 7, "role": "doctor", "start": "08:00", "endTime": "16:00", "dept": "ICU"}
		],
		"note": "flu season"
	}`
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("invalid test payload: %v", err)
	}

	req := NormalizeSchedulePayload(payload)

	if len(req.Staff) != 1 {
		t.Fatalf("expected non-object entries to be skipped, got %+v", req.Staff)
	}
	s := req.Staff[0]
	if s.Name != "Dr. Smith" || s.Role != "doctor" || s.HoursThisWeek != 12 || s.LastShift == nil || *s.LastShift != "2026-03-01" {
		t.Fatalf("unexpected staff %+v", s)
	}
	if len(req.Shifts) != 1 {
		t.Fatalf("expected 1 shift, got %+v", req.Shifts)
	}
	sh := req.Shifts[0]
	if sh.ShiftID != "7" || sh.RoleNeeded != "doctor" || sh.StartTime != "08:00" || sh.EndTime != "16:00" || sh.Department != "ICU" {
		t.Fatalf("unexpected shift %+v", sh)
	}
	if req.Context != "flu season" {
		t.Fatalf("unexpected context %q", req.Context)
	}
}

func TestNormalizeWorkloadPayload(t *testing.T) {
	t.Parallel()

	var payload map[string]any
	if err := json.Unmarshal([]byte(`{"staffData": [{"username": "jones", "role": "nurse", "hoursThisWeek": "50", "shifts": 4}]}`), &payload); err != nil {
		t.Fatalf("invalid test payload: %v", err)
	}

	entries := NormalizeWorkloadPayload(payload)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if e := entries[0]; e.Name != "jones" || e.HoursThisWeek != 50 || e.ShiftsThisWeek != 4 {
		t.Fatalf("unexpected entry %+v", e)
	}

	if got := NormalizeWorkloadPayload(nil); len(got) != 0 {
		t.Fatalf("expected empty result for nil payload")
	}
}
