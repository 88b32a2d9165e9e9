package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

const (
	fallbackCoverageMinutes = 15
	fallbackWarning         = "advisor unavailable (quota/key). Use manual emergency reassignment."
	defaultUrgency          = "immediate"
)

var planSchema = mustSchema(domain.ReallocationPlan{})

type PlanInput struct {
	EmergencyType string
	Department    string
	OnDuty        []*domain.StaffingSnapshotEntry
	OffDuty       []*domain.StaffingSnapshotEntry
}

// Planner 是生成重新分配方案的一种实现
type Planner interface {
	Plan(ctx context.Context, in PlanInput) (*domain.ReallocationPlan, error)
}

// LiveAdvisor 通过外部推理服务生成方案
type LiveAdvisor struct {
	reasoner Reasoner
}

func NewLiveAdvisor(reasoner Reasoner) *LiveAdvisor {
	return &LiveAdvisor{reasoner: reasoner}
}

func (a *LiveAdvisor) Plan(ctx context.Context, in PlanInput) (*domain.ReallocationPlan, error) {
	if a.reasoner == nil || !a.reasoner.Available() {
		return nil, ErrUnavailable
	}

	prompt, err := buildPlanPrompt(in)
	if err != nil {
		return nil, err
	}

	plan := &domain.ReallocationPlan{}
	req := JSONRequest{
		Name:        "reallocation_plan",
		Prompt:      prompt,
		Schema:      planSchema,
		Temperature: 0.1,
	}
	if err := a.reasoner.CompleteJSON(ctx, req, plan); err != nil {
		return nil, err
	}

	return repairPlan(plan, in), nil
}

// FallbackAdvisor 生成确定性的降级方案，永远不会失败
type FallbackAdvisor struct{}

func (FallbackAdvisor) Plan(_ context.Context, in PlanInput) (*domain.ReallocationPlan, error) {
	return &domain.ReallocationPlan{
		ImmediateReassignments:   []domain.Reassignment{},
		CallInRequests:           []domain.CallInRequest{},
		EstimatedCoverageMinutes: fallbackCoverageMinutes,
		CriticalWarning:          fallbackWarning,
		VoiceAnnouncement:        fallbackAnnouncement(in.EmergencyType, in.Department),
	}, nil
}

func fallbackAnnouncement(emergencyType, department string) string {
	return fmt.Sprintf(
		"Attention staff. %s reported. Additional support is needed in %s. Please check the dashboard for reassignment instructions.",
		emergencyType, department,
	)
}

// PolicyAdvisor 先尝试 live，失败后只回退一次到 fallback
type PolicyAdvisor struct {
	live     Planner
	fallback Planner
	logger   *slog.Logger
}

func NewPolicyAdvisor(live Planner, logger *slog.Logger) *PolicyAdvisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PolicyAdvisor{
		live:     live,
		fallback: FallbackAdvisor{},
		logger:   logger,
	}
}

// Plan 总是返回一个可用的方案
func (p *PolicyAdvisor) Plan(ctx context.Context, in PlanInput) *domain.ReallocationPlan {
	plan, err := p.live.Plan(ctx, in)
	if err == nil && plan != nil {
		return plan
	}
	if err == nil {
		err = fmt.Errorf("%w: empty plan", ErrMalformedResponse)
	}

	plan, fbErr := p.fallback.Plan(ctx, in)
	if fbErr != nil || plan == nil {
		plan, _ = FallbackAdvisor{}.Plan(ctx, in)
	}

	if fallsBackQuietly(err) {
		p.logger.Warn("推理服务不可用，使用降级方案", "department", in.Department, "error", err)
		return plan
	}

	p.logger.Warn("推理服务调用失败，使用降级方案", "department", in.Department, "error", err)
	plan.CriticalWarning = fmt.Sprintf("%s | AI error: %s", plan.CriticalWarning, diagnostic(err))
	return plan
}

type promptStaff struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	Role              string  `json:"role"`
	DepartmentID      *int64  `json:"departmentId"`
	CurrentShiftID    *int64  `json:"currentShiftId,omitempty"`
	CurrentDepartment *string `json:"currentDepartment,omitempty"`
}

func toPromptStaff(entries []*domain.StaffingSnapshotEntry) []promptStaff {
	out := make([]promptStaff, 0, len(entries))
	for _, e := range entries {
		out = append(out, promptStaff{
			ID:                e.ID,
			Name:              e.Name,
			Role:              string(e.Role),
			DepartmentID:      e.DepartmentID,
			CurrentShiftID:    e.CurrentShiftID,
			CurrentDepartment: e.CurrentDepartment,
		})
	}
	return out
}

func buildPlanPrompt(in PlanInput) (string, error) {
	onDuty, err := json.MarshalIndent(toPromptStaff(in.OnDuty), "", "  ")
	if err != nil {
		return "", err
	}
	offDuty, err := json.MarshalIndent(toPromptStaff(in.OffDuty), "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You are MedRoster's Emergency AI. A hospital emergency requires IMMEDIATE action.\n\n")
	fmt.Fprintf(&b, "Emergency Type: %s\n", in.EmergencyType)
	fmt.Fprintf(&b, "Department Needing Help: %s\n\n", in.Department)
	fmt.Fprintf(&b, "Staff Currently On Duty (can be reassigned):\n%s\n\n", onDuty)
	fmt.Fprintf(&b, "Staff Off Duty (can be called in):\n%s\n\n", offDuty)
	b.WriteString("Generate the fastest safe reallocation plan. Maintain minimum 1 staff per other active department.\n")
	fmt.Fprintf(&b, "Every immediate reassignment must use toDepartment %q and urgency %q.\n", in.Department, defaultUrgency)
	b.WriteString("Only reference staff names that appear in the lists above.\n")
	b.WriteString("voiceAnnouncement must be a calm, clear 2-sentence announcement for the hospital intercom about the emergency staffing situation.")
	return b.String(), nil
}

// repairPlan 修正模型返回中可以安全修正的部分
func repairPlan(plan *domain.ReallocationPlan, in PlanInput) *domain.ReallocationPlan {
	reassignments := make([]domain.Reassignment, 0, len(plan.ImmediateReassignments))
	for _, r := range plan.ImmediateReassignments {
		r.StaffName = strings.TrimSpace(r.StaffName)
		if r.StaffName == "" {
			continue
		}
		if strings.TrimSpace(r.ToDepartment) == "" {
			r.ToDepartment = in.Department
		}
		if strings.TrimSpace(r.Urgency) == "" {
			r.Urgency = defaultUrgency
		}
		reassignments = append(reassignments, r)
	}
	plan.ImmediateReassignments = reassignments

	callIns := make([]domain.CallInRequest, 0, len(plan.CallInRequests))
	for _, c := range plan.CallInRequests {
		c.StaffName = strings.TrimSpace(c.StaffName)
		if c.StaffName == "" {
			continue
		}
		callIns = append(callIns, c)
	}
	plan.CallInRequests = callIns

	if plan.EstimatedCoverageMinutes < 0 {
		plan.EstimatedCoverageMinutes = 0
	}
	if strings.TrimSpace(plan.VoiceAnnouncement) == "" {
		plan.VoiceAnnouncement = fallbackAnnouncement(in.EmergencyType, in.Department)
	}

	return plan
}
