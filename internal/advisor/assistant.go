package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

const (
	maxWeeklyHours  = 48
	maxWeeklyShifts = 6
	fallbackTip     = "Rotate night shifts fairly and cap weekly hours to reduce burnout. Review coverage gaps daily before peak hours."
)

var (
	scheduleSchema = mustSchema(domain.ScheduleSuggestion{})
	workloadSchema = mustSchema(domain.WorkloadAnalysis{})
)

// Assistant 提供排班建议、工作量分析和排班小贴士
// 与红色警报方案一样，外部服务失败时退回到规则生成的结果
type Assistant struct {
	reasoner Reasoner
	logger   *slog.Logger
}

func NewAssistant(reasoner Reasoner, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		reasoner: reasoner,
		logger:   logger,
	}
}

func (a *Assistant) available() bool {
	return a.reasoner != nil && a.reasoner.Available()
}

func (a *Assistant) SuggestSchedule(ctx context.Context, req domain.ScheduleRequest) domain.ScheduleSuggestion {
	err := ErrUnavailable
	if a.available() {
		var prompt string
		prompt, err = buildSchedulePrompt(req)
		if err == nil {
			out := domain.ScheduleSuggestion{}
			err = a.reasoner.CompleteJSON(ctx, JSONRequest{
				Name:        "schedule_suggestion",
				Prompt:      prompt,
				Schema:      scheduleSchema,
				Temperature: 0.2,
			}, &out)
			if err == nil {
				if out.Assignments == nil {
					out.Assignments = []domain.SuggestedAssignment{}
				}
				if out.Warnings == nil {
					out.Warnings = []string{}
				}
				return out
			}
		}
	}

	out := fallbackSchedule(req)
	if !fallsBackQuietly(err) {
		a.logger.Warn("排班建议生成失败，使用规则匹配", "error", err)
		out.Warnings = append(out.Warnings, "AI error fallback: "+diagnostic(err))
	}
	return out
}

func (a *Assistant) AnalyzeWorkload(ctx context.Context, entries []domain.WorkloadEntry) domain.WorkloadAnalysis {
	err := ErrUnavailable
	if a.available() {
		var prompt string
		prompt, err = buildWorkloadPrompt(entries)
		if err == nil {
			out := domain.WorkloadAnalysis{}
			err = a.reasoner.CompleteJSON(ctx, JSONRequest{
				Name:        "workload_analysis",
				Prompt:      prompt,
				Schema:      workloadSchema,
				Temperature: 0.2,
			}, &out)
			if err == nil {
				out.FairnessScore = min(max(out.FairnessScore, 0), 100)
				if out.AtRiskStaff == nil {
					out.AtRiskStaff = []domain.AtRiskStaff{}
				}
				if out.Recommendations == nil {
					out.Recommendations = []string{}
				}
				return out
			}
		}
	}

	out := fallbackWorkload(entries)
	if !fallsBackQuietly(err) {
		a.logger.Warn("工作量分析失败，使用规则分析", "error", err)
		out.Recommendations = append(out.Recommendations, "AI error fallback: "+diagnostic(err))
	}
	return out
}

func (a *Assistant) Tip(ctx context.Context) string {
	if !a.available() {
		return fallbackTip
	}

	tip, err := a.reasoner.Complete(ctx,
		"Give one practical, specific scheduling tip for hospital managers focused on staff wellbeing or emergency preparedness. Two sentences max. Be direct and actionable.",
		80, 0.7,
	)
	if err != nil || tip == "" {
		a.logger.Warn("排班小贴士生成失败", "error", err)
		return fallbackTip
	}
	return tip
}

func fallbackSchedule(req domain.ScheduleRequest) domain.ScheduleSuggestion {
	byRole := make(map[string][]domain.ScheduleStaff)
	for _, s := range req.Staff {
		byRole[s.Role] = append(byRole[s.Role], s)
	}

	out := domain.ScheduleSuggestion{
		Assignments: []domain.SuggestedAssignment{},
		Warnings:    []string{},
		Summary:     "Generated schedule recommendations.",
	}
	for _, shift := range req.Shifts {
		pool := byRole[shift.RoleNeeded]
		if len(pool) == 0 {
			out.Warnings = append(out.Warnings, fmt.Sprintf("No available staff for role %s (fallback).", shift.RoleNeeded))
			continue
		}
		chosen := pool[0]
		byRole[shift.RoleNeeded] = pool[1:]
		out.Assignments = append(out.Assignments, domain.SuggestedAssignment{
			StaffName:  chosen.Name,
			StaffRole:  chosen.Role,
			ShiftID:    shift.ShiftID,
			Department: shift.Department,
			Reason:     "Fallback rule-based match (AI unavailable).",
		})
	}
	return out
}

func fallbackWorkload(entries []domain.WorkloadEntry) domain.WorkloadAnalysis {
	out := domain.WorkloadAnalysis{
		FairnessScore:  50,
		AtRiskStaff:    []domain.AtRiskStaff{},
		OverallSummary: "AI unavailable (quota/key). Returned heuristic workload analysis.",
		Recommendations: []string{
			"Cap weekly hours to 48 and shifts to 6.",
			"Rotate night duties evenly across staff.",
			"Avoid assigning back-to-back high-acuity shifts.",
		},
	}
	for _, e := range entries {
		if e.HoursThisWeek > maxWeeklyHours || e.ShiftsThisWeek > maxWeeklyShifts {
			name := e.Name
			if name == "" {
				name = "Unknown"
			}
			out.AtRiskStaff = append(out.AtRiskStaff, domain.AtRiskStaff{
				Name:              name,
				Concern:           fmt.Sprintf("Over guideline limits (hours=%g, shifts=%g).", e.HoursThisWeek, e.ShiftsThisWeek),
				RecommendedAction: "Reduce next-week load; avoid consecutive nights.",
			})
		}
	}
	return out
}

func buildSchedulePrompt(req domain.ScheduleRequest) (string, error) {
	staff, err := json.MarshalIndent(req.Staff, "", "  ")
	if err != nil {
		return "", err
	}
	shifts, err := json.MarshalIndent(req.Shifts, "", "  ")
	if err != nil {
		return "", err
	}
	note := req.Context
	if note == "" {
		note = "Standard scheduling day"
	}

	return fmt.Sprintf(`You are MedRoster's AI scheduling assistant for a hospital.

Available Staff:
%s

Shifts Needing Coverage:
%s

Context: %s

Rules:
- Match staff to shifts by role only
- Prioritize staff with fewer hoursThisWeek to prevent burnout
- Flag any shift with no matching available staff as a warning`, staff, shifts, note), nil
}

func buildWorkloadPrompt(entries []domain.WorkloadEntry) (string, error) {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`You are a hospital workforce wellbeing AI.

Staff Workload Data:
%s

Analyze and identify burnout risk. Hospital guidelines: max %d hours/week, max %d shifts/week.
fairnessScore is an integer from 0 to 100.`, data, maxWeeklyHours, maxWeeklyShifts), nil
}
