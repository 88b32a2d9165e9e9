package advisor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

// 入站请求中可以接受的同义字段名，按优先级排列
var (
	scheduleStaffKeys  = []string{"staff", "staff_list", "staffList", "workers"}
	scheduleShiftKeys  = []string{"shifts", "shift_requirements", "shiftRequirements", "shift_list"}
	scheduleNoteKeys   = []string{"context", "note"}
	staffNameKeys      = []string{"name", "full_name", "fullName", "username"}
	staffRoleKeys      = []string{"role", "position"}
	staffHoursKeys     = []string{"hours_this_week", "hoursThisWeek", "hours"}
	staffShiftsKeys    = []string{"shifts_this_week", "shiftsThisWeek", "shifts"}
	staffLastShiftKeys = []string{"last_shift", "lastShift", "last"}
	shiftIDKeys        = []string{"shift_id", "shiftID", "shiftId", "id"}
	shiftRoleKeys      = []string{"role_needed", "roleNeeded", "role"}
	shiftStartKeys     = []string{"start_time", "startTime", "start"}
	shiftEndKeys       = []string{"end_time", "endTime", "end"}
	shiftDeptKeys      = []string{"department", "dept", "department_name", "departmentName"}
	workloadListKeys   = []string{"staff_data", "staffData", "staff"}
)

// NormalizeSchedulePayload 把字段名不统一的排班请求转换为 domain.ScheduleRequest
// 非对象的元素会被忽略
func NormalizeSchedulePayload(payload map[string]any) domain.ScheduleRequest {
	req := domain.ScheduleRequest{
		Staff:  []domain.ScheduleStaff{},
		Shifts: []domain.ShiftRequirement{},
	}
	if payload == nil {
		return req
	}

	for _, item := range firstList(payload, scheduleStaffKeys) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		staff := domain.ScheduleStaff{
			Name:          firstString(m, staffNameKeys),
			Role:          firstString(m, staffRoleKeys),
			HoursThisWeek: firstNumber(m, staffHoursKeys),
		}
		if last := firstString(m, staffLastShiftKeys); last != "" {
			staff.LastShift = &last
		}
		req.Staff = append(req.Staff, staff)
	}

	for _, item := range firstList(payload, scheduleShiftKeys) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		req.Shifts = append(req.Shifts, domain.ShiftRequirement{
			ShiftID:    firstString(m, shiftIDKeys),
			RoleNeeded: firstString(m, shiftRoleKeys),
			StartTime:  firstString(m, shiftStartKeys),
			EndTime:    firstString(m, shiftEndKeys),
			Department: firstString(m, shiftDeptKeys),
		})
	}

	req.Context = firstString(payload, scheduleNoteKeys)
	return req
}

// NormalizeWorkloadPayload 从工作量分析请求中提取员工工作量
func NormalizeWorkloadPayload(payload map[string]any) []domain.WorkloadEntry {
	entries := make([]domain.WorkloadEntry, 0)
	if payload == nil {
		return entries
	}

	for _, item := range firstList(payload, workloadListKeys) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		entries = append(entries, domain.WorkloadEntry{
			Name:           firstString(m, staffNameKeys),
			Role:           firstString(m, staffRoleKeys),
			HoursThisWeek:  firstNumber(m, staffHoursKeys),
			ShiftsThisWeek: firstNumber(m, staffShiftsKeys),
		})
	}
	return entries
}

func firstList(m map[string]any, keys []string) []any {
	for _, k := range keys {
		if list, ok := m[k].([]any); ok && len(list) > 0 {
			return list
		}
	}
	return nil
}

// firstString 返回第一个非空的值，数字会被格式化为字符串
func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		case int, int64:
			return fmt.Sprint(v)
		}
	}
	return ""
}

func firstNumber(m map[string]any, keys []string) float64 {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			if v != 0 {
				return v
			}
		case json.Number:
			if f, err := v.Float64(); err == nil && f != 0 {
				return f
			}
		case int:
			if v != 0 {
				return float64(v)
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f != 0 {
				return f
			}
		}
	}
	return 0
}
