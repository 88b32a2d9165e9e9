package emergency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/advisor"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/config"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/voice"
	"golang.org/x/sync/errgroup"
)

const maxAuditLogLimit = 500

type Advisor interface {
	Plan(ctx context.Context, in advisor.PlanInput) *domain.ReallocationPlan
}

type Broadcaster interface {
	Broadcast(ctx context.Context, in voice.BroadcastInput) domain.BroadcastResult
}

type Notifier interface {
	PublishShiftChange(ctx context.Context, n *domain.Notification) error
	PublishRedAlert(ctx context.Context, to string, data domain.RedAlertMailData) error
}

type TriggerInput struct {
	EmergencyType string
	DepartmentID  int64
	TriggeredBy   string
	// Notes 附加在每条紧急排班的备注中，可以为空
	Notes string
}

type Orchestrator struct {
	cfg         *config.Config
	store       Store
	snapshots   *SnapshotBuilder
	advisor     Advisor
	mutator     *Mutator
	broadcaster Broadcaster
	recorder    *Recorder
	locker      Locker
	notifier    Notifier
	logger      *slog.Logger
	now         func() time.Time
}

// NewOrchestrator 中 locker 和 notifier 可以为 nil，此时跳过加锁和邮件通知
func NewOrchestrator(cfg *config.Config, store Store, adv Advisor, broadcaster Broadcaster, locker Locker, notifier Notifier, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:         cfg,
		store:       store,
		snapshots:   NewSnapshotBuilder(store),
		advisor:     adv,
		mutator:     NewMutator(store, logger),
		broadcaster: broadcaster,
		recorder:    NewRecorder(store),
		locker:      locker,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
	}
}

// TriggerRedAlert 执行完整的红色警报流程
// 只有目标科室不存在或者该科室已有进行中的流程时才返回错误，其余故障都会体现在结果中
func (o *Orchestrator) TriggerRedAlert(ctx context.Context, in TriggerInput) (*domain.RedAlertResult, error) {
	started := o.now()
	in.EmergencyType = normalizeEmergencyType(in.EmergencyType)

	dept, err := o.store.GetDepartmentByID(ctx, in.DepartmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDepartmentNotFound
		}
		return nil, fmt.Errorf("emergency: load department: %w", err)
	}

	result := &domain.RedAlertResult{
		Status:             domain.RedAlertStatusActive,
		IncidentID:         uuid.NewString(),
		EmergencyType:      in.EmergencyType,
		AffectedDepartment: dept.Name,
		AssignmentsCreated: []domain.AppliedAssignment{},
		Timestamp:          started,
		State:              domain.RedAlertIdle,
		Warnings:           []string{},
	}
	logger := o.logger.With("incident", result.IncidentID, "department", dept.Name)

	if o.locker != nil {
		release, err := o.locker.Acquire(ctx, dept.ID)
		switch {
		case errors.Is(err, ErrRedAlertInProgress):
			return nil, err
		case err != nil:
			logger.Warn("无法获取科室锁，继续执行红色警报", "error", err)
			o.degrade(result, "department lock unavailable: "+err.Error())
		default:
			defer func() {
				releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				if err := release(releaseCtx); err != nil {
					logger.Warn("释放科室锁失败", "error", err)
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(o.cfg.RedAlert.ResponseBudget)*time.Second)
	defer cancel()

	snap, err := o.snapshots.Build(ctx, started)
	if err != nil {
		logger.Warn("无法构建人员快照，按空名单继续", "error", err)
		o.degrade(result, "staffing snapshot unavailable: "+err.Error())
		snap = &Snapshot{TakenAt: started, OnDuty: []*domain.StaffingSnapshotEntry{}, OffDuty: []*domain.StaffingSnapshotEntry{}}
	}
	result.StaffOnDutyCount = len(snap.OnDuty)
	result.StaffOffDutyCount = len(snap.OffDuty)
	o.advance(logger, result, domain.RedAlertSnapshotBuilt)

	plan := o.advisor.Plan(ctx, advisor.PlanInput{
		EmergencyType: in.EmergencyType,
		Department:    dept.Name,
		OnDuty:        snap.OnDuty,
		OffDuty:       snap.OffDuty,
	})
	result.AIPlan = plan
	o.advance(logger, result, domain.RedAlertPlanObtained)

	// 广播与数据库写入相互独立，并发执行
	var g errgroup.Group
	var broadcast domain.BroadcastResult
	g.Go(func() error {
		broadcast = o.broadcaster.Broadcast(ctx, voice.BroadcastInput{
			EmergencyType: in.EmergencyType,
			Department:    dept.Name,
			Announcement:  plan.VoiceAnnouncement,
		})
		return nil
	})

	var (
		outcome *ApplyOutcome
		elapsed float64
	)
	txErr := o.store.WithinTx(ctx, func(ctx context.Context) error {
		out, err := o.mutator.Apply(ctx, ApplyInput{
			EmergencyType: in.EmergencyType,
			Notes:         in.Notes,
			Department:    dept,
			Reassignments: plan.ImmediateReassignments,
			OnDuty:        snap.OnDuty,
			Now:           started,
		})
		if err != nil {
			return err
		}
		o.advance(logger, result, domain.RedAlertAssignmentsApplied)

		// 配置保证事务超时不短于语音合成超时
		_ = g.Wait()
		o.advance(logger, result, domain.RedAlertBroadcasted)
		elapsed = o.elapsedSince(started)

		_, err = o.recorder.Record(ctx, redAlertAction(in.EmergencyType, dept.Name, len(out.Applied), elapsed), in.TriggeredBy)
		if err != nil {
			return err
		}
		o.advance(logger, result, domain.RedAlertLogged)
		outcome = out
		return nil
	})
	_ = g.Wait()
	result.VoiceBroadcast = broadcast

	if txErr != nil {
		logger.Error("紧急调配事务失败，已回滚", "error", txErr)
		o.degrade(result, "assignments rolled back: "+txErr.Error())

		// 事务失败时仍然尝试单独记录一条审计日志
		elapsed = o.elapsedSince(started)
		if _, err := o.recorder.Record(ctx, redAlertAction(in.EmergencyType, dept.Name, 0, elapsed), in.TriggeredBy); err != nil {
			logger.Error("无法记录红色警报审计日志", "error", err)
			o.degrade(result, "audit log not recorded: "+err.Error())
		} else {
			result.AuditRecorded = true
		}
	} else {
		result.AssignmentsCreated = outcome.Applied
		result.AuditRecorded = true
		logger.Info("红色警报已执行", "reassignments", len(outcome.Applied), "skipped", len(outcome.Skipped), "elapsed", elapsed)
	}
	result.ResponseTimeSeconds = elapsed
	o.advance(logger, result, domain.RedAlertComplete)

	if outcome != nil {
		o.publishShiftChanges(ctx, logger, result, outcome.Notifications)
	}
	o.publishCallIns(ctx, logger, in.EmergencyType, dept.Name, plan, snap.OffDuty)

	return result, nil
}

func (o *Orchestrator) advance(logger *slog.Logger, result *domain.RedAlertResult, state domain.RedAlertState) {
	logger.Debug("红色警报状态变更", "from", result.State, "to", state)
	result.State = state
}

func (o *Orchestrator) degrade(result *domain.RedAlertResult, warning string) {
	result.Degraded = true
	result.Warnings = append(result.Warnings, warning)
}

func (o *Orchestrator) elapsedSince(started time.Time) float64 {
	return math.Round(o.now().Sub(started).Seconds()*10) / 10
}

// publishShiftChanges 在事务提交后发布通知，失败的通知保留在表中等待补发
func (o *Orchestrator) publishShiftChanges(ctx context.Context, logger *slog.Logger, result *domain.RedAlertResult, notifications []*domain.Notification) {
	if o.notifier == nil || len(notifications) == 0 {
		return
	}

	failed := 0
	for _, n := range notifications {
		if n.RecipientEmail == "" {
			continue
		}
		if err := o.notifier.PublishShiftChange(ctx, n); err != nil {
			failed++
			logger.Warn("无法发布调班通知", "user", n.UserID, "error", err)
			continue
		}
		if err := o.store.MarkNotificationPublished(ctx, n.ID); err != nil {
			logger.Warn("无法标记通知为已发布", "notification", n.ID, "error", err)
		}
	}
	if failed > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d shift change notifications pending delivery", failed))
	}
}

// publishCallIns 通知方案中被召回的休班员工
func (o *Orchestrator) publishCallIns(ctx context.Context, logger *slog.Logger, emergencyType, department string, plan *domain.ReallocationPlan, offDuty []*domain.StaffingSnapshotEntry) {
	if o.notifier == nil {
		return
	}

	for _, c := range plan.CallInRequests {
		staff := findStaff(offDuty, c.StaffName)
		if staff == nil || staff.Email == "" {
			continue
		}
		data := domain.RedAlertMailData{
			FullName:      staff.Name,
			EmergencyType: emergencyType,
			Department:    department,
			Reason:        c.Reason,
			Announcement:  plan.VoiceAnnouncement,
		}
		if err := o.notifier.PublishRedAlert(ctx, staff.Email, data); err != nil {
			logger.Warn("无法发布召回通知", "staff", staff.Name, "error", err)
		}
	}
}

// ResolveRedAlert 只写入一条审计日志，不修改排班
func (o *Orchestrator) ResolveRedAlert(ctx context.Context, departmentID int64, resolvedBy string) (*domain.ResolveResult, error) {
	name := fmt.Sprintf("Dept %d", departmentID)
	dept, err := o.store.GetDepartmentByID(ctx, departmentID)
	switch {
	case err == nil:
		name = dept.Name
	case !errors.Is(err, pgx.ErrNoRows):
		o.logger.Warn("无法查询科室", "department", departmentID, "error", err)
	}

	entry, err := o.recorder.Record(ctx, resolvedAction(name), resolvedBy)
	if err != nil {
		return nil, err
	}

	return &domain.ResolveResult{
		Status:     domain.RedAlertStatusResolved,
		Department: name,
		ResolvedBy: entry.PerformedBy,
		Timestamp:  entry.Timestamp,
	}, nil
}

// FetchAuditLog 按时间倒序返回最近的审计日志
func (o *Orchestrator) FetchAuditLog(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	if limit <= 0 {
		limit = o.cfg.RedAlert.AuditLogLimit
	}
	if limit <= 0 {
		limit = 50
	}
	limit = min(limit, maxAuditLogLimit)

	return o.store.GetRecentAuditLogs(ctx, limit)
}

// normalizeEmergencyType 压缩空白字符，避免审计日志中出现换行
func normalizeEmergencyType(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
