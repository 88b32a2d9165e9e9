package emergency

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

// Recorder 同步追加审计日志，不做重试
type Recorder struct {
	store auditStore
}

func NewRecorder(store auditStore) *Recorder {
	return &Recorder{store: store}
}

func (r *Recorder) Record(ctx context.Context, action, actor string) (*domain.AuditLog, error) {
	if strings.TrimSpace(actor) == "" {
		actor = "system"
	}

	entry := &domain.AuditLog{
		Action:      action,
		PerformedBy: actor,
	}
	if err := r.store.InsertAuditLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("emergency: record audit log: %w", err)
	}

	return entry, nil
}

func redAlertAction(emergencyType, department string, reassignments int, elapsed float64) string {
	return fmt.Sprintf(
		"RED ALERT | type=%s | department=%s | reassignments=%d | response_time=%ss",
		emergencyType, department, reassignments, strconv.FormatFloat(elapsed, 'f', 1, 64),
	)
}

func resolvedAction(department string) string {
	return fmt.Sprintf("RED ALERT RESOLVED | department=%s", department)
}
