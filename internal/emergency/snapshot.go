package emergency

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

const unknownDepartment = "Unknown"

type Snapshot struct {
	TakenAt time.Time
	OnDuty  []*domain.StaffingSnapshotEntry
	OffDuty []*domain.StaffingSnapshotEntry
}

type SnapshotBuilder struct {
	store snapshotStore
}

func NewSnapshotBuilder(store snapshotStore) *SnapshotBuilder {
	return &SnapshotBuilder{store: store}
}

// Build 把所有在职员工划分到在岗与休班两个互斥的列表中
func (b *SnapshotBuilder) Build(ctx context.Context, now time.Time) (*Snapshot, error) {
	entries, err := b.store.GetActiveStaffDuty(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("emergency: load staffing: %w", err)
	}

	snap := &Snapshot{
		TakenAt: now,
		OnDuty:  make([]*domain.StaffingSnapshotEntry, 0),
		OffDuty: make([]*domain.StaffingSnapshotEntry, 0),
	}
	seen := make(map[int64]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}

		if !e.OnDuty() {
			e.CurrentDepartment = nil
			snap.OffDuty = append(snap.OffDuty, e)
			continue
		}
		if e.CurrentDepartment == nil || strings.TrimSpace(*e.CurrentDepartment) == "" {
			unknown := unknownDepartment
			e.CurrentDepartment = &unknown
		}
		snap.OnDuty = append(snap.OnDuty, e)
	}

	return snap, nil
}
