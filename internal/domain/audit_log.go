package domain

import "time"

// AuditLog 只允许追加，数据库中有触发器阻止更新和删除
type AuditLog struct {
	ID          int64     `json:"id"`
	Action      string    `json:"action"`
	PerformedBy string    `json:"performedBy"`
	Timestamp   time.Time `json:"timestamp"`
}
