package domain

import "time"

type NotificationKind string

const (
	NotificationShiftChange NotificationKind = "shift_change"
)

type Notification struct {
	ID          int64            `json:"id"`
	UserID      int64            `json:"userID"`
	Kind        NotificationKind `json:"kind"`
	Subject     string           `json:"subject"`
	Message     string           `json:"message"`
	CreatedAt   time.Time        `json:"createdAt"`
	PublishedAt *time.Time       `json:"publishedAt"`

	// 以下字段不落库，仅用于发布到邮件队列
	RecipientEmail string `json:"-"`
	RecipientName  string `json:"-"`
	FromDepartment string `json:"-"`
	ToDepartment   string `json:"-"`
	Reason         string `json:"-"`
}
