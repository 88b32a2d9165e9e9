package domain

import "time"

type Assignment struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userID"`
	ShiftID     int64     `json:"shiftID"`
	IsEmergency bool      `json:"isEmergency"`
	Notes       *string   `json:"notes"`
	CreatedAt   time.Time `json:"createdAt"`
}
