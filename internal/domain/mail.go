package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

const (
	MailTypeCreateUser  = "create_user"
	MailTypeShiftChange = "shift_change"
	MailTypeRedAlert    = "red_alert"
)

type CreateUserMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type ShiftChangeMailData struct {
	FullName       string `json:"fullName"`
	FromDepartment string `json:"fromDepartment"`
	ToDepartment   string `json:"toDepartment"`
	Reason         string `json:"reason"`
	Message        string `json:"message"`
}

// RedAlertMailData 发给被紧急召回的休班员工
type RedAlertMailData struct {
	FullName      string `json:"fullName"`
	EmergencyType string `json:"emergencyType"`
	Department    string `json:"department"`
	Reason        string `json:"reason"`
	Announcement  string `json:"announcement"`
}
