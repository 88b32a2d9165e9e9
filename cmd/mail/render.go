package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

var errUnsupportedMailType = errors.New("不支持的邮件类型")

type mailKind struct {
	template string
	subject  func(data any) string
	newData  func() any
}

var mailKinds = map[string]mailKind{
	domain.MailTypeCreateUser: {
		template: "new_account_email.html",
		subject:  func(any) string { return "MedRoster - Your account" },
		newData:  func() any { return &domain.CreateUserMailData{} },
	},
	domain.MailTypeShiftChange: {
		template: "shift_change_email.html",
		subject: func(data any) string {
			return "MedRoster - Emergency reassignment to " + data.(*domain.ShiftChangeMailData).ToDepartment
		},
		newData: func() any { return &domain.ShiftChangeMailData{} },
	},
	domain.MailTypeRedAlert: {
		template: "red_alert_email.html",
		subject: func(data any) string {
			return "MedRoster - RED ALERT: " + data.(*domain.RedAlertMailData).Department
		},
		newData: func() any { return &domain.RedAlertMailData{} },
	},
}

// envelope 与 domain.MailMessage 对应，但 Data 延迟到确定类型后再解析
type envelope struct {
	Type string          `json:"type"`
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
}

// renderer 负责把队列中的消息转换为邮件，模板只解析一次
type renderer struct {
	from      string
	templates map[string]*template.Template
}

func newRenderer(from, templateDir string) (*renderer, error) {
	r := &renderer{
		from:      from,
		templates: make(map[string]*template.Template, len(mailKinds)),
	}

	for typ, kind := range mailKinds {
		tmpl, err := template.ParseFiles(filepath.Join(templateDir, kind.template))
		if err != nil {
			return nil, fmt.Errorf("解析 %s 邮件模板失败: %w", typ, err)
		}
		r.templates[typ] = tmpl
	}

	return r, nil
}

func (r *renderer) render(body []byte) (*mail.Msg, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("邮件信息反序列化失败: %w", err)
	}

	kind, ok := mailKinds[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnsupportedMailType, env.Type)
	}

	data := kind.newData()
	if err := json.Unmarshal(env.Data, data); err != nil {
		return nil, fmt.Errorf("邮件数据反序列化失败: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(r.from); err != nil {
		return nil, fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := msg.To(env.To); err != nil {
		return nil, fmt.Errorf("无法设置邮件收件人: %w", err)
	}
	if err := msg.SetBodyHTMLTemplate(r.templates[env.Type], data); err != nil {
		return nil, fmt.Errorf("无法设置邮件正文: %w", err)
	}
	msg.Subject(kind.subject(data))

	return msg, nil
}
