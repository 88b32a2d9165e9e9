package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/config"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/emergency"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/repository"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/roster"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/utils"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/voice"
)

type EmergencyService interface {
	TriggerRedAlert(ctx context.Context, in emergency.TriggerInput) (*domain.RedAlertResult, error)
	ResolveRedAlert(ctx context.Context, departmentID int64, resolvedBy string) (*domain.ResolveResult, error)
	FetchAuditLog(ctx context.Context, limit int) ([]*domain.AuditLog, error)
}

type RosterService interface {
	CreateAssignment(ctx context.Context, in roster.CreateAssignmentInput, actor string) (*domain.Assignment, error)
	DeleteAssignment(ctx context.Context, id int64, actor string) error
}

type Assistant interface {
	SuggestSchedule(ctx context.Context, req domain.ScheduleRequest) domain.ScheduleSuggestion
	AnalyzeWorkload(ctx context.Context, entries []domain.WorkloadEntry) domain.WorkloadAnalysis
	Tip(ctx context.Context) string
}

type AudioReader interface {
	Read(name string) ([]byte, error)
}

type Mailer interface {
	Publish(ctx context.Context, msg domain.MailMessage) error
}

// Services 汇总 handler 依赖的业务组件
type Services struct {
	Emergency   EmergencyService
	Roster      RosterService
	Assistant   Assistant
	Synthesizer voice.Synthesizer
	Audio       AudioReader
	Mailer      Mailer
}

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	repository *repository.Repository
	translator ut.Translator
	sanitizer  *bluemonday.Policy

	emergency   EmergencyService
	roster      RosterService
	assistant   Assistant
	synthesizer voice.Synthesizer
	audio       AudioReader
	mailer      Mailer

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, svc Services) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}
	if err := utils.RegisterValidations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		repository: repo,
		translator: trans,
		sanitizer:  bluemonday.StrictPolicy(),

		emergency:   svc.Emergency,
		roster:      svc.Roster,
		assistant:   svc.Assistant,
		synthesizer: svc.Synthesizer,
		audio:       svc.Audio,
		mailer:      svc.Mailer,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	management := h.RequiredRole(domain.ManagementRoles)
	adminOnly := h.RequiredRole([]domain.Role{domain.RoleAdmin})

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 面向患者和家属的公开接口，不返回任何个人信息
	h.Mux.Route("/public", func(r chi.Router) {
		r.Get("/departments", h.GetPublicDepartments)
		r.Post("/voice-update", h.PublicVoiceUpdate)
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Use(h.myInfo)
		r.Use(h.preventInactiveUser)

		r.Route("/my-info", func(r chi.Router) {
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
			r.Get("/assignments", h.GetMyAssignments)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(management).Post("/", h.CreateUser)
			r.Get("/", h.GetAllUserInfo)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUserInfo)
				r.With(h.preventOperateInitialAdmin).With(management).Patch("/", h.UpdateUser)
				r.With(h.preventOperateInitialAdmin).With(adminOnly).Delete("/", h.DeleteUser)
				r.With(adminOnly).Patch("/password", h.UpdateUserPassword)
			})
		})

		r.Route("/departments", func(r chi.Router) {
			r.With(management).Post("/", h.CreateDepartment)
			r.Get("/", h.GetAllDepartments)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.departmentInfo)
				r.Get("/", h.GetDepartment)
			})
		})

		r.Route("/shifts", func(r chi.Router) {
			r.With(management).Post("/", h.CreateShift)
			r.Get("/", h.GetShifts)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.shiftInfo)
				r.Get("/", h.GetShift)
				r.With(management).Delete("/", h.DeleteShift)
			})
		})

		r.Route("/assignments", func(r chi.Router) {
			r.With(management).Post("/", h.CreateAssignment)
			r.Get("/", h.GetAssignments)
			r.With(management).Delete("/{id}", h.DeleteAssignment)
		})

		r.Route("/emergency", func(r chi.Router) {
			r.With(management).Post("/red-alert", h.TriggerRedAlert)
			r.With(management).Post("/resolve", h.ResolveRedAlert)
			r.With(management).Get("/audit-logs", h.GetAuditLogs)
			r.With(management).Post("/broadcast", h.EmergencyBroadcast)
			r.Get("/voice-alert/{filename}", h.ServeVoiceAlert)
		})

		r.Route("/ai", func(r chi.Router) {
			r.Post("/suggest-schedule", h.SuggestSchedule)
			r.Post("/schedule-suggestions", h.SuggestSchedule)
			r.Post("/analyze-workload", h.AnalyzeWorkload)
			r.Get("/tip", h.SchedulingTip)
			r.Post("/text-to-speech", h.TextToSpeech)
		})
	})
}
