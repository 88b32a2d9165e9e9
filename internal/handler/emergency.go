package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/emergency"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/voice"
)

func (h *Handler) TriggerRedAlert(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		EmergencyType string `json:"emergencyType" validate:"required,max=256"`
		DepartmentID  int64  `json:"departmentID" validate:"required,gt=0"`
		Notes         string `json:"notes" validate:"max=1024"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	emergencyType := h.sanitize(req.EmergencyType)
	if emergencyType == "" {
		h.badRequest(w, r, errors.New("紧急情况类型不能为空"))
		return
	}

	// 客户端断开不应中断已经开始的事务，流程自身有时间预算
	ctx := context.WithoutCancel(r.Context())

	result, err := h.emergency.TriggerRedAlert(ctx, emergency.TriggerInput{
		EmergencyType: emergencyType,
		DepartmentID:  req.DepartmentID,
		TriggeredBy:   myInfo.Email,
		Notes:         h.sanitize(req.Notes),
	})
	if err != nil {
		switch {
		case errors.Is(err, emergency.ErrDepartmentNotFound):
			h.notFound(w, r, "科室不存在")
		case errors.Is(err, emergency.ErrRedAlertInProgress):
			h.conflict(w, r, "该科室的红色警报正在处理中")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "红色警报已启动", result)
}

func (h *Handler) ResolveRedAlert(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		DepartmentID int64 `json:"departmentID" validate:"required,gt=0"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	result, err := h.emergency.ResolveRedAlert(r.Context(), req.DepartmentID, myInfo.Email)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "红色警报已解除", result)
}

func (h *Handler) GetAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if param := r.URL.Query().Get("limit"); param != "" {
		n, err := strconv.Atoi(param)
		if err != nil || n < 0 {
			h.badRequest(w, r, errors.New("limit 必须是非负整数"))
			return
		}
		limit = n
	}

	logs, err := h.emergency.FetchAuditLog(r.Context(), limit)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取审计日志成功", logs)
}

func (h *Handler) ServeVoiceAlert(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if err := voice.ValidateFilename(filename); err != nil {
		h.badRequest(w, r, errors.New("文件名无效"))
		return
	}

	data, err := h.audio.Read(filename)
	if err != nil {
		switch {
		case errors.Is(err, voice.ErrAudioNotFound):
			h.notFound(w, r, "音频文件不存在，可能未配置语音合成服务")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", `inline; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logInternalServerError(r, err)
	}
}

func (h *Handler) EmergencyBroadcast(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Severity    string   `json:"severity" validate:"required,max=64"`
		TargetRoles []string `json:"targetRoles" validate:"dive,role"`
		AutoRepeat  bool     `json:"autoRepeat"`
		Message     string   `json:"message" validate:"required,max=2000"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	speech, err := h.synthesize(r.Context(), voice.SynthesisRequest{Text: h.sanitize(req.Message)})
	if err != nil {
		h.writeSpeechError(w, r, err)
		return
	}

	// 确认回执尚未实现，始终返回空列表
	h.successResponse(w, r, "紧急广播已生成", struct {
		*speechResponse
		Severity    string   `json:"severity"`
		TargetRoles []string `json:"targetRoles"`
		AckList     []string `json:"ackList"`
	}{
		speechResponse: speech,
		Severity:       req.Severity,
		TargetRoles:    req.TargetRoles,
		AckList:        []string{},
	})
}
