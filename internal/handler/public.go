package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/voice"
)

type publicDepartment struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (h *Handler) GetPublicDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := h.repository.GetAllDepartments(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	resp := make([]publicDepartment, 0, len(depts))
	for _, d := range depts {
		resp = append(resp, publicDepartment{ID: d.ID, Name: d.Name})
	}

	h.successResponse(w, r, "获取科室列表成功", resp)
}

// estimatedWaitMinutes 粗略估算候诊时间，覆盖率越高等待越短，最少 10 分钟
func estimatedWaitMinutes(coveragePct int) int {
	return max(10, 60-int(float64(coveragePct)*0.5))
}

func coveragePercent(shifts, assignments int64) int {
	if shifts <= 0 {
		return 0
	}
	return int(assignments * 100 / shifts)
}

var publicUpdateTemplates = map[string]map[string]string{
	"wait_time": {
		"en": "%[1]s update. Estimated wait time is about %[2]d minutes. Thank you for your patience. If symptoms worsen, alert staff immediately.",
		"es": "Actualización de %[1]s. Tiempo de espera estimado: %[2]d minutos. Gracias por su paciencia. Si sus síntomas empeoran, avise al personal de inmediato.",
	},
	"visiting": {
		"en": "Visiting update for %[1]s. Please check with the front desk for visitor guidance. Thank you for helping keep a safe environment.",
		"es": "Actualización de visitas para %[1]s. Por favor, consulte con la recepción para las pautas de visitantes. Gracias por ayudar a mantener un entorno seguro.",
	},
	"directions": {
		"en": "Directions for %[1]s. Please follow posted signs, and ask the front desk if you need help. We're here to support you.",
		"es": "Indicaciones para %[1]s. Por favor siga las señales y consulte en recepción si necesita ayuda. Estamos aquí para apoyarle.",
	},
	"safety": {
		"en": "Safety notice for %[1]s. Wear a mask if requested and wash hands frequently. Thank you for protecting others.",
		"es": "Aviso de seguridad para %[1]s. Use mascarilla si se le solicita y lávese las manos con frecuencia. Gracias por proteger a los demás.",
	},
}

// publicUpdateText 未知的类型按安全提示处理，未知的语言按英文处理
func publicUpdateText(department, language, updateType string, waitMinutes int) string {
	templates, ok := publicUpdateTemplates[strings.ToLower(strings.TrimSpace(updateType))]
	if !ok {
		templates = publicUpdateTemplates["safety"]
	}
	tmpl, ok := templates[strings.ToLower(strings.TrimSpace(language))]
	if !ok {
		tmpl = templates["en"]
	}

	if strings.Contains(tmpl, "%[2]d") {
		return fmt.Sprintf(tmpl, department, waitMinutes)
	}
	return fmt.Sprintf(tmpl, department)
}

func (h *Handler) PublicVoiceUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DepartmentID int64  `json:"departmentID" validate:"required,gt=0"`
		Language     string `json:"language" validate:"omitempty,oneof=en es"`
		UpdateType   string `json:"updateType" validate:"omitempty,oneof=wait_time visiting directions safety"`
		CustomNote   string `json:"customNote" validate:"max=500"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if req.Language == "" {
		req.Language = "en"
	}
	if req.UpdateType == "" {
		req.UpdateType = "wait_time"
	}

	dept, err := h.repository.GetDepartmentByID(r.Context(), req.DepartmentID)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			h.notFound(w, r, "科室不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 只使用汇总数据，不涉及任何患者信息
	shifts, assignments, err := h.repository.GetDepartmentCoverage(r.Context(), dept.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	coverage := coveragePercent(shifts, assignments)
	wait := estimatedWaitMinutes(coverage)

	text := publicUpdateText(dept.Name, req.Language, req.UpdateType, wait)
	if note := h.sanitize(req.CustomNote); note != "" {
		text = text + " " + note
	}

	resp := struct {
		Department       string          `json:"department"`
		CoveragePct      int             `json:"coveragePct"`
		EstimatedWaitMin int             `json:"estimatedWaitMin"`
		Transcript       string          `json:"transcript"`
		Speech           *speechResponse `json:"speech"`
		SpeechError      string          `json:"speechError,omitempty"`
	}{
		Department:       dept.Name,
		CoveragePct:      coverage,
		EstimatedWaitMin: wait,
		Transcript:       text,
	}

	// 语音合成失败时仍然返回文字版本
	speech, err := h.synthesize(r.Context(), voice.SynthesisRequest{Text: text})
	if err != nil {
		resp.SpeechError = err.Error()
	} else {
		resp.Speech = speech
	}

	h.successResponse(w, r, "公共播报已生成", resp)
}
