package handler

import (
	"errors"
	"net/http"

	"github.com/sysu-ecnc-dev/medroster/backend/internal/advisor"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/voice"
)

// readPayload 读取字段名不固定的请求体
func (h *Handler) readPayload(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	var payload map[string]any
	if err := h.readJSON(w, r, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (h *Handler) SuggestSchedule(w http.ResponseWriter, r *http.Request) {
	payload, err := h.readPayload(w, r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	req := advisor.NormalizeSchedulePayload(payload)
	if err := h.validate.Struct(req); err != nil {
		h.unprocessable(w, r, err)
		return
	}
	req.Context = h.sanitize(req.Context)

	suggestion := h.assistant.SuggestSchedule(r.Context(), req)

	h.successResponse(w, r, "获取排班建议成功", map[string]any{
		"aiSuggestion": suggestion,
		"model":        h.config.OpenAI.Model,
	})
}

func (h *Handler) AnalyzeWorkload(w http.ResponseWriter, r *http.Request) {
	payload, err := h.readPayload(w, r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	entries := advisor.NormalizeWorkloadPayload(payload)
	analysis := h.assistant.AnalyzeWorkload(r.Context(), entries)

	h.successResponse(w, r, "工作量分析成功", map[string]any{
		"workloadAnalysis": analysis,
		"model":            h.config.OpenAI.Model,
	})
}

func (h *Handler) SchedulingTip(w http.ResponseWriter, r *http.Request) {
	tip := h.assistant.Tip(r.Context())

	h.successResponse(w, r, "获取排班提示成功", map[string]any{
		"tip":   tip,
		"model": h.config.OpenAI.Model,
	})
}

func (h *Handler) TextToSpeech(w http.ResponseWriter, r *http.Request) {
	// text 和 message 都可以作为文本字段
	var req struct {
		Text            *string  `json:"text"`
		Message         *string  `json:"message"`
		VoiceID         string   `json:"voiceID" validate:"max=64"`
		ModelID         string   `json:"ttsModelID" validate:"max=64"`
		Stability       *float64 `json:"stability" validate:"omitempty,gte=0,lte=1"`
		SimilarityBoost *float64 `json:"similarityBoost" validate:"omitempty,gte=0,lte=1"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	text := ""
	for _, candidate := range []*string{req.Text, req.Message} {
		if candidate != nil {
			if text = h.sanitize(*candidate); text != "" {
				break
			}
		}
	}
	if text == "" {
		h.unprocessable(w, r, errors.New("缺少必填字段 text"))
		return
	}

	speech, err := h.synthesize(r.Context(), voice.SynthesisRequest{
		Text:            text,
		VoiceID:         req.VoiceID,
		ModelID:         req.ModelID,
		Stability:       req.Stability,
		SimilarityBoost: req.SimilarityBoost,
	})
	if err != nil {
		h.writeSpeechError(w, r, err)
		return
	}

	h.successResponse(w, r, "语音合成成功", speech)
}
