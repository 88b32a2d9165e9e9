package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/sysu-ecnc-dev/medroster/backend/internal/voice"
)

type speechResponse struct {
	AudioBase64 string `json:"audioBase64"`
	ContentType string `json:"contentType"`
	VoiceID     string `json:"voiceID"`
	ModelID     string `json:"modelID"`
	Text        string `json:"text"`
}

func (h *Handler) synthesize(ctx context.Context, req voice.SynthesisRequest) (*speechResponse, error) {
	if h.synthesizer == nil {
		return nil, voice.ErrNotConfigured
	}

	audio, err := h.synthesizer.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}

	return &speechResponse{
		AudioBase64: base64.StdEncoding.EncodeToString(audio.Data),
		ContentType: audio.ContentType,
		VoiceID:     audio.VoiceID,
		ModelID:     audio.ModelID,
		Text:        audio.Text,
	}, nil
}

// writeSpeechError 未配置返回 400，上游失败返回 502
func (h *Handler) writeSpeechError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *voice.APIError
	switch {
	case errors.Is(err, voice.ErrNotConfigured):
		h.errorResponse(w, r, http.StatusBadRequest, "未配置语音合成服务")
	case errors.Is(err, voice.ErrEmptyText):
		h.badRequest(w, r, errors.New("缺少需要合成的文本"))
	case errors.As(err, &apiErr):
		h.logInternalServerError(r, err)
		h.errorResponse(w, r, http.StatusBadGateway, "语音合成服务返回错误")
	case errors.Is(err, context.DeadlineExceeded):
		h.errorResponse(w, r, http.StatusGatewayTimeout, "语音合成超时")
	default:
		h.logInternalServerError(r, err)
		h.errorResponse(w, r, http.StatusBadGateway, "语音合成服务不可用")
	}
}
