package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/medroster/backend/internal/config"
)

var (
	ErrNotConfigured = errors.New("voice: speech synthesis is not configured")
	ErrEmptyText     = errors.New("voice: text is required for speech synthesis")
)

// APIError 是语音合成服务返回的非 2xx 响应
type APIError struct {
	StatusCode int
	Body       map[string]any
}

func (e *APIError) Error() string {
	detail, _ := json.Marshal(e.Body)
	return fmt.Sprintf("voice: synthesis failed (%d): %s", e.StatusCode, detail)
}

type SynthesisRequest struct {
	Text    string
	VoiceID string
	ModelID string
	// nil 时使用配置中的默认值
	Stability       *float64
	SimilarityBoost *float64
}

type Audio struct {
	Data        []byte `json:"-"`
	ContentType string `json:"contentType"`
	VoiceID     string `json:"voiceID"`
	ModelID     string `json:"modelID"`
	Text        string `json:"text"`
}

type Synthesizer interface {
	Configured() bool
	Synthesize(ctx context.Context, req SynthesisRequest) (*Audio, error)
}

type ElevenLabsClient struct {
	cfg        *config.Config
	httpClient *http.Client
}

func NewElevenLabsClient(cfg *config.Config) *ElevenLabsClient {
	return &ElevenLabsClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.ElevenLabs.Timeout) * time.Second,
		},
	}
}

func (c *ElevenLabsClient) Configured() bool {
	return c.cfg.ElevenLabsConfigured()
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type synthesisPayload struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

func (c *ElevenLabsClient) Synthesize(ctx context.Context, req SynthesisRequest) (*Audio, error) {
	voiceID := strings.TrimSpace(req.VoiceID)
	if voiceID == "" {
		voiceID = c.cfg.ElevenLabs.VoiceID
	}
	if !c.Configured() || voiceID == "" {
		return nil, ErrNotConfigured
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}

	payload := synthesisPayload{
		Text:    text,
		ModelID: c.cfg.ElevenLabs.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       c.cfg.ElevenLabs.Stability,
			SimilarityBoost: c.cfg.ElevenLabs.SimilarityBoost,
		},
	}
	if req.ModelID != "" {
		payload.ModelID = req.ModelID
	}
	if req.Stability != nil {
		payload.VoiceSettings.Stability = *req.Stability
	}
	if req.SimilarityBoost != nil {
		payload.VoiceSettings.SimilarityBoost = *req.SimilarityBoost
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(c.cfg.ElevenLabs.BaseURL, "/") + "/text-to-speech/" + url.PathEscape(voiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("xi-api-key", c.cfg.ElevenLabs.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("voice: synthesis request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("voice: read synthesis response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(data, &apiErr.Body); err != nil || apiErr.Body == nil {
			apiErr.Body = map[string]any{"message": string(data)}
		}
		return nil, apiErr
	}

	return &Audio{
		Data:        data,
		ContentType: "audio/mpeg",
		VoiceID:     voiceID,
		ModelID:     payload.ModelID,
		Text:        text,
	}, nil
}
