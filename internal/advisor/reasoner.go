package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/config"
)

// Reasoner 是外部推理服务的调用契约
type Reasoner interface {
	// Available 为 false 时调用方不应发起请求
	Available() bool
	// CompleteJSON 要求模型严格按照 schema 返回 JSON，并解码到 out 中
	CompleteJSON(ctx context.Context, req JSONRequest, out any) error
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error)
}

type JSONRequest struct {
	Name        string
	Prompt      string
	Schema      *jsonschema.Definition
	Temperature float32
}

type OpenAIReasoner struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	enabled bool
}

func NewOpenAIReasoner(cfg *config.Config) *OpenAIReasoner {
	clientCfg := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.OpenAI.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{
		Timeout: time.Duration(cfg.OpenAI.Timeout) * time.Second,
	}

	return &OpenAIReasoner{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.OpenAI.Model,
		timeout: time.Duration(cfg.OpenAI.Timeout) * time.Second,
		enabled: cfg.OpenAIConfigured(),
	}
}

func (r *OpenAIReasoner) Available() bool {
	return r.enabled
}

func (r *OpenAIReasoner) CompleteJSON(ctx context.Context, req JSONRequest, out any) error {
	if !r.enabled {
		return ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: req.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Name,
				Schema: req.Schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: no choices returned", ErrMalformedResponse)
	}

	return decodeStrict(resp.Choices[0].Message.Content, out)
}

func (r *OpenAIReasoner) Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	if !r.enabled {
		return "", ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrMalformedResponse)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// decodeStrict 拒绝未知字段和多余内容
func decodeStrict(content string, out any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(content)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", ErrMalformedResponse)
	}
	return nil
}

func mustSchema(v any) *jsonschema.Definition {
	schema, err := jsonschema.GenerateSchemaForType(v)
	if err != nil {
		panic(fmt.Sprintf("advisor: generate schema for %T: %v", v, err))
	}
	return schema
}
