package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sysu-ecnc-dev/medroster/backend/internal/config"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

func newReasonerConfig(baseURL, key string) *config.Config {
	cfg := &config.Config{}
	cfg.OpenAI.APIKey = key
	cfg.OpenAI.BaseURL = baseURL
	cfg.OpenAI.Model = "gpt-4o"
	cfg.OpenAI.Timeout = 5
	return cfg
}

func chatCompletionBody(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
}

func TestOpenAIReasoner_CompleteJSON(t *testing.T) {
	t.Parallel()

	var gotFormat map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotFormat, _ = body["response_format"].(map[string]any)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletionBody(`{"immediateReassignments":[],"callInRequests":[],"estimatedCoverageMinutes":10,"criticalWarning":"none","voiceAnnouncement":"Attention staff."}`))
	}))
	defer srv.Close()

	r := NewOpenAIReasoner(newReasonerConfig(srv.URL, "sk-test"))
	if !r.Available() {
		t.Fatalf("expected reasoner to be available")
	}

	plan := domain.ReallocationPlan{}
	if err := r.CompleteJSON(context.Background(), JSONRequest{Name: "reallocation_plan", Prompt: "plan", Schema: planSchema}, &plan); err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if plan.EstimatedCoverageMinutes != 10 {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if gotFormat["type"] != "json_schema" {
		t.Fatalf("expected strict json_schema response format, got %+v", gotFormat)
	}
	schema, _ := gotFormat["json_schema"].(map[string]any)
	if schema["strict"] != true {
		t.Fatalf("expected strict schema, got %+v", schema)
	}
}

func TestOpenAIReasoner_QuotaError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	r := NewOpenAIReasoner(newReasonerConfig(srv.URL, "sk-test"))

	err := r.CompleteJSON(context.Background(), JSONRequest{Name: "reallocation_plan", Prompt: "plan", Schema: planSchema}, &domain.ReallocationPlan{})
	if err == nil {
		t.Fatalf("expected quota error")
	}
	if !IsQuotaError(err) {
		t.Fatalf("expected error to be classified as quota, got %v", err)
	}
}

func TestOpenAIReasoner_Unconfigured(t *testing.T) {
	t.Parallel()

	r := NewOpenAIReasoner(newReasonerConfig("http://127.0.0.1:0", "your_openai_key_here"))
	if r.Available() {
		t.Fatalf("placeholder key must not be available")
	}

	if _, err := r.Complete(context.Background(), "tip", 80, 0.7); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
