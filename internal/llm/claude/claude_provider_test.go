package claude_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractparser/internal/config"
	"contractparser/internal/llm"
	"contractparser/internal/llm/claude"
	"contractparser/internal/port"
)

func newTestProvider(serverURL string) *claude.Provider {
	return claude.NewProviderWithEndpoint(&config.LLMProviderConfig{
		Provider:     "claude",
		APIKey:       "test-key",
		DefaultModel: "claude-opus-4-6",
		MaxRetries:   0,
		TimeoutSecs:  10,
	}, serverURL)
}

func messageResponse(text, stopReason string) map[string]any {
	return map[string]any{
		"id":   "msg_test_001",
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"model":       "claude-opus-4-6",
		"stop_reason": stopReason,
		"usage": map[string]any{
			"input_tokens":  10,
			"output_tokens": 5,
		},
	}
}

func TestClaudeProvider_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-opus-4-6", body["model"])
		assert.Equal(t, float64(4000), body["max_tokens"])
		assert.Equal(t, float64(0), body["temperature"])

		system := body["system"].([]any)
		assert.Equal(t, "extract billing", system[0].(map[string]any)["text"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messageResponse(`{"extraction_notes": "ok"}`, "end_turn"))
	}))
	defer server.Close()

	resp, err := newTestProvider(server.URL).Complete(context.Background(), port.CompletionRequest{
		SystemPrompt: "extract billing",
		UserPrompt:   "contract text",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"extraction_notes": "ok"}`, resp.Content)
	assert.Equal(t, "claude-opus-4-6", resp.Model)
	assert.Equal(t, "end_turn", resp.StopReason)
}

func TestClaudeProvider_Complete_MaxTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messageResponse(`{"contract_`, "max_tokens"))
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).Complete(context.Background(), port.CompletionRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_tokens")
}

func TestClaudeProvider_Complete_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).Complete(context.Background(), port.CompletionRequest{})
	var rlErr *llm.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "claude", rlErr.Provider)
	assert.Equal(t, 5.0, rlErr.RetryAfter.Seconds())
}

func TestClaudeProvider_Complete_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).Complete(context.Background(), port.CompletionRequest{})
	require.Error(t, err)
	var rlErr *llm.RateLimitError
	assert.False(t, errors.As(err, &rlErr))
}
