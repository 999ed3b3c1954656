package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-verdict/internal/domain"
	"github.com/ahrav/go-verdict/internal/ports"
)

// chatCompletionFixture is the minimal OpenAI response body the SDK
// needs to decode.
func chatCompletionFixture(content string, promptTokens, completionTokens int) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1677652288,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"total_tokens":      promptTokens + completionTokens,
		},
	}
}

func newOpenAITestAdapter(t *testing.T, handler http.HandlerFunc) ports.ProviderAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter, err := NewOpenAIAdapter(AdapterConfig{
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
	})
	require.NoError(t, err, "adapter construction failed")
	return adapter
}

func TestOpenAIAdapter_Evaluate_Success(t *testing.T) {
	var captured map[string]any
	adapter := newOpenAITestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path, "unexpected request path")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured), "failed to decode request body")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletionFixture(
			`{"verdict": "pass", "reasoning": "Looks correct."}`, 42, 17))
	})

	temp := 0.8
	resp, err := adapter.Evaluate(context.Background(), ports.EvaluateRequest{
		SystemPrompt: "Grade strictly.",
		UserPrompt:   "Answer:\n4",
		Model:        "gpt-4o-mini",
		Temperature:  &temp,
		MaxTokens:    500,
	})

	require.NoError(t, err, "evaluate should succeed")
	assert.Equal(t, domain.VerdictPass, resp.Result.Verdict, "verdict should be parsed from the response")
	assert.Equal(t, "Looks correct.", resp.Result.Reasoning, "reasoning should be parsed from the response")
	require.NotNil(t, resp.Usage, "usage should be reported")
	assert.Equal(t, 42, resp.Usage.PromptTokens, "prompt tokens mismatch")
	assert.Equal(t, 17, resp.Usage.CompletionTokens, "completion tokens mismatch")
	assert.Contains(t, resp.RawOutput, `"verdict"`, "raw output should be preserved")

	assert.Equal(t, "gpt-4o-mini", captured["model"], "model should be forwarded")
	assert.InDelta(t, 0.8, captured["temperature"], 0.001, "temperature should be forwarded")
	assert.EqualValues(t, 500, captured["max_tokens"], "token cap should be forwarded")

	messages, ok := captured["messages"].([]any)
	require.True(t, ok, "messages should be present")
	require.Len(t, messages, 2, "system and user messages expected")
	userMsg := messages[1].(map[string]any)
	assert.Contains(t, userMsg["content"], "Answer:\n4", "user prompt should be forwarded")
	assert.Contains(t, userMsg["content"], "<!-- eval-run:", "cache-defeating marker must be appended")
}

func TestOpenAIAdapter_Evaluate_UnparseableOutputDegrades(t *testing.T) {
	adapter := newOpenAITestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletionFixture("The weather is nice today.", 5, 5))
	})

	resp, err := adapter.Evaluate(context.Background(), ports.EvaluateRequest{UserPrompt: "judge this"})

	require.NoError(t, err, "unparseable output is not a call failure")
	assert.Equal(t, domain.VerdictInconclusive, resp.Result.Verdict, "prose without keywords should be inconclusive")
	assert.Equal(t, "The weather is nice today.", resp.Result.Reasoning, "raw text should become the reasoning")
}

func TestOpenAIAdapter_Evaluate_AuthenticationError(t *testing.T) {
	adapter := newOpenAITestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`))
	})

	_, err := adapter.Evaluate(context.Background(), ports.EvaluateRequest{UserPrompt: "judge this"})

	require.Error(t, err, "auth failure should surface as an error")
	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr, "error should be a ProviderError")
	assert.Equal(t, ErrorTypeAuthentication, provErr.Type, "401 should classify as authentication")
	assert.Equal(t, ProviderOpenAI, provErr.Provider, "error should name the provider")
	assert.False(t, provErr.IsRetryable(), "auth failures are not retryable")
}

func TestOpenAIAdapter_Evaluate_RateLimitError(t *testing.T) {
	adapter := newOpenAITestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit reached", "type": "rate_limit_error"}}`))
	})

	_, err := adapter.Evaluate(context.Background(), ports.EvaluateRequest{UserPrompt: "judge this"})

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr, "error should be a ProviderError")
	assert.Equal(t, ErrorTypeRateLimit, provErr.Type, "429 should classify as rate limit")
	assert.True(t, provErr.IsRetryable(), "rate limits are retryable")
}

func TestOpenAIAdapter_Evaluate_NoChoices(t *testing.T) {
	adapter := newOpenAITestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "chatcmpl-test", "object": "chat.completion", "choices": []any{},
		})
	})

	_, err := adapter.Evaluate(context.Background(), ports.EvaluateRequest{UserPrompt: "judge this"})

	require.Error(t, err, "a response without choices should fail")
	assert.ErrorIs(t, err, ErrNoResponseChoice, "error chain should carry the sentinel")
}

func TestNewOpenAIAdapter_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIAdapter(AdapterConfig{})

	assert.ErrorIs(t, err, ErrEmptyAPIKey, "empty key should be rejected")
}

func TestOpenAIAdapter_ValidateModel(t *testing.T) {
	adapter, err := NewOpenAIAdapter(AdapterConfig{APIKey: "test-key"})
	require.NoError(t, err, "adapter construction failed")

	assert.True(t, adapter.ValidateModel("gpt-4o-mini"), "listed model should validate")
	assert.True(t, adapter.ValidateModel("o3"), "listed model should validate")
	assert.False(t, adapter.ValidateModel("gpt-2"), "unlisted model should not validate")
	assert.Equal(t, ProviderOpenAI, adapter.Name(), "name should be the provider identifier")
	assert.True(t, adapter.SupportsVision(), "openai adapter reports vision support")
}
