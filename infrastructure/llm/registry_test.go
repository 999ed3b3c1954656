package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-verdict/internal/ports"
)

func TestNewRegistry_NoCredentialsYieldsEmptyRegistry(t *testing.T) {
	registry, err := NewRegistry(context.Background(), RegistryConfig{})
	require.NoError(t, err, "missing credentials must not be a construction failure")

	assert.Empty(t, registry.ListAvailableProviders(), "no providers should be available without credentials")
	assert.False(t, registry.IsProviderAvailable(ProviderOpenAI), "openai should be unavailable")
	assert.False(t, registry.IsProviderAvailable(ProviderAnthropic), "anthropic should be unavailable")
	assert.False(t, registry.IsProviderAvailable(ProviderGoogle), "google should be unavailable")
}

func TestRegistry_GetProvider_KnownButUnconfigured(t *testing.T) {
	registry, err := NewRegistry(context.Background(), RegistryConfig{})
	require.NoError(t, err, "registry construction failed")

	_, err = registry.GetProvider(ProviderAnthropic)

	var notConfigured *ports.NotConfiguredError
	require.ErrorAs(t, err, &notConfigured, "credential-less provider should yield NotConfiguredError")
	assert.Equal(t, ProviderAnthropic, notConfigured.Provider, "error should name the provider")
	assert.NotErrorIs(t, err, ports.ErrUnknownProvider, "a known provider is not an unknown one")
}

func TestRegistry_GetProvider_UnknownProvider(t *testing.T) {
	registry, err := NewRegistry(context.Background(), RegistryConfig{})
	require.NoError(t, err, "registry construction failed")

	_, err = registry.GetProvider("cohere")

	var notConfigured *ports.NotConfiguredError
	require.ErrorAs(t, err, &notConfigured, "unknown provider should yield NotConfiguredError")
	assert.ErrorIs(t, err, ports.ErrUnknownProvider, "error chain should mark the provider as unknown")
}

func TestRegistry_GetProvider_RegisteredAdapter(t *testing.T) {
	registry, err := NewRegistry(context.Background(), RegistryConfig{})
	require.NoError(t, err, "registry construction failed")

	mock := NewMockAdapter("mock")
	registry.RegisterAdapter("mock", mock)

	adapter, err := registry.GetProvider("mock")
	require.NoError(t, err, "registered adapter should resolve")
	assert.Equal(t, "mock", adapter.Name(), "resolved adapter should be the registered one")
	assert.True(t, registry.IsProviderAvailable("mock"), "registered provider should be available")
	assert.Equal(t, []string{"mock"}, registry.ListAvailableProviders(), "listing should include the registered provider")
}

func TestRegistry_ValidateModel(t *testing.T) {
	registry, err := NewRegistry(context.Background(), RegistryConfig{})
	require.NoError(t, err, "registry construction failed")

	mock := NewMockAdapter("mock")
	mock.Models = []string{"model-a", "model-b"}
	registry.RegisterAdapter("mock", mock)

	assert.True(t, registry.ValidateModel("mock", "model-a"), "listed model should validate")
	assert.False(t, registry.ValidateModel("mock", "model-z"), "unlisted model should not validate")
	assert.False(t, registry.ValidateModel("missing", "model-a"), "unavailable provider validates nothing")
}

func TestRegistry_CheckModel_SuggestsClosestMatch(t *testing.T) {
	registry, err := NewRegistry(context.Background(), RegistryConfig{})
	require.NoError(t, err, "registry construction failed")

	mock := NewMockAdapter(ProviderOpenAI)
	mock.Models = openAISupportedModels
	registry.RegisterAdapter(ProviderOpenAI, mock)

	err = registry.CheckModel(ProviderOpenAI, "gpt-4o-mini-typo")

	require.Error(t, err, "unsupported model should be rejected")
	assert.Contains(t, err.Error(), `"gpt-4o-mini"`, "rejection should suggest the closest supported model")
}

func TestRegistry_CheckModel_AcceptsSupportedModel(t *testing.T) {
	registry, err := NewRegistry(context.Background(), RegistryConfig{})
	require.NoError(t, err, "registry construction failed")

	mock := NewMockAdapter(ProviderOpenAI)
	mock.Models = openAISupportedModels
	registry.RegisterAdapter(ProviderOpenAI, mock)

	assert.NoError(t, registry.CheckModel(ProviderOpenAI, OpenAIDefaultModel), "default model should be supported")
}

func TestRegistry_MiddlewareAppliedToConstructedAdapters(t *testing.T) {
	var sawRequest bool
	spy := func(next ports.ProviderAdapter) ports.ProviderAdapter {
		return &middlewareSpy{ProviderAdapter: next, hit: &sawRequest}
	}

	registry, err := NewRegistry(context.Background(), RegistryConfig{
		OpenAIAPIKey: "test-key",
		Middleware:   []Middleware{spy},
	})
	require.NoError(t, err, "registry construction failed")

	adapter, err := registry.GetProvider(ProviderOpenAI)
	require.NoError(t, err, "openai should be configured")

	// The middleware wrapper, not the raw adapter, must be what resolves.
	_, ok := adapter.(*middlewareSpy)
	assert.True(t, ok, "GetProvider should return the middleware-wrapped adapter")
	assert.False(t, sawRequest, "no requests should have been made yet")
}

type middlewareSpy struct {
	ports.ProviderAdapter
	hit *bool
}

func (s *middlewareSpy) Evaluate(ctx context.Context, req ports.EvaluateRequest) (ports.EvaluateResponse, error) {
	*s.hit = true
	return s.ProviderAdapter.Evaluate(ctx, req)
}

func TestClosestModel(t *testing.T) {
	supported := []string{"gpt-4o", "gpt-4o-mini", "gpt-4.1"}

	assert.Equal(t, "gpt-4o-mini", closestModel("gpt-4o-mimi", supported), "near-miss should map to nearest entry")
	assert.Equal(t, "", closestModel("anything", nil), "empty allow-list yields no suggestion")
}

func TestProviderError_IsRetryable(t *testing.T) {
	tests := []struct {
		name    string
		errType ErrorType
		want    bool
	}{
		{"rate limit retryable", ErrorTypeRateLimit, true},
		{"server error retryable", ErrorTypeServerError, true},
		{"network retryable", ErrorTypeNetwork, true},
		{"auth not retryable", ErrorTypeAuthentication, false},
		{"bad request not retryable", ErrorTypeBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provErr := NewProviderError("openai", tt.errType, 0, "", nil)
			assert.Equal(t, tt.want, provErr.IsRetryable(), "retryability mismatch")
		})
	}
}

func TestErrorClassifier_ClassifyHTTPError(t *testing.T) {
	classifier := &ErrorClassifier{Provider: "openai"}

	tests := []struct {
		name       string
		statusCode int
		wantType   ErrorType
	}{
		{"401 is authentication", 401, ErrorTypeAuthentication},
		{"403 is authentication", 403, ErrorTypeAuthentication},
		{"429 is rate limit", 429, ErrorTypeRateLimit},
		{"400 is bad request", 400, ErrorTypeBadRequest},
		{"404 is not found", 404, ErrorTypeNotFound},
		{"503 is server error", 503, ErrorTypeServerError},
		{"418 maps to bad request", 418, ErrorTypeBadRequest},
		{"599 maps to server error", 599, ErrorTypeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provErr := classifier.ClassifyHTTPError(tt.statusCode, "boom", errors.New("boom"))
			assert.Equal(t, tt.wantType, provErr.Type, "classification mismatch for status %d", tt.statusCode)
			assert.Equal(t, tt.statusCode, provErr.StatusCode, "status code should be preserved")
		})
	}
}

func TestErrorClassifier_ClassifyContextError(t *testing.T) {
	classifier := &ErrorClassifier{Provider: "google"}

	deadline := classifier.ClassifyContextError(context.DeadlineExceeded)
	assert.Equal(t, ErrorTypeNetwork, deadline.Type, "deadline should classify as network")
	assert.ErrorIs(t, deadline, context.DeadlineExceeded, "underlying error should unwrap")

	canceled := classifier.ClassifyContextError(context.Canceled)
	assert.Equal(t, ErrorTypeNetwork, canceled.Type, "cancellation should classify as network")
}
