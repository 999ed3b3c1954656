package llm

import (
	"context"
	"sync"
	"time"

	"github.com/ahrav/go-verdict/internal/domain"
	"github.com/ahrav/go-verdict/internal/ports"
)

// MockAdapter is a configurable ProviderAdapter for tests. It records
// the requests it receives and is safe for concurrent use.
type MockAdapter struct {
	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// Vision controls SupportsVision.
	Vision bool

	// Models is the allow-list consulted by ValidateModel. An empty
	// list accepts every model.
	Models []string

	// Response is returned from Evaluate when EvaluateFn is nil.
	Response ports.EvaluateResponse

	// Err, when set, is returned from Evaluate instead of Response.
	Err error

	// ResponseDelay simulates provider latency.
	ResponseDelay time.Duration

	// EvaluateFn, when set, fully overrides Evaluate behavior.
	EvaluateFn func(ctx context.Context, req ports.EvaluateRequest) (ports.EvaluateResponse, error)

	mu       sync.Mutex
	calls    int
	requests []ports.EvaluateRequest
}

// NewMockAdapter returns a mock that passes every evaluation.
func NewMockAdapter(name string) *MockAdapter {
	return &MockAdapter{
		ProviderName: name,
		Response: ports.EvaluateResponse{
			Result: domain.EvaluationResult{
				Verdict:   domain.VerdictPass,
				Reasoning: "mock reasoning",
			},
		},
	}
}

// Name returns the configured provider name.
func (m *MockAdapter) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// SupportsAttachments always reports true for the mock.
func (m *MockAdapter) SupportsAttachments() bool { return true }

// SupportsVision reports the configured vision flag.
func (m *MockAdapter) SupportsVision() bool { return m.Vision }

// ValidateModel checks the configured allow-list.
func (m *MockAdapter) ValidateModel(model string) bool {
	if len(m.Models) == 0 {
		return true
	}
	return containsModel(model, m.Models)
}

// Evaluate records the request and returns the configured outcome.
func (m *MockAdapter) Evaluate(ctx context.Context, req ports.EvaluateRequest) (ports.EvaluateResponse, error) {
	m.mu.Lock()
	m.calls++
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.ResponseDelay > 0 {
		select {
		case <-time.After(m.ResponseDelay):
		case <-ctx.Done():
			return ports.EvaluateResponse{}, ctx.Err()
		}
	}

	if m.EvaluateFn != nil {
		return m.EvaluateFn(ctx, req)
	}
	if m.Err != nil {
		return ports.EvaluateResponse{}, m.Err
	}
	return m.Response, nil
}

// CallCount returns how many times Evaluate was invoked.
func (m *MockAdapter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Requests returns a copy of every recorded request.
func (m *MockAdapter) Requests() []ports.EvaluateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ports.EvaluateRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
