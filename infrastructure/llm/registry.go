package llm

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/sethvargo/go-envconfig"

	"github.com/ahrav/go-verdict/internal/ports"
)

// RegistryConfig holds the credentials and shared settings used to
// construct the provider registry. Absence of a credential silently
// excludes that provider; it is not a startup failure.
type RegistryConfig struct {
	// OpenAIAPIKey enables the OpenAI adapter when non-empty.
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`

	// AnthropicAPIKey enables the Anthropic adapter when non-empty.
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`

	// GoogleAPIKey enables the Gemini adapter when non-empty.
	GoogleAPIKey string `env:"GOOGLE_API_KEY"`

	// RequestTimeout bounds individual provider requests.
	RequestTimeout time.Duration `env:"PROVIDER_REQUEST_TIMEOUT, default=60s"`

	// Middleware is applied to every constructed adapter, first entry
	// outermost. Populated by the caller, never from the environment.
	Middleware []Middleware `env:"-"`
}

// LoadRegistryConfig reads registry configuration from the process
// environment.
func LoadRegistryConfig(ctx context.Context) (RegistryConfig, error) {
	var cfg RegistryConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return RegistryConfig{}, fmt.Errorf("failed to process registry config: %w", err)
	}
	return cfg, nil
}

// Registry maps provider identifiers to configured adapter instances.
// Contents are fixed at construction; there is no re-registration
// mid-run, so lookups need no locking.
type Registry struct {
	adapters map[string]ports.ProviderAdapter
	// supported mirrors each adapter's model allow-list for
	// closest-match suggestions.
	supported map[string][]string
}

// NewRegistry builds a registry from configuration, constructing one
// adapter per provider whose credential is present. The context is used
// only for adapter construction.
func NewRegistry(ctx context.Context, config RegistryConfig) (*Registry, error) {
	r := &Registry{
		adapters: make(map[string]ports.ProviderAdapter),
		supported: map[string][]string{
			ProviderOpenAI:    openAISupportedModels,
			ProviderAnthropic: anthropicSupportedModels,
			ProviderGoogle:    googleSupportedModels,
		},
	}

	if config.OpenAIAPIKey != "" {
		adapter, err := NewOpenAIAdapter(AdapterConfig{APIKey: config.OpenAIAPIKey, Timeout: config.RequestTimeout})
		if err != nil {
			return nil, fmt.Errorf("failed to create openai adapter: %w", err)
		}
		r.adapters[ProviderOpenAI] = applyMiddleware(adapter, config.Middleware)
	}

	if config.AnthropicAPIKey != "" {
		adapter, err := NewAnthropicAdapter(AdapterConfig{APIKey: config.AnthropicAPIKey, Timeout: config.RequestTimeout})
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic adapter: %w", err)
		}
		r.adapters[ProviderAnthropic] = applyMiddleware(adapter, config.Middleware)
	}

	if config.GoogleAPIKey != "" {
		adapter, err := NewGoogleAdapter(ctx, AdapterConfig{APIKey: config.GoogleAPIKey, Timeout: config.RequestTimeout})
		if err != nil {
			return nil, fmt.Errorf("failed to create google adapter: %w", err)
		}
		r.adapters[ProviderGoogle] = applyMiddleware(adapter, config.Middleware)
	}

	return r, nil
}

// RegisterAdapter adds a pre-built adapter under the given identifier.
// It exists for wiring custom or mock adapters during construction and
// must not be called once the registry is in use.
func (r *Registry) RegisterAdapter(id string, adapter ports.ProviderAdapter) {
	r.adapters[id] = adapter
}

// GetProvider returns the configured adapter for the identifier.
// Unknown identifiers and providers skipped for lack of a credential
// both yield *ports.NotConfiguredError.
func (r *Registry) GetProvider(id string) (ports.ProviderAdapter, error) {
	adapter, ok := r.adapters[id]
	if !ok {
		if _, known := r.supported[id]; known {
			return nil, ports.NewNotConfiguredError(id, fmt.Errorf("credential not set"))
		}
		return nil, ports.NewNotConfiguredError(id, ports.ErrUnknownProvider)
	}
	return adapter, nil
}

// IsProviderAvailable reports whether the identifier resolves to a
// configured adapter.
func (r *Registry) IsProviderAvailable(id string) bool {
	_, ok := r.adapters[id]
	return ok
}

// ListAvailableProviders returns the configured provider identifiers in
// sorted order.
func (r *Registry) ListAvailableProviders() []string {
	providers := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		providers = append(providers, id)
	}
	sort.Strings(providers)
	return providers
}

// ValidateModel delegates the model check to the provider's adapter.
// Unavailable providers validate nothing.
func (r *Registry) ValidateModel(id, model string) bool {
	adapter, ok := r.adapters[id]
	if !ok {
		return false
	}
	return adapter.ValidateModel(model)
}

// CheckModel is the error-reporting form of ValidateModel used for
// early rejection of unsupported models. For a near-miss it suggests
// the closest supported model by edit distance.
func (r *Registry) CheckModel(id, model string) error {
	adapter, err := r.GetProvider(id)
	if err != nil {
		return err
	}

	if adapter.ValidateModel(model) {
		return nil
	}

	if closest := closestModel(model, r.supported[id]); closest != "" {
		return fmt.Errorf("model %q is not supported by provider %q (closest supported model: %q)", model, id, closest)
	}
	return fmt.Errorf("model %q is not supported by provider %q", model, id)
}

// closestModel returns the allow-list entry with the smallest edit
// distance to the candidate, or "" for an empty list.
func closestModel(model string, supported []string) string {
	best := ""
	bestDistance := -1
	for _, m := range supported {
		d := levenshtein.ComputeDistance(model, m)
		if bestDistance == -1 || d < bestDistance {
			best, bestDistance = m, d
		}
	}
	return best
}

// applyMiddleware wraps an adapter in the configured middleware chain,
// first entry outermost.
func applyMiddleware(adapter ports.ProviderAdapter, middleware []Middleware) ports.ProviderAdapter {
	for i := len(middleware) - 1; i >= 0; i-- {
		adapter = middleware[i](adapter)
	}
	return adapter
}
