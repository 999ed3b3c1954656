// Package engine implements the evaluation orchestration pipeline: the
// per-provider concurrency limiter, the non-failing executor that runs
// one (judge, answer) pair, and the orchestrator that expands a queue
// into tasks and drives them to a batch summary.
package engine

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-verdict/internal/prompt"
)

// Judge-run defaults. These intentionally differ from the adapter
// baseline (0.7) to favor more exploratory judging language.
const (
	// DefaultJudgeTemperature is the sampling temperature for judge runs.
	DefaultJudgeTemperature = 0.8
	// DefaultJudgeMaxTokens caps judge reasoning length.
	DefaultJudgeMaxTokens = 1000
	// DefaultProviderLimit bounds concurrency for providers with no
	// configured ceiling, conservatively.
	DefaultProviderLimit = 2
)

// defaultProviderLimits carries distinct per-provider concurrency
// ceilings reflecting vendor throughput differences.
var defaultProviderLimits = map[string]int{
	"openai":    5,
	"anthropic": 3,
	"google":    4,
}

// Config holds the tunable parameters of an orchestration run.
type Config struct {
	// ProviderLimits maps provider identifiers to concurrency ceilings.
	ProviderLimits map[string]int `yaml:"provider_limits" validate:"dive,min=1,max=64"`

	// DefaultLimit bounds concurrency for providers absent from
	// ProviderLimits.
	DefaultLimit int `yaml:"default_limit" validate:"min=1,max=64"`

	// Temperature is the sampling temperature passed to adapters.
	Temperature float64 `yaml:"temperature" validate:"min=0,max=2"`

	// MaxTokens caps response length passed to adapters.
	MaxTokens int `yaml:"max_tokens" validate:"min=1,max=8192"`

	// Prompt selects which context sections judges are shown.
	Prompt prompt.Config `yaml:"prompt"`
}

// DefaultConfig returns the standard judge-run configuration: every
// prompt section included, exploratory temperature, per-provider
// ceilings.
func DefaultConfig() Config {
	limits := make(map[string]int, len(defaultProviderLimits))
	for provider, limit := range defaultProviderLimits {
		limits[provider] = limit
	}
	return Config{
		ProviderLimits: limits,
		DefaultLimit:   DefaultProviderLimit,
		Temperature:    DefaultJudgeTemperature,
		MaxTokens:      DefaultJudgeMaxTokens,
		Prompt:         prompt.DefaultConfig(),
	}
}

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("engine configuration validation failed: %w", err)
	}
	return nil
}

// limitFor resolves the concurrency ceiling for a provider, falling
// back to the conservative default for unknown providers.
func (c Config) limitFor(provider string) int {
	if limit, ok := c.ProviderLimits[provider]; ok && limit > 0 {
		return limit
	}
	if c.DefaultLimit > 0 {
		return c.DefaultLimit
	}
	return DefaultProviderLimit
}
