package engine

import (
	"context"

	"github.com/ahrav/go-verdict/internal/domain"
	"github.com/ahrav/go-verdict/internal/ports"
	"github.com/ahrav/go-verdict/internal/prompt"
)

// ProviderResolver resolves a provider identifier to a configured
// adapter. The llm.Registry satisfies it; tests substitute stubs.
type ProviderResolver interface {
	// GetProvider returns the adapter for the identifier, or a
	// *ports.NotConfiguredError when the provider is unknown or its
	// credential is absent.
	GetProvider(id string) (ports.ProviderAdapter, error)
}

// Executor runs exactly one (judge, context) pair to completion. Its
// contract is non-failing: every call returns a well-formed
// EvaluationResult, degrading to inconclusive with an embedded failure
// description when anything goes wrong. The orchestrator relies on this
// to guarantee one persisted row per task.
type Executor struct {
	providers   ProviderResolver
	promptCfg   prompt.Config
	temperature float64
	maxTokens   int
}

// NewExecutor creates an executor resolving adapters through the given
// resolver and using the config's judge-run parameters.
func NewExecutor(providers ProviderResolver, config Config) *Executor {
	return &Executor{
		providers:   providers,
		promptCfg:   config.Prompt,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
	}
}

// ExecuteEvaluation evaluates one answer with one judge. The verdict is
// always one of the three allowed values and the reasoning is always
// non-empty; provider resolution failures, call failures, and malformed
// results all collapse into an inconclusive result rather than an
// error.
func (e *Executor) ExecuteEvaluation(ctx context.Context, judge domain.Judge, evalCtx domain.EvaluationContext) domain.EvaluationResult {
	adapter, err := e.providers.GetProvider(judge.Provider)
	if err != nil {
		return failureResult(err)
	}

	pair := prompt.Build(judge.Prompt, e.promptCfg, evalCtx)

	temperature := e.temperature
	resp, err := adapter.Evaluate(ctx, ports.EvaluateRequest{
		SystemPrompt: pair.System,
		UserPrompt:   pair.User,
		Context:      evalCtx,
		Model:        judge.Model,
		Temperature:  &temperature,
		MaxTokens:    e.maxTokens,
	})
	if err != nil {
		return failureResult(err)
	}

	return resp.Result.Validate()
}

// failureResult converts any per-task failure into the uniform
// inconclusive shape. The error text lands in the reasoning so no
// evaluation row ever lacks context.
func failureResult(err error) domain.EvaluationResult {
	return domain.EvaluationResult{
		Verdict:   domain.VerdictInconclusive,
		Reasoning: "Evaluation failed: " + err.Error(),
	}
}
