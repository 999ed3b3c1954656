// Package ports defines the boundary interfaces between the evaluation
// engine and its infrastructure: LLM provider adapters and the external
// data store. Implementations live under infrastructure/ and
// internal/storage; the engine depends only on these contracts.
package ports

import (
	"context"

	"github.com/ahrav/go-verdict/internal/domain"
)

// EvaluateRequest carries one prepared prompt pair to a provider adapter.
type EvaluateRequest struct {
	// SystemPrompt is the judge instruction plus the base verdict-schema
	// block produced by the prompt builder.
	SystemPrompt string

	// UserPrompt is the rendered evaluation context.
	UserPrompt string

	// Context is the evaluation context the prompts were built from.
	// Adapters use it for attachment hints; they must not rebuild
	// prompts from it.
	Context domain.EvaluationContext

	// Model selects the provider-specific model. Empty means the
	// adapter's default.
	Model string

	// Temperature overrides the sampling temperature when non-nil.
	Temperature *float64

	// MaxTokens caps the response length when positive.
	MaxTokens int
}

// Usage reports token consumption for one provider call.
type Usage struct {
	// PromptTokens counts tokens in the submitted prompt.
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens counts tokens in the model's response.
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the sum of prompt and completion tokens.
	TotalTokens int `json:"total_tokens"`
}

// EvaluateResponse is the normalized outcome of one provider call.
type EvaluateResponse struct {
	// Result is the parsed verdict and reasoning. It is always present
	// when the call itself succeeded, even if the model's output was
	// unparseable (parsing degrades, it never fails).
	Result domain.EvaluationResult

	// Usage reports token counts when the provider supplied them.
	Usage *Usage

	// RawOutput preserves the unparsed model text for debugging.
	RawOutput string
}

// ProviderAdapter wraps a single LLM vendor's call convention behind a
// uniform evaluate contract. Adapters are stateless with respect to
// requests and safe for concurrent use.
//
// JSON extraction is always attempted before keyword fallback when
// parsing model output; the ordering is part of this contract so all
// adapters behave identically on inconsistent responses.
type ProviderAdapter interface {
	// Name returns the provider identifier, e.g. "openai".
	Name() string

	// SupportsAttachments reports whether attachment descriptors are
	// surfaced to the model at all.
	SupportsAttachments() bool

	// SupportsVision reports whether image attachment URLs are appended
	// to the prompt as textual hints.
	SupportsVision() bool

	// ValidateModel reports whether the model identifier is in the
	// adapter's static allow-list.
	ValidateModel(model string) bool

	// Evaluate runs one judged completion. Call-level failures (network,
	// auth, vendor errors) return an error; malformed model output does
	// not, it degrades inside Result instead.
	Evaluate(ctx context.Context, req EvaluateRequest) (EvaluateResponse, error)
}

// EvaluationStore is the engine's view of the external relational data
// store. The store provides its own consistency guarantees; the engine
// performs no client-side locking.
type EvaluationStore interface {
	// AnswersInQueue returns every answer assigned to the queue together
	// with denormalized question-template data.
	AnswersInQueue(ctx context.Context, queueID string) ([]domain.QueueAnswer, error)

	// Attachments returns attachments for the given answers in one batch.
	Attachments(ctx context.Context, answerIDs []string) ([]domain.Attachment, error)

	// ActiveJudgeAssignments returns (answer, judge) assignments for the
	// given answers, filtered to judges with the active flag set.
	ActiveJudgeAssignments(ctx context.Context, answerIDs []string) ([]domain.JudgeAssignment, error)

	// Judge returns one judge by ID. Callers must not cache the result
	// across tasks; judge prompts are editable between runs.
	Judge(ctx context.Context, judgeID string) (domain.Judge, error)

	// InsertEvaluation writes one evaluation row. Failures are reported
	// as *StorageError.
	InsertEvaluation(ctx context.Context, eval domain.Evaluation) error
}
