package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ahrav/go-verdict/internal/ports"
)

const (
	// ProviderAnthropic is the registry identifier for Anthropic.
	ProviderAnthropic = "anthropic"
	// AnthropicDefaultModel is used when a judge names no model.
	AnthropicDefaultModel = "claude-3-5-sonnet-20241022"
	// anthropicMaxTokensCeiling caps response length for messages.
	anthropicMaxTokensCeiling = 8192
)

// anthropicSupportedModels is the static allow-list used by ValidateModel.
var anthropicSupportedModels = []string{
	"claude-4-opus", "claude-4-sonnet",
	"claude-3-7-sonnet-latest",
	"claude-3-5-sonnet-20241022", "claude-3-5-haiku-20241022",
	"claude-3-opus-20240229", "claude-3-haiku-20240307",
}

var _ ports.ProviderAdapter = (*anthropicAdapter)(nil)

// anthropicAdapter implements ports.ProviderAdapter against the
// Anthropic messages API.
type anthropicAdapter struct {
	client     anthropic.Client
	model      string
	classifier *ErrorClassifier
}

// NewAnthropicAdapter creates the Anthropic adapter from configuration.
func NewAnthropicAdapter(config AdapterConfig) (ports.ProviderAdapter, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}

	return &anthropicAdapter{
		client:     anthropic.NewClient(opts...),
		model:      model,
		classifier: &ErrorClassifier{Provider: ProviderAnthropic},
	}, nil
}

// Name returns the provider identifier.
func (a *anthropicAdapter) Name() string { return ProviderAnthropic }

// SupportsAttachments reports that attachment descriptors are surfaced.
func (a *anthropicAdapter) SupportsAttachments() bool { return true }

// SupportsVision reports that image URLs are appended as textual hints.
func (a *anthropicAdapter) SupportsVision() bool { return true }

// ValidateModel checks membership in the static allow-list.
func (a *anthropicAdapter) ValidateModel(model string) bool {
	return containsModel(model, anthropicSupportedModels)
}

// Evaluate runs one judged completion against the Anthropic API and
// parses the response into a verdict.
func (a *anthropicAdapter) Evaluate(ctx context.Context, req ports.EvaluateRequest) (ports.EvaluateResponse, error) {
	model := req.Model
	if model == "" {
		model = a.model
	}

	// Anthropic caps temperature at 1.0.
	temperature := effectiveTemperature(req, 0.0, 1.0)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(effectiveMaxTokens(req, anthropicMaxTokensCeiling)),
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(finalizeUserPrompt(req, a.SupportsVision()))),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return ports.EvaluateResponse{}, a.handleError(err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if content, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(content.Text)
		}
	}

	raw := text.String()
	if raw == "" {
		return ports.EvaluateResponse{}, NewProviderError(
			ProviderAnthropic, ErrorTypeServerError, 0, "empty response from API", ErrEmptyResponse)
	}

	return ports.EvaluateResponse{
		Result:    ParseVerdict(raw),
		Usage:     usageFromCounts(int(message.Usage.InputTokens), int(message.Usage.OutputTokens)),
		RawOutput: raw,
	}, nil
}

// handleError classifies Anthropic SDK failures into ProviderError.
func (a *anthropicAdapter) handleError(err error) error {
	if isContextError(err) {
		return a.classifier.ClassifyContextError(err)
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return a.classifier.ClassifyHTTPError(apiErr.StatusCode, apiErr.Error(), err)
	}

	return NewProviderError(ProviderAnthropic, ErrorTypeUnknown, 0, "request failed", err)
}
