package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ahrav/go-verdict/internal/ports"
)

const (
	// ProviderOpenAI is the registry identifier for OpenAI.
	ProviderOpenAI = "openai"
	// OpenAIDefaultModel is used when a judge names no model.
	OpenAIDefaultModel = "gpt-4o-mini"
	// openAIMaxTokensCeiling caps response length for chat completions.
	openAIMaxTokensCeiling = 4096
)

// openAISupportedModels is the static allow-list used by ValidateModel.
var openAISupportedModels = []string{
	"gpt-4.1", "gpt-4.1-mini", "gpt-4.1-nano",
	"gpt-4o", "gpt-4o-mini",
	"gpt-4", "gpt-4-turbo",
	"gpt-3.5-turbo",
	"o4-mini", "o3", "o3-mini",
}

var _ ports.ProviderAdapter = (*openAIAdapter)(nil)

// openAIAdapter implements ports.ProviderAdapter against the OpenAI
// chat completions API.
type openAIAdapter struct {
	client     *openai.Client
	model      string
	classifier *ErrorClassifier
}

// NewOpenAIAdapter creates the OpenAI adapter from configuration.
func NewOpenAIAdapter(config AdapterConfig) (ports.ProviderAdapter, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	return &openAIAdapter{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      model,
		classifier: &ErrorClassifier{Provider: ProviderOpenAI},
	}, nil
}

// Name returns the provider identifier.
func (a *openAIAdapter) Name() string { return ProviderOpenAI }

// SupportsAttachments reports that attachment descriptors are surfaced.
func (a *openAIAdapter) SupportsAttachments() bool { return true }

// SupportsVision reports that image URLs are appended as textual hints.
func (a *openAIAdapter) SupportsVision() bool { return true }

// ValidateModel checks membership in the static allow-list.
func (a *openAIAdapter) ValidateModel(model string) bool {
	return containsModel(model, openAISupportedModels)
}

// Evaluate runs one judged completion against the OpenAI API and parses
// the response into a verdict.
func (a *openAIAdapter) Evaluate(ctx context.Context, req ports.EvaluateRequest) (ports.EvaluateResponse, error) {
	model := req.Model
	if model == "" {
		model = a.model
	}

	chatReq := openai.ChatCompletionRequest{
		Model: model,
		// OpenAI accepts temperatures up to 2.0.
		Temperature: float32(effectiveTemperature(req, 0.0, 2.0)),
		MaxTokens:   effectiveMaxTokens(req, openAIMaxTokensCeiling),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: finalizeUserPrompt(req, a.SupportsVision())},
		},
	}

	resp, err := a.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return ports.EvaluateResponse{}, a.handleError(err)
	}

	if len(resp.Choices) == 0 {
		return ports.EvaluateResponse{}, NewProviderError(
			ProviderOpenAI, ErrorTypeServerError, 0, "no response choices returned", ErrNoResponseChoice)
	}

	raw := resp.Choices[0].Message.Content

	return ports.EvaluateResponse{
		Result:    ParseVerdict(raw),
		Usage:     usageFromCounts(resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
		RawOutput: raw,
	}, nil
}

// handleError classifies OpenAI SDK failures into ProviderError.
func (a *openAIAdapter) handleError(err error) error {
	if isContextError(err) {
		return a.classifier.ClassifyContextError(err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = "unknown error"
		}
		return a.classifier.ClassifyHTTPError(apiErr.HTTPStatusCode, message, err)
	}

	return NewProviderError(ProviderOpenAI, ErrorTypeUnknown, 0, fmt.Sprintf("request failed: %v", err), err)
}
