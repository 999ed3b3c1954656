package llm

import (
	"context"
	"fmt"
	"math"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"github.com/ahrav/go-verdict/internal/ports"
)

const (
	// ProviderGoogle is the registry identifier for Google Gemini.
	ProviderGoogle = "google"
	// GoogleDefaultModel is used when a judge names no model.
	GoogleDefaultModel = "gemini-2.0-flash"
)

// googleSupportedModels is the static allow-list used by ValidateModel.
var googleSupportedModels = []string{
	"gemini-2.5-pro", "gemini-2.5-flash", "gemini-2.5-flash-lite",
	"gemini-2.0-flash", "gemini-2.0-flash-lite",
	"gemini-1.5-pro", "gemini-1.5-flash",
}

var _ ports.ProviderAdapter = (*googleAdapter)(nil)

// googleAdapter implements ports.ProviderAdapter against the Gemini API.
type googleAdapter struct {
	client     *genai.Client
	model      string
	classifier *ErrorClassifier
}

// NewGoogleAdapter creates the Gemini adapter from configuration.
// The context is used only for client construction.
func NewGoogleAdapter(ctx context.Context, config AdapterConfig) (ports.ProviderAdapter, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}

	return &googleAdapter{
		client:     client,
		model:      model,
		classifier: &ErrorClassifier{Provider: ProviderGoogle},
	}, nil
}

// Name returns the provider identifier.
func (a *googleAdapter) Name() string { return ProviderGoogle }

// SupportsAttachments reports that attachment descriptors are surfaced.
func (a *googleAdapter) SupportsAttachments() bool { return true }

// SupportsVision reports that image URLs are appended as textual hints.
func (a *googleAdapter) SupportsVision() bool { return true }

// ValidateModel checks membership in the static allow-list.
func (a *googleAdapter) ValidateModel(model string) bool {
	return containsModel(model, googleSupportedModels)
}

// Evaluate runs one judged completion against the Gemini API and parses
// the response into a verdict. Gemini has no separate system role, so
// the system prompt is prepended to the user prompt in a structured
// format.
func (a *googleAdapter) Evaluate(ctx context.Context, req ports.EvaluateRequest) (ports.EvaluateResponse, error) {
	model := req.Model
	if model == "" {
		model = a.model
	}

	finalPrompt := finalizeUserPrompt(req, a.SupportsVision())
	if req.SystemPrompt != "" {
		finalPrompt = fmt.Sprintf("System: %s\n\nUser: %s", req.SystemPrompt, finalPrompt)
	}

	// Gemini supports temperatures up to 2.0.
	temperature := float32(effectiveTemperature(req, 0.0, 2.0))
	maxTokens := effectiveMaxTokens(req, math.MaxInt32)

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		MaxOutputTokens: int32(maxTokens),
	}

	contents := []*genai.Content{genai.NewContentFromText(finalPrompt, genai.RoleUser)}

	resp, err := a.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return ports.EvaluateResponse{}, a.handleError(err)
	}

	raw := resp.Text()
	if raw == "" {
		return ports.EvaluateResponse{}, NewProviderError(
			ProviderGoogle, ErrorTypeServerError, 0, "empty response from API", ErrEmptyResponse)
	}

	var promptTokens, completionTokens int
	if usage := resp.UsageMetadata; usage != nil {
		promptTokens = int(usage.PromptTokenCount)
		completionTokens = int(usage.CandidatesTokenCount)
	}

	return ports.EvaluateResponse{
		Result:    ParseVerdict(raw),
		Usage:     usageFromCounts(promptTokens, completionTokens),
		RawOutput: raw,
	}, nil
}

// handleError classifies Gemini failures into ProviderError.
func (a *googleAdapter) handleError(err error) error {
	if isContextError(err) {
		return a.classifier.ClassifyContextError(err)
	}

	if apiErr, ok := err.(*googleapi.Error); ok {
		message := apiErr.Message
		if message == "" && len(apiErr.Errors) > 0 {
			message = apiErr.Errors[0].Message
		}
		return a.classifier.ClassifyHTTPError(apiErr.Code, message, err)
	}

	return NewProviderError(ProviderGoogle, ErrorTypeUnknown, 0, "request failed", err)
}
