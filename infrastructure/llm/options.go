package llm

import (
	"strings"
	"time"

	"github.com/ahrav/go-verdict/internal/domain"
	"github.com/ahrav/go-verdict/internal/ports"
)

// Request defaults shared by every adapter. Callers override them per
// request; the executor intentionally runs judges at a higher
// temperature than this baseline.
const (
	// DefaultTemperature is applied when a request carries none.
	DefaultTemperature = 0.7
	// DefaultMaxTokens caps the response when a request carries no limit.
	DefaultMaxTokens = 1000
)

// AdapterConfig holds the settings common to all adapter constructors.
type AdapterConfig struct {
	// APIKey authenticates requests to the vendor.
	APIKey string
	// Model is the default model when a request names none.
	Model string
	// BaseURL overrides the vendor endpoint; empty uses the default.
	BaseURL string
	// Timeout bounds individual requests where the SDK supports it.
	Timeout time.Duration
}

// effectiveTemperature resolves the request temperature against the
// default, clamped to the provider's supported range.
func effectiveTemperature(req ports.EvaluateRequest, min, max float64) float64 {
	temp := DefaultTemperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	return clampFloat64(temp, min, max)
}

// effectiveMaxTokens resolves the request token cap against the default
// and the provider-specific ceiling.
func effectiveMaxTokens(req ports.EvaluateRequest, ceiling int) int {
	tokens := req.MaxTokens
	if tokens <= 0 {
		tokens = DefaultMaxTokens
	}
	if ceiling > 0 && tokens > ceiling {
		tokens = ceiling
	}
	return tokens
}

// finalizeUserPrompt produces the prompt text actually sent to the
// vendor: the built user prompt, plus textual image-URL hints when the
// adapter supports vision, plus the per-request cache-defeating marker.
// No true multimodal encoding is performed; image URLs are hints only.
func finalizeUserPrompt(req ports.EvaluateRequest, supportsVision bool) string {
	user := req.UserPrompt

	if supportsVision {
		if urls := imageURLs(req.Context.Attachments); len(urls) > 0 {
			user += "\n\nImage attachments (URLs):\n" + strings.Join(urls, "\n")
		}
	}

	return user + cacheDefeatMarker()
}

func imageURLs(attachments []domain.Attachment) []string {
	var urls []string
	for _, att := range attachments {
		if att.IsImage() {
			urls = append(urls, att.URL)
		}
	}
	return urls
}

// usageFromCounts builds a Usage record, falling back to nil when the
// vendor reported nothing.
func usageFromCounts(promptTokens, completionTokens int) *ports.Usage {
	if promptTokens <= 0 && completionTokens <= 0 {
		return nil
	}
	return &ports.Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
}

// clampFloat64 restricts a float64 value to the given range.
func clampFloat64(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// containsModel reports membership of model in a static allow-list.
func containsModel(model string, supported []string) bool {
	for _, m := range supported {
		if m == model {
			return true
		}
	}
	return false
}
