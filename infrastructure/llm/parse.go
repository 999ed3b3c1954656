package llm

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/ahrav/go-verdict/internal/domain"
)

// rawVerdict is the JSON shape adapters expect from the model.
type rawVerdict struct {
	Verdict   string `json:"verdict"`
	Reasoning string `json:"reasoning"`
}

// ParseVerdict normalizes free-form model output into an
// EvaluationResult. It never fails; every input yields a result.
//
// Priority order, identical across all adapters:
//  1. Locate and decode the first balanced JSON object in the text. If
//     it carries verdict or reasoning fields, use them, defaulting a
//     missing verdict to inconclusive.
//  2. Otherwise scan the lowercased text for verdict keywords
//     ("pass"/"correct"/"good" before "fail"/"incorrect"/"bad"), with
//     the full raw text as the reasoning.
//  3. Otherwise return inconclusive with the raw text as the reasoning.
func ParseVerdict(raw string) domain.EvaluationResult {
	if jsonStr := extractObject(raw); jsonStr != "" {
		var parsed rawVerdict
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err == nil &&
			(parsed.Verdict != "" || parsed.Reasoning != "") {
			verdict := domain.Verdict(strings.ToLower(strings.TrimSpace(parsed.Verdict)))
			if parsed.Verdict == "" {
				verdict = domain.VerdictInconclusive
			}
			return domain.EvaluationResult{Verdict: verdict, Reasoning: parsed.Reasoning}
		}
	}

	return keywordFallback(raw)
}

// keywordFallback scans the model output for verdict keywords. The text
// is NFKC-normalized first so stylized variants (fullwidth characters,
// ligatures) still match.
func keywordFallback(raw string) domain.EvaluationResult {
	text := strings.ToLower(norm.NFKC.String(raw))

	switch {
	case containsAny(text, "pass", "correct", "good"):
		return domain.EvaluationResult{Verdict: domain.VerdictPass, Reasoning: raw}
	case containsAny(text, "fail", "incorrect", "bad"):
		return domain.EvaluationResult{Verdict: domain.VerdictFail, Reasoning: raw}
	}

	return domain.EvaluationResult{Verdict: domain.VerdictInconclusive, Reasoning: raw}
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// extractObject returns the first balanced JSON object substring in the
// text, or "" when none exists. The scan is string-aware so braces
// inside quoted values do not break the balance count.
func extractObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if escaped {
			escaped = false
			continue
		}

		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}

	return ""
}

// cacheDefeatMarker returns an invisible comment carrying a fresh random
// token. Appending it to the user prompt guarantees identical
// evaluations are never served from an upstream response cache; every
// verdict reflects a fresh model call.
func cacheDefeatMarker() string {
	return "\n\n<!-- eval-run:" + uuid.NewString() + " -->"
}
