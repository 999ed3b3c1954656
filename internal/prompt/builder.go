// Package prompt turns a judge's instruction text and an evaluation
// context into the system/user prompt pair sent to a provider adapter.
// Building is pure: no I/O, no randomness, identical inputs always yield
// identical prompts. Cache-defeating markers are an adapter concern and
// never appear here.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ahrav/go-verdict/internal/domain"
)

// baseInstructions is the fixed block describing the three-way verdict
// schema and the JSON-only response contract. It is always appended to
// the judge's own instruction text; earlier designs keyword-sniffed the
// judge text to decide whether to append, which made prompt content
// depend on incidental wording. Unconditional appending is deterministic
// and at worst repeats the contract.
const baseInstructions = `You are evaluating a submitted answer against the criteria above.
Your verdict must be exactly one of: "pass", "fail", or "inconclusive".

Respond ONLY with valid JSON in exactly this format:
{"verdict": "<pass|fail|inconclusive>", "reasoning": "<detailed explanation of your verdict>"}`

// closingInstruction ends every user prompt.
const closingInstruction = "Evaluate this answer according to the criteria you were given."

// IncludedFields controls which context sections appear in the user
// prompt. A section is rendered only when its flag is set and the
// underlying data is present.
type IncludedFields struct {
	QuestionText       bool `yaml:"question_text" json:"question_text"`
	QuestionType       bool `yaml:"question_type" json:"question_type"`
	AnswerData         bool `yaml:"answer_data" json:"answer_data"`
	SubmissionMetadata bool `yaml:"submission_metadata" json:"submission_metadata"`
	Attachments        bool `yaml:"attachments" json:"attachments"`
}

// Config holds prompt construction options.
type Config struct {
	// IncludedFields selects the user prompt sections.
	IncludedFields IncludedFields `yaml:"included_fields" json:"included_fields"`
}

// DefaultConfig returns a Config with every section included, matching
// the field set judges are normally shown.
func DefaultConfig() Config {
	return Config{IncludedFields: IncludedFields{
		QuestionText:       true,
		QuestionType:       true,
		AnswerData:         true,
		SubmissionMetadata: true,
		Attachments:        true,
	}}
}

// Pair is a built system/user prompt pair.
type Pair struct {
	// System carries the judge instruction plus the base verdict block.
	System string

	// User carries the rendered evaluation context.
	User string
}

// Build constructs the prompt pair for one evaluation. Sections are
// concatenated in a fixed order (question text, question type, answer
// data, metadata, attachments); omitted sections leave no trace, so two
// contexts that render the same produce byte-identical prompts.
func Build(instruction string, cfg Config, evalCtx domain.EvaluationContext) Pair {
	system := strings.TrimSpace(instruction)
	if system == "" {
		system = baseInstructions
	} else {
		system += "\n\n" + baseInstructions
	}

	var sections []string

	if cfg.IncludedFields.QuestionText && evalCtx.QuestionText != "" {
		sections = append(sections, "Question:\n"+evalCtx.QuestionText)
	}

	if cfg.IncludedFields.QuestionType && evalCtx.QuestionType != "" {
		sections = append(sections, "Question type: "+evalCtx.QuestionType)
	}

	if cfg.IncludedFields.AnswerData && evalCtx.AnswerData != nil {
		sections = append(sections, "Answer:\n"+FormatAnswerData(evalCtx.AnswerData))
	}

	if cfg.IncludedFields.SubmissionMetadata && len(evalCtx.Metadata) > 0 {
		sections = append(sections, "Submission metadata:\n"+formatMetadata(evalCtx.Metadata))
	}

	if cfg.IncludedFields.Attachments && len(evalCtx.Attachments) > 0 {
		sections = append(sections, "Attachments:\n"+FormatAttachments(evalCtx.Attachments))
	}

	sections = append(sections, closingInstruction)

	return Pair{System: system, User: strings.Join(sections, "\n\n")}
}

// FormatAnswerData renders a semi-structured answer payload as text.
// Strings pass through untouched; slices become a comma-joined list with
// non-string elements JSON-encoded; maps are pretty-printed as JSON;
// anything else is stringified.
func FormatAnswerData(data any) string {
	switch v := data.(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, elem := range v {
			parts = append(parts, formatListElement(elem))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(v, ", ")
	case map[string]any:
		return marshalIndented(v)
	default:
		return fmt.Sprint(v)
	}
}

// formatListElement renders one slice element: strings pass through,
// everything else is JSON-encoded so structure is not lost.
func formatListElement(elem any) string {
	if s, ok := elem.(string); ok {
		return s
	}
	encoded, err := json.Marshal(elem)
	if err != nil {
		return fmt.Sprint(elem)
	}
	return string(encoded)
}

// formatMetadata pretty-prints submission metadata as JSON.
func formatMetadata(meta map[string]any) string {
	return marshalIndented(meta)
}

// marshalIndented pretty-prints a value as JSON, falling back to
// fmt.Sprint for values encoding/json cannot handle. json.MarshalIndent
// sorts map keys, which keeps output deterministic.
func marshalIndented(v any) string {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(encoded)
}

// FormatAttachments renders attachment descriptors one per line as
// "<type> - <url>", substituting "file" when the media type is unknown.
func FormatAttachments(attachments []domain.Attachment) string {
	lines := make([]string, 0, len(attachments))
	for _, att := range attachments {
		kind := att.Type
		if kind == "" {
			kind = "file"
		}
		lines = append(lines, kind+" - "+att.URL)
	}
	return strings.Join(lines, "\n")
}
