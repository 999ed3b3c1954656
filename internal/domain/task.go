package domain

import "time"

// Judge is a configured (provider, model, instruction-text) triple used
// to evaluate answers. Judges are owned by the external data store; the
// engine always reads them fresh so prompt edits between runs take
// effect immediately.
type Judge struct {
	// ID uniquely identifies the judge.
	ID string `json:"id" yaml:"id"`

	// Name is the human-readable display name.
	Name string `json:"name" yaml:"name"`

	// Provider identifies the LLM vendor ("openai", "anthropic", "google").
	Provider string `json:"provider" yaml:"provider"`

	// Model is the provider-specific model identifier.
	Model string `json:"model" yaml:"model"`

	// Prompt is the free-text evaluation instruction.
	Prompt string `json:"prompt" yaml:"prompt"`

	// Active controls whether the judge participates in runs.
	Active bool `json:"active" yaml:"active"`
}

// Attachment describes a file associated with an answer. Only the
// descriptor is carried; file contents live in an external blob store.
type Attachment struct {
	// ID uniquely identifies the attachment.
	ID string `json:"id" yaml:"id"`

	// AnswerID links the attachment to its answer.
	AnswerID string `json:"answer_id" yaml:"answer_id"`

	// URL locates the stored file.
	URL string `json:"url" yaml:"url"`

	// Type is the media type, e.g. "image/png". May be empty.
	Type string `json:"type" yaml:"type"`

	// CreatedAt records when the attachment was uploaded.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// IsImage reports whether the attachment carries an image media type.
func (a Attachment) IsImage() bool {
	return len(a.Type) >= 6 && a.Type[:6] == "image/"
}

// EvaluationContext is the ephemeral bundle of everything a judge sees
// about one answer. It exists only for the duration of a single
// evaluation call and is never persisted.
type EvaluationContext struct {
	// QuestionText is the question the answer responds to.
	QuestionText string `json:"question_text"`

	// QuestionType describes the question template kind
	// (e.g. "free_text", "multiple_choice", "file_upload").
	QuestionType string `json:"question_type"`

	// AnswerData is the semi-structured answer payload. Its shape
	// depends on QuestionType: a string, a list, or an object.
	AnswerData any `json:"answer_data"`

	// Metadata carries optional submission metadata shown to the judge.
	Metadata map[string]any `json:"metadata,omitempty"`

	// Attachments lists files associated with the answer.
	Attachments []Attachment `json:"attachments,omitempty"`
}

// QueueAnswer is one answer loaded from a queue together with the
// denormalized question-template fields needed to build a context.
type QueueAnswer struct {
	// AnswerID uniquely identifies the answer.
	AnswerID string `json:"answer_id" yaml:"answer_id"`

	// QuestionTemplateID identifies the question template.
	QuestionTemplateID string `json:"question_template_id" yaml:"question_template_id"`

	// QuestionText is the question's text.
	QuestionText string `json:"question_text" yaml:"question_text"`

	// QuestionType is the question template kind.
	QuestionType string `json:"question_type" yaml:"question_type"`

	// AnswerValue is the raw answer payload.
	AnswerValue any `json:"answer_value" yaml:"answer_value"`
}

// JudgeAssignment links an answer to a judge that must evaluate it.
type JudgeAssignment struct {
	// AnswerID identifies the answer side of the assignment.
	AnswerID string `json:"answer_id" yaml:"answer_id"`

	// JudgeID identifies the judge side of the assignment.
	JudgeID string `json:"judge_id" yaml:"judge_id"`
}

// EvaluationTask is one (answer, judge) unit of work inside an
// orchestration run. Tasks are created when a queue is expanded,
// consumed once, and discarded.
type EvaluationTask struct {
	// Answer carries the answer and its question-template data.
	Answer QueueAnswer `json:"answer"`

	// JudgeID identifies the judge to run. The judge itself is fetched
	// fresh at execution time so edits never go stale.
	JudgeID string `json:"judge_id"`

	// Provider is the judge's provider as observed when the task was
	// built, used to route the task to the right limiter group.
	Provider string `json:"provider"`
}
