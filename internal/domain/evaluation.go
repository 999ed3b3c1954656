// Package domain contains the core types of the evaluation pipeline.
// These types carry no infrastructure dependencies and are shared by
// the prompt builder, provider adapters, and the orchestration engine.
package domain

import (
	"strings"
	"time"
)

// Verdict is the three-way outcome of a single judge evaluation.
type Verdict string

const (
	// VerdictPass indicates the judge accepted the answer.
	VerdictPass Verdict = "pass"
	// VerdictFail indicates the judge rejected the answer.
	VerdictFail Verdict = "fail"
	// VerdictInconclusive indicates the judge could not reach a decision,
	// either because the model said so or because something failed along
	// the way. It is the fallback for every degraded path.
	VerdictInconclusive Verdict = "inconclusive"
)

// IsValid reports whether v is one of the three allowed verdict values.
func (v Verdict) IsValid() bool {
	switch v {
	case VerdictPass, VerdictFail, VerdictInconclusive:
		return true
	}
	return false
}

// EvaluationResult is the normalized output of one judge run.
// After validation it is always well-formed: the verdict is one of the
// three allowed values and the reasoning is non-empty text.
type EvaluationResult struct {
	// Verdict is the three-way outcome.
	Verdict Verdict `json:"verdict"`

	// Reasoning is the judge's explanation for the verdict. Degraded
	// paths put a human-readable failure description here so no result
	// ever lacks context.
	Reasoning string `json:"reasoning"`
}

// Validate coerces a result into well-formed shape. An unknown verdict
// becomes inconclusive with an explanatory prefix on the reasoning, and
// blank reasoning is replaced with a fixed placeholder. The returned
// result always satisfies IsValid with non-empty reasoning.
func (r EvaluationResult) Validate() EvaluationResult {
	if !r.Verdict.IsValid() {
		r.Reasoning = "Invalid verdict \"" + string(r.Verdict) + "\" replaced with inconclusive. " + r.Reasoning
		r.Verdict = VerdictInconclusive
	}
	if strings.TrimSpace(r.Reasoning) == "" {
		r.Reasoning = "No reasoning was provided by the judge."
	}
	return r
}

// Evaluation is the persisted record of one completed task.
// Exactly one row exists per EvaluationTask, including tasks whose
// verdict is inconclusive due to an upstream failure.
type Evaluation struct {
	// ID uniquely identifies this evaluation row.
	ID string `json:"id"`

	// AnswerID links the evaluation to the answer that was judged.
	AnswerID string `json:"answer_id"`

	// JudgeID links the evaluation to the judge that produced it.
	JudgeID string `json:"judge_id"`

	// Result holds the validated verdict and reasoning.
	Result EvaluationResult `json:"result"`

	// CreatedAt records when the row was written.
	CreatedAt time.Time `json:"created_at"`
}

// TaskError pairs a task with the storage error that prevented its
// evaluation row from being written. Only storage failures appear here;
// evaluation failures are absorbed into inconclusive results.
type TaskError struct {
	// Task identifies the unit of work that failed.
	Task EvaluationTask `json:"task"`

	// Err is the underlying failure.
	Err error `json:"-"`
}

// EvaluationSummary aggregates a full batch run.
// Completed plus Failed always equals Total.
type EvaluationSummary struct {
	// Total is the number of tasks the queue expanded into.
	Total int `json:"total"`

	// Completed counts tasks whose evaluation row was persisted,
	// regardless of the verdict inside it.
	Completed int `json:"completed"`

	// Failed counts tasks whose row could not be written.
	Failed int `json:"failed"`

	// Errors lists the per-task storage failures.
	Errors []TaskError `json:"errors,omitempty"`
}
