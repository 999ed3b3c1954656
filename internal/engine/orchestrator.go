package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"

	"github.com/ahrav/go-verdict/internal/domain"
	"github.com/ahrav/go-verdict/internal/ports"
)

// Orchestrator expands a queue into (answer, judge) tasks, fans them
// out grouped by provider under per-provider concurrency limits, and
// persists one evaluation row per task. A single task's failure never
// aborts siblings; the batch always completes and returns a summary.
type Orchestrator struct {
	store    ports.EvaluationStore
	executor *Executor
	config   Config
}

// NewOrchestrator creates an orchestrator over the given store and
// executor. The configuration is validated once here.
func NewOrchestrator(store ports.EvaluationStore, executor *Executor, config Config) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("evaluation store cannot be nil")
	}
	if executor == nil {
		return nil, fmt.Errorf("executor cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{store: store, executor: executor, config: config}, nil
}

// RunEvaluations runs every (answer, active judge) pair in the queue to
// completion and aggregates a summary. Failures before any task exists
// (queue, attachment, or assignment lookups) propagate as errors; once
// tasks are built, every per-task failure is captured in the summary
// instead. Completed plus failed always equals total.
func (o *Orchestrator) RunEvaluations(ctx context.Context, queueID string) (domain.EvaluationSummary, error) {
	log := clog.FromContext(ctx).With("queue_id", queueID)

	answers, err := o.store.AnswersInQueue(ctx, queueID)
	if err != nil {
		return domain.EvaluationSummary{}, fmt.Errorf("failed to load answers for queue %q: %w", queueID, err)
	}
	if len(answers) == 0 {
		log.Info("queue has no answers, nothing to evaluate")
		return domain.EvaluationSummary{}, nil
	}

	answerIDs := make([]string, 0, len(answers))
	answersByID := make(map[string]domain.QueueAnswer, len(answers))
	for _, answer := range answers {
		answerIDs = append(answerIDs, answer.AnswerID)
		answersByID[answer.AnswerID] = answer
	}

	attachments, err := o.store.Attachments(ctx, answerIDs)
	if err != nil {
		return domain.EvaluationSummary{}, fmt.Errorf("failed to load attachments for queue %q: %w", queueID, err)
	}
	attachmentsByAnswer := make(map[string][]domain.Attachment)
	for _, att := range attachments {
		attachmentsByAnswer[att.AnswerID] = append(attachmentsByAnswer[att.AnswerID], att)
	}

	assignments, err := o.store.ActiveJudgeAssignments(ctx, answerIDs)
	if err != nil {
		return domain.EvaluationSummary{}, fmt.Errorf("failed to load judge assignments for queue %q: %w", queueID, err)
	}
	if len(assignments) == 0 {
		log.Info("queue has no active judge assignments, nothing to evaluate")
		return domain.EvaluationSummary{}, nil
	}

	tasks := o.buildTasks(ctx, assignments, answersByID)
	groups := groupByProvider(tasks)
	log.Info("expanded queue into evaluation tasks",
		"tasks", len(tasks), "provider_groups", len(groups))

	acc := &summaryAccumulator{summary: domain.EvaluationSummary{Total: len(tasks)}}

	// Provider groups run fully in parallel; within a group the limiter
	// admits tasks FIFO under the provider's concurrency ceiling.
	var groupWG sync.WaitGroup
	for provider, group := range groups {
		groupWG.Add(1)
		go func(provider string, group []domain.EvaluationTask) {
			defer groupWG.Done()
			o.runProviderGroup(ctx, provider, group, attachmentsByAnswer, acc)
		}(provider, group)
	}
	groupWG.Wait()

	summary := acc.snapshot()
	log.Info("evaluation run complete",
		"total", summary.Total, "completed", summary.Completed, "failed", summary.Failed)
	return summary, nil
}

// buildTasks creates one task per assignment. The judge is fetched
// fresh to learn its provider; judges whose lookup fails are routed to
// the conservative default limiter group and retried inside the slot
// rather than aborting the batch.
func (o *Orchestrator) buildTasks(
	ctx context.Context,
	assignments []domain.JudgeAssignment,
	answersByID map[string]domain.QueueAnswer,
) []domain.EvaluationTask {
	log := clog.FromContext(ctx)

	providerByJudge := make(map[string]string)
	tasks := make([]domain.EvaluationTask, 0, len(assignments))

	for _, assignment := range assignments {
		answer, ok := answersByID[assignment.AnswerID]
		if !ok {
			// An assignment pointing outside the queue's answer set is a
			// data inconsistency; skip rather than evaluate a phantom.
			log.Warn("assignment references answer outside queue, skipping",
				"answer_id", assignment.AnswerID, "judge_id", assignment.JudgeID)
			continue
		}

		provider, seen := providerByJudge[assignment.JudgeID]
		if !seen {
			judge, err := o.store.Judge(ctx, assignment.JudgeID)
			if err != nil {
				log.Warn("judge lookup failed during task grouping, routing to default group",
					"judge_id", assignment.JudgeID, "error", err)
			} else {
				provider = judge.Provider
			}
			providerByJudge[assignment.JudgeID] = provider
		}

		tasks = append(tasks, domain.EvaluationTask{
			Answer:   answer,
			JudgeID:  assignment.JudgeID,
			Provider: provider,
		})
	}

	return tasks
}

// runProviderGroup drives one provider's tasks through a fresh limiter.
// Tasks are admitted in submission order; a cancelled acquire accounts
// the task as failed so the summary still covers every task.
func (o *Orchestrator) runProviderGroup(
	ctx context.Context,
	provider string,
	tasks []domain.EvaluationTask,
	attachmentsByAnswer map[string][]domain.Attachment,
	acc *summaryAccumulator,
) {
	limiter := NewLimiter(o.config.limitFor(provider))

	var taskWG sync.WaitGroup
	for _, task := range tasks {
		if err := limiter.Acquire(ctx); err != nil {
			acc.recordFailure(task, fmt.Errorf("evaluation aborted before admission: %w", err))
			continue
		}

		taskWG.Add(1)
		go func(task domain.EvaluationTask) {
			defer taskWG.Done()
			defer limiter.Release()
			o.runTask(ctx, task, attachmentsByAnswer[task.Answer.AnswerID], acc)
		}(task)
	}
	taskWG.Wait()
}

// runTask executes one task inside its limiter slot and persists the
// evaluation row. The judge is fetched fresh here so prompt edits made
// since the run started still take effect.
func (o *Orchestrator) runTask(
	ctx context.Context,
	task domain.EvaluationTask,
	attachments []domain.Attachment,
	acc *summaryAccumulator,
) {
	evalCtx := domain.EvaluationContext{
		QuestionText: task.Answer.QuestionText,
		QuestionType: task.Answer.QuestionType,
		AnswerData:   task.Answer.AnswerValue,
		Attachments:  attachments,
	}

	var result domain.EvaluationResult
	judge, err := o.store.Judge(ctx, task.JudgeID)
	if err != nil {
		result = failureResult(fmt.Errorf("judge lookup failed: %w", err))
	} else {
		result = o.executor.ExecuteEvaluation(ctx, judge, evalCtx)
	}

	evaluation := domain.Evaluation{
		ID:        uuid.NewString(),
		AnswerID:  task.Answer.AnswerID,
		JudgeID:   task.JudgeID,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}

	if err := o.store.InsertEvaluation(ctx, evaluation); err != nil {
		clog.FromContext(ctx).Error("failed to persist evaluation",
			"answer_id", task.Answer.AnswerID, "judge_id", task.JudgeID, "error", err)
		acc.recordFailure(task, err)
		return
	}

	acc.recordCompleted()
}

// groupByProvider partitions tasks by their routing provider,
// preserving submission order within each group.
func groupByProvider(tasks []domain.EvaluationTask) map[string][]domain.EvaluationTask {
	groups := make(map[string][]domain.EvaluationTask)
	for _, task := range tasks {
		groups[task.Provider] = append(groups[task.Provider], task)
	}
	return groups
}

// summaryAccumulator collects per-task outcomes across concurrently
// running provider groups.
type summaryAccumulator struct {
	mu      sync.Mutex
	summary domain.EvaluationSummary
}

func (a *summaryAccumulator) recordCompleted() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary.Completed++
}

func (a *summaryAccumulator) recordFailure(task domain.EvaluationTask, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary.Failed++
	a.summary.Errors = append(a.summary.Errors, domain.TaskError{Task: task, Err: err})
}

func (a *summaryAccumulator) snapshot() domain.EvaluationSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.summary
}
