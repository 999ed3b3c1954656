// Package storage provides an in-memory EvaluationStore used by the
// CLI and the engine tests. The production data store is an external
// relational system; this implementation mirrors its contract closely
// enough to run the full pipeline end to end.
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/ahrav/go-verdict/internal/domain"
	"github.com/ahrav/go-verdict/internal/ports"
)

var _ ports.EvaluationStore = (*MemStore)(nil)

// MemStore is a mutex-guarded in-memory EvaluationStore. All reads
// return copies so callers cannot mutate shared state.
type MemStore struct {
	mu          sync.RWMutex
	queues      map[string][]string // queue ID -> answer IDs, insertion order
	answers     map[string]domain.QueueAnswer
	attachments map[string][]domain.Attachment // answer ID -> attachments
	judges      map[string]domain.Judge
	assignments []domain.JudgeAssignment
	evaluations map[string]domain.Evaluation
	insertErr   error
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		queues:      make(map[string][]string),
		answers:     make(map[string]domain.QueueAnswer),
		attachments: make(map[string][]domain.Attachment),
		judges:      make(map[string]domain.Judge),
		evaluations: make(map[string]domain.Evaluation),
	}
}

// AddAnswer places an answer into a queue.
func (s *MemStore) AddAnswer(queueID string, answer domain.QueueAnswer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[queueID] = append(s.queues[queueID], answer.AnswerID)
	s.answers[answer.AnswerID] = answer
}

// AddAttachment associates an attachment with its answer.
func (s *MemStore) AddAttachment(att domain.Attachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments[att.AnswerID] = append(s.attachments[att.AnswerID], att)
}

// AddJudge stores or replaces a judge.
func (s *MemStore) AddJudge(judge domain.Judge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.judges[judge.ID] = judge
}

// AssignJudge links an answer to a judge.
func (s *MemStore) AssignJudge(answerID, judgeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments = append(s.assignments, domain.JudgeAssignment{AnswerID: answerID, JudgeID: judgeID})
}

// SetInsertFailure makes every subsequent InsertEvaluation fail with
// the given error. Pass nil to restore normal behavior. Used to
// exercise the orchestrator's per-task storage failure handling.
func (s *MemStore) SetInsertFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertErr = err
}

// AnswersInQueue returns the queue's answers in insertion order.
func (s *MemStore) AnswersInQueue(_ context.Context, queueID string) ([]domain.QueueAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.queues[queueID]
	answers := make([]domain.QueueAnswer, 0, len(ids))
	for _, id := range ids {
		if answer, ok := s.answers[id]; ok {
			answers = append(answers, answer)
		}
	}
	return answers, nil
}

// Attachments returns attachments for the given answers in one batch.
func (s *MemStore) Attachments(_ context.Context, answerIDs []string) ([]domain.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Attachment
	for _, id := range answerIDs {
		out = append(out, s.attachments[id]...)
	}
	return out, nil
}

// ActiveJudgeAssignments returns assignments for the given answers,
// filtered to judges whose active flag is set.
func (s *MemStore) ActiveJudgeAssignments(_ context.Context, answerIDs []string) ([]domain.JudgeAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(answerIDs))
	for _, id := range answerIDs {
		wanted[id] = true
	}

	var out []domain.JudgeAssignment
	for _, assignment := range s.assignments {
		if !wanted[assignment.AnswerID] {
			continue
		}
		if judge, ok := s.judges[assignment.JudgeID]; ok && judge.Active {
			out = append(out, assignment)
		}
	}
	return out, nil
}

// Judge returns one judge by ID.
func (s *MemStore) Judge(_ context.Context, judgeID string) (domain.Judge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	judge, ok := s.judges[judgeID]
	if !ok {
		return domain.Judge{}, fmt.Errorf("judge %q: %w", judgeID, ports.ErrJudgeNotFound)
	}
	return judge, nil
}

// InsertEvaluation writes one evaluation row. Duplicate IDs are a
// constraint violation, reported as *ports.StorageError like every
// other insert failure.
func (s *MemStore) InsertEvaluation(_ context.Context, eval domain.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insertErr != nil {
		return ports.NewStorageError("insert_evaluation", eval.ID, s.insertErr)
	}
	if _, exists := s.evaluations[eval.ID]; exists {
		return ports.NewStorageError("insert_evaluation", eval.ID, fmt.Errorf("duplicate evaluation id"))
	}

	s.evaluations[eval.ID] = eval
	return nil
}

// Judges returns a copy of every stored judge.
func (s *MemStore) Judges() []domain.Judge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Judge, 0, len(s.judges))
	for _, judge := range s.judges {
		out = append(out, judge)
	}
	return out
}

// Evaluations returns a copy of every persisted evaluation row.
func (s *MemStore) Evaluations() []domain.Evaluation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Evaluation, 0, len(s.evaluations))
	for _, eval := range s.evaluations {
		out = append(out, eval)
	}
	return out
}
