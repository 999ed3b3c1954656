package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-verdict/internal/domain"
	"github.com/ahrav/go-verdict/internal/ports"
)

func TestMemStore_AnswersInQueue_PreservesInsertionOrder(t *testing.T) {
	store := NewMemStore()
	store.AddAnswer("queue-1", domain.QueueAnswer{AnswerID: "a"})
	store.AddAnswer("queue-1", domain.QueueAnswer{AnswerID: "b"})
	store.AddAnswer("queue-2", domain.QueueAnswer{AnswerID: "c"})

	answers, err := store.AnswersInQueue(context.Background(), "queue-1")
	require.NoError(t, err, "lookup should succeed")

	require.Len(t, answers, 2, "only queue-1 answers should be returned")
	assert.Equal(t, "a", answers[0].AnswerID, "insertion order should be preserved")
	assert.Equal(t, "b", answers[1].AnswerID, "insertion order should be preserved")

	empty, err := store.AnswersInQueue(context.Background(), "missing")
	require.NoError(t, err, "unknown queue is not an error")
	assert.Empty(t, empty, "unknown queue should have no answers")
}

func TestMemStore_Attachments_BatchLookup(t *testing.T) {
	store := NewMemStore()
	store.AddAttachment(domain.Attachment{ID: "att-1", AnswerID: "a", URL: "u1"})
	store.AddAttachment(domain.Attachment{ID: "att-2", AnswerID: "a", URL: "u2"})
	store.AddAttachment(domain.Attachment{ID: "att-3", AnswerID: "b", URL: "u3"})

	attachments, err := store.Attachments(context.Background(), []string{"a", "c"})
	require.NoError(t, err, "lookup should succeed")

	require.Len(t, attachments, 2, "only requested answers' attachments should be returned")
	assert.Equal(t, "att-1", attachments[0].ID, "attachment order should follow the request")
}

func TestMemStore_ActiveJudgeAssignments_FiltersInactiveJudges(t *testing.T) {
	store := NewMemStore()
	store.AddJudge(domain.Judge{ID: "active", Active: true})
	store.AddJudge(domain.Judge{ID: "retired", Active: false})
	store.AssignJudge("a", "active")
	store.AssignJudge("a", "retired")
	store.AssignJudge("b", "active")

	assignments, err := store.ActiveJudgeAssignments(context.Background(), []string{"a"})
	require.NoError(t, err, "lookup should succeed")

	require.Len(t, assignments, 1, "inactive judges and other answers should be filtered")
	assert.Equal(t, "active", assignments[0].JudgeID, "only the active judge should remain")
}

func TestMemStore_Judge_NotFound(t *testing.T) {
	store := NewMemStore()

	_, err := store.Judge(context.Background(), "missing")

	assert.ErrorIs(t, err, ports.ErrJudgeNotFound, "missing judge should yield the sentinel")
}

func TestMemStore_InsertEvaluation(t *testing.T) {
	store := NewMemStore()
	eval := domain.Evaluation{
		ID:       "eval-1",
		AnswerID: "a",
		JudgeID:  "j",
		Result:   domain.EvaluationResult{Verdict: domain.VerdictPass, Reasoning: "ok"},
	}

	require.NoError(t, store.InsertEvaluation(context.Background(), eval), "first insert should succeed")

	err := store.InsertEvaluation(context.Background(), eval)
	var storageErr *ports.StorageError
	require.ErrorAs(t, err, &storageErr, "duplicate insert should be a StorageError")
	assert.Equal(t, "eval-1", storageErr.Key, "error should name the conflicting row")

	assert.Len(t, store.Evaluations(), 1, "only one row should exist")
}

func TestMemStore_SetInsertFailure(t *testing.T) {
	store := NewMemStore()
	store.SetInsertFailure(errors.New("connection lost"))

	err := store.InsertEvaluation(context.Background(), domain.Evaluation{ID: "eval-1"})

	var storageErr *ports.StorageError
	require.ErrorAs(t, err, &storageErr, "injected failure should surface as StorageError")
	assert.Empty(t, store.Evaluations(), "failed insert must not write a row")

	store.SetInsertFailure(nil)
	assert.NoError(t, store.InsertEvaluation(context.Background(), domain.Evaluation{ID: "eval-1"}),
		"clearing the injection should restore inserts")
}

func TestLoadFixture(t *testing.T) {
	fixture := `
queue_id: queue-1
judges:
  - id: judge-1
    name: Accuracy Judge
    provider: openai
    model: gpt-4o-mini
    prompt: Check factual accuracy.
  - id: judge-2
    name: Retired Judge
    provider: anthropic
    model: claude-3-5-sonnet-20241022
    prompt: Old criteria.
    active: false
answers:
  - id: answer-1
    question_text: Explain photosynthesis.
    question_type: free_text
    answer_value: Plants convert light into energy.
    attachments:
      - id: att-1
        url: https://files.example/leaf.png
        type: image/png
    judge_ids: [judge-1, judge-2]
  - id: answer-2
    question_text: Name three primary colors.
    question_type: multiple_choice
    answer_value: [red, blue, yellow]
    judge_ids: [judge-1]
`
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600), "failed to write fixture file")

	store, queueID, err := LoadFixture(path)
	require.NoError(t, err, "fixture should load")
	assert.Equal(t, "queue-1", queueID, "queue ID should come from the fixture")

	ctx := context.Background()

	answers, err := store.AnswersInQueue(ctx, "queue-1")
	require.NoError(t, err, "answer lookup should succeed")
	require.Len(t, answers, 2, "both answers should be queued")
	assert.Equal(t, "answer-1", answers[0].AnswerID, "fixture order should be preserved")

	judge, err := store.Judge(ctx, "judge-1")
	require.NoError(t, err, "judge lookup should succeed")
	assert.True(t, judge.Active, "omitted active flag should default to true")

	retired, err := store.Judge(ctx, "judge-2")
	require.NoError(t, err, "judge lookup should succeed")
	assert.False(t, retired.Active, "explicit active false should be honored")

	assignments, err := store.ActiveJudgeAssignments(ctx, []string{"answer-1", "answer-2"})
	require.NoError(t, err, "assignment lookup should succeed")
	assert.Len(t, assignments, 2, "retired judge assignments should be filtered out")

	attachments, err := store.Attachments(ctx, []string{"answer-1"})
	require.NoError(t, err, "attachment lookup should succeed")
	require.Len(t, attachments, 1, "attachment should be linked to its answer")
	assert.Equal(t, "answer-1", attachments[0].AnswerID, "attachment should carry the answer ID")
	assert.True(t, attachments[0].IsImage(), "media type should round-trip")
	assert.False(t, attachments[0].CreatedAt.IsZero(), "attachment should get a load timestamp")
	assert.WithinDuration(t, time.Now().UTC(), attachments[0].CreatedAt, time.Minute,
		"timestamp should be recent")
}

func TestLoadFixture_Errors(t *testing.T) {
	_, _, err := LoadFixture(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err, "missing file should fail")

	badPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte(":\tnot yaml"), 0o600), "failed to write file")
	_, _, err = LoadFixture(badPath)
	assert.Error(t, err, "malformed YAML should fail")

	noQueuePath := filepath.Join(t.TempDir(), "noqueue.yaml")
	require.NoError(t, os.WriteFile(noQueuePath, []byte("judges: []"), 0o600), "failed to write file")
	_, _, err = LoadFixture(noQueuePath)
	assert.Error(t, err, "fixture without a queue_id should fail")
}
