package storage

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-verdict/internal/domain"
)

// Fixture is the YAML shape consumed by LoadFixture. It describes a
// complete evaluation scenario: judges, queued answers with optional
// attachments, and the judge assignments linking them.
type Fixture struct {
	QueueID string          `yaml:"queue_id"`
	Judges  []FixtureJudge  `yaml:"judges"`
	Answers []FixtureAnswer `yaml:"answers"`
}

// FixtureJudge declares one judge.
type FixtureJudge struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	Prompt   string `yaml:"prompt"`
	Active   *bool  `yaml:"active"` // defaults to true when omitted
}

// FixtureAnswer declares one queued answer, its attachments, and the
// judges assigned to it.
type FixtureAnswer struct {
	ID                 string              `yaml:"id"`
	QuestionTemplateID string              `yaml:"question_template_id"`
	QuestionText       string              `yaml:"question_text"`
	QuestionType       string              `yaml:"question_type"`
	AnswerValue        any                 `yaml:"answer_value"`
	Attachments        []FixtureAttachment `yaml:"attachments"`
	JudgeIDs           []string            `yaml:"judge_ids"`
}

// FixtureAttachment declares one attachment on an answer.
type FixtureAttachment struct {
	ID   string `yaml:"id"`
	URL  string `yaml:"url"`
	Type string `yaml:"type"`
}

// LoadFixture reads a YAML fixture file and materializes it into a
// fresh MemStore. It returns the store and the fixture's queue ID.
func LoadFixture(path string) (*MemStore, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read fixture %q: %w", path, err)
	}

	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, "", fmt.Errorf("failed to parse fixture %q: %w", path, err)
	}
	if fixture.QueueID == "" {
		return nil, "", fmt.Errorf("fixture %q has no queue_id", path)
	}

	store := NewMemStore()
	now := time.Now().UTC()

	for _, judge := range fixture.Judges {
		active := true
		if judge.Active != nil {
			active = *judge.Active
		}
		store.AddJudge(domain.Judge{
			ID:       judge.ID,
			Name:     judge.Name,
			Provider: judge.Provider,
			Model:    judge.Model,
			Prompt:   judge.Prompt,
			Active:   active,
		})
	}

	for _, answer := range fixture.Answers {
		store.AddAnswer(fixture.QueueID, domain.QueueAnswer{
			AnswerID:           answer.ID,
			QuestionTemplateID: answer.QuestionTemplateID,
			QuestionText:       answer.QuestionText,
			QuestionType:       answer.QuestionType,
			AnswerValue:        answer.AnswerValue,
		})
		for _, att := range answer.Attachments {
			store.AddAttachment(domain.Attachment{
				ID:        att.ID,
				AnswerID:  answer.ID,
				URL:       att.URL,
				Type:      att.Type,
				CreatedAt: now,
			})
		}
		for _, judgeID := range answer.JudgeIDs {
			store.AssignJudge(answer.ID, judgeID)
		}
	}

	return store, fixture.QueueID, nil
}
