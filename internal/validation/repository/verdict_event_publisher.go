package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"codecheck/internal/common/mq"
	"codecheck/internal/validation/model"
	appErr "codecheck/pkg/errors"
)

// VerdictEvent is the final-verdict record published for downstream
// progress/achievement consumers.
type VerdictEvent struct {
	BatchID    string              `json:"batch_id"`
	LanguageID int                 `json:"language_id"`
	AllPassed  bool                `json:"all_passed"`
	Total      int                 `json:"total"`
	Passed     int                 `json:"passed"`
	Results    []VerdictEventEntry `json:"results"`
	CreatedAt  int64               `json:"created_at"`
}

// VerdictEventEntry summarizes one test case verdict.
type VerdictEventEntry struct {
	Index  int        `json:"index"`
	Kind   model.Kind `json:"kind"`
	Passed bool       `json:"passed"`
}

// VerdictEventPublisher publishes verdict events for async processing.
type VerdictEventPublisher interface {
	PublishVerdict(ctx context.Context, event VerdictEvent) error
}

// MQVerdictEventPublisher publishes verdict events to a message queue.
type MQVerdictEventPublisher struct {
	producer mq.Producer
	topic    string
}

// NewMQVerdictEventPublisher creates a new MQ verdict event publisher.
func NewMQVerdictEventPublisher(producer mq.Producer, topic string) *MQVerdictEventPublisher {
	return &MQVerdictEventPublisher{producer: producer, topic: topic}
}

// PublishVerdict publishes a final verdict event.
func (p *MQVerdictEventPublisher) PublishVerdict(ctx context.Context, event VerdictEvent) error {
	if p == nil || p.producer == nil {
		return appErr.New(appErr.ServiceUnavailable).WithMessage("verdict publisher is not configured")
	}
	if p.topic == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("verdict topic is required")
	}
	if event.BatchID == "" {
		return appErr.BadRequest("batch id is required")
	}
	if event.CreatedAt == 0 {
		event.CreatedAt = time.Now().Unix()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal verdict event failed: %w", err)
	}
	message := mq.NewMessage(payload)
	message.ID = event.BatchID
	if err := p.producer.Publish(ctx, p.topic, message); err != nil {
		return appErr.Wrapf(err, appErr.PublishFailed, "publish verdict event failed")
	}
	return nil
}

// NewVerdictEvent builds an event from a batch verdict.
func NewVerdictEvent(batchID string, languageID int, verdict model.BatchVerdict) VerdictEvent {
	entries := make([]VerdictEventEntry, len(verdict.Results))
	passed := 0
	for i, r := range verdict.Results {
		entries[i] = VerdictEventEntry{Index: i, Kind: r.Spec.Kind, Passed: r.Passed}
		if r.Passed {
			passed++
		}
	}
	return VerdictEvent{
		BatchID:    batchID,
		LanguageID: languageID,
		AllPassed:  verdict.AllPassed,
		Total:      len(verdict.Results),
		Passed:     passed,
		Results:    entries,
		CreatedAt:  time.Now().Unix(),
	}
}
