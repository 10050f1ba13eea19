package repository_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"codecheck/internal/common/mq"
	"codecheck/internal/validation/model"
	"codecheck/internal/validation/repository"
	appErr "codecheck/pkg/errors"
)

type fakeProducer struct {
	topic    string
	messages []*mq.Message
	err      error
}

func (f *fakeProducer) Publish(ctx context.Context, topic string, message *mq.Message) error {
	f.topic = topic
	f.messages = append(f.messages, message)
	return f.err
}

func (f *fakeProducer) PublishBatch(ctx context.Context, topic string, messages []*mq.Message) error {
	f.topic = topic
	f.messages = append(f.messages, messages...)
	return f.err
}

func (f *fakeProducer) Ping(ctx context.Context) error { return nil }
func (f *fakeProducer) Close() error                   { return nil }

func sampleVerdict() model.BatchVerdict {
	return model.NewBatchVerdict([]model.ValidationResult{
		model.Pass(model.TestCaseSpec{Kind: model.KindOutputExact}, "ok"),
		model.Fail(model.TestCaseSpec{Kind: model.KindStructure}, "missing loop"),
	})
}

func TestPublishVerdictSendsKeyedEvent(t *testing.T) {
	t.Parallel()
	producer := &fakeProducer{}
	pub := repository.NewMQVerdictEventPublisher(producer, "validation.verdict")

	event := repository.NewVerdictEvent("batch-1", 71, sampleVerdict())
	if err := pub.PublishVerdict(context.Background(), event); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if producer.topic != "validation.verdict" {
		t.Fatalf("unexpected topic: %q", producer.topic)
	}
	if len(producer.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(producer.messages))
	}
	if producer.messages[0].ID != "batch-1" {
		t.Fatalf("message id must be the batch id, got %q", producer.messages[0].ID)
	}

	var decoded repository.VerdictEvent
	if err := json.Unmarshal(producer.messages[0].Body, &decoded); err != nil {
		t.Fatalf("decode event failed: %v", err)
	}
	if decoded.Total != 2 || decoded.Passed != 1 || decoded.AllPassed {
		t.Fatalf("unexpected summary: %+v", decoded)
	}
	if decoded.Results[1].Kind != model.KindStructure || decoded.Results[1].Passed {
		t.Fatalf("unexpected entry: %+v", decoded.Results[1])
	}
}

func TestPublishVerdictRequiresBatchID(t *testing.T) {
	t.Parallel()
	pub := repository.NewMQVerdictEventPublisher(&fakeProducer{}, "validation.verdict")

	err := pub.PublishVerdict(context.Background(), repository.VerdictEvent{})
	if !appErr.Is(err, appErr.InvalidParams) {
		t.Fatalf("expected invalid params, got %v", err)
	}
}

func TestPublishVerdictWrapsBrokerFailure(t *testing.T) {
	t.Parallel()
	producer := &fakeProducer{err: errors.New("broker down")}
	pub := repository.NewMQVerdictEventPublisher(producer, "validation.verdict")

	event := repository.NewVerdictEvent("batch-2", 71, sampleVerdict())
	err := pub.PublishVerdict(context.Background(), event)
	if !appErr.Is(err, appErr.PublishFailed) {
		t.Fatalf("expected publish failed code, got %v", err)
	}
}
