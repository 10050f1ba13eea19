package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"codecheck/internal/common/storage"
	"codecheck/internal/execution"
	"codecheck/internal/validation"
	"codecheck/internal/validation/model"
	"codecheck/internal/validation/repository"
	"codecheck/internal/validation/service"
	appErr "codecheck/pkg/errors"

	"github.com/klauspost/compress/zstd"
)

type echoRunner struct {
	stdout string
	runs   int
}

func (r *echoRunner) Run(ctx context.Context, sub execution.Submission) (execution.Outcome, error) {
	r.runs++
	return execution.Outcome{StatusID: execution.StatusAccepted, Stdout: r.stdout}, nil
}

type fakeStorage struct {
	objects map[string]string
	puts    map[string][]byte
	getErr  error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string]string{}, puts: map[string][]byte{}}
}

func (f *fakeStorage) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	content, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (f *fakeStorage) PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.puts[bucket+"/"+key] = data
	return nil
}

func (f *fakeStorage) StatObject(ctx context.Context, bucket, key string) (storage.ObjectStat, error) {
	content, ok := f.objects[bucket+"/"+key]
	if !ok {
		return storage.ObjectStat{}, errors.New("object not found")
	}
	return storage.ObjectStat{SizeBytes: int64(len(content))}, nil
}

type capturePublisher struct {
	events []repository.VerdictEvent
	err    error
}

func (c *capturePublisher) PublishVerdict(ctx context.Context, event repository.VerdictEvent) error {
	c.events = append(c.events, event)
	return c.err
}

func newService(t *testing.T, runner execution.Runner, cfg service.Config) *service.ValidationService {
	t.Helper()
	cfg.Runner = runner
	cfg.Orchestrator = validation.NewOrchestrator(validation.Config{Runner: runner})
	svc, err := service.NewValidationService(cfg)
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}
	return svc
}

func passSpecs() []model.TestCaseSpec {
	return []model.TestCaseSpec{{Kind: model.KindOutputExact, ExpectedOutput: "hello"}}
}

func TestValidateInlineSource(t *testing.T) {
	t.Parallel()
	runner := &echoRunner{stdout: "hello\n"}
	svc := newService(t, runner, service.Config{})

	out, err := svc.Validate(context.Background(), service.ValidateInput{
		SourceCode: "print('hello')",
		LanguageID: 71,
		Specs:      passSpecs(),
	})
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if out.BatchID == "" {
		t.Fatalf("expected a batch id")
	}
	if !out.Verdict.AllPassed {
		t.Fatalf("expected all passed: %+v", out.Verdict.Results)
	}
}

func TestValidateRequiresSource(t *testing.T) {
	t.Parallel()
	svc := newService(t, &echoRunner{}, service.Config{})

	_, err := svc.Validate(context.Background(), service.ValidateInput{LanguageID: 71, Specs: passSpecs()})
	if !appErr.Is(err, appErr.InvalidParams) {
		t.Fatalf("expected invalid params, got %v", err)
	}
}

func TestValidateRejectsOversizedSource(t *testing.T) {
	t.Parallel()
	svc := newService(t, &echoRunner{}, service.Config{MaxSourceBytes: 16})

	_, err := svc.Validate(context.Background(), service.ValidateInput{
		SourceCode: strings.Repeat("x", 17),
		LanguageID: 71,
		Specs:      passSpecs(),
	})
	if !appErr.Is(err, appErr.SourceTooLarge) {
		t.Fatalf("expected source too large, got %v", err)
	}
}

func TestValidateFetchesSourceByKey(t *testing.T) {
	t.Parallel()
	store := newFakeStorage()
	store.objects["sources/sub-1.py"] = "print('hello')"
	runner := &echoRunner{stdout: "hello\n"}
	svc := newService(t, runner, service.Config{Storage: store, SourceBucket: "sources"})

	out, err := svc.Validate(context.Background(), service.ValidateInput{
		SourceKey:  "sub-1.py",
		LanguageID: 71,
		Specs:      passSpecs(),
	})
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !out.Verdict.AllPassed {
		t.Fatalf("expected all passed")
	}
	if runner.runs != 1 {
		t.Fatalf("expected one run, got %d", runner.runs)
	}
}

func TestValidateMissingObjectIsSourceNotFound(t *testing.T) {
	t.Parallel()
	svc := newService(t, &echoRunner{}, service.Config{Storage: newFakeStorage(), SourceBucket: "sources"})

	_, err := svc.Validate(context.Background(), service.ValidateInput{
		SourceKey:  "missing.py",
		LanguageID: 71,
		Specs:      passSpecs(),
	})
	if !appErr.Is(err, appErr.SourceNotFound) {
		t.Fatalf("expected source not found, got %v", err)
	}
}

func TestValidatePublishesVerdictEvent(t *testing.T) {
	t.Parallel()
	pub := &capturePublisher{}
	runner := &echoRunner{stdout: "hello\n"}
	svc := newService(t, runner, service.Config{Publisher: pub})

	out, err := svc.Validate(context.Background(), service.ValidateInput{
		SourceCode: "print('hello')",
		LanguageID: 71,
		Specs:      passSpecs(),
	})
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.events))
	}
	if pub.events[0].BatchID != out.BatchID {
		t.Fatalf("event batch id %q does not match output %q", pub.events[0].BatchID, out.BatchID)
	}
}

func TestValidatePublishFailureIsBestEffort(t *testing.T) {
	t.Parallel()
	pub := &capturePublisher{err: errors.New("broker down")}
	svc := newService(t, &echoRunner{stdout: "hello\n"}, service.Config{Publisher: pub})

	if _, err := svc.Validate(context.Background(), service.ValidateInput{
		SourceCode: "print('hello')",
		LanguageID: 71,
		Specs:      passSpecs(),
	}); err != nil {
		t.Fatalf("publish failure must not fail the caller: %v", err)
	}
}

func TestValidateArchivesCompressedRun(t *testing.T) {
	t.Parallel()
	store := newFakeStorage()
	svc := newService(t, &echoRunner{stdout: "hello\n"}, service.Config{
		Storage:       store,
		ArchiveBucket: "archive",
	})

	out, err := svc.Validate(context.Background(), service.ValidateInput{
		SourceCode: "print('hello')",
		LanguageID: 71,
		Specs:      passSpecs(),
	})
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if len(store.puts) != 1 {
		t.Fatalf("expected one archived object, got %d", len(store.puts))
	}
	for key, compressed := range store.puts {
		if !strings.Contains(key, out.BatchID) {
			t.Fatalf("archive key %q does not carry batch id", key)
		}
		dec, err := zstd.NewReader(bytes.NewReader(compressed))
		if err != nil {
			t.Fatalf("archive is not zstd: %v", err)
		}
		payload, err := io.ReadAll(dec)
		dec.Close()
		if err != nil {
			t.Fatalf("decompress archive failed: %v", err)
		}
		var archived struct {
			BatchID    string `json:"batch_id"`
			SourceCode string `json:"source_code"`
		}
		if err := json.Unmarshal(payload, &archived); err != nil {
			t.Fatalf("archive payload is not json: %v", err)
		}
		if archived.BatchID != out.BatchID || archived.SourceCode != "print('hello')" {
			t.Fatalf("unexpected archive contents: %+v", archived)
		}
	}
}

func TestRunOnceEnforcesSizeCap(t *testing.T) {
	t.Parallel()
	svc := newService(t, &echoRunner{stdout: "ok\n"}, service.Config{MaxSourceBytes: 8})

	if _, err := svc.RunOnce(context.Background(), strings.Repeat("y", 9), 71, ""); !appErr.Is(err, appErr.SourceTooLarge) {
		t.Fatalf("expected source too large, got %v", err)
	}
	outcome, err := svc.RunOnce(context.Background(), "p", 71, "")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if outcome.Stdout != "ok\n" {
		t.Fatalf("unexpected stdout: %q", outcome.Stdout)
	}
}
