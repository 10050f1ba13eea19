package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"codecheck/internal/common/storage"
	"codecheck/internal/execution"
	"codecheck/internal/validation"
	"codecheck/internal/validation/model"
	"codecheck/internal/validation/repository"
	appErr "codecheck/pkg/errors"
	"codecheck/pkg/utils/contextkey"
	"codecheck/pkg/utils/logger"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

const defaultMaxSourceBytes = 128 << 10

// Config holds service dependencies and settings. Storage and publisher are
// optional collaborators; the validation core works without them.
type Config struct {
	Orchestrator   *validation.Orchestrator
	Runner         execution.Runner
	Storage        storage.ObjectStorage
	Publisher      repository.VerdictEventPublisher
	SourceBucket   string
	ArchiveBucket  string
	MaxSourceBytes int64
	StorageTimeout time.Duration
}

// ValidationService is the caller-facing surface: validate a submission
// against its test cases, or run code raw and return the outcome.
type ValidationService struct {
	orchestrator   *validation.Orchestrator
	runner         execution.Runner
	storage        storage.ObjectStorage
	publisher      repository.VerdictEventPublisher
	sourceBucket   string
	archiveBucket  string
	maxSourceBytes int64
	storageTimeout time.Duration
}

// NewValidationService creates the service.
func NewValidationService(cfg Config) (*ValidationService, error) {
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	maxBytes := cfg.MaxSourceBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxSourceBytes
	}
	storageTimeout := cfg.StorageTimeout
	if storageTimeout <= 0 {
		storageTimeout = 10 * time.Second
	}
	return &ValidationService{
		orchestrator:   cfg.Orchestrator,
		runner:         cfg.Runner,
		storage:        cfg.Storage,
		publisher:      cfg.Publisher,
		sourceBucket:   cfg.SourceBucket,
		archiveBucket:  cfg.ArchiveBucket,
		maxSourceBytes: maxBytes,
		storageTimeout: storageTimeout,
	}, nil
}

// ValidateInput carries one validation request. Either SourceCode is inline or
// SourceKey references an object in the source bucket.
type ValidateInput struct {
	SourceCode string
	SourceKey  string
	LanguageID int
	Specs      []model.TestCaseSpec
}

// ValidateOutput carries the batch id and verdict.
type ValidateOutput struct {
	BatchID string             `json:"batch_id"`
	Verdict model.BatchVerdict `json:"verdict"`
}

// Validate resolves the source, evaluates every test case in order, publishes
// the verdict event, and archives the run.
func (s *ValidationService) Validate(ctx context.Context, input ValidateInput) (ValidateOutput, error) {
	return s.ValidateWithObserver(ctx, input, nil)
}

// ValidateWithObserver is Validate with a per-result callback for streaming
// callers.
func (s *ValidationService) ValidateWithObserver(ctx context.Context, input ValidateInput, observe validation.Observer) (ValidateOutput, error) {
	batchID := uuid.NewString()
	ctx = context.WithValue(ctx, contextkey.BatchID, batchID)

	code, err := s.resolveSource(ctx, input)
	if err != nil {
		return ValidateOutput{}, err
	}

	verdict, err := s.orchestrator.ValidateWithObserver(ctx, code, input.LanguageID, input.Specs, observe)
	if err != nil {
		return ValidateOutput{}, err
	}

	s.publishVerdict(ctx, batchID, input.LanguageID, verdict)
	s.archiveRun(ctx, batchID, code, verdict)

	return ValidateOutput{BatchID: batchID, Verdict: verdict}, nil
}

// RunOnce executes code without judging, for run-and-show-stdout flows.
func (s *ValidationService) RunOnce(ctx context.Context, code string, languageID int, stdin string) (execution.Outcome, error) {
	if int64(len(code)) > s.maxSourceBytes {
		return execution.Outcome{}, appErr.New(appErr.SourceTooLarge)
	}
	return s.runner.Run(ctx, execution.Submission{
		SourceCode: code,
		LanguageID: languageID,
		Stdin:      stdin,
	})
}

// resolveSource returns the inline source or fetches it by key.
func (s *ValidationService) resolveSource(ctx context.Context, input ValidateInput) (string, error) {
	if input.SourceCode != "" {
		if int64(len(input.SourceCode)) > s.maxSourceBytes {
			return "", appErr.New(appErr.SourceTooLarge)
		}
		return input.SourceCode, nil
	}
	if input.SourceKey == "" {
		return "", appErr.BadRequest("source_code or source_key is required")
	}
	if s.storage == nil {
		return "", appErr.New(appErr.StorageError).WithMessage("source storage is not configured")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	reader, err := s.storage.GetObject(fetchCtx, s.sourceBucket, input.SourceKey)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.SourceNotFound, "fetch source %q failed", input.SourceKey)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(io.LimitReader(reader, s.maxSourceBytes+1))
	if err != nil {
		return "", appErr.Wrap(err, appErr.StorageError)
	}
	if int64(len(data)) > s.maxSourceBytes {
		return "", appErr.New(appErr.SourceTooLarge)
	}
	return string(data), nil
}

// publishVerdict is best effort: a broken broker must not fail the caller.
func (s *ValidationService) publishVerdict(ctx context.Context, batchID string, languageID int, verdict model.BatchVerdict) {
	if s.publisher == nil {
		return
	}
	event := repository.NewVerdictEvent(batchID, languageID, verdict)
	if err := s.publisher.PublishVerdict(ctx, event); err != nil {
		logger.Warn(ctx, "verdict event publish failed", zap.Error(err))
	}
}

// archivedRun is the stored shape of one completed validation run.
type archivedRun struct {
	BatchID    string             `json:"batch_id"`
	SourceCode string             `json:"source_code"`
	Verdict    model.BatchVerdict `json:"verdict"`
	ArchivedAt int64              `json:"archived_at"`
}

// archiveRun stores the run zstd-compressed in the archive bucket, when one is
// configured. Best effort.
func (s *ValidationService) archiveRun(ctx context.Context, batchID, code string, verdict model.BatchVerdict) {
	if s.storage == nil || s.archiveBucket == "" {
		return
	}

	payload, err := json.Marshal(archivedRun{
		BatchID:    batchID,
		SourceCode: code,
		Verdict:    verdict,
		ArchivedAt: time.Now().Unix(),
	})
	if err != nil {
		return
	}

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return
	}
	if _, err := enc.Write(payload); err != nil {
		_ = enc.Close()
		return
	}
	if err := enc.Close(); err != nil {
		return
	}

	putCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	key := fmt.Sprintf("runs/%s/%s.json.zst", time.Now().UTC().Format("2006-01-02"), batchID)
	if err := s.storage.PutObject(putCtx, s.archiveBucket, key, &buf, int64(buf.Len()), "application/zstd"); err != nil {
		logger.Warn(ctx, "archive run failed", zap.String("key", key), zap.Error(err))
	}
}
