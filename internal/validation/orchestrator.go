// Package validation coordinates test case evaluation for one submission.
package validation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"codecheck/internal/execution"
	"codecheck/internal/validation/model"
	"codecheck/internal/validation/strategy"
	appErr "codecheck/pkg/errors"
	"codecheck/pkg/utils/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Observer receives each verdict as it completes. Results may arrive out of
// spec order when workers > 1; index identifies the spec position.
type Observer func(index int, result model.ValidationResult)

// Config holds orchestrator settings.
type Config struct {
	Runner execution.Runner

	// Workers bounds concurrent test case evaluation. <=1 means sequential.
	Workers int

	// BatchTimeout bounds one whole Validate call. 0 disables the bound.
	BatchTimeout time.Duration

	// StrictRequirements fails unknown structure requirements closed.
	StrictRequirements bool

	Requirements *strategy.RequirementRegistry
	Validators   *strategy.ValidatorRegistry
}

// Orchestrator dispatches each test case spec to its strategy, isolates
// per-test failures so one bad spec cannot abort the batch, and aggregates the
// ordered verdict list.
type Orchestrator struct {
	registry     *strategy.Registry
	workers      int
	batchTimeout time.Duration
}

// NewOrchestrator builds an orchestrator with its own strategy registry.
func NewOrchestrator(cfg Config) *Orchestrator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Orchestrator{
		registry: strategy.NewRegistry(strategy.RegistryConfig{
			Runner:             cfg.Runner,
			StrictRequirements: cfg.StrictRequirements,
			Requirements:       cfg.Requirements,
			Validators:         cfg.Validators,
		}),
		workers:      workers,
		batchTimeout: cfg.BatchTimeout,
	}
}

// Validate evaluates all specs in order. The returned result list is always
// index-aligned with specs regardless of execution order. The error return is
// reserved for configuration failures, which abort the batch outright; every
// other failure mode lands in an individual ValidationResult.
func (o *Orchestrator) Validate(ctx context.Context, code string, languageID int, specs []model.TestCaseSpec) (model.BatchVerdict, error) {
	return o.ValidateWithObserver(ctx, code, languageID, specs, nil)
}

// ValidateWithObserver is Validate with a per-result callback, used by the
// streaming endpoint. Observer calls are serialized.
func (o *Orchestrator) ValidateWithObserver(ctx context.Context, code string, languageID int, specs []model.TestCaseSpec, observe Observer) (model.BatchVerdict, error) {
	if o.batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.batchTimeout)
		defer cancel()
	}

	start := time.Now()
	results := make([]model.ValidationResult, len(specs))

	var err error
	if o.workers <= 1 || len(specs) <= 1 {
		err = o.runSequential(ctx, code, languageID, specs, results, observe)
	} else {
		err = o.runConcurrent(ctx, code, languageID, specs, results, observe)
	}
	if err != nil {
		return model.BatchVerdict{}, err
	}

	verdict := model.NewBatchVerdict(results)
	logger.Info(ctx, "validation batch finished",
		zap.Int("tests", len(specs)),
		zap.Bool("all_passed", verdict.AllPassed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return verdict, nil
}

func (o *Orchestrator) runSequential(ctx context.Context, code string, languageID int, specs []model.TestCaseSpec, results []model.ValidationResult, observe Observer) error {
	for i, spec := range specs {
		result, err := o.evaluateOne(ctx, code, languageID, spec)
		if err != nil {
			return err
		}
		results[i] = result
		if observe != nil {
			observe(i, result)
		}
	}
	return nil
}

func (o *Orchestrator) runConcurrent(ctx context.Context, code string, languageID int, specs []model.TestCaseSpec, results []model.ValidationResult, observe Observer) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(o.workers)

	var observeMu sync.Mutex
	for i, spec := range specs {
		i, spec := i, spec
		group.Go(func() error {
			result, err := o.evaluateOne(ctx, code, languageID, spec)
			if err != nil {
				return err
			}
			results[i] = result
			if observe != nil {
				observeMu.Lock()
				observe(i, result)
				observeMu.Unlock()
			}
			return nil
		})
	}
	return group.Wait()
}

// evaluateOne dispatches a single spec. A panic inside a strategy degrades to
// a single failed result rather than aborting the remaining tests.
func (o *Orchestrator) evaluateOne(ctx context.Context, code string, languageID int, spec model.TestCaseSpec) (result model.ValidationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "validation strategy panicked",
				zap.String("kind", string(spec.Kind)),
				zap.Any("panic", r),
			)
			result = model.Fail(spec, fmt.Sprintf("%s execution error: internal failure", spec.Kind))
			err = nil
		}
	}()

	strat, ok := o.registry.Lookup(spec.Kind)
	if !ok {
		return model.Fail(spec, fmt.Sprintf("unsupported test case kind %q", spec.Kind)), nil
	}

	result, err = strat.Validate(ctx, code, languageID, spec)
	if err != nil {
		if appErr.GetCode(err).IsConfiguration() {
			return model.ValidationResult{}, err
		}
		// Strategies fold their own failures; an unexpected error here is a
		// strategy bug and degrades to a failed result.
		return model.Fail(spec, fmt.Sprintf("%s execution error: %v", spec.Kind, err)), nil
	}
	return result, nil
}
