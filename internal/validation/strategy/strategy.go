// Package strategy implements one validation algorithm per test case kind.
//
// A strategy converts everything that can go wrong while computing its
// verdict (judged execution failures, malformed patterns, its own bugs) into
// a failed ValidationResult. The only error a strategy may return is a
// configuration error, because nothing can be judged without a working judge
// client and the whole batch must abort.
package strategy

import (
	"context"

	"codecheck/internal/execution"
	"codecheck/internal/validation/model"
	appErr "codecheck/pkg/errors"
)

// Strategy judges a single test case spec against the submitted source.
type Strategy interface {
	Validate(ctx context.Context, code string, languageID int, spec model.TestCaseSpec) (model.ValidationResult, error)
}

// Registry maps each spec kind to its strategy. Constructed per orchestrator,
// not a package-level singleton, so different configurations (e.g. strict
// requirement handling) can coexist.
type Registry struct {
	strategies map[model.Kind]Strategy
}

// RegistryConfig holds registry construction settings.
type RegistryConfig struct {
	Runner execution.Runner

	// StrictRequirements fails structure checks with unknown requirement ids
	// instead of passing them through. Lenient by default so an unrecognized
	// requirement never blocks a learner.
	StrictRequirements bool

	// Requirements overrides the default structure requirement set when non-nil.
	Requirements *RequirementRegistry

	// Validators overrides the default custom validator set when non-nil.
	Validators *ValidatorRegistry
}

// NewRegistry builds the full strategy family.
func NewRegistry(cfg RegistryConfig) *Registry {
	requirements := cfg.Requirements
	if requirements == nil {
		requirements = DefaultRequirements()
	}
	validators := cfg.Validators
	if validators == nil {
		validators = DefaultValidators()
	}
	return &Registry{
		strategies: map[model.Kind]Strategy{
			model.KindOutputExact:    &OutputExact{Runner: cfg.Runner},
			model.KindOutputRegex:    &OutputRegex{Runner: cfg.Runner},
			model.KindOutputContains: &OutputContains{Runner: cfg.Runner},
			model.KindCodePattern:    &CodePattern{},
			model.KindStructure:      &Structure{Requirements: requirements, Strict: cfg.StrictRequirements},
			model.KindCustom:         &Custom{Runner: cfg.Runner, Validators: validators},
		},
	}
}

// Lookup returns the strategy for the kind, or false for unknown kinds.
func (r *Registry) Lookup(kind model.Kind) (Strategy, bool) {
	s, ok := r.strategies[kind]
	return s, ok
}

// runForOutput executes the code through the gateway and returns raw stdout.
// A judged failure or a recoverable execution error comes back as a failed
// result (done=true); configuration errors are returned as err.
func runForOutput(ctx context.Context, runner execution.Runner, code string, languageID int, spec model.TestCaseSpec) (stdout string, done *model.ValidationResult, err error) {
	if runner == nil {
		return "", nil, appErr.ConfigurationError(appErr.ConfigInvalid, "execution runner")
	}
	outcome, runErr := runner.Run(ctx, execution.Submission{
		SourceCode: code,
		LanguageID: languageID,
		Stdin:      spec.Input,
	})
	if runErr != nil {
		if appErr.GetCode(runErr).IsConfiguration() {
			return "", nil, runErr
		}
		res := model.Fail(spec, appErr.GetError(runErr).Error())
		return "", &res, nil
	}
	if !outcome.Accepted() {
		res := model.Fail(spec, outcome.FailureMessage())
		return "", &res, nil
	}
	return outcome.Stdout, nil, nil
}
