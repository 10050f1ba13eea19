package strategy

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"codecheck/internal/execution"
	"codecheck/internal/validation/model"
)

// OutputExact runs the code once and compares normalized stdout against the
// normalized expected output.
type OutputExact struct {
	Runner execution.Runner
}

func (s *OutputExact) Validate(ctx context.Context, code string, languageID int, spec model.TestCaseSpec) (model.ValidationResult, error) {
	stdout, done, err := runForOutput(ctx, s.Runner, code, languageID, spec)
	if err != nil {
		return model.ValidationResult{}, err
	}
	if done != nil {
		return *done, nil
	}

	got := Normalize(stdout)
	want := Normalize(spec.ExpectedOutput)
	if got != want {
		return model.Fail(spec, fmt.Sprintf("expected output %q, got %q", want, got)), nil
	}
	return model.Pass(spec, "output matches expected"), nil
}

// OutputRegex runs the code once and matches normalized stdout against a
// case-insensitive pattern. An invalid pattern is a recognized failure, never
// an exception that aborts the batch.
type OutputRegex struct {
	Runner execution.Runner
}

func (s *OutputRegex) Validate(ctx context.Context, code string, languageID int, spec model.TestCaseSpec) (model.ValidationResult, error) {
	re, reErr := regexp.Compile("(?i)" + spec.ExpectedPattern)
	if reErr != nil {
		return model.Fail(spec, fmt.Sprintf("invalid expected pattern %q", spec.ExpectedPattern)), nil
	}

	stdout, done, err := runForOutput(ctx, s.Runner, code, languageID, spec)
	if err != nil {
		return model.ValidationResult{}, err
	}
	if done != nil {
		return *done, nil
	}

	trimmed := strings.TrimSpace(strings.ReplaceAll(stdout, "\r\n", "\n"))
	if !re.MatchString(trimmed) {
		return model.Fail(spec, fmt.Sprintf("output %q does not match pattern %q", trimmed, spec.ExpectedPattern)), nil
	}
	return model.Pass(spec, "output matches pattern"), nil
}

// OutputContains runs the code once and requires every listed substring to
// occur verbatim in the raw stdout (no normalization).
type OutputContains struct {
	Runner execution.Runner
}

func (s *OutputContains) Validate(ctx context.Context, code string, languageID int, spec model.TestCaseSpec) (model.ValidationResult, error) {
	stdout, done, err := runForOutput(ctx, s.Runner, code, languageID, spec)
	if err != nil {
		return model.ValidationResult{}, err
	}
	if done != nil {
		return *done, nil
	}

	if missing := missingSubstrings(stdout, spec.RequiredSubstrings); len(missing) > 0 {
		return model.Fail(spec, "output is missing: "+strings.Join(missing, ", ")), nil
	}
	return model.Pass(spec, "output contains all required fragments"), nil
}
