package strategy

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"codecheck/internal/execution"
	"codecheck/internal/validation/model"
)

// probeMarker separates the learner's own output from the output of injected
// verification code in augmented runs.
const probeMarker = "---codecheck-probe---"

// ValidatorFunc implements one named custom check. Validators may rewrite the
// source before executing it; the rewrite is a pure string transform.
type ValidatorFunc func(ctx context.Context, runner execution.Runner, code string, languageID int, spec model.TestCaseSpec) (model.ValidationResult, error)

// ValidatorRegistry holds named custom validators.
type ValidatorRegistry struct {
	funcs map[string]ValidatorFunc
}

// NewValidatorRegistry creates an empty registry.
func NewValidatorRegistry() *ValidatorRegistry {
	return &ValidatorRegistry{funcs: make(map[string]ValidatorFunc)}
}

// Register adds or replaces a validator.
func (r *ValidatorRegistry) Register(id string, fn ValidatorFunc) {
	r.funcs[id] = fn
}

// Lookup returns the validator for the id.
func (r *ValidatorRegistry) Lookup(id string) (ValidatorFunc, bool) {
	fn, ok := r.funcs[id]
	return fn, ok
}

// DefaultValidators returns the built-in custom validator set.
func DefaultValidators() *ValidatorRegistry {
	r := NewValidatorRegistry()
	r.Register("generalization", validateGeneralization)
	r.Register("variable_flow", validateVariableFlow)
	return r
}

// Custom dispatches to a named validator. An unrecognized validator id is a
// recognized failure with an explicit message, never a crash or a silent pass.
type Custom struct {
	Runner     execution.Runner
	Validators *ValidatorRegistry
}

func (s *Custom) Validate(ctx context.Context, code string, languageID int, spec model.TestCaseSpec) (model.ValidationResult, error) {
	fn, ok := s.Validators.Lookup(spec.ValidatorID)
	if !ok {
		return model.Fail(spec, fmt.Sprintf("unknown validator %q", spec.ValidatorID)), nil
	}
	return fn(ctx, s.Runner, code, languageID, spec)
}

// validateGeneralization appends verification calls that re-invoke the
// learner's logic with different literal inputs, runs the augmented source
// once, and compares the injected section's output against expected values.
// This catches solutions that hard-code the sample answer.
//
// Params: "calls" holds statements to append, each printing one probe
// result; "expected" holds the normalized expected output lines, one per call.
func validateGeneralization(ctx context.Context, runner execution.Runner, code string, languageID int, spec model.TestCaseSpec) (model.ValidationResult, error) {
	calls := paramStrings(spec.Params, "calls")
	expected := paramStrings(spec.Params, "expected")
	if len(calls) == 0 || len(calls) != len(expected) {
		return model.Fail(spec, "generalization check needs matching calls and expected values"), nil
	}

	augmented := augmentSource(code, calls)
	probeSpec := spec
	stdout, done, err := runForOutput(ctx, runner, augmented, languageID, probeSpec)
	if err != nil {
		return model.ValidationResult{}, err
	}
	if done != nil {
		return *done, nil
	}

	probeLines, ok := probeOutput(stdout)
	if !ok {
		return model.Fail(spec, "verification output missing, code may not run to completion"), nil
	}
	if len(probeLines) != len(expected) {
		return model.Fail(spec, fmt.Sprintf("expected %d verification results, got %d", len(expected), len(probeLines))), nil
	}
	for i, line := range probeLines {
		if Normalize(line) != Normalize(expected[i]) {
			return model.Fail(spec, fmt.Sprintf("solution does not generalize: check %d produced %q, expected %q",
				i+1, strings.TrimSpace(line), expected[i])), nil
		}
	}
	return model.Pass(spec, "solution generalizes beyond the sample input"), nil
}

// augmentSource is a pure string transform: original source, a marker print,
// then the verification calls.
func augmentSource(code string, calls []string) string {
	var b strings.Builder
	b.WriteString(code)
	b.WriteString("\n\nprint(\"")
	b.WriteString(probeMarker)
	b.WriteString("\")\n")
	for _, call := range calls {
		b.WriteString(call)
		b.WriteString("\n")
	}
	return b.String()
}

// probeOutput returns the stdout lines after the marker, blank lines dropped.
func probeOutput(stdout string) ([]string, bool) {
	stdout = strings.ReplaceAll(stdout, "\r\n", "\n")
	idx := strings.LastIndex(stdout, probeMarker)
	if idx < 0 {
		return nil, false
	}
	rest := stdout[idx+len(probeMarker):]
	var lines []string
	for _, line := range strings.Split(rest, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, true
}

// validateVariableFlow runs the original code once, extracts a literal
// assignment from the source with a regular expression, and asserts the value
// reached stdout. Used when the check concerns how a value flows into output
// rather than the output's exact shape.
//
// Params: "variable" names the identifier whose assigned literal must appear.
func validateVariableFlow(ctx context.Context, runner execution.Runner, code string, languageID int, spec model.TestCaseSpec) (model.ValidationResult, error) {
	variable := paramString(spec.Params, "variable")
	if variable == "" {
		return model.Fail(spec, "variable_flow check needs a variable name"), nil
	}

	re, reErr := regexp.Compile(`(?m)^\s*` + regexp.QuoteMeta(variable) + `\s*=\s*(.+?)\s*$`)
	if reErr != nil {
		return model.Fail(spec, fmt.Sprintf("invalid variable name %q", variable)), nil
	}
	match := re.FindStringSubmatch(code)
	if match == nil {
		return model.Fail(spec, fmt.Sprintf("variable %q is never assigned", variable)), nil
	}
	value := stripQuotes(match[1])
	if value == "" {
		return model.Fail(spec, fmt.Sprintf("variable %q has no literal value", variable)), nil
	}

	stdout, done, err := runForOutput(ctx, runner, code, languageID, spec)
	if err != nil {
		return model.ValidationResult{}, err
	}
	if done != nil {
		return *done, nil
	}

	if !strings.Contains(stdout, value) {
		return model.Fail(spec, fmt.Sprintf("value of %q (%s) does not appear in the output", variable, value)), nil
	}
	return model.Pass(spec, fmt.Sprintf("value of %q flows into the output", variable)), nil
}

func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
