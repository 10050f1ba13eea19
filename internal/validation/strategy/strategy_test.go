package strategy_test

import (
	"context"
	"strings"
	"testing"

	"codecheck/internal/execution"
	"codecheck/internal/validation/model"
	"codecheck/internal/validation/strategy"
	appErr "codecheck/pkg/errors"
)

// fakeRunner returns canned outcomes keyed by source code, falling back to a
// default outcome. It records the submissions it received.
type fakeRunner struct {
	byCode     map[string]execution.Outcome
	defaultOut execution.Outcome
	err        error
	runs       []execution.Submission
}

func (f *fakeRunner) Run(ctx context.Context, sub execution.Submission) (execution.Outcome, error) {
	f.runs = append(f.runs, sub)
	if f.err != nil {
		return execution.Outcome{}, f.err
	}
	if out, ok := f.byCode[sub.SourceCode]; ok {
		return out, nil
	}
	return f.defaultOut, nil
}

func acceptedOutcome(stdout string) execution.Outcome {
	return execution.Outcome{StatusID: execution.StatusAccepted, Stdout: stdout}
}

func newRegistry(runner execution.Runner, strict bool) *strategy.Registry {
	return strategy.NewRegistry(strategy.RegistryConfig{Runner: runner, StrictRequirements: strict})
}

func validate(t *testing.T, reg *strategy.Registry, code string, spec model.TestCaseSpec) model.ValidationResult {
	t.Helper()
	s, ok := reg.Lookup(spec.Kind)
	if !ok {
		t.Fatalf("no strategy for kind %q", spec.Kind)
	}
	result, err := s.Validate(context.Background(), code, 71, spec)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	return result
}

func TestOutputExactNormalizesBeforeComparing(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{defaultOut: acceptedOutcome("Hello,   World\r\n")}
	reg := newRegistry(runner, false)

	result := validate(t, reg, "print('Hello, World')", model.TestCaseSpec{
		Kind:           model.KindOutputExact,
		ExpectedOutput: "hello, world",
	})
	if !result.Passed {
		t.Fatalf("expected pass, got %q", result.Message)
	}
}

func TestOutputExactMismatchShowsBothSides(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{defaultOut: acceptedOutcome("24\n")}
	reg := newRegistry(runner, false)

	result := validate(t, reg, "print(24)", model.TestCaseSpec{
		Kind:           model.KindOutputExact,
		ExpectedOutput: "42",
	})
	if result.Passed {
		t.Fatalf("expected fail")
	}
	if !strings.Contains(result.Message, `"42"`) || !strings.Contains(result.Message, `"24"`) {
		t.Fatalf("message should show expected and actual: %q", result.Message)
	}
}

func TestOutputExactPassesStdinToRun(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{defaultOut: acceptedOutcome("7\n")}
	reg := newRegistry(runner, false)

	validate(t, reg, "print(int(input())+2)", model.TestCaseSpec{
		Kind:           model.KindOutputExact,
		Input:          "5",
		ExpectedOutput: "7",
	})
	if len(runner.runs) != 1 || runner.runs[0].Stdin != "5" {
		t.Fatalf("expected stdin forwarded, got %+v", runner.runs)
	}
}

func TestOutputStrategiesFoldJudgedFailures(t *testing.T) {
	t.Parallel()
	runtimeErr := execution.Outcome{
		StatusID: 11,
		Stderr:   "Traceback (most recent call last):\nNameError: name 'x' is not defined",
	}
	runner := &fakeRunner{defaultOut: runtimeErr}
	reg := newRegistry(runner, false)

	for _, kind := range []model.Kind{model.KindOutputExact, model.KindOutputRegex, model.KindOutputContains} {
		spec := model.TestCaseSpec{Kind: kind, ExpectedOutput: "x", ExpectedPattern: "x", RequiredSubstrings: []string{"x"}}
		result := validate(t, reg, "print(x)", spec)
		if result.Passed {
			t.Fatalf("kind %q: expected judged failure to fail the case", kind)
		}
		if !strings.Contains(result.Message, "NameError") {
			t.Fatalf("kind %q: expected diagnostic in message, got %q", kind, result.Message)
		}
	}
}

func TestOutputStrategiesPropagateConfigurationErrors(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{err: appErr.ConfigurationError(appErr.ConfigMissingCredential, "judge.authKey")}
	reg := newRegistry(runner, false)

	s, _ := reg.Lookup(model.KindOutputExact)
	_, err := s.Validate(context.Background(), "print(1)", 71, model.TestCaseSpec{
		Kind:           model.KindOutputExact,
		ExpectedOutput: "1",
	})
	if err == nil || !appErr.GetCode(err).IsConfiguration() {
		t.Fatalf("expected configuration error propagated, got %v", err)
	}
}

func TestOutputStrategiesFoldTransportErrors(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{err: appErr.TransportError(context.DeadlineExceeded, "submit")}
	reg := newRegistry(runner, false)

	result := validate(t, reg, "print(1)", model.TestCaseSpec{
		Kind:           model.KindOutputExact,
		ExpectedOutput: "1",
	})
	if result.Passed {
		t.Fatalf("expected transport failure to fail the case")
	}
}

func TestOutputRegexMatchesCaseInsensitive(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{defaultOut: acceptedOutcome("The Answer Is 42\n")}
	reg := newRegistry(runner, false)

	result := validate(t, reg, "print('The Answer Is 42')", model.TestCaseSpec{
		Kind:            model.KindOutputRegex,
		ExpectedPattern: `the answer is \d+`,
	})
	if !result.Passed {
		t.Fatalf("expected pass, got %q", result.Message)
	}
}

func TestOutputRegexInvalidPatternFailsWithoutPanic(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{defaultOut: acceptedOutcome("x\n")}
	reg := newRegistry(runner, false)

	result := validate(t, reg, "print('x')", model.TestCaseSpec{
		Kind:            model.KindOutputRegex,
		ExpectedPattern: `([unclosed`,
	})
	if result.Passed {
		t.Fatalf("expected invalid pattern to fail")
	}
	if !strings.Contains(result.Message, "invalid expected pattern") {
		t.Fatalf("unexpected message: %q", result.Message)
	}
	if len(runner.runs) != 0 {
		t.Fatalf("invalid pattern must not burn an execution, got %d runs", len(runner.runs))
	}
}

func TestOutputContainsListsMissingFragments(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{defaultOut: acceptedOutcome("name: Ada\n")}
	reg := newRegistry(runner, false)

	result := validate(t, reg, "print('name: Ada')", model.TestCaseSpec{
		Kind:               model.KindOutputContains,
		RequiredSubstrings: []string{"name:", "age:"},
	})
	if result.Passed {
		t.Fatalf("expected fail")
	}
	if !strings.Contains(result.Message, "age:") || strings.Contains(result.Message, "name:,") {
		t.Fatalf("expected only the missing fragment listed: %q", result.Message)
	}
}

func TestCodePatternChecksSourceWithoutExecution(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{}
	reg := newRegistry(runner, false)

	result := validate(t, reg, "total = a + b\nprint(total)", model.TestCaseSpec{
		Kind:               model.KindCodePattern,
		RequiredSubstrings: []string{"total", "+"},
	})
	if !result.Passed {
		t.Fatalf("expected pass, got %q", result.Message)
	}
	if len(runner.runs) != 0 {
		t.Fatalf("code pattern must not execute, got %d runs", len(runner.runs))
	}
}

func TestStructureRequirements(t *testing.T) {
	t.Parallel()
	reg := newRegistry(&fakeRunner{}, false)

	cases := []struct {
		name   string
		code   string
		spec   model.TestCaseSpec
		passed bool
	}{
		{
			name:   "uses_print holds",
			code:   "print('hi')",
			spec:   model.TestCaseSpec{Kind: model.KindStructure, RequirementID: "uses_print"},
			passed: true,
		},
		{
			name:   "has_loop missing",
			code:   "print('hi')",
			spec:   model.TestCaseSpec{Kind: model.KindStructure, RequirementID: "has_loop"},
			passed: false,
		},
		{
			name:   "has_loop for",
			code:   "for i in range(3):\n    print(i)",
			spec:   model.TestCaseSpec{Kind: model.KindStructure, RequirementID: "has_loop"},
			passed: true,
		},
		{
			name: "defines_function named",
			code: "def greet(name):\n    return 'hi ' + name",
			spec: model.TestCaseSpec{
				Kind: model.KindStructure, RequirementID: "defines_function",
				Params: map[string]interface{}{"name": "greet"},
			},
			passed: true,
		},
		{
			name: "assigns_variable not a comparison",
			code: "if x == 3:\n    pass",
			spec: model.TestCaseSpec{
				Kind: model.KindStructure, RequirementID: "assigns_variable",
				Params: map[string]interface{}{"name": "x"},
			},
			passed: false,
		},
		{
			name: "uses_keyword word boundary",
			code: "expression = 1",
			spec: model.TestCaseSpec{
				Kind: model.KindStructure, RequirementID: "uses_keyword",
				Params: map[string]interface{}{"keyword": "press"},
			},
			passed: false,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result := validate(t, reg, tc.code, tc.spec)
			if result.Passed != tc.passed {
				t.Fatalf("passed=%v, want %v (%q)", result.Passed, tc.passed, result.Message)
			}
		})
	}
}

func TestStructureUnknownRequirementLenient(t *testing.T) {
	t.Parallel()
	reg := newRegistry(&fakeRunner{}, false)

	result := validate(t, reg, "print(1)", model.TestCaseSpec{
		Kind:          model.KindStructure,
		RequirementID: "uses_recursion",
	})
	if !result.Passed {
		t.Fatalf("lenient mode must pass unknown requirements, got %q", result.Message)
	}
	if !strings.Contains(result.Message, "simplified validation applied") {
		t.Fatalf("message must flag the simplified pass: %q", result.Message)
	}
}

func TestStructureUnknownRequirementStrict(t *testing.T) {
	t.Parallel()
	reg := newRegistry(&fakeRunner{}, true)

	result := validate(t, reg, "print(1)", model.TestCaseSpec{
		Kind:          model.KindStructure,
		RequirementID: "uses_recursion",
	})
	if result.Passed {
		t.Fatalf("strict mode must fail unknown requirements")
	}
}
