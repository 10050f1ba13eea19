package model

// Kind discriminates test case spec variants. The kind fully determines which
// fields of TestCaseSpec are meaningful and which strategy handles it.
type Kind string

const (
	KindOutputExact    Kind = "output_exact"
	KindOutputRegex    Kind = "output_regex"
	KindOutputContains Kind = "output_contains"
	KindStructure      Kind = "structure_requirement"
	KindCodePattern    Kind = "code_pattern"
	KindCustom         Kind = "custom_check"
)

// TestCaseSpec describes one check to run against a submission. It is a tagged
// union: Kind selects the variant, the remaining fields are per-variant.
// An unknown Kind (or RequirementID/ValidatorID) is a recognized, non-fatal
// failure mode, never a crash.
type TestCaseSpec struct {
	Kind        Kind   `json:"kind"`
	Description string `json:"description"`

	// OutputExact, OutputRegex, OutputContains
	Input           string `json:"input,omitempty"`
	ExpectedOutput  string `json:"expected_output,omitempty"`
	ExpectedPattern string `json:"expected_pattern,omitempty"`

	// OutputContains, CodePattern
	RequiredSubstrings []string `json:"required_substrings,omitempty"`

	// StructureRequirement
	RequirementID string `json:"requirement_id,omitempty"`

	// CustomCheck
	ValidatorID string `json:"validator_id,omitempty"`

	// StructureRequirement, CustomCheck
	Params map[string]interface{} `json:"params,omitempty"`
}

// Label returns the human-readable identity of the spec for diagnostics.
func (s TestCaseSpec) Label() string {
	if s.Description != "" {
		return s.Description
	}
	return string(s.Kind)
}

// ValidationResult is the verdict for one TestCaseSpec. Immutable once
// returned by a strategy; aggregated but never mutated by the orchestrator.
type ValidationResult struct {
	Passed  bool         `json:"passed"`
	Message string       `json:"message"`
	Spec    TestCaseSpec `json:"spec"`
}

// Pass builds a passing result for the spec.
func Pass(spec TestCaseSpec, message string) ValidationResult {
	return ValidationResult{Passed: true, Message: message, Spec: spec}
}

// Fail builds a failing result for the spec.
func Fail(spec TestCaseSpec, message string) ValidationResult {
	return ValidationResult{Passed: false, Message: message, Spec: spec}
}

// BatchVerdict aggregates one validation run. Recomputed per run, never
// persisted by this service.
type BatchVerdict struct {
	Results   []ValidationResult `json:"results"`
	AllPassed bool               `json:"all_passed"`
}

// NewBatchVerdict derives the aggregate flag. An empty result list is never a
// pass: no evidence of correctness must not be conflated with success.
func NewBatchVerdict(results []ValidationResult) BatchVerdict {
	allPassed := len(results) > 0
	for _, r := range results {
		if !r.Passed {
			allPassed = false
			break
		}
	}
	return BatchVerdict{Results: results, AllPassed: allPassed}
}
