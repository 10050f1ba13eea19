package strategy

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"codecheck/internal/validation/model"
)

// CodePattern is a pure static check: every required substring must occur
// verbatim in the source text. No execution.
type CodePattern struct{}

func (s *CodePattern) Validate(_ context.Context, code string, _ int, spec model.TestCaseSpec) (model.ValidationResult, error) {
	if missing := missingSubstrings(code, spec.RequiredSubstrings); len(missing) > 0 {
		return model.Fail(spec, "code is missing: "+strings.Join(missing, ", ")), nil
	}
	return model.Pass(spec, "code contains all required fragments"), nil
}

// RequirementFunc is one structural predicate over the raw source.
// It returns whether the requirement holds plus a diagnostic message.
type RequirementFunc func(code string, params map[string]interface{}) (bool, string)

// RequirementRegistry holds named structural predicates. An explicit,
// constructed lookup table so different requirement sets per language or
// course can coexist.
type RequirementRegistry struct {
	funcs map[string]RequirementFunc
}

// NewRequirementRegistry creates an empty registry.
func NewRequirementRegistry() *RequirementRegistry {
	return &RequirementRegistry{funcs: make(map[string]RequirementFunc)}
}

// Register adds or replaces a predicate.
func (r *RequirementRegistry) Register(id string, fn RequirementFunc) {
	r.funcs[id] = fn
}

// Lookup returns the predicate for the id.
func (r *RequirementRegistry) Lookup(id string) (RequirementFunc, bool) {
	fn, ok := r.funcs[id]
	return fn, ok
}

var (
	loopPattern     = regexp.MustCompile(`(?m)^\s*(for|while)\b.*:`)
	functionPattern = regexp.MustCompile(`(?m)^\s*def\s+[A-Za-z_]\w*\s*\(`)
)

// DefaultRequirements returns the reference predicate set. The predicates are
// lightweight text checks over the submitted source; they trade parser-grade
// precision for zero execution cost.
func DefaultRequirements() *RequirementRegistry {
	r := NewRequirementRegistry()

	r.Register("uses_print", func(code string, _ map[string]interface{}) (bool, string) {
		if strings.Contains(code, "print(") {
			return true, "code calls print"
		}
		return false, "code must call print"
	})

	r.Register("has_loop", func(code string, _ map[string]interface{}) (bool, string) {
		if loopPattern.MatchString(code) {
			return true, "code contains a loop"
		}
		return false, "code must contain a for or while loop"
	})

	r.Register("defines_function", func(code string, params map[string]interface{}) (bool, string) {
		if name := paramString(params, "name"); name != "" {
			re := regexp.MustCompile(`(?m)^\s*def\s+` + regexp.QuoteMeta(name) + `\s*\(`)
			if re.MatchString(code) {
				return true, fmt.Sprintf("code defines function %s", name)
			}
			return false, fmt.Sprintf("code must define function %s", name)
		}
		if functionPattern.MatchString(code) {
			return true, "code defines a function"
		}
		return false, "code must define a function"
	})

	r.Register("assigns_variable", func(code string, params map[string]interface{}) (bool, string) {
		name := paramString(params, "name")
		if name == "" {
			return false, "requirement assigns_variable needs a variable name"
		}
		re := regexp.MustCompile(`(?m)^\s*` + regexp.QuoteMeta(name) + `\s*=[^=]`)
		if re.MatchString(code) {
			return true, fmt.Sprintf("code assigns variable %s", name)
		}
		return false, fmt.Sprintf("code must assign variable %s", name)
	})

	r.Register("uses_operators", func(code string, params map[string]interface{}) (bool, string) {
		operators := paramStrings(params, "operators")
		if len(operators) == 0 {
			return false, "requirement uses_operators needs an operator list"
		}
		if missing := missingSubstrings(code, operators); len(missing) > 0 {
			return false, "code must use operators: " + strings.Join(missing, ", ")
		}
		return true, "code uses all required operators"
	})

	r.Register("uses_keyword", func(code string, params map[string]interface{}) (bool, string) {
		keyword := paramString(params, "keyword")
		if keyword == "" {
			return false, "requirement uses_keyword needs a keyword"
		}
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(keyword) + `\b`)
		if re.MatchString(code) {
			return true, fmt.Sprintf("code uses keyword %s", keyword)
		}
		return false, fmt.Sprintf("code must use keyword %s", keyword)
	})

	return r
}

// Structure checks a named structural requirement against the raw source.
// Unknown requirement ids pass through in lenient mode so an unrecognized
// check never blocks a learner; strict mode fails them closed.
type Structure struct {
	Requirements *RequirementRegistry
	Strict       bool
}

func (s *Structure) Validate(_ context.Context, code string, _ int, spec model.TestCaseSpec) (model.ValidationResult, error) {
	fn, ok := s.Requirements.Lookup(spec.RequirementID)
	if !ok {
		if s.Strict {
			return model.Fail(spec, fmt.Sprintf("unknown structure requirement %q", spec.RequirementID)), nil
		}
		return model.Pass(spec, fmt.Sprintf("requirement %q not recognized, simplified validation applied", spec.RequirementID)), nil
	}

	passed, message := fn(code, spec.Params)
	if !passed {
		return model.Fail(spec, message), nil
	}
	return model.Pass(spec, message), nil
}
