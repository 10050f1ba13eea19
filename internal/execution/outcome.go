package execution

import (
	"fmt"
	"strings"

	appErr "codecheck/pkg/errors"
)

// Judge service status ids. 1 and 2 are the pending states; 3 means the
// program ran and produced output; everything else is a terminal failure
// category.
const (
	StatusInQueue    = 1
	StatusProcessing = 2
	StatusAccepted   = 3
)

// Outcome is the terminal result of a submission. Stdout is meaningful only
// when StatusID is StatusAccepted.
type Outcome struct {
	StatusID          int    `json:"status_id"`
	StatusDescription string `json:"status_description"`
	Stdout            string `json:"stdout,omitempty"`
	Stderr            string `json:"stderr,omitempty"`
	CompileOutput     string `json:"compile_output,omitempty"`
	Message           string `json:"message,omitempty"`
	TimeMillis        int64  `json:"time_ms,omitempty"`
	MemoryKB          int64  `json:"memory_kb,omitempty"`
}

// Accepted reports whether the program ran to completion and produced output.
func (o Outcome) Accepted() bool {
	return o.StatusID == StatusAccepted
}

// IsPendingStatus reports whether a status id is one of the pending states.
func IsPendingStatus(statusID int) bool {
	return statusID == StatusInQueue || statusID == StatusProcessing
}

// FailureCode maps a terminal non-accepted status id to an error code category.
func FailureCode(statusID int) appErr.ErrorCode {
	switch {
	case statusID == 5:
		return appErr.TimeLimitExceeded
	case statusID == 6:
		return appErr.CompileError
	case statusID >= 7 && statusID <= 12:
		return appErr.RuntimeError
	default:
		return appErr.ExecutionFailed
	}
}

// FailureMessage builds a learner-facing message for a failed execution:
// the failure category plus a short diagnostic, never a raw transport detail.
func (o Outcome) FailureMessage() string {
	code := FailureCode(o.StatusID)
	detail := ""
	switch code {
	case appErr.CompileError:
		detail = firstLine(o.CompileOutput)
	case appErr.RuntimeError:
		detail = lastLine(o.Stderr)
	}
	if detail == "" && o.Message != "" {
		detail = firstLine(o.Message)
	}
	if detail == "" {
		return code.Message()
	}
	return fmt.Sprintf("%s: %s", code.Message(), detail)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
