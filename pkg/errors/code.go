package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 20000-20999: Configuration errors
// 21000-21999: Judge transport errors
// 22000-22999: Polling errors
// 23000-23999: Judged execution categories
// 24000-24999: Validation & strategy errors
// 25000-25999: Infrastructure (cache/storage/mq) errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10004
	ServiceUnavailable  ErrorCode = 10005
	Timeout             ErrorCode = 10006

	// ========== Configuration Errors (20000-20999) ==========

	ConfigMissingCredential ErrorCode = 20000
	ConfigMissingEndpoint   ErrorCode = 20001
	ConfigInvalid           ErrorCode = 20002

	// ========== Judge Transport Errors (21000-21999) ==========

	TransportFailed      ErrorCode = 21000
	TransportBadResponse ErrorCode = 21001
	TransportRateLimited ErrorCode = 21002

	// ========== Polling Errors (22000-22999) ==========

	ExecutionTimeout ErrorCode = 22000

	// ========== Judged Execution Categories (23000-23999) ==========

	CompileError        ErrorCode = 23000
	RuntimeError        ErrorCode = 23001
	TimeLimitExceeded   ErrorCode = 23002
	MemoryLimitExceeded ErrorCode = 23003
	ExecutionFailed     ErrorCode = 23004

	// ========== Validation & Strategy Errors (24000-24999) ==========

	UnknownTestKind     ErrorCode = 24000
	UnknownValidator    ErrorCode = 24001
	UnknownRequirement  ErrorCode = 24002
	InvalidPattern      ErrorCode = 24003
	StrategyFailed      ErrorCode = 24004
	SourceTooLarge      ErrorCode = 24005
	LanguageUnsupported ErrorCode = 24006

	// ========== Infrastructure Errors (25000-25999) ==========

	CacheError     ErrorCode = 25000
	StorageError   ErrorCode = 25001
	SourceNotFound ErrorCode = 25002
	PublishFailed  ErrorCode = 25003
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	ConfigMissingCredential: "Judge service credential is not configured",
	ConfigMissingEndpoint:   "Judge service endpoint is not configured",
	ConfigInvalid:           "Invalid configuration",

	TransportFailed:      "Judge service request failed",
	TransportBadResponse: "Judge service returned an unexpected response",
	TransportRateLimited: "Judge service rate limit reached",

	ExecutionTimeout: "Code execution timed out waiting for the judge service",

	CompileError:        "Compilation error",
	RuntimeError:        "Runtime error",
	TimeLimitExceeded:   "Time limit exceeded",
	MemoryLimitExceeded: "Memory limit exceeded",
	ExecutionFailed:     "Execution failed",

	UnknownTestKind:     "Unknown test case kind",
	UnknownValidator:    "Unknown custom validator",
	UnknownRequirement:  "Unknown structure requirement",
	InvalidPattern:      "Invalid expected-output pattern",
	StrategyFailed:      "Test case validation failed unexpectedly",
	SourceTooLarge:      "Source code is too large",
	LanguageUnsupported: "Programming language not supported",

	CacheError:     "Cache operation failed",
	StorageError:   "Object storage operation failed",
	SourceNotFound: "Source object not found",
	PublishFailed:  "Failed to publish verdict event",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == InvalidParams, c == SourceTooLarge, c == LanguageUnsupported, c == UnknownTestKind:
		return 400
	case c == NotFound, c == SourceNotFound:
		return 404
	case c == TooManyRequests, c == TransportRateLimited:
		return 429
	case c == ServiceUnavailable, c >= 21000 && c < 22000:
		return 502
	case c == Timeout, c == ExecutionTimeout:
		return 504
	case c >= 20000 && c < 21000:
		return 500
	default:
		return 500
	}
}

// IsConfiguration reports whether the code belongs to the configuration range.
// Configuration errors abort an entire batch; nothing can be judged without a
// working judge client.
func (c ErrorCode) IsConfiguration() bool {
	return c >= 20000 && c < 21000
}

// IsTransport reports whether the code belongs to the judge transport range.
func (c ErrorCode) IsTransport() bool {
	return c >= 21000 && c < 22000
}
