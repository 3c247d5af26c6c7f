package domain

// ErrorCode is the one canonical error taxonomy. The numeric value is never
// serialized; Wire() derives the SCREAMING_SNAKE string the ExecResult
// contract requires.
type ErrorCode int

const (
	ErrorNone ErrorCode = iota
	ErrorInvalidInput
	ErrorMissingRequiredField
	ErrorInvalidFormat
	ErrorExecutionFailed
	ErrorResourceUnavailable
	ErrorPermissionDenied
	ErrorQuotaExceeded
	ErrorNetworkError
	ErrorConnectionTimeout
	ErrorHTTPError
	ErrorInternalError
	ErrorSystemOverload
	ErrorCancelledByUser
	ErrorCancelledByTimeout
)

var errorWireNames = map[ErrorCode]string{
	ErrorNone:                 "NONE",
	ErrorInvalidInput:         "INVALID_INPUT",
	ErrorMissingRequiredField: "MISSING_REQUIRED_FIELD",
	ErrorInvalidFormat:        "INVALID_FORMAT",
	ErrorExecutionFailed:      "EXECUTION_FAILED",
	ErrorResourceUnavailable:  "RESOURCE_UNAVAILABLE",
	ErrorPermissionDenied:     "PERMISSION_DENIED",
	ErrorQuotaExceeded:        "QUOTA_EXCEEDED",
	ErrorNetworkError:         "NETWORK_ERROR",
	ErrorConnectionTimeout:    "CONNECTION_TIMEOUT",
	ErrorHTTPError:            "HTTP_ERROR",
	ErrorInternalError:        "INTERNAL_ERROR",
	ErrorSystemOverload:       "SYSTEM_OVERLOAD",
	ErrorCancelledByUser:      "CANCELLED_BY_USER",
	ErrorCancelledByTimeout:   "CANCELLED_BY_TIMEOUT",
}

// Wire returns the SCREAMING_SNAKE wire representation of the code.
func (e ErrorCode) Wire() string {
	if name, ok := errorWireNames[e]; ok {
		return name
	}

	return "UNKNOWN_ERROR"
}

// String satisfies fmt.Stringer for log lines.
func (e ErrorCode) String() string {
	return e.Wire()
}
