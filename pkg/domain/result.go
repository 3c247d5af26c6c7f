package domain

// Status is the terminal outcome of a StepRequest.
type Status string

const (
	StatusOK        Status = "ok"
	StatusError     Status = "error"
	StatusTimeout   Status = "timeout"
	StatusCancelled Status = "cancelled"
)

// StepResult is the canonical outcome of one executor attempt (or retry
// loop). Every emitted StepResult must satisfy the invariants that Valid
// checks; NewOKResult/NewErrorResult are the only constructors
// meant to be used outside this package so the invariants can't be violated
// by construction.
type StepResult struct {
	Status       Status            `json:"status"`
	ErrorCode    ErrorCode         `json:"error_code"`
	Outputs      map[string]string `json:"outputs"`
	ErrorMessage string            `json:"error_message"`
	Metadata     BlockContext      `json:"metadata"`
	LatencyMs    int64             `json:"latency_ms"`
	RetriesUsed  int               `json:"retries_used"`

	// HTTPStatus is the parsed HTTP status code of the last attempt, when the
	// executor was http.request. It is never serialized to ExecResult; it
	// exists so RetryPolicy can classify 4xx vs 5xx independent of ErrorCode,
	// per the open question in spec.md §9.
	HTTPStatus int `json:"-"`
}

// NewOKResult builds a StepResult satisfying invariant 1: ok implies no
// error code/message.
func NewOKResult(ctx BlockContext, outputs map[string]string, latencyMs int64) StepResult {
	return StepResult{
		Status:    StatusOK,
		ErrorCode: ErrorNone,
		Outputs:   outputs,
		Metadata:  ctx.Copy(),
		LatencyMs: latencyMs,
	}
}

// NewErrorResult builds a StepResult satisfying invariant 2: non-ok implies
// a non-none error code.
func NewErrorResult(ctx BlockContext, status Status, code ErrorCode, message string, latencyMs int64) StepResult {
	if status == StatusOK {
		status = StatusError
	}

	if code == ErrorNone {
		code = ErrorInternalError
	}

	return StepResult{
		Status:       status,
		ErrorCode:    code,
		Outputs:      map[string]string{},
		ErrorMessage: message,
		Metadata:     ctx.Copy(),
		LatencyMs:    latencyMs,
	}
}

// Valid checks the five §3 invariants. Used by tests and by the ExecResult
// converter, which refuses to convert an invalid result.
func (r StepResult) Valid(requestRetryCount int) bool {
	if r.Status == StatusOK && (r.ErrorCode != ErrorNone || r.ErrorMessage != "") {
		return false
	}

	if r.Status != StatusOK && r.ErrorCode == ErrorNone {
		return false
	}

	if r.LatencyMs < 0 || r.RetriesUsed < 0 {
		return false
	}

	if r.RetriesUsed > requestRetryCount {
		return false
	}

	if r.Status == StatusTimeout && r.ErrorCode != ErrorCancelledByTimeout {
		return false
	}

	if r.Status == StatusCancelled && r.ErrorCode != ErrorCancelledByUser {
		return false
	}

	return true
}
