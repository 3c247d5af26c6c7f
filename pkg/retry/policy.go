// Package retry implements the pure-function retry/backoff/error
// classification policy described in spec.md §4.2. Every method here is a
// pure function of its arguments: no clock reads, no I/O, so it is trivial
// to property-test and trivial for ExecutorActor to consult without
// allocating.
package retry

import "github.com/beamline-run/beamline/pkg/domain"

// Config mirrors the RetryPolicy config block in spec.md §4.2.
type Config struct {
	BaseDelayMs    int64
	MaxDelayMs     int64
	TotalTimeoutMs int64
	MaxRetries     int

	// AdvancedRetry gates exponential backoff/classification/budget. When
	// false, behavior reverts to the CP1 baseline: fixed linear backoff,
	// every error retryable, no budget ceiling.
	AdvancedRetry bool
}

// DefaultConfig returns the documented defaults (base=100ms, max=5000ms).
func DefaultConfig(totalTimeoutMs int64, maxRetries int, advancedRetry bool) Config {
	return Config{
		BaseDelayMs:    100,
		MaxDelayMs:     5000,
		TotalTimeoutMs: totalTimeoutMs,
		MaxRetries:     maxRetries,
		AdvancedRetry:  advancedRetry,
	}
}

// Policy evaluates backoff delay, retryability, and budget exhaustion.
type Policy struct {
	cfg Config
}

// New builds a Policy from the given config.
func New(cfg Config) Policy {
	return Policy{cfg: cfg}
}

// Delay returns the backoff delay in milliseconds before the given attempt
// index is retried. With AdvancedRetry: exponential, base*2^attempt capped
// at MaxDelayMs. Without: linear, base*(attempt+1).
func (p Policy) Delay(attempt int) int64 {
	if !p.cfg.AdvancedRetry {
		return p.cfg.BaseDelayMs * int64(attempt+1)
	}

	delay := p.cfg.BaseDelayMs
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= p.cfg.MaxDelayMs {
			return p.cfg.MaxDelayMs
		}
	}

	if delay > p.cfg.MaxDelayMs {
		return p.cfg.MaxDelayMs
	}

	return delay
}

// IsRetryable classifies an error code (plus, for HTTP steps, the parsed
// status code) as retryable or not. HTTP status, when known, always takes
// precedence over the error-code classification: 4xx is never retryable,
// 5xx always is.
func (p Policy) IsRetryable(code domain.ErrorCode, httpStatus int) bool {
	if !p.cfg.AdvancedRetry {
		return true
	}

	if httpStatus >= 400 && httpStatus < 500 {
		return false
	}

	if httpStatus >= 500 {
		return true
	}

	switch code {
	case domain.ErrorNetworkError, domain.ErrorConnectionTimeout:
		return true
	case domain.ErrorInvalidInput, domain.ErrorMissingRequiredField, domain.ErrorInvalidFormat:
		return false
	case domain.ErrorPermissionDenied:
		return false
	case domain.ErrorQuotaExceeded:
		return false
	case domain.ErrorCancelledByUser, domain.ErrorCancelledByTimeout:
		return false
	case domain.ErrorExecutionFailed, domain.ErrorResourceUnavailable:
		return true
	case domain.ErrorInternalError, domain.ErrorSystemOverload:
		return true
	default:
		return true
	}
}

// IsBudgetExhausted reports whether the retry budget is spent: either the
// elapsed time already meets the total timeout, or the next retry's backoff
// would push elapsed time past it.
func (p Policy) IsBudgetExhausted(elapsedMs int64, attempt int) bool {
	if !p.cfg.AdvancedRetry {
		return false
	}

	if elapsedMs >= p.cfg.TotalTimeoutMs {
		return true
	}

	return elapsedMs+p.Delay(attempt) >= p.cfg.TotalTimeoutMs
}

// WouldExceedBudget reports whether projectedElapsedMs - the elapsed time
// after a pending delay - would already meet or exceed the retry budget.
// ExecutorActor calls this before sleeping a backoff delay so a timeout is
// emitted immediately instead of after one wasted sleep.
func (p Policy) WouldExceedBudget(projectedElapsedMs int64) bool {
	if !p.cfg.AdvancedRetry {
		return false
	}

	return projectedElapsedMs >= p.cfg.TotalTimeoutMs
}

// MaxRetries returns the configured retry ceiling.
func (p Policy) MaxRetries() int {
	return p.cfg.MaxRetries
}

// TotalTimeoutMs returns the configured retry budget.
func (p Policy) TotalTimeoutMs() int64 {
	return p.cfg.TotalTimeoutMs
}
