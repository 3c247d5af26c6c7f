// Package timeoutpolicy enforces per-operation deadlines by running a body
// on a separate goroutine and racing it against a timer, per spec.md §4.3.
// When the timer wins, the body is abandoned (its goroutine may still be
// running — callers must treat the context cancellation as best-effort).
package timeoutpolicy

import (
	"context"
	"errors"
	"time"
)

// ErrTimedOut is returned by Run when the deadline elapses before the body
// completes.
var ErrTimedOut = errors.New("timeoutpolicy: operation timed out")

// FSOperation names an fs.* operation kind for FSTimeoutMs lookups.
type FSOperation string

const (
	FSRead   FSOperation = "read"
	FSWrite  FSOperation = "write"
	FSDelete FSOperation = "delete"
)

// Config mirrors spec.md §4.3's timeout table.
type Config struct {
	Enabled bool

	FSReadMs    int64
	FSWriteMs   int64
	FSDeleteMs  int64
	FSDefaultMs int64

	HTTPConnectionMs int64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig(enabled bool) Config {
	return Config{
		Enabled:          enabled,
		FSReadMs:         5000,
		FSWriteMs:        10000,
		FSDeleteMs:       3000,
		FSDefaultMs:      5000,
		HTTPConnectionMs: 5000,
	}
}

// FSTimeoutMs returns the per-operation FS deadline, or requestTimeoutMs
// unchanged when timeout enforcement is disabled (spec.md §4.3: "When
// disabled, no timeout (use request's timeout_ms)").
func (c Config) FSTimeoutMs(op FSOperation, requestTimeoutMs int64) int64 {
	if !c.Enabled {
		return requestTimeoutMs
	}

	switch op {
	case FSRead:
		return c.FSReadMs
	case FSWrite:
		return c.FSWriteMs
	case FSDelete:
		return c.FSDeleteMs
	default:
		return c.FSDefaultMs
	}
}

// HTTPTotalTimeoutMs computes the combined connect+request timeout: the
// connection timeout plus whatever of the request timeout remains above it.
func (c Config) HTTPTotalTimeoutMs(requestTimeoutMs int64) int64 {
	if !c.Enabled {
		return requestTimeoutMs
	}

	remaining := requestTimeoutMs - c.HTTPConnectionMs
	if remaining < 0 {
		remaining = 0
	}

	return c.HTTPConnectionMs + remaining
}

// Run executes body on its own goroutine and waits up to deadline. If body
// finishes first, its (value, error) pair is returned. If the deadline
// elapses first, Run returns ErrTimedOut and cancels ctx so body can
// best-effort abort.
func Run[T any](ctx context.Context, deadline time.Duration, body func(ctx context.Context) (T, error)) (T, error) {
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	type outcome struct {
		val T
		err error
	}

	resultCh := make(chan outcome, 1)

	go func() {
		val, err := body(runCtx)
		resultCh <- outcome{val: val, err: err}
	}()

	select {
	case out := <-resultCh:
		return out.val, out.err
	case <-runCtx.Done():
		var zero T

		return zero, ErrTimedOut
	}
}
