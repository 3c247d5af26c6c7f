// Package actor implements the worker's concurrency hierarchy: a
// WorkerActor routes each step request to the PoolActor for its resource
// class, which admits it into a FIFO queue (bounded while queue management
// is enabled) and hands it to an ExecutorActor that owns the retry loop for
// one BlockExecutor invocation. A pool's queue and counters are guarded by
// its mutex and condition variable, each result comes back on a per-step
// channel, and cancellation reaches an ExecutorActor as a direct Cancel
// call.
package actor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/beamline-run/beamline/pkg/domain"
	"github.com/beamline-run/beamline/pkg/executor"
	"github.com/beamline-run/beamline/pkg/observability"
	"github.com/beamline-run/beamline/pkg/retry"
)

// ExecutorActor wraps one BlockExecutor and drives its retry loop. A fresh
// ExecutorActor is constructed per step execution; the wrapped
// BlockExecutor instance itself is shared and long-lived.
type ExecutorActor struct {
	blockExecutor executor.BlockExecutor
	retryPolicy   retry.Policy
	logger        *slog.Logger
	metrics       *observability.Metrics

	cancelOnce sync.Once
	cancelled  bool
	mu         sync.Mutex
}

// NewExecutorActor builds an ExecutorActor for one step's lifetime.
func NewExecutorActor(blockExecutor executor.BlockExecutor, retryPolicy retry.Policy, logger *slog.Logger, metrics *observability.Metrics) *ExecutorActor {
	return &ExecutorActor{
		blockExecutor: blockExecutor,
		retryPolicy:   retryPolicy,
		logger:        logger,
		metrics:       metrics,
	}
}

// Run drives the retry loop documented in spec.md §4.4:
//  1. Start a monotonic clock.
//  2. For attempt = 0..max_retries: check the retry budget, run one attempt,
//     return immediately on success, classify failures as retryable or not,
//     sleep the backoff delay before the next attempt.
//  3. After the loop exhausts, return the last result with retries_used set
//     to max_retries.
//
// Run never panics: every path returns a populated domain.StepResult.
func (a *ExecutorActor) Run(ctx context.Context, req domain.StepRequest) domain.StepResult {
	bctx := req.BlockContext
	blockType := a.blockExecutor.BlockType()
	start := time.Now()
	maxRetries := a.retryPolicy.MaxRetries()

	var last domain.StepResult

	for attempt := 0; attempt <= maxRetries; attempt++ {
		elapsed := time.Since(start).Milliseconds()

		if a.retryPolicy.IsBudgetExhausted(elapsed, attempt) {
			last = domain.NewErrorResult(bctx, domain.StatusTimeout, domain.ErrorCancelledByTimeout,
				"retry budget exhausted", elapsed)
			last.RetriesUsed = attempt
			a.observe(blockType, last)

			return last
		}

		if a.isCancelled() {
			last = domain.NewErrorResult(bctx, domain.StatusCancelled, domain.ErrorCancelledByUser,
				"cancelled before attempt", elapsed)
			last.RetriesUsed = attempt
			a.observe(blockType, last)

			return last
		}

		observability.LogAttemptStart(ctx, a.logger, blockType, attempt)

		attemptCtx, span := observability.StartStepSpan(ctx, blockType, bctx.TenantID, bctx.RunID, bctx.StepID)
		result := a.blockExecutor.Execute(attemptCtx, req)
		span.End()
		result.RetriesUsed = attempt

		if result.Status == domain.StatusOK {
			a.observe(blockType, result)
			return result
		}

		last = result

		if !a.retryPolicy.IsRetryable(result.ErrorCode, result.HTTPStatus) {
			a.observe(blockType, last)
			return last
		}

		if attempt < maxRetries {
			delay := time.Duration(a.retryPolicy.Delay(attempt)) * time.Millisecond

			if a.retryPolicy.WouldExceedBudget(time.Since(start).Milliseconds() + delay.Milliseconds()) {
				last.Status = domain.StatusTimeout
				last.ErrorCode = domain.ErrorCancelledByTimeout
				last.RetriesUsed = attempt
				a.observe(blockType, last)

				return last
			}

			select {
			case <-ctx.Done():
				last.Status = domain.StatusCancelled
				last.ErrorCode = domain.ErrorCancelledByUser
				a.observe(blockType, last)

				return last
			case <-time.After(delay):
			}
		}
	}

	last.RetriesUsed = maxRetries
	a.observe(blockType, last)

	return last
}

// Cancel best-effort aborts the in-flight attempt and prevents any further
// retry from starting. It is safe to call concurrently with Run and
// idempotent: only the first call has any effect, matching the
// "first terminal event wins" rule between a completion and a cancellation
// racing each other.
func (a *ExecutorActor) Cancel(stepID string) {
	a.cancelOnce.Do(func() {
		a.mu.Lock()
		a.cancelled = true
		a.mu.Unlock()

		_ = a.blockExecutor.Cancel(stepID)
	})
}

func (a *ExecutorActor) isCancelled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.cancelled
}

func (a *ExecutorActor) observe(blockType string, result domain.StepResult) {
	if a.metrics == nil {
		return
	}

	errorCode := ""
	if result.Status != domain.StatusOK {
		errorCode = result.ErrorCode.Wire()
	}

	a.metrics.ObserveResult(blockType, string(result.Status), errorCode, float64(result.LatencyMs)/1000.0)
}
