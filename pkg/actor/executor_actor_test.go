package actor_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/beamline-run/beamline/pkg/actor"
	"github.com/beamline-run/beamline/pkg/domain"
	"github.com/beamline-run/beamline/pkg/executor"
	"github.com/beamline-run/beamline/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeExecutor lets tests script a sequence of StepResults, one per call to
// Execute, so the retry loop can be driven deterministically.
type fakeExecutor struct {
	blockType string
	class     domain.ResourceClass
	calls     atomic.Int64
	script    []domain.StepResult
}

func (f *fakeExecutor) BlockType() string                   { return f.blockType }
func (f *fakeExecutor) ResourceClass() domain.ResourceClass { return f.class }
func (f *fakeExecutor) Init(ctx context.Context) error      { return nil }
func (f *fakeExecutor) Cancel(stepID string) error          { return nil }
func (f *fakeExecutor) Metrics() executor.BlockMetrics      { return executor.BlockMetrics{} }

func (f *fakeExecutor) Execute(ctx context.Context, req domain.StepRequest) domain.StepResult {
	i := f.calls.Add(1) - 1
	if int(i) >= len(f.script) {
		return f.script[len(f.script)-1]
	}

	return f.script[i]
}

func TestExecutorActor_SucceedsOnFirstAttempt(t *testing.T) {
	exec := &fakeExecutor{
		blockType: "http.request",
		class:     domain.ResourceClassIO,
		script:    []domain.StepResult{domain.NewOKResult(domain.BlockContext{}, map[string]string{"ok": "1"}, 10)},
	}

	policy := retry.New(retry.DefaultConfig(5000, 3, true))
	a := actor.NewExecutorActor(exec, policy, discardLogger(), nil)

	result := a.Run(t.Context(), domain.StepRequest{Type: "http.request", RetryCount: 3})

	assert.Equal(t, domain.StatusOK, result.Status)
	assert.Equal(t, int64(1), exec.calls.Load())
}

func TestExecutorActor_RetriesRetryableErrorThenSucceeds(t *testing.T) {
	exec := &fakeExecutor{
		blockType: "http.request",
		class:     domain.ResourceClassIO,
		script: []domain.StepResult{
			domain.NewErrorResult(domain.BlockContext{}, domain.StatusError, domain.ErrorNetworkError, "boom", 5),
			domain.NewOKResult(domain.BlockContext{}, map[string]string{"ok": "1"}, 5),
		},
	}

	cfg := retry.DefaultConfig(5000, 3, true)
	cfg.BaseDelayMs = 1
	policy := retry.New(cfg)
	a := actor.NewExecutorActor(exec, policy, discardLogger(), nil)

	result := a.Run(t.Context(), domain.StepRequest{Type: "http.request", RetryCount: 3})

	assert.Equal(t, domain.StatusOK, result.Status)
	assert.Equal(t, int64(2), exec.calls.Load())
	assert.Equal(t, 1, result.RetriesUsed)
}

func TestExecutorActor_StopsOnNonRetryableError(t *testing.T) {
	exec := &fakeExecutor{
		blockType: "sql.query",
		class:     domain.ResourceClassCPU,
		script: []domain.StepResult{
			domain.NewErrorResult(domain.BlockContext{}, domain.StatusError, domain.ErrorInvalidInput, "bad input", 1),
		},
	}

	policy := retry.New(retry.DefaultConfig(5000, 3, true))
	a := actor.NewExecutorActor(exec, policy, discardLogger(), nil)

	result := a.Run(t.Context(), domain.StepRequest{Type: "sql.query", RetryCount: 3})

	assert.Equal(t, domain.ErrorInvalidInput, result.ErrorCode)
	assert.Equal(t, int64(1), exec.calls.Load())
}

func TestExecutorActor_ExhaustsRetryBudget(t *testing.T) {
	exec := &fakeExecutor{
		blockType: "http.request",
		class:     domain.ResourceClassIO,
		script: []domain.StepResult{
			domain.NewErrorResult(domain.BlockContext{}, domain.StatusError, domain.ErrorNetworkError, "boom", 1),
		},
	}

	cfg := retry.Config{BaseDelayMs: 1, MaxDelayMs: 2, TotalTimeoutMs: 50, MaxRetries: 100, AdvancedRetry: true}
	policy := retry.New(cfg)
	a := actor.NewExecutorActor(exec, policy, discardLogger(), nil)

	result := a.Run(t.Context(), domain.StepRequest{Type: "http.request", RetryCount: 100})

	assert.Equal(t, domain.StatusTimeout, result.Status)
	assert.Equal(t, domain.ErrorCancelledByTimeout, result.ErrorCode)
}

func TestExecutorActor_TimesOutBeforeSleepingWastedBackoff(t *testing.T) {
	exec := &fakeExecutor{
		blockType: "http.request",
		class:     domain.ResourceClassIO,
		script: []domain.StepResult{
			domain.NewErrorResult(domain.BlockContext{}, domain.StatusError, domain.ErrorNetworkError, "boom", 1),
		},
	}

	// BaseDelayMs alone would blow the 20ms budget; the budget check before
	// attempt 0 already counts Delay(0), so Run times out without sleeping.
	cfg := retry.Config{BaseDelayMs: 2000, MaxDelayMs: 2000, TotalTimeoutMs: 20, MaxRetries: 5, AdvancedRetry: true}
	policy := retry.New(cfg)
	a := actor.NewExecutorActor(exec, policy, discardLogger(), nil)

	start := time.Now()
	result := a.Run(t.Context(), domain.StepRequest{Type: "http.request", RetryCount: 5})
	elapsed := time.Since(start)

	assert.Equal(t, domain.StatusTimeout, result.Status)
	assert.Equal(t, domain.ErrorCancelledByTimeout, result.ErrorCode)
	assert.Less(t, elapsed, 2000*time.Millisecond, "should time out immediately instead of sleeping a wasted backoff")
}

func TestExecutorActor_CancelStopsFurtherAttempts(t *testing.T) {
	exec := &fakeExecutor{
		blockType: "http.request",
		class:     domain.ResourceClassIO,
		script: []domain.StepResult{
			domain.NewErrorResult(domain.BlockContext{}, domain.StatusError, domain.ErrorNetworkError, "boom", 1),
		},
	}

	cfg := retry.DefaultConfig(5000, 3, true)
	cfg.BaseDelayMs = 50
	policy := retry.New(cfg)
	a := actor.NewExecutorActor(exec, policy, discardLogger(), nil)

	go func() {
		time.Sleep(10 * time.Millisecond)
		a.Cancel("step-1")
	}()

	result := a.Run(t.Context(), domain.StepRequest{Type: "http.request", RetryCount: 3})

	require.NotEqual(t, domain.StatusOK, result.Status)
	assert.LessOrEqual(t, exec.calls.Load(), int64(2))
}
