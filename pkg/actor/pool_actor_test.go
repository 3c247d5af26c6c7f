package actor_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/beamline-run/beamline/pkg/actor"
	"github.com/beamline-run/beamline/pkg/domain"
	"github.com/beamline-run/beamline/pkg/executor"
	"github.com/beamline-run/beamline/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *executor.Registry {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := executor.NewRegistry(logger)
	r.Register(executor.NewHumanApprovalExecutor())

	return r
}

func fastRetryConfig(blockType string) retry.Config {
	return retry.DefaultConfig(1000, 0, false)
}

func TestPoolActor_SubmitRunsStepToCompletion(t *testing.T) {
	pool := actor.NewPoolActor(domain.ResourceClassCPU, testRegistry(t), 10, 1, true, fastRetryConfig, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	defer pool.Stop()

	req := domain.StepRequest{
		Type:         "human.approval",
		Inputs:       map[string]string{"approval_type": "x", "description": "y"},
		BlockContext: domain.BlockContext{Sandbox: true, StepID: "s1"},
	}

	resultCh, err := pool.Submit(t.Context(), req)
	require.NoError(t, err)

	select {
	case result := <-resultCh:
		assert.Equal(t, domain.StatusOK, result.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
	}
}

func TestPoolActor_RejectsUnknownBlockType(t *testing.T) {
	pool := actor.NewPoolActor(domain.ResourceClassCPU, testRegistry(t), 10, 1, true, fastRetryConfig, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	defer pool.Stop()

	req := domain.StepRequest{Type: "nonexistent.block", BlockContext: domain.BlockContext{StepID: "s2"}}

	resultCh, err := pool.Submit(t.Context(), req)
	require.NoError(t, err)

	result := <-resultCh
	assert.Equal(t, domain.ErrorInvalidInput, result.ErrorCode)
}

func TestPoolActor_RejectsWhenQueueFull(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := executor.NewRegistry(logger)
	registry.Register(&slowExecutor{delay: 200 * time.Millisecond})

	pool := actor.NewPoolActor(domain.ResourceClassCPU, registry, 0, 1, true, fastRetryConfig, logger, nil)
	defer pool.Stop()

	first := domain.StepRequest{Type: "test.slow", BlockContext: domain.BlockContext{StepID: "first"}}
	_, err := pool.Submit(t.Context(), first)
	require.NoError(t, err)

	// Give the pool's single worker time to pick up the first task and
	// start executing it, so it is no longer idle.
	time.Sleep(20 * time.Millisecond)

	second := domain.StepRequest{Type: "test.slow", BlockContext: domain.BlockContext{StepID: "second"}}
	_, err = pool.Submit(t.Context(), second)
	assert.ErrorIs(t, err, actor.ErrQueueFull)
}

func TestPoolActor_RunsUpToMaxConcurrencyInParallel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := executor.NewRegistry(logger)
	registry.Register(&slowExecutor{delay: 100 * time.Millisecond})

	pool := actor.NewPoolActor(domain.ResourceClassCPU, registry, 10, 2, true, fastRetryConfig, logger, nil)
	defer pool.Stop()

	first := domain.StepRequest{Type: "test.slow", BlockContext: domain.BlockContext{StepID: "par-1"}}
	second := domain.StepRequest{Type: "test.slow", BlockContext: domain.BlockContext{StepID: "par-2"}}

	firstCh, err := pool.Submit(t.Context(), first)
	require.NoError(t, err)
	secondCh, err := pool.Submit(t.Context(), second)
	require.NoError(t, err)

	start := time.Now()

	for _, ch := range []<-chan domain.StepResult{firstCh, secondCh} {
		select {
		case result := <-ch:
			assert.Equal(t, domain.StatusOK, result.Status)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for result")
		}
	}

	// Two 100ms tasks run serially would take ~200ms; with concurrency 2
	// they should both finish close to the single task's own delay.
	assert.Less(t, time.Since(start), 180*time.Millisecond)
}

type slowExecutor struct {
	delay time.Duration
}

func (s *slowExecutor) BlockType() string                   { return "test.slow" }
func (s *slowExecutor) ResourceClass() domain.ResourceClass { return domain.ResourceClassCPU }
func (s *slowExecutor) Init(ctx context.Context) error       { return nil }
func (s *slowExecutor) Cancel(stepID string) error           { return nil }
func (s *slowExecutor) Metrics() executor.BlockMetrics       { return executor.BlockMetrics{} }

func (s *slowExecutor) Execute(ctx context.Context, req domain.StepRequest) domain.StepResult {
	time.Sleep(s.delay)
	return domain.NewOKResult(req.BlockContext, map[string]string{}, s.delay.Milliseconds())
}
