package actor

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/beamline-run/beamline/pkg/domain"
	"github.com/beamline-run/beamline/pkg/executor"
	"github.com/beamline-run/beamline/pkg/observability"
	"github.com/beamline-run/beamline/pkg/retry"
)

// ErrQueueFull is returned by Submit when a pool's bounded queue is at
// capacity (spec.md §4.5: admission control rejects rather than blocks).
// It is only ever returned while the pool's queue management feature flag
// is enabled; with it disabled the queue is unbounded and Submit never
// rejects on capacity.
var ErrQueueFull = errors.New("actor: pool queue is full")

// task is one admitted unit of work waiting in a pool's queue.
type task struct {
	ctx      context.Context
	req      domain.StepRequest
	resultCh chan domain.StepResult
	actor    *ExecutorActor
}

// PoolActor owns one resource class's FIFO queue and dispatches admitted
// tasks to BlockExecutor instances across a fixed pool of worker
// goroutines. concurrency bounds how many steps this resource class runs
// at once (spec.md §4.5's max_concurrency/current_load); every worker
// drains the same queue, so admission order is FIFO but up to concurrency
// tasks are in flight simultaneously.
type PoolActor struct {
	class       domain.ResourceClass
	registry    *executor.Registry
	retryConfig func(blockType string) retry.Config
	logger      *slog.Logger
	metrics     *observability.Metrics

	concurrency            int
	queueCap               int
	queueManagementEnabled bool

	mu      sync.Mutex
	cond    *sync.Cond
	pending []task
	running int // workers currently executing a task, bounded by concurrency
	active  map[string]*ExecutorActor // stepID -> in-flight actor, for cancel routing
	stopped bool

	wg sync.WaitGroup
}

// NewPoolActor builds a pool with the given queue capacity and
// concurrency (the number of steps this resource class may run at once;
// values <= 0 default to 1). queueManagementEnabled gates whether Submit
// rejects with ErrQueueFull once the queue holds queueCapacity tasks or
// admits unconditionally, leaving the queue unbounded. retryConfig
// resolves the retry.Config to use for a given block type, letting each
// block type carry its own timeout/retry ceilings; Submit lowers that
// config's MaxRetries to the request's RetryCount when the request's is
// smaller.
func NewPoolActor(class domain.ResourceClass, registry *executor.Registry, queueCapacity, concurrency int, queueManagementEnabled bool, retryConfig func(blockType string) retry.Config, logger *slog.Logger, metrics *observability.Metrics) *PoolActor {
	if concurrency <= 0 {
		concurrency = 1
	}

	p := &PoolActor{
		class:                  class,
		registry:               registry,
		retryConfig:            retryConfig,
		logger:                 logger,
		metrics:                metrics,
		concurrency:            concurrency,
		queueCap:               queueCapacity,
		queueManagementEnabled: queueManagementEnabled,
		active:                 map[string]*ExecutorActor{},
	}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < concurrency; i++ {
		p.wg.Add(1)
		go p.run()
	}

	return p
}

// Submit admits req into the pool's queue. With queue management enabled,
// it returns ErrQueueFull once every concurrency slot is busy and the
// backlog already holds queueCapacity tasks; a task admitted while any
// worker is idle is handed off immediately and never counts against the
// backlog bound. With queue management disabled, the queue is unbounded
// and Submit always admits. The result is delivered asynchronously on the
// returned channel.
func (p *PoolActor) Submit(ctx context.Context, req domain.StepRequest) (<-chan domain.StepResult, error) {
	blockExecutor, err := p.registry.Lookup(req.Type)
	if err != nil {
		resultCh := make(chan domain.StepResult, 1)
		resultCh <- domain.NewErrorResult(req.BlockContext, domain.StatusError, domain.ErrorInvalidInput,
			err.Error(), 0)
		close(resultCh)

		return resultCh, nil
	}

	if err := executor.ValidateInputs(req.Type, req.Inputs); err != nil {
		resultCh := make(chan domain.StepResult, 1)
		resultCh <- domain.NewErrorResult(req.BlockContext, domain.StatusError, domain.ErrorInvalidInput,
			err.Error(), 0)
		close(resultCh)

		return resultCh, nil
	}

	cfg := p.retryConfig(req.Type)
	if req.RetryCount < cfg.MaxRetries {
		cfg.MaxRetries = req.RetryCount
	}

	retryPolicy := retry.New(cfg)
	execActor := NewExecutorActor(blockExecutor, retryPolicy, p.logger, p.metrics)

	resultCh := make(chan domain.StepResult, 1)
	t := task{ctx: ctx, req: req, resultCh: resultCh, actor: execActor}

	p.mu.Lock()

	if p.queueManagementEnabled && p.running >= p.concurrency && len(p.pending) >= p.queueCap {
		p.mu.Unlock()
		return nil, ErrQueueFull
	}

	p.active[req.BlockContext.StepID] = execActor
	p.pending = append(p.pending, t)

	if p.metrics != nil {
		p.metrics.QueueDepth.WithLabelValues(string(p.class)).Set(float64(len(p.pending)))
	}

	p.cond.Signal()
	p.mu.Unlock()

	return resultCh, nil
}

// Cancel best-effort cancels a step, whether it is queued or already
// executing: no further attempt of it starts, and its block executor is
// asked to abort the current one. ExecutorActor.Cancel's sync.Once guard
// makes repeated cancels no-ops. Each step's Run returns exactly one
// StepResult; an attempt that completes despite the cancel keeps its own
// result.
func (p *PoolActor) Cancel(stepID string) {
	p.mu.Lock()
	execActor, ok := p.active[stepID]
	p.mu.Unlock()

	if ok {
		execActor.Cancel(stepID)
	}
}

// Depth returns the current queue backlog - tasks admitted but not yet
// picked up by a worker - for diagnostics and tests.
func (p *PoolActor) Depth() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.pending)
}

// Stop admits no further dispatch and waits for every worker to finish its
// in-flight task.
func (p *PoolActor) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.cond.Broadcast()

	p.wg.Wait()
}

func (p *PoolActor) run() {
	defer p.wg.Done()

	for {
		p.mu.Lock()

		for len(p.pending) == 0 && !p.stopped {
			p.cond.Wait()
		}

		if len(p.pending) == 0 && p.stopped {
			p.mu.Unlock()
			return
		}

		t := p.pending[0]
		p.pending = p.pending[1:]
		p.running++

		if p.metrics != nil {
			p.metrics.QueueDepth.WithLabelValues(string(p.class)).Set(float64(len(p.pending)))
			p.metrics.ActiveExecutions.WithLabelValues(string(p.class)).Inc()
		}

		p.mu.Unlock()

		result := t.actor.Run(t.ctx, t.req)

		t.resultCh <- result
		close(t.resultCh)

		p.mu.Lock()
		delete(p.active, t.req.BlockContext.StepID)
		p.running--

		if p.metrics != nil {
			p.metrics.ActiveExecutions.WithLabelValues(string(p.class)).Dec()
		}

		p.mu.Unlock()
	}
}
