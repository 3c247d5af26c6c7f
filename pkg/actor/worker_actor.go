package actor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/beamline-run/beamline/pkg/domain"
	"github.com/beamline-run/beamline/pkg/executor"
	"github.com/beamline-run/beamline/pkg/observability"
	"github.com/beamline-run/beamline/pkg/retry"
)

// WorkerActor is the top-level entry point: it routes each StepRequest to
// the PoolActor for its resource class and relays cancellation to every
// pool, since a stepID is only known to belong to one of them at routing
// time.
type WorkerActor struct {
	pools map[domain.ResourceClass]*PoolActor
}

// WorkerConfig configures per-class queue capacity, concurrency, and
// retry policy resolution for a new WorkerActor.
type WorkerConfig struct {
	// QueueCapacity is the per-class backlog bound. Classes absent from the
	// map or given a negative value default to 100; 0 allows no backlog.
	QueueCapacity map[domain.ResourceClass]int
	// MaxConcurrency is the per-class cpu_pool_size/gpu_pool_size/
	// io_pool_size ceiling from spec.md §5: how many steps of that
	// resource class may run at once. Classes absent or <= 0 default to 4.
	MaxConcurrency map[domain.ResourceClass]int
	// QueueManagementEnabled mirrors config.FeatureFlags.QueueManagementEnabled:
	// when false every pool's queue is unbounded and Submit never rejects.
	QueueManagementEnabled bool
	RetryConfig            func(blockType string) retry.Config
	Logger                 *slog.Logger
	Metrics                *observability.Metrics
}

// NewWorkerActor builds one pool per resource class and starts their
// dispatch goroutines.
func NewWorkerActor(registry *executor.Registry, cfg WorkerConfig) *WorkerActor {
	pools := map[domain.ResourceClass]*PoolActor{}

	for _, class := range []domain.ResourceClass{domain.ResourceClassCPU, domain.ResourceClassGPU, domain.ResourceClassIO} {
		capacity, ok := cfg.QueueCapacity[class]
		if !ok || capacity < 0 {
			capacity = 100
		}

		concurrency := cfg.MaxConcurrency[class]
		if concurrency <= 0 {
			concurrency = 4
		}

		pools[class] = NewPoolActor(class, registry, capacity, concurrency, cfg.QueueManagementEnabled, cfg.RetryConfig, cfg.Logger, cfg.Metrics)
	}

	return &WorkerActor{pools: pools}
}

// Submit normalizes req, routes it to the pool for its resource class, and
// returns a channel that receives exactly one terminal StepResult.
func (w *WorkerActor) Submit(ctx context.Context, req domain.StepRequest) (<-chan domain.StepResult, error) {
	req.Normalize()

	class := req.ResourceClass()

	pool, ok := w.pools[class]
	if !ok {
		return nil, fmt.Errorf("actor: no pool configured for resource class %q", class)
	}

	return pool.Submit(ctx, req)
}

// Cancel broadcasts a cancellation to every pool; only the pool actually
// holding stepID acts on it.
func (w *WorkerActor) Cancel(stepID string) {
	for _, pool := range w.pools {
		pool.Cancel(stepID)
	}
}

// Stop stops every pool, waiting for in-flight work to finish.
func (w *WorkerActor) Stop() {
	for _, pool := range w.pools {
		pool.Stop()
	}
}

// QueueDepth returns the current queue depth for one resource class, for
// diagnostics.
func (w *WorkerActor) QueueDepth(class domain.ResourceClass) int {
	pool, ok := w.pools[class]
	if !ok {
		return 0
	}

	return pool.Depth()
}
