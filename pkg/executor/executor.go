// Package executor defines the BlockExecutor capability (spec.md §4.1) and
// its built-in implementations. An executor never raises: every failure path
// ends in a fully-populated domain.StepResult.
package executor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/beamline-run/beamline/pkg/domain"
)

// BlockExecutor is the uniform execute/cancel/metrics surface every block
// type implements. Instances are owned by the worker process, one per block
// type, initialized once at registration and invoked concurrently from any
// pool goroutine — implementations must be safe for concurrent Execute calls.
type BlockExecutor interface {
	// BlockType is the stable identifier used for registry lookup and pool
	// routing (e.g. "http.request").
	BlockType() string

	// ResourceClass determines which pool this block type is dispatched to.
	ResourceClass() domain.ResourceClass

	// Init is called once per executor instance at registration.
	Init(ctx context.Context) error

	// Execute runs one attempt. It must always populate result metadata from
	// ctx and return a result valid under domain.StepResult.Valid.
	Execute(ctx context.Context, req domain.StepRequest) domain.StepResult

	// Cancel best-effort aborts in-flight work for the given step.
	Cancel(stepID string) error

	// Metrics returns a snapshot of accumulated counters.
	Metrics() BlockMetrics
}

// BlockMetrics is the accumulated per-executor snapshot spec.md §4.1
// requires: latency, resource consumption, and success/error counts.
type BlockMetrics struct {
	LatencyMs    int64
	CPUTimeMs    int64
	MemBytes     int64
	SuccessCount int64
	ErrorCount   int64
}

// metricsAccumulator is embedded by every built-in executor so they share
// one lock-free bookkeeping implementation instead of reinventing atomic
// counters per block type.
type metricsAccumulator struct {
	latencyMs    atomic.Int64
	cpuTimeMs    atomic.Int64
	memBytes     atomic.Int64
	successCount atomic.Int64
	errorCount   atomic.Int64
}

func (m *metricsAccumulator) record(result domain.StepResult) {
	m.latencyMs.Add(result.LatencyMs)
	if result.Status == domain.StatusOK {
		m.successCount.Add(1)
	} else {
		m.errorCount.Add(1)
	}
}

func (m *metricsAccumulator) snapshot() BlockMetrics {
	return BlockMetrics{
		LatencyMs:    m.latencyMs.Load(),
		CPUTimeMs:    m.cpuTimeMs.Load(),
		MemBytes:     m.memBytes.Load(),
		SuccessCount: m.successCount.Load(),
		ErrorCount:   m.errorCount.Load(),
	}
}

// cancelRegistry tracks in-flight step IDs so Cancel can best-effort signal
// them. Shared by every built-in executor via embedding.
type cancelRegistry struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func newCancelRegistry() *cancelRegistry {
	return &cancelRegistry{cancels: map[string]context.CancelFunc{}}
}

func (r *cancelRegistry) track(stepID string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels[stepID] = cancel
}

func (r *cancelRegistry) untrack(stepID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cancels, stepID)
}

func (r *cancelRegistry) cancel(stepID string) error {
	r.mu.Lock()
	cancel, ok := r.cancels[stepID]
	r.mu.Unlock()

	if ok {
		cancel()
	}

	return nil
}

// requireFields returns ErrorMissingRequiredField via a StepResult when any
// of the named input keys is absent or empty, matching the per-type table
// in spec.md §4.1. It returns (result, true) on failure, (zero, false) on
// success so callers can `if res, failed := requireFields(...); failed`.
func requireFields(ctx domain.BlockContext, inputs map[string]string, fields ...string) (domain.StepResult, bool) {
	for _, f := range fields {
		if v, ok := inputs[f]; !ok || v == "" {
			return domain.NewErrorResult(ctx, domain.StatusError, domain.ErrorMissingRequiredField,
				"missing required field: "+f, 0), true
		}
	}

	return domain.StepResult{}, false
}
