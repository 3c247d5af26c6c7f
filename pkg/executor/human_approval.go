package executor

import (
	"context"
	"time"

	"github.com/beamline-run/beamline/pkg/domain"
	"github.com/google/uuid"
)

// HumanApprovalExecutor implements "human.approval". It is a control-plane
// block type: spec.md §7 lists no retryable error codes for it, and in
// sandbox mode it resolves immediately as approved rather than waiting on an
// external approver.
type HumanApprovalExecutor struct {
	metricsAccumulator
	cancels *cancelRegistry
}

func NewHumanApprovalExecutor() *HumanApprovalExecutor {
	return &HumanApprovalExecutor{cancels: newCancelRegistry()}
}

func (e *HumanApprovalExecutor) BlockType() string                  { return "human.approval" }
func (e *HumanApprovalExecutor) ResourceClass() domain.ResourceClass { return domain.ResourceClassCPU }
func (e *HumanApprovalExecutor) Init(ctx context.Context) error      { return nil }
func (e *HumanApprovalExecutor) Metrics() BlockMetrics               { return e.snapshot() }
func (e *HumanApprovalExecutor) Cancel(stepID string) error          { return e.cancels.cancel(stepID) }

func (e *HumanApprovalExecutor) Execute(ctx context.Context, req domain.StepRequest) domain.StepResult {
	bctx := req.BlockContext
	start := time.Now()

	if res, failed := requireFields(bctx, req.Inputs, "approval_type", "description"); failed {
		e.record(res)
		return res
	}

	if bctx.Sandbox {
		res := domain.NewOKResult(bctx, map[string]string{
			"approval_id": uuid.New().String(),
			"status":      "approved",
			"message":     "sandbox mode: auto-approved",
		}, time.Since(start).Milliseconds())
		e.record(res)

		return res
	}

	// Outside sandbox, approval is a long-lived external workflow (a
	// notifier collaborator, out of this worker's scope per spec.md §1);
	// the worker simply records the pending request and returns it as a
	// successful step whose outputs describe how to await the decision.
	res := domain.NewOKResult(bctx, map[string]string{
		"approval_id": uuid.New().String(),
		"status":      "pending",
		"message":     "awaiting approval from: " + req.Inputs["approvers"],
	}, time.Since(start).Milliseconds())
	e.record(res)

	return res
}
