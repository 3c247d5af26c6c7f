package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/beamline-run/beamline/pkg/actor"
	"github.com/beamline-run/beamline/pkg/domain"
	"github.com/beamline-run/beamline/pkg/policy"
)

// DefaultStepMemoryBytes and DefaultStepCPUTimeMs are the quota charge
// applied to every step. Requests carry no resource estimate of their own
// and no execution metrics feed back into the charge, so every step is
// charged this flat amount.
const (
	DefaultStepMemoryBytes = 64 * 1024 * 1024
	DefaultStepCPUTimeMs   = 1000
)

// Scheduler gates WorkerActor submissions behind per-tenant quota and
// RBAC/guardrail policy checks.
type Scheduler struct {
	worker  *actor.WorkerActor
	quotas  *QuotaTracker
	rbac    *policy.RBACEvaluator
	logger  *slog.Logger
	cronJob *cron.Cron
}

// NewScheduler wires a WorkerActor behind quota and RBAC enforcement.
func NewScheduler(worker *actor.WorkerActor, quotas *QuotaTracker, rbac *policy.RBACEvaluator, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		worker: worker,
		quotas: quotas,
		rbac:   rbac,
		logger: logger,
	}
}

// Submit enforces RBAC, guardrails, and quota before handing req to the
// worker. A rejection at any gate never reaches the worker and is returned
// as a StepResult the caller can publish directly, matching spec.md §4.7's
// "reject before admission" semantics.
func (s *Scheduler) Submit(ctx context.Context, req domain.StepRequest) (domain.StepResult, error) {
	req.Normalize()
	bctx := req.BlockContext

	if err := req.Validate(); err != nil {
		return domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorInvalidInput, err.Error(), 0), nil
	}

	if s.rbac != nil {
		allowed, err := s.rbac.Allow(ctx, bctx, req.Type)
		if err != nil {
			return domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorInternalError, err.Error(), 0), nil
		}

		if !allowed {
			return domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorPermissionDenied,
				"rbac scopes do not authorize block type "+req.Type, 0), nil
		}
	}

	if program, hasGuardrail, err := policy.CompileGuardrail(req.Guardrails); err != nil {
		return domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorInvalidInput, err.Error(), 0), nil
	} else if hasGuardrail {
		passed, err := policy.EvaluateGuardrail(program, req)
		if err != nil {
			return domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorInternalError, err.Error(), 0), nil
		}

		if !passed {
			return domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorInvalidInput,
				"guardrail expression rejected request", 0), nil
		}
	}

	if s.quotas != nil {
		if !s.quotas.Reserve(bctx.TenantID, DefaultStepMemoryBytes, DefaultStepCPUTimeMs) {
			return domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorQuotaExceeded,
				"tenant quota exceeded", 0), nil
		}

		defer s.quotas.Release(bctx.TenantID, DefaultStepMemoryBytes, DefaultStepCPUTimeMs)
	}

	resultCh, err := s.worker.Submit(ctx, req)
	if err != nil {
		if errors.Is(err, actor.ErrQueueFull) {
			s.logger.Warn("queue_full", "tenant_id", bctx.TenantID, "step_id", bctx.StepID,
				"resource_class", string(req.ResourceClass()))

			return domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorSystemOverload,
				"pool queue is full", 0), nil
		}

		return domain.StepResult{}, err
	}

	select {
	case result := <-resultCh:
		return result, nil
	case <-ctx.Done():
		s.worker.Cancel(bctx.StepID)
		return domain.NewErrorResult(bctx, domain.StatusCancelled, domain.ErrorCancelledByUser, "caller context cancelled", 0), nil
	}
}

// StartQuotaResetSchedule registers a cron job that resets every tenant's
// quota usage on the given spec (e.g. "@every 1h"). It must be called at
// most once per Scheduler.
func (s *Scheduler) StartQuotaResetSchedule(spec string) error {
	s.cronJob = cron.New()

	_, err := s.cronJob.AddFunc(spec, func() {
		s.quotas.ResetAll()
		s.logger.Info("tenant quota counters reset", "reset_at", time.Now().UTC())
	})
	if err != nil {
		return err
	}

	s.cronJob.Start()

	return nil
}

// Stop stops the cron job, if started, and the underlying worker.
func (s *Scheduler) Stop() {
	if s.cronJob != nil {
		stopCtx := s.cronJob.Stop()
		<-stopCtx.Done()
	}

	s.worker.Stop()
}
