// Package policy evaluates the two gates a StepRequest passes through
// before a pool will admit it: RBAC scope authorization (Rego, via OPA) and
// arbitrary guardrail expressions (via expr-lang/expr).
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/beamline-run/beamline/pkg/domain"
)

// DefaultRBACModule is the bundled Rego policy: a request is authorized iff
// its context carries an RBAC scope matching "block:<type>" or the wildcard
// "block:*". Deployments can override this with their own module via
// NewRBACEvaluator.
const DefaultRBACModule = `
package beamline.rbac

default allow = false

allow if {
	some scope
	input.scopes[scope] == sprintf("block:%s", [input.block_type])
}

allow if {
	some scope
	input.scopes[scope] == "block:*"
}
`

// RBACEvaluator checks a BlockContext's scopes against a compiled Rego
// module before a step is admitted to a pool.
type RBACEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewRBACEvaluator compiles the given Rego module source. Pass
// DefaultRBACModule for the bundled policy.
func NewRBACEvaluator(ctx context.Context, module string) (*RBACEvaluator, error) {
	query, err := rego.New(
		rego.Query("data.beamline.rbac.allow"),
		rego.Module("rbac.rego", module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("policy: compile rbac module: %w", err)
	}

	return &RBACEvaluator{query: query}, nil
}

// Allow reports whether ctx's RBAC scopes authorize execution of blockType.
func (e *RBACEvaluator) Allow(ctx context.Context, bctx domain.BlockContext, blockType string) (bool, error) {
	input := map[string]any{
		"scopes":     bctx.RBACScopes,
		"block_type": blockType,
		"tenant_id":  bctx.TenantID,
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("policy: evaluate rbac: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, nil
	}

	allowed, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		return false, nil
	}

	return allowed, nil
}
