package policy

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/beamline-run/beamline/pkg/domain"
)

// GuardrailEnv is the variable set a guardrail expression evaluates
// against: the step's inputs/resources plus its context, e.g.
// `inputs.region == "us-east-1"`. Input and resource values are strings.
type GuardrailEnv struct {
	Inputs    map[string]string `expr:"inputs"`
	Resources map[string]string `expr:"resources"`
	TenantID  string            `expr:"tenant_id"`
	Sandbox   bool              `expr:"sandbox"`
}

// guardrailExprKey is the StepRequest.Guardrails map key carrying the
// boolean expr-lang expression, per spec.md §9's glossary entry.
const guardrailExprKey = "expr"

// CompileGuardrail compiles the "expr" entry of a request's guardrails map,
// if present. ok is false when there is nothing to evaluate.
func CompileGuardrail(guardrails map[string]string) (program *vm.Program, ok bool, err error) {
	src, present := guardrails[guardrailExprKey]
	if !present || src == "" {
		return nil, false, nil
	}

	program, err = expr.Compile(src, expr.Env(GuardrailEnv{}), expr.AsBool())
	if err != nil {
		return nil, false, fmt.Errorf("policy: compile guardrail expression: %w", err)
	}

	return program, true, nil
}

// EvaluateGuardrail runs a compiled guardrail expression against req.
func EvaluateGuardrail(program *vm.Program, req domain.StepRequest) (bool, error) {
	env := GuardrailEnv{
		Inputs:    req.Inputs,
		Resources: req.Resources,
		TenantID:  req.BlockContext.TenantID,
		Sandbox:   req.BlockContext.Sandbox,
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("policy: evaluate guardrail expression: %w", err)
	}

	passed, ok := out.(bool)

	return ok && passed, nil
}
