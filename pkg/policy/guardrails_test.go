package policy_test

import (
	"testing"

	"github.com/beamline-run/beamline/pkg/domain"
	"github.com/beamline-run/beamline/pkg/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardrail_PassesWhenExpressionTrue(t *testing.T) {
	program, ok, err := policy.CompileGuardrail(map[string]string{"expr": `inputs.region == "us-east-1"`})
	require.NoError(t, err)
	require.True(t, ok)

	req := domain.StepRequest{Inputs: map[string]string{"region": "us-east-1"}}

	passed, err := policy.EvaluateGuardrail(program, req)
	require.NoError(t, err)
	assert.True(t, passed)
}

func TestGuardrail_FailsWhenExpressionFalse(t *testing.T) {
	program, ok, err := policy.CompileGuardrail(map[string]string{"expr": `sandbox == true`})
	require.NoError(t, err)
	require.True(t, ok)

	req := domain.StepRequest{BlockContext: domain.BlockContext{Sandbox: false}}

	passed, err := policy.EvaluateGuardrail(program, req)
	require.NoError(t, err)
	assert.False(t, passed)
}

func TestCompileGuardrail_NoExprKeyIsNoop(t *testing.T) {
	_, ok, err := policy.CompileGuardrail(map[string]string{"other": "value"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompileGuardrail_RejectsBadSyntax(t *testing.T) {
	_, _, err := policy.CompileGuardrail(map[string]string{"expr": "((("})
	assert.Error(t, err)
}
