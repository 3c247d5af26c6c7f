package sandbox_test

import (
	"testing"

	"github.com/beamline-run/beamline/pkg/domain"
	"github.com/beamline-run/beamline/pkg/executor"
	"github.com/beamline-run/beamline/pkg/sandbox"
	"github.com/beamline-run/beamline/pkg/timeoutpolicy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockExecutor_PassesThroughNonSandboxRequests(t *testing.T) {
	inner := executor.NewHumanApprovalExecutor()
	mock := sandbox.NewMockExecutor(inner)

	req := domain.StepRequest{
		Type:   "human.approval",
		Inputs: map[string]string{"approval_type": "x", "description": "y", "approvers": "alice"},
	}

	result := mock.Execute(t.Context(), req)
	assert.Equal(t, "pending", result.Outputs["status"])
}

func TestMockExecutor_DeterministicAcrossCalls(t *testing.T) {
	inner := executor.NewHTTPRequestExecutor(timeoutpolicy.DefaultConfig(true))
	mock := sandbox.NewMockExecutor(inner)

	req := domain.StepRequest{
		Type:         "http.request",
		Inputs:       map[string]string{"url": "https://example.com", "method": "GET"},
		BlockContext: domain.BlockContext{Sandbox: true},
	}

	first := mock.Execute(t.Context(), req)
	second := mock.Execute(t.Context(), req)

	require.Equal(t, domain.StatusOK, first.Status)
	assert.Equal(t, first.Outputs["mock_digest"], second.Outputs["mock_digest"])
}

func TestMockExecutor_RejectsForbiddenURLScheme(t *testing.T) {
	inner := executor.NewHTTPRequestExecutor(timeoutpolicy.DefaultConfig(true))
	mock := sandbox.NewMockExecutor(inner)

	req := domain.StepRequest{
		Type:         "http.request",
		Inputs:       map[string]string{"url": "file:///etc/passwd", "method": "GET"},
		BlockContext: domain.BlockContext{Sandbox: true},
	}

	result := mock.Execute(t.Context(), req)
	assert.Equal(t, domain.ErrorInvalidInput, result.ErrorCode)
}

func TestMockExecutor_RejectsForbiddenSQLKeyword(t *testing.T) {
	inner := executor.NewSQLQueryExecutor(nil)
	mock := sandbox.NewMockExecutor(inner)

	req := domain.StepRequest{
		Type:         "sql.query",
		Inputs:       map[string]string{"query": "DROP TABLE widgets"},
		BlockContext: domain.BlockContext{Sandbox: true},
	}

	result := mock.Execute(t.Context(), req)
	assert.Equal(t, domain.ErrorInvalidInput, result.ErrorCode)
}
