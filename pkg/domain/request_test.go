package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamline-run/beamline/pkg/domain"
)

func TestNormalize_FillsDefaultsAndIdempotencyKey(t *testing.T) {
	req := domain.StepRequest{Type: "http.request", BlockContext: domain.BlockContext{StepID: "step-1"}}
	req.Normalize()

	assert.Equal(t, int64(domain.DefaultTimeoutMs), req.TimeoutMs)
	assert.Equal(t, domain.DefaultRetryCount, req.RetryCount)
	assert.NotEmpty(t, req.IdempotencyKey)
}

func TestNormalize_IdempotencyKeyStableAcrossInputOrder(t *testing.T) {
	a := domain.StepRequest{
		Type:         "http.request",
		Inputs:       map[string]string{"url": "https://example.com", "method": "GET"},
		BlockContext: domain.BlockContext{StepID: "step-1"},
	}
	b := domain.StepRequest{
		Type:         "http.request",
		Inputs:       map[string]string{"method": "GET", "url": "https://example.com"},
		BlockContext: domain.BlockContext{StepID: "step-1"},
	}

	a.Normalize()
	b.Normalize()

	assert.Equal(t, a.IdempotencyKey, b.IdempotencyKey)
}

func TestNormalize_IdempotencyKeyDiffersOnInputs(t *testing.T) {
	a := domain.StepRequest{Type: "http.request", Inputs: map[string]string{"url": "https://a.example.com"}}
	b := domain.StepRequest{Type: "http.request", Inputs: map[string]string{"url": "https://b.example.com"}}

	a.Normalize()
	b.Normalize()

	assert.NotEqual(t, a.IdempotencyKey, b.IdempotencyKey)
}

func TestResourceClass_ExplicitClassWins(t *testing.T) {
	req := domain.StepRequest{Type: "sql.query", Resources: map[string]string{"class": "gpu"}}
	assert.Equal(t, domain.ResourceClassGPU, req.ResourceClass())
}

func TestResourceClass_DefaultsByTypePrefix(t *testing.T) {
	assert.Equal(t, domain.ResourceClassIO, (&domain.StepRequest{Type: "http.request"}).ResourceClass())
	assert.Equal(t, domain.ResourceClassCPU, (&domain.StepRequest{Type: "sql.query"}).ResourceClass())
}

func TestValidate_RejectsMissingType(t *testing.T) {
	req := domain.StepRequest{BlockContext: domain.BlockContext{StepID: "step-1"}}
	require.Error(t, req.Validate())
}

func TestValidate_RejectsMissingStepID(t *testing.T) {
	req := domain.StepRequest{Type: "http.request"}
	require.Error(t, req.Validate())
}

func TestValidate_PassesWellFormedRequest(t *testing.T) {
	req := domain.StepRequest{Type: "http.request", BlockContext: domain.BlockContext{StepID: "step-1"}}
	require.NoError(t, req.Validate())
}
