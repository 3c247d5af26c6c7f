package executor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamline-run/beamline/pkg/executor"
)

func TestValidateInputs_PassesWellFormedHTTPRequest(t *testing.T) {
	err := executor.ValidateInputs("http.request", map[string]string{"url": "https://example.com", "method": "GET"})
	require.NoError(t, err)
}

func TestValidateInputs_RejectsMissingRequiredField(t *testing.T) {
	err := executor.ValidateInputs("http.request", map[string]string{"url": "https://example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http.request")
}

func TestValidateInputs_RejectsDisallowedMethod(t *testing.T) {
	err := executor.ValidateInputs("http.request", map[string]string{"url": "https://example.com", "method": "PATCH"})
	require.Error(t, err)
}

func TestValidateInputs_UnknownBlockTypePassesThrough(t *testing.T) {
	err := executor.ValidateInputs("custom.block", map[string]string{"anything": "goes"})
	require.NoError(t, err)
}
