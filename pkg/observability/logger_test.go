package observability_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/beamline-run/beamline/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_RedactsRBACScopes(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(slog.LevelInfo, &buf)

	logger.Info("dispatching step", "rbac_scopes", "admin:*")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "[redacted]", decoded["rbac_scopes"])
}

func TestNewLogger_DoesNotRedactOtherFields(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(slog.LevelInfo, &buf)

	logger.Info("step ok", "block_type", "http.request")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "http.request", decoded["block_type"])
}

func TestWithFields_CarriesIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	base := observability.NewLogger(slog.LevelInfo, &buf)
	logger := observability.WithFields(base, "tenant-1", "run-1", "step-1", "trace-1")

	logger.Info("hello")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "tenant-1", decoded["tenant_id"])
	assert.Equal(t, "step-1", decoded["step_id"])
}
