package executor_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/beamline-run/beamline/pkg/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := executor.NewRegistry(discardLogger())
	r.Register(executor.NewHumanApprovalExecutor())

	found, err := r.Lookup("human.approval")
	require.NoError(t, err)
	assert.Equal(t, "human.approval", found.BlockType())
	assert.Contains(t, r.Types(), "human.approval")
}

func TestRegistry_LookupUnknownType(t *testing.T) {
	r := executor.NewRegistry(discardLogger())

	_, err := r.Lookup("nonexistent.block")
	assert.Error(t, err)
}
