package executor_test

import (
	"testing"

	"github.com/beamline-run/beamline/pkg/domain"
	"github.com/beamline-run/beamline/pkg/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLQueryExecutor_CreateAndSelect(t *testing.T) {
	exec := executor.NewSQLQueryExecutor(nil)

	create := exec.Execute(t.Context(), domain.StepRequest{
		Type:   "sql.query",
		Inputs: map[string]string{"query": "CREATE TABLE widgets (id INTEGER, name TEXT)"},
	})
	require.Equal(t, domain.StatusOK, create.Status)

	insert := exec.Execute(t.Context(), domain.StepRequest{
		Type:   "sql.query",
		Inputs: map[string]string{"query": "INSERT INTO widgets (id, name) VALUES (1, 'bolt')"},
	})
	require.Equal(t, domain.StatusOK, insert.Status)
	assert.Equal(t, "1", insert.Outputs["affected_rows"])

	selectRes := exec.Execute(t.Context(), domain.StepRequest{
		Type:   "sql.query",
		Inputs: map[string]string{"query": "SELECT id, name FROM widgets"},
	})
	require.Equal(t, domain.StatusOK, selectRes.Status)
	assert.Equal(t, "1", selectRes.Outputs["row_count"])
	assert.Contains(t, selectRes.Outputs["rows"], "bolt")
}

func TestSQLQueryExecutor_RejectsParamsInput(t *testing.T) {
	exec := executor.NewSQLQueryExecutor(nil)

	res := exec.Execute(t.Context(), domain.StepRequest{
		Type:   "sql.query",
		Inputs: map[string]string{"query": "SELECT 1", "params": `{"id":1}`},
	})

	assert.Equal(t, domain.ErrorInvalidInput, res.ErrorCode)
}

func TestSQLQueryExecutor_SandboxRejectsForbiddenKeyword(t *testing.T) {
	exec := executor.NewSQLQueryExecutor(nil)

	res := exec.Execute(t.Context(), domain.StepRequest{
		Type:         "sql.query",
		Inputs:       map[string]string{"query": "DROP TABLE widgets"},
		BlockContext: domain.BlockContext{Sandbox: true},
	})

	assert.Equal(t, domain.ErrorInvalidInput, res.ErrorCode)
}

func TestSQLQueryExecutor_MissingQueryField(t *testing.T) {
	exec := executor.NewSQLQueryExecutor(nil)

	res := exec.Execute(t.Context(), domain.StepRequest{Type: "sql.query", Inputs: map[string]string{}})
	assert.Equal(t, domain.ErrorMissingRequiredField, res.ErrorCode)
}
