package executor

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/beamline-run/beamline/internal/sqlstore"
	"github.com/beamline-run/beamline/pkg/domain"
)

var sandboxForbiddenKeywords = []string{"DROP", "DELETE", "TRUNCATE", "ALTER", "CREATE", "GRANT", "REVOKE"}

// SQLQueryExecutor implements "sql.query", backed by internal/sqlstore.
type SQLQueryExecutor struct {
	metricsAccumulator
	cancels *cancelRegistry

	mu      sync.Mutex
	engines map[string]*sqlstore.Engine
	dsn     func(connection string) string
}

// NewSQLQueryExecutor builds the executor. dsnResolver maps an optional
// "connection" input to a concrete DSN; nil uses the connection string
// verbatim (empty string opens the embedded sandbox database).
func NewSQLQueryExecutor(dsnResolver func(connection string) string) *SQLQueryExecutor {
	if dsnResolver == nil {
		dsnResolver = func(connection string) string { return connection }
	}

	return &SQLQueryExecutor{
		cancels: newCancelRegistry(),
		engines: map[string]*sqlstore.Engine{},
		dsn:     dsnResolver,
	}
}

func (e *SQLQueryExecutor) BlockType() string                  { return "sql.query" }
func (e *SQLQueryExecutor) ResourceClass() domain.ResourceClass { return domain.ResourceClassCPU }
func (e *SQLQueryExecutor) Init(ctx context.Context) error      { return nil }
func (e *SQLQueryExecutor) Metrics() BlockMetrics               { return e.snapshot() }
func (e *SQLQueryExecutor) Cancel(stepID string) error          { return e.cancels.cancel(stepID) }

func (e *SQLQueryExecutor) Execute(ctx context.Context, req domain.StepRequest) domain.StepResult {
	bctx := req.BlockContext
	start := time.Now()

	if res, failed := requireFields(bctx, req.Inputs, "query"); failed {
		e.record(res)
		return res
	}

	query := req.Inputs["query"]

	if _, hasParams := req.Inputs["params"]; hasParams {
		res := domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorInvalidInput,
			"query parameter binding is not implemented", time.Since(start).Milliseconds())
		e.record(res)

		return res
	}

	if bctx.Sandbox {
		upper := strings.ToUpper(query)
		for _, kw := range sandboxForbiddenKeywords {
			if strings.Contains(upper, kw) {
				res := domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorInvalidInput,
					"statement not permitted in sandbox mode", time.Since(start).Milliseconds())
				e.record(res)

				return res
			}
		}
	}

	engine, err := e.engineFor(req.Inputs["connection"])
	if err != nil {
		res := domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorExecutionFailed, err.Error(), time.Since(start).Milliseconds())
		e.record(res)

		return res
	}

	result, err := engine.Query(ctx, query)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		res := domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorExecutionFailed, err.Error(), latency)
		e.record(res)

		return res
	}

	outputs := map[string]string{}

	if result.IsRowResult {
		encoded, err := json.Marshal(result.Rows)
		if err != nil {
			res := domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorInternalError, err.Error(), latency)
			e.record(res)

			return res
		}

		outputs["rows"] = string(encoded)
		outputs["row_count"] = strconv.Itoa(result.RowCount)
	} else {
		outputs["affected_rows"] = strconv.FormatInt(result.AffectedRows, 10)
	}

	res := domain.NewOKResult(bctx, outputs, latency)
	e.record(res)

	return res
}

func (e *SQLQueryExecutor) engineFor(connection string) (*sqlstore.Engine, error) {
	dsn := e.dsn(connection)

	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.engines[dsn]; ok {
		return existing, nil
	}

	engine, err := sqlstore.Open(dsn)
	if err != nil {
		return nil, err
	}

	e.engines[dsn] = engine

	return engine, nil
}
