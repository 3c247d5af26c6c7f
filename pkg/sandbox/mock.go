// Package sandbox provides the dry-run mock runtime: a BlockExecutor
// decorator that, for sandboxed requests, never performs real I/O and
// instead returns a deterministic canned response, after still applying the
// sandbox safety rules (URL scheme / SQL keyword rejection) a real attempt
// would have enforced.
package sandbox

import (
	"context"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/beamline-run/beamline/pkg/domain"
	"github.com/beamline-run/beamline/pkg/executor"
)

// forbiddenSQLKeywords mirrors spec.md's sandbox SQL safety rule.
var forbiddenSQLKeywords = []string{"DROP", "DELETE", "TRUNCATE", "ALTER", "CREATE", "GRANT", "REVOKE"}

var forbiddenURLSchemes = []string{"file://", "ftp://"}

// MockExecutor wraps a real BlockExecutor. Non-sandboxed requests pass
// through untouched; sandboxed requests are validated for safety and then
// answered with a deterministic mock response, never reaching the inner
// executor's real I/O path.
type MockExecutor struct {
	inner executor.BlockExecutor
}

// NewMockExecutor builds a dry-run decorator around inner.
func NewMockExecutor(inner executor.BlockExecutor) *MockExecutor {
	return &MockExecutor{inner: inner}
}

func (m *MockExecutor) BlockType() string                   { return m.inner.BlockType() }
func (m *MockExecutor) ResourceClass() domain.ResourceClass { return m.inner.ResourceClass() }
func (m *MockExecutor) Init(ctx context.Context) error      { return m.inner.Init(ctx) }
func (m *MockExecutor) Cancel(stepID string) error          { return m.inner.Cancel(stepID) }
func (m *MockExecutor) Metrics() executor.BlockMetrics      { return m.inner.Metrics() }

func (m *MockExecutor) Execute(ctx context.Context, req domain.StepRequest) domain.StepResult {
	if !req.BlockContext.Sandbox {
		return m.inner.Execute(ctx, req)
	}

	start := time.Now()

	if reason, unsafe := unsafeRequest(req); unsafe {
		return domain.NewErrorResult(req.BlockContext, domain.StatusError, domain.ErrorInvalidInput,
			reason, time.Since(start).Milliseconds())
	}

	return domain.NewOKResult(req.BlockContext, mockOutputs(req), time.Since(start).Milliseconds())
}

// unsafeRequest applies the same sandbox safety rules the real executors
// enforce, so a dry run never returns "success" for a request that would
// have been rejected in production.
func unsafeRequest(req domain.StepRequest) (reason string, unsafe bool) {
	switch {
	case strings.HasPrefix(req.Type, "http."):
		url := req.Inputs["url"]
		for _, scheme := range forbiddenURLSchemes {
			if strings.HasPrefix(url, scheme) {
				return "url scheme not permitted in sandbox mode", true
			}
		}
	case req.Type == "sql.query":
		upper := strings.ToUpper(req.Inputs["query"])
		for _, kw := range forbiddenSQLKeywords {
			if strings.Contains(upper, kw) {
				return "statement not permitted in sandbox mode", true
			}
		}
	}

	return "", false
}

// mockOutputs derives a deterministic, reproducible output set from the
// request's type and inputs: identical requests always get the identical
// mock response, which is what makes dry-run output usable in assertions.
func mockOutputs(req domain.StepRequest) map[string]string {
	hasher := blake3.New()
	hasher.Write([]byte(req.Type))

	for _, key := range sortedKeys(req.Inputs) {
		hasher.Write([]byte(key))
		hasher.Write([]byte(req.Inputs[key]))
	}

	digest := hex.EncodeToString(hasher.Sum(nil))[:16]

	return map[string]string{
		"mock":        "true",
		"mock_digest": digest,
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
