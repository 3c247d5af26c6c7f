package executor

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/beamline-run/beamline/pkg/domain"
	"github.com/beamline-run/beamline/pkg/timeoutpolicy"
)

// DefaultPathAllowList is the configured prefix set spec.md §4.1 names.
var DefaultPathAllowList = []string{
	"/tmp/beamline/",
	"/var/lib/beamline/data/",
	"./data/",
}

func pathAllowed(path string, allowList []string) bool {
	for _, prefix := range allowList {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

// FSBlobPutExecutor implements "fs.blob_put".
type FSBlobPutExecutor struct {
	metricsAccumulator
	cancels   *cancelRegistry
	timeouts  timeoutpolicy.Config
	allowList []string
}

func NewFSBlobPutExecutor(timeouts timeoutpolicy.Config, allowList []string) *FSBlobPutExecutor {
	return &FSBlobPutExecutor{cancels: newCancelRegistry(), timeouts: timeouts, allowList: allowList}
}

func (e *FSBlobPutExecutor) BlockType() string                  { return "fs.blob_put" }
func (e *FSBlobPutExecutor) ResourceClass() domain.ResourceClass { return domain.ResourceClassIO }
func (e *FSBlobPutExecutor) Init(ctx context.Context) error      { return nil }
func (e *FSBlobPutExecutor) Metrics() BlockMetrics               { return e.snapshot() }
func (e *FSBlobPutExecutor) Cancel(stepID string) error          { return e.cancels.cancel(stepID) }

func (e *FSBlobPutExecutor) Execute(ctx context.Context, req domain.StepRequest) domain.StepResult {
	bctx := req.BlockContext
	start := time.Now()

	if res, failed := requireFields(bctx, req.Inputs, "path", "content"); failed {
		e.record(res)
		return res
	}

	path := req.Inputs["path"]
	if !pathAllowed(path, e.allowList) {
		res := domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorPermissionDenied,
			"path not within allowed prefixes", time.Since(start).Milliseconds())
		e.record(res)

		return res
	}

	overwrite := req.Inputs["overwrite"] == "true"
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			res := domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorExecutionFailed,
				"file already exists and overwrite is false", time.Since(start).Milliseconds())
			e.record(res)

			return res
		}
	}

	deadline := e.timeouts.FSTimeoutMs(timeoutpolicy.FSWrite, req.TimeoutMs)

	type writeResult struct {
		size int64
		err  error
	}

	out, err := timeoutpolicy.Run(ctx, time.Duration(deadline)*time.Millisecond, func(runCtx context.Context) (writeResult, error) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return writeResult{}, err
		}

		content := req.Inputs["content"]
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return writeResult{}, err
		}

		return writeResult{size: int64(len(content))}, nil
	})

	latency := time.Since(start).Milliseconds()

	if err == timeoutpolicy.ErrTimedOut {
		res := domain.NewErrorResult(bctx, domain.StatusTimeout, domain.ErrorCancelledByTimeout, "fs write timed out", latency)
		e.record(res)

		return res
	}

	if err != nil {
		res := domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorExecutionFailed, err.Error(), latency)
		e.record(res)

		return res
	}

	res := domain.NewOKResult(bctx, map[string]string{
		"path":    path,
		"size":    strconv.FormatInt(out.size, 10),
		"created": strconv.FormatBool(true),
	}, latency)
	e.record(res)

	return res
}

// FSBlobGetExecutor implements "fs.blob_get".
type FSBlobGetExecutor struct {
	metricsAccumulator
	cancels   *cancelRegistry
	timeouts  timeoutpolicy.Config
	allowList []string
}

func NewFSBlobGetExecutor(timeouts timeoutpolicy.Config, allowList []string) *FSBlobGetExecutor {
	return &FSBlobGetExecutor{cancels: newCancelRegistry(), timeouts: timeouts, allowList: allowList}
}

func (e *FSBlobGetExecutor) BlockType() string                  { return "fs.blob_get" }
func (e *FSBlobGetExecutor) ResourceClass() domain.ResourceClass { return domain.ResourceClassIO }
func (e *FSBlobGetExecutor) Init(ctx context.Context) error      { return nil }
func (e *FSBlobGetExecutor) Metrics() BlockMetrics               { return e.snapshot() }
func (e *FSBlobGetExecutor) Cancel(stepID string) error          { return e.cancels.cancel(stepID) }

func (e *FSBlobGetExecutor) Execute(ctx context.Context, req domain.StepRequest) domain.StepResult {
	bctx := req.BlockContext
	start := time.Now()

	if res, failed := requireFields(bctx, req.Inputs, "path"); failed {
		e.record(res)
		return res
	}

	path := req.Inputs["path"]
	if !pathAllowed(path, e.allowList) {
		res := domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorPermissionDenied,
			"path not within allowed prefixes", time.Since(start).Milliseconds())
		e.record(res)

		return res
	}

	deadline := e.timeouts.FSTimeoutMs(timeoutpolicy.FSRead, req.TimeoutMs)

	type readResult struct {
		content  string
		size     int64
		modified string
	}

	out, err := timeoutpolicy.Run(ctx, time.Duration(deadline)*time.Millisecond, func(runCtx context.Context) (readResult, error) {
		info, err := os.Stat(path)
		if err != nil {
			return readResult{}, err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return readResult{}, err
		}

		return readResult{content: string(data), size: info.Size(), modified: info.ModTime().UTC().Format(time.RFC3339)}, nil
	})

	latency := time.Since(start).Milliseconds()

	if err == timeoutpolicy.ErrTimedOut {
		res := domain.NewErrorResult(bctx, domain.StatusTimeout, domain.ErrorCancelledByTimeout, "fs read timed out", latency)
		e.record(res)

		return res
	}

	if err != nil {
		res := domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorExecutionFailed, err.Error(), latency)
		e.record(res)

		return res
	}

	res := domain.NewOKResult(bctx, map[string]string{
		"path":     path,
		"content":  out.content,
		"size":     strconv.FormatInt(out.size, 10),
		"modified": out.modified,
	}, latency)
	e.record(res)

	return res
}
