package executor

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/beamline-run/beamline/pkg/domain"
	"github.com/beamline-run/beamline/pkg/timeoutpolicy"
)

var allowedHTTPMethods = map[string]bool{
	http.MethodGet: true, http.MethodPost: true, http.MethodPut: true, http.MethodDelete: true,
}

// HTTPRequestExecutor implements the "http.request" block type. One Execute
// call is one attempt; ExecutorActor owns the retry loop around it.
type HTTPRequestExecutor struct {
	metricsAccumulator
	cancels *cancelRegistry

	timeouts timeoutpolicy.Config
	client   *http.Client
}

// NewHTTPRequestExecutor builds the executor with the given timeout config.
func NewHTTPRequestExecutor(timeouts timeoutpolicy.Config) *HTTPRequestExecutor {
	return &HTTPRequestExecutor{
		cancels:  newCancelRegistry(),
		timeouts: timeouts,
		client:   &http.Client{},
	}
}

func (e *HTTPRequestExecutor) BlockType() string                  { return "http.request" }
func (e *HTTPRequestExecutor) ResourceClass() domain.ResourceClass { return domain.ResourceClassIO }
func (e *HTTPRequestExecutor) Init(ctx context.Context) error      { return nil }
func (e *HTTPRequestExecutor) Metrics() BlockMetrics               { return e.snapshot() }
func (e *HTTPRequestExecutor) Cancel(stepID string) error          { return e.cancels.cancel(stepID) }

func (e *HTTPRequestExecutor) Execute(ctx context.Context, req domain.StepRequest) domain.StepResult {
	bctx := req.BlockContext
	start := time.Now()

	if res, failed := requireFields(bctx, req.Inputs, "url", "method"); failed {
		e.record(res)
		return res
	}

	method := strings.ToUpper(req.Inputs["method"])
	if !allowedHTTPMethods[method] {
		res := domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorInvalidInput,
			"method must be one of GET|POST|PUT|DELETE", time.Since(start).Milliseconds())
		e.record(res)

		return res
	}

	url := req.Inputs["url"]
	if bctx.Sandbox && (strings.HasPrefix(url, "file://") || strings.HasPrefix(url, "ftp://")) {
		res := domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorInvalidInput,
			"scheme not permitted in sandbox mode", time.Since(start).Milliseconds())
		e.record(res)

		return res
	}

	totalMs := e.timeouts.HTTPTotalTimeoutMs(req.TimeoutMs)

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(totalMs)*time.Millisecond)
	e.cancels.track(bctx.StepID, cancel)

	defer func() {
		e.cancels.untrack(bctx.StepID)
		cancel()
	}()

	var body io.Reader
	if b, ok := req.Inputs["body"]; ok && b != "" {
		body = strings.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(runCtx, method, url, body)
	if err != nil {
		res := domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorInvalidFormat, err.Error(), time.Since(start).Milliseconds())
		e.record(res)

		return res
	}

	for k, v := range parseHeaders(req.Inputs) {
		httpReq.Header.Set(k, v)
	}

	resp, err := e.client.Do(httpReq)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			res := domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorConnectionTimeout, err.Error(), latency)
			e.record(res)

			return res
		}

		res := domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorNetworkError, err.Error(), latency)
		e.record(res)

		return res
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		res := domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorNetworkError, err.Error(), latency)
		e.record(res)

		return res
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	if resp.StatusCode >= 500 || resp.StatusCode >= 400 {
		res := domain.NewErrorResult(bctx, domain.StatusError, domain.ErrorHTTPError,
			"http server responded "+strconv.Itoa(resp.StatusCode), latency)
		res.HTTPStatus = resp.StatusCode
		res.Outputs = map[string]string{
			"status_code": strconv.Itoa(resp.StatusCode),
			"body":        string(bodyBytes),
		}
		e.record(res)

		return res
	}

	res := domain.NewOKResult(bctx, map[string]string{
		"status_code": strconv.Itoa(resp.StatusCode),
		"body":        string(bodyBytes),
		"headers":     encodeHeaders(headers),
	}, latency)
	res.HTTPStatus = resp.StatusCode
	e.record(res)

	return res
}

func parseHeaders(inputs map[string]string) map[string]string {
	prefix := "header."
	headers := map[string]string{}

	for k, v := range inputs {
		if strings.HasPrefix(k, prefix) {
			headers[strings.TrimPrefix(k, prefix)] = v
		}
	}

	return headers
}

func encodeHeaders(headers map[string]string) string {
	var b strings.Builder
	for k, v := range headers {
		if b.Len() > 0 {
			b.WriteByte(';')
		}

		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}

	return b.String()
}
