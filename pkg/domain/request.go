package domain

import (
	"encoding/hex"
	"sort"

	"github.com/zeebo/blake3"
)

// DefaultTimeoutMs is the request timeout applied when a StepRequest omits
// timeout_ms.
const DefaultTimeoutMs = 30000

// DefaultRetryCount is the retry count applied when a StepRequest omits
// retry_count.
const DefaultRetryCount = 3

// ResourceClass selects which pool a step is routed to.
type ResourceClass string

const (
	ResourceClassCPU ResourceClass = "cpu"
	ResourceClassGPU ResourceClass = "gpu"
	ResourceClassIO  ResourceClass = "io"
)

// StepRequest is one unit of work dispatched to the worker.
type StepRequest struct {
	Type         string            `json:"type" validate:"required"`
	Inputs       map[string]string `json:"inputs"`
	Resources    map[string]string `json:"resources"`
	TimeoutMs    int64             `json:"timeout_ms" validate:"gte=0"`
	RetryCount   int               `json:"retry_count" validate:"gte=0"`
	Guardrails   map[string]string `json:"guardrails"`
	BlockContext BlockContext      `json:"context"`

	// IdempotencyKey is derived by Normalize (blake3 of type+inputs+guardrails)
	// and is never part of the wire envelope. Duplicate deliveries of the
	// same step get the same key; nothing logs it or deduplicates on it.
	IdempotencyKey string `json:"-"`
}

// Normalize fills in the documented defaults for omitted fields.
// Scheduler.Submit calls it before validation, and WorkerActor.Submit
// before routing.
func (r *StepRequest) Normalize() {
	if r.TimeoutMs == 0 {
		r.TimeoutMs = DefaultTimeoutMs
	}

	if r.RetryCount == 0 {
		r.RetryCount = DefaultRetryCount
	}

	if r.Inputs == nil {
		r.Inputs = map[string]string{}
	}

	if r.Resources == nil {
		r.Resources = map[string]string{}
	}

	if r.Guardrails == nil {
		r.Guardrails = map[string]string{}
	}

	if r.IdempotencyKey == "" {
		r.IdempotencyKey = r.computeIdempotencyKey()
	}
}

// computeIdempotencyKey hashes type, inputs, and guardrails with blake3 so
// two deliveries of the same logical step always produce the same key,
// independent of map iteration order.
func (r *StepRequest) computeIdempotencyKey() string {
	hasher := blake3.New()
	hasher.Write([]byte(r.Type))
	writeSortedMap(hasher, r.Inputs)
	writeSortedMap(hasher, r.Guardrails)

	return hex.EncodeToString(hasher.Sum(nil)[:16])
}

func writeSortedMap(hasher *blake3.Hasher, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		hasher.Write([]byte(k))
		hasher.Write([]byte(m[k]))
	}
}

// ResourceClass determines the pool a request is routed to, per spec.md
// §4.6: an explicit "class" resource wins over the type-prefix default.
func (r *StepRequest) ResourceClass() ResourceClass {
	if class, ok := r.Resources["class"]; ok {
		switch ResourceClass(class) {
		case ResourceClassGPU, ResourceClassIO:
			return ResourceClass(class)
		}
	}

	switch {
	case hasPrefix(r.Type, "http.") || hasPrefix(r.Type, "fs."):
		return ResourceClassIO
	case hasPrefix(r.Type, "ai.") || hasPrefix(r.Type, "media."):
		return ResourceClassGPU
	default:
		return ResourceClassCPU
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
