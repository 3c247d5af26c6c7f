package domain

import (
	"errors"
	"strconv"
)

// statusWire is a total, bijective mapping between Status and the wire
// status string the ExecResult contract uses. An unknown wire status always
// decodes to StatusError (spec.md §8).
var statusWire = map[Status]string{
	StatusOK:        "success",
	StatusError:     "error",
	StatusTimeout:   "timeout",
	StatusCancelled: "cancelled",
}

var wireStatus = map[string]Status{
	"success":   StatusOK,
	"error":     StatusError,
	"timeout":   StatusTimeout,
	"cancelled": StatusCancelled,
}

// StatusWire converts a Status to its wire representation.
func StatusWire(s Status) string {
	if w, ok := statusWire[s]; ok {
		return w
	}

	return "error"
}

// WireStatus converts a wire status string back to a Status, defaulting to
// StatusError for anything unrecognized.
func WireStatus(s string) Status {
	if st, ok := wireStatus[s]; ok {
		return st
	}

	return StatusError
}

// ErrInvalidResult is returned by ToExecResult when the supplied StepResult
// fails validation and therefore cannot be safely published.
var ErrInvalidResult = errors.New("domain: step result fails invariants, refusing to convert")

// ExecResult is the wire-format result envelope published back to the
// ingress bus. Field presence follows spec.md §6 exactly: trace/run/tenant
// IDs are omitted when empty, error_code/error_message are present iff
// status is "error".
type ExecResult struct {
	Version       string `json:"version"`
	AssignmentID  string `json:"assignment_id"`
	RequestID     string `json:"request_id"`
	Status        string `json:"status"`
	ProviderID    string `json:"provider_id"`
	Job           Job    `json:"job"`
	LatencyMs     string `json:"latency_ms"`
	Cost          string `json:"cost"`
	TraceID       string `json:"trace_id,omitempty"`
	RunID         string `json:"run_id,omitempty"`
	TenantID      string `json:"tenant_id,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// Job is the echoed job descriptor carried on every ExecResult.
type Job struct {
	Type string `json:"type"`
}

// Envelope is the ingress message shape: an assignment/request wrapper
// around a StepRequest. Only the named fields are decoded: the IDs and job
// descriptor are echoed on the resulting ExecResult, and any other field of
// the inbound message is dropped.
type Envelope struct {
	AssignmentID string      `json:"assignment_id"`
	RequestID    string      `json:"request_id"`
	ProviderID   string      `json:"provider_id"`
	Job          Job         `json:"job"`
	Request      StepRequest `json:"request"`
}

// ToExecResult converts a validated StepResult into the wire ExecResult for
// a given envelope. It returns ErrInvalidResult if the result violates any
// §3 invariant — the publishing layer must never forward an invalid result.
func ToExecResult(env Envelope, result StepResult) (ExecResult, error) {
	if !result.Valid(env.Request.RetryCount) {
		return ExecResult{}, ErrInvalidResult
	}

	out := ExecResult{
		Version:      "1",
		AssignmentID: env.AssignmentID,
		RequestID:    env.RequestID,
		Status:       StatusWire(result.Status),
		ProviderID:   env.ProviderID,
		Job:          env.Job,
		LatencyMs:    strconv.FormatInt(result.LatencyMs, 10),
		Cost:         "0.0",
	}

	if result.Metadata.TraceID != "" {
		out.TraceID = result.Metadata.TraceID
	}

	if result.Metadata.RunID != "" {
		out.RunID = result.Metadata.RunID
	}

	if result.Metadata.TenantID != "" {
		out.TenantID = result.Metadata.TenantID
	}

	if result.Status == StatusError {
		out.ErrorCode = result.ErrorCode.Wire()
		if result.ErrorMessage != "" {
			out.ErrorMessage = result.ErrorMessage
		}
	}

	return out, nil
}
