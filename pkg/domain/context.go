// Package domain holds the canonical data contracts shared by every worker
// component: the per-request correlation carrier, the inbound step request,
// and the outbound step result.
package domain

// BlockContext is the per-request correlation carrier. It is attached once to
// a StepRequest at ingress and copied (never referenced) into every
// StepResult produced for that request.
type BlockContext struct {
	TenantID   string   `json:"tenant_id"`
	TraceID    string   `json:"trace_id"`
	RunID      string   `json:"run_id"`
	FlowID     string   `json:"flow_id"`
	StepID     string   `json:"step_id" validate:"required"`
	Sandbox    bool     `json:"sandbox"`
	RBACScopes []string `json:"rbac_scopes,omitempty"`
}

// Copy returns a value copy of the context, safe to embed in a result that
// outlives the request.
func (c BlockContext) Copy() BlockContext {
	scopes := make([]string, len(c.RBACScopes))
	copy(scopes, c.RBACScopes)
	c.RBACScopes = scopes

	return c
}

// HasScope reports whether the context carries the given RBAC scope.
func (c BlockContext) HasScope(scope string) bool {
	for _, s := range c.RBACScopes {
		if s == scope {
			return true
		}
	}

	return false
}
