package domain

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce   sync.Once
	structValidator *validator.Validate
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
	})

	return structValidator
}

// Validate checks r's struct tags (validate:"required"/"gte=0" on
// StepRequest and BlockContext). It runs before RBAC/guardrail/quota gates
// so a malformed request is rejected the same way regardless of what
// ingress transport delivered it.
func (r StepRequest) Validate() error {
	if err := getValidator().Struct(r); err != nil {
		return fmt.Errorf("domain: step request fails validation: %w", err)
	}

	return nil
}
