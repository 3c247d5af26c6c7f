package executor

import (
	"fmt"
	"log/slog"
)

// Registry is the closed, read-mostly type → executor table spec.md §9
// describes: built at startup, immutable afterwards, looked up by plain
// string equality from any pool goroutine.
type Registry struct {
	logger    *slog.Logger
	executors map[string]BlockExecutor
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		executors: make(map[string]BlockExecutor),
	}
}

// Register adds an executor under its own BlockType(), overwriting any
// previous registration for that type.
func (r *Registry) Register(e BlockExecutor) {
	r.executors[e.BlockType()] = e
	r.logger.Info("registered block executor", "block_type", e.BlockType(), "resource_class", e.ResourceClass())
}

// Lookup returns the executor registered for blockType, if any.
func (r *Registry) Lookup(blockType string) (BlockExecutor, error) {
	e, ok := r.executors[blockType]
	if !ok {
		return nil, fmt.Errorf("executor: block type %q not registered", blockType)
	}

	return e, nil
}

// Types returns every registered block type, for diagnostics.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.executors))
	for t := range r.executors {
		types = append(types, t)
	}

	return types
}
