package gate

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wilhg/xmcp/pkg/errmodel"
)

// Registry keeps operations by name and dispatches calls through a Gate.
type Registry struct {
	gate *Gate

	mu  sync.RWMutex
	ops map[string]Operation
}

// NewRegistry returns an empty Registry dispatching through g.
func NewRegistry(g *Gate) *Registry {
	return &Registry{gate: g, ops: map[string]Operation{}}
}

// Register adds op. Names must be unique and schemas must compile.
func (r *Registry) Register(op Operation) error {
	if op.Name == "" {
		return fmt.Errorf("operation name is empty")
	}
	if op.Handler == nil {
		return fmt.Errorf("operation %q has no handler", op.Name)
	}
	if op.InputSchema != nil {
		if err := CompileSchema(op.Name, op.InputSchema); err != nil {
			return fmt.Errorf("operation %q: %w", op.Name, err)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ops[op.Name]; exists {
		return fmt.Errorf("operation %q already registered", op.Name)
	}
	r.ops[op.Name] = op
	return nil
}

// Resolve returns the operation registered under name.
func (r *Registry) Resolve(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// Operations returns every registered operation sorted by name.
func (r *Registry) Operations() []Operation {
	r.mu.RLock()
	out := make([]Operation, 0, len(r.ops))
	for _, op := range r.ops {
		out = append(out, op)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Gate returns the gate calls are dispatched through.
func (r *Registry) Gate() *Gate { return r.gate }

// Call invokes the operation registered under name.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) Result {
	op, ok := r.Resolve(name)
	if !ok {
		return Result{
			Tool:      name,
			Err:       errmodel.NotFound("Unknown tool: "+name, map[string]any{"tool": name}),
			Timestamp: time.Now(),
		}
	}
	return r.gate.Invoke(ctx, op, args)
}
