package tools

import (
	"context"
	"fmt"

	"github.com/parley-ai/parley/internal/llm"
	"github.com/parley-ai/parley/internal/log"
)

// Registry holds the tool set advertised to the model. Registration
// happens once at startup; Dispatch is safe for concurrent use
// afterwards.
type Registry struct {
	tools  map[string]Tool
	order  []string
	logger log.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger log.Logger) *Registry {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger,
	}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool with empty name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	r.logger.Debug("tool registered", "tool", name)
	return nil
}

// Descriptors returns the advertised capability list in registration
// order.
func (r *Registry) Descriptors() []llm.ToolDescriptor {
	descs := make([]llm.ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		descs = append(descs, llm.ToolDescriptor{
			Name:        name,
			Description: r.tools[name].Description(),
		})
	}
	return descs
}

// Dispatch runs the named tool and always returns an observation.
// Unknown names, invoke errors and invoke panics all become
// "ERROR:"-prefixed text instead of propagating.
func (r *Registry) Dispatch(ctx context.Context, name, input string) (observation string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked", "tool", name, "panic", rec)
			observation = fmt.Sprintf("ERROR: tool %q failed unexpectedly: %v", name, rec)
		}
	}()

	tool, ok := r.tools[name]
	if !ok {
		r.logger.Warn("model requested unknown tool", "tool", name)
		return fmt.Sprintf("ERROR: unknown tool %q", name)
	}

	out, err := tool.Invoke(ctx, input)
	if err != nil {
		r.logger.Warn("tool invocation failed", "tool", name, "error", err)
		return fmt.Sprintf("ERROR: %v", err)
	}
	return out
}
