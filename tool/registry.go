package tool

import (
	"fmt"
	"sync"
)

// Registry maps tool names to executable capabilities. It is populated
// during a single initialization phase and read-only during request
// processing.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a duplicate name fails rather than
// overwriting silently.
func (r *Registry) Register(t Tool) error {
	name := t.Descriptor().Name
	if name == "" {
		return fmt.Errorf("tool registry: empty tool name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool registry: duplicate tool %q", name)
	}
	r.tools[name] = t
	return nil
}

// Resolve returns the tool registered under name, or a ToolError with code
// UNKNOWN_TOOL.
func (r *Registry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, NewToolError(name, "tool is not registered", CodeUnknownTool)
	}
	return t, nil
}

// Names returns the registered tool names in unspecified order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}
