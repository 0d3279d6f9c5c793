// Package agent provides the specialist capability registry plus two Agent
// implementations: ModelAgent, which drives an inference client, and
// FuncAgent, which wraps a plain Go function for tests and local
// capabilities.
package agent

import (
	"fmt"
	"sync"

	"github.com/amandio-vaz/collab-mistral/core"
)

// Registry maps agent identifiers to registered capabilities. It is
// populated during a single initialization phase and append-only
// thereafter; registration order is preserved because the router uses it
// as the deterministic tie-break.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]core.Agent
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]core.Agent)}
}

// Register adds an agent. Registering a duplicate identifier fails rather
// than overwriting silently.
func (r *Registry) Register(a core.Agent) error {
	id := a.Descriptor().Identifier
	if id == "" {
		return fmt.Errorf("agent registry: empty identifier")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[id]; exists {
		return fmt.Errorf("agent registry: duplicate identifier %q", id)
	}
	r.agents[id] = a
	r.order = append(r.order, id)
	return nil
}

// Get returns the agent registered under id.
func (r *Registry) Get(id string) (core.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// Descriptors returns all registered descriptors in registration order.
func (r *Registry) Descriptors() []core.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descs := make([]core.Descriptor, 0, len(r.order))
	for _, id := range r.order {
		descs = append(descs, r.agents[id].Descriptor())
	}
	return descs
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
