package agent

import (
	"context"

	"github.com/amandio-vaz/collab-mistral/core"
)

// FuncAgent adapts a plain Go function into a core.Agent. Mostly used in
// tests and for capabilities that need no inference call at all.
type FuncAgent struct {
	desc core.Descriptor
	fn   func(ctx context.Context, inv *core.Invocation) (core.Outcome, error)
}

// NewFuncAgent constructs a FuncAgent from a descriptor and a run function.
func NewFuncAgent(desc core.Descriptor, fn func(ctx context.Context, inv *core.Invocation) (core.Outcome, error)) *FuncAgent {
	return &FuncAgent{desc: desc, fn: fn}
}

// Descriptor implements core.Agent.
func (a *FuncAgent) Descriptor() core.Descriptor { return a.desc }

// Run implements core.Agent.
func (a *FuncAgent) Run(ctx context.Context, inv *core.Invocation) (core.Outcome, error) {
	return a.fn(ctx, inv)
}
