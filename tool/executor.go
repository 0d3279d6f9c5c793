package tool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amandio-vaz/collab-mistral/internal/util"
	"github.com/amandio-vaz/collab-mistral/logging"
)

// ExecutorOptions configure tool execution policy.
type ExecutorOptions struct {
	// Timeout bounds a single tool invocation.
	Timeout time.Duration
	// Logger receives per-invocation execution records.
	Logger logging.Logger
}

// Executor resolves, validates, gates and runs tool invocations on behalf
// of agents.
//
// Invariants enforced here, in order:
//  1. The tool must be registered (UNKNOWN_TOOL otherwise).
//  2. Arguments must validate against the declared schema before the
//     underlying action runs (SCHEMA_VIOLATION). Mutating and
//     external-network tools must never execute on unvalidated input.
//  3. Mutating and external-network tools additionally require the calling
//     agent to be allow-listed for that tool (NOT_ALLOWED).
//  4. Execution runs under a scoped timeout (TIMEOUT). A mutating tool that
//     is already running when the request is canceled runs to completion;
//     the caller decides what to do with its result.
type Executor struct {
	registry *Registry

	mu        sync.RWMutex
	allowlist map[string]map[string]bool // agent identifier -> tool name -> allowed

	timeout time.Duration
	logger  logging.Logger
}

// NewExecutor creates an Executor over the given registry.
func NewExecutor(registry *Registry, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{
		Timeout: 15 * time.Second,
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Executor{
		registry:  registry,
		allowlist: make(map[string]map[string]bool),
		timeout:   opts.Timeout,
		logger:    opts.Logger,
	}
}

// Allow grants an agent access to the named tools. Only mutating and
// external-network tools need a grant; read-only tools are always callable.
func (x *Executor) Allow(agentID string, toolNames ...string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	grants, ok := x.allowlist[agentID]
	if !ok {
		grants = make(map[string]bool)
		x.allowlist[agentID] = grants
	}
	for _, name := range toolNames {
		grants[name] = true
	}
}

func (x *Executor) allowed(agentID, toolName string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.allowlist[agentID][toolName]
}

// Execute runs one tool invocation for the given agent. All failures come
// back as *ToolError; the caller feeds them to the agent as data rather
// than aborting the pipeline.
func (x *Executor) Execute(ctx context.Context, agentID, toolName string, args map[string]any) (any, error) {
	t, err := x.registry.Resolve(toolName)
	if err != nil {
		x.logger.Warn("tool.resolve.failed", "tool", toolName, "agent", agentID)
		return nil, err
	}
	desc := t.Descriptor()

	if err := util.ValidateArguments(args, desc.Parameters); err != nil {
		x.logger.Warn("tool.validation.failed", "tool", toolName, "agent", agentID, "error", err.Error())
		return nil, &ToolError{
			Tool:    toolName,
			Message: fmt.Sprintf("argument validation failed: %v", err),
			Code:    CodeSchemaViolation,
			Details: err,
		}
	}

	if desc.SideEffect != SideEffectReadOnly && !x.allowed(agentID, toolName) {
		x.logger.Warn("tool.not_allowed", "tool", toolName, "agent", agentID, "side_effect", string(desc.SideEffect))
		return nil, NewToolError(toolName,
			fmt.Sprintf("agent %q is not allow-listed for %s tool", agentID, desc.SideEffect), CodeNotAllowed)
	}

	start := time.Now()
	result, err := x.run(ctx, t, desc, args)
	if err != nil {
		x.logger.Error("tool.call.failed", "tool", toolName, "agent", agentID,
			"duration_ms", time.Since(start).Milliseconds(), "error", err.Error())
		return nil, err
	}
	x.logger.Info("tool.call.success", "tool", toolName, "agent", agentID,
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// run applies the timeout policy. Non-mutating tools inherit the request
// context, so caller cancellation aborts them. Mutating tools are detached
// from caller cancellation and bounded only by the timeout: a half-applied
// mutation is worse than a wasted one.
func (x *Executor) run(ctx context.Context, t Tool, desc Descriptor, args map[string]any) (any, error) {
	base := ctx
	if desc.SideEffect == SideEffectMutating {
		base = context.WithoutCancel(ctx)
	}
	runCtx, cancel := context.WithTimeout(base, x.timeout)
	defer cancel()

	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := t.Call(runCtx, args)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if toolErr, ok := out.err.(*ToolError); ok {
				return nil, toolErr
			}
			return nil, &ToolError{Tool: desc.Name, Message: out.err.Error(), Code: CodeExecution}
		}
		return out.result, nil
	case <-runCtx.Done():
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, NewToolError(desc.Name, "tool invocation exceeded timeout", CodeTimeout)
		}
		return nil, &ToolError{Tool: desc.Name, Message: runCtx.Err().Error(), Code: CodeExecution}
	}
}
