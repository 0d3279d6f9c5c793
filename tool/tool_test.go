package tool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var _ Tool = (*FunctionTool)(nil)

func echoTool(name string, sideEffect SideEffect) *FunctionTool {
	return NewFunctionTool(Descriptor{
		Name:        name,
		Description: "Echoes the message argument.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{"type": "string"},
			},
			"required": []string{"message"},
		},
		SideEffect: sideEffect,
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return args["message"], nil
	})
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	reg := NewRegistry()
	assert.NoError(t, reg.Register(echoTool("echo", SideEffectReadOnly)))

	resolved, err := reg.Resolve("echo")
	assert.NoError(t, err)
	assert.Equal(t, "echo", resolved.Descriptor().Name)
}

func TestRegistry_DuplicateFails(t *testing.T) {
	reg := NewRegistry()
	assert.NoError(t, reg.Register(echoTool("echo", SideEffectReadOnly)))
	assert.Error(t, reg.Register(echoTool("echo", SideEffectReadOnly)))
}

func TestRegistry_UnknownTool(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Resolve("missing")
	var toolErr *ToolError
	assert.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeUnknownTool, toolErr.Code)
}

func TestExecutor_SchemaViolationBlocksExecution(t *testing.T) {
	var calls atomic.Int32
	mutator := NewFunctionTool(Descriptor{
		Name: "mutate",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"target": map[string]any{"type": "string"},
			},
			"required": []string{"target"},
		},
		SideEffect: SideEffectMutating,
	}, func(ctx context.Context, args map[string]any) (any, error) {
		calls.Add(1)
		return "mutated", nil
	})

	reg := NewRegistry()
	assert.NoError(t, reg.Register(mutator))
	x := NewExecutor(reg)
	x.Allow("ops", "mutate")

	_, err := x.Execute(context.Background(), "ops", "mutate", map[string]any{"target": 42})
	var toolErr *ToolError
	assert.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeSchemaViolation, toolErr.Code)
	// The underlying action must never run on unvalidated input.
	assert.Equal(t, int32(0), calls.Load())
}

func TestExecutor_AllowlistGatesMutatingTools(t *testing.T) {
	reg := NewRegistry()
	assert.NoError(t, reg.Register(echoTool("mutate_echo", SideEffectMutating)))
	x := NewExecutor(reg)

	_, err := x.Execute(context.Background(), "ops", "mutate_echo", map[string]any{"message": "hi"})
	var toolErr *ToolError
	assert.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeNotAllowed, toolErr.Code)

	x.Allow("ops", "mutate_echo")
	result, err := x.Execute(context.Background(), "ops", "mutate_echo", map[string]any{"message": "hi"})
	assert.NoError(t, err)
	assert.Equal(t, "hi", result)
}

func TestExecutor_ReadOnlyNeedsNoGrant(t *testing.T) {
	reg := NewRegistry()
	assert.NoError(t, reg.Register(echoTool("echo", SideEffectReadOnly)))
	x := NewExecutor(reg)

	result, err := x.Execute(context.Background(), "anyone", "echo", map[string]any{"message": "ok"})
	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestExecutor_Timeout(t *testing.T) {
	slow := NewFunctionTool(Descriptor{
		Name:       "slow",
		SideEffect: SideEffectReadOnly,
	}, func(ctx context.Context, args map[string]any) (any, error) {
		select {
		case <-time.After(time.Second):
			return "done", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	reg := NewRegistry()
	assert.NoError(t, reg.Register(slow))
	x := NewExecutor(reg, func(o *ExecutorOptions) {
		o.Timeout = 20 * time.Millisecond
	})

	_, err := x.Execute(context.Background(), "ops", "slow", nil)
	var toolErr *ToolError
	assert.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeTimeout, toolErr.Code)
}

func TestExecutor_MutatingToolRunsToCompletionAfterCancel(t *testing.T) {
	var completed atomic.Bool
	mutator := NewFunctionTool(Descriptor{
		Name:       "mutate",
		SideEffect: SideEffectMutating,
	}, func(ctx context.Context, args map[string]any) (any, error) {
		select {
		case <-time.After(50 * time.Millisecond):
			completed.Store(true)
			return "applied", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	reg := NewRegistry()
	assert.NoError(t, reg.Register(mutator))
	x := NewExecutor(reg)
	x.Allow("ops", "mutate")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	result, err := x.Execute(ctx, "ops", "mutate", nil)
	assert.NoError(t, err)
	assert.Equal(t, "applied", result)
	assert.True(t, completed.Load())
}

func TestExecutor_ReadOnlyToolAbortsOnCancel(t *testing.T) {
	reader := NewFunctionTool(Descriptor{
		Name:       "read",
		SideEffect: SideEffectReadOnly,
	}, func(ctx context.Context, args map[string]any) (any, error) {
		select {
		case <-time.After(time.Second):
			return "done", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	reg := NewRegistry()
	assert.NoError(t, reg.Register(reader))
	x := NewExecutor(reg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := x.Execute(ctx, "ops", "read", nil)
	var toolErr *ToolError
	assert.ErrorAs(t, err, &toolErr)
	assert.NotEqual(t, CodeTimeout, toolErr.Code)
}

func TestFunctionTool_NormalizesErrors(t *testing.T) {
	failing := NewFunctionTool(Descriptor{Name: "fail"}, func(ctx context.Context, args map[string]any) (any, error) {
		return nil, errors.New("disk full")
	})

	_, err := failing.Call(context.Background(), nil)
	var toolErr *ToolError
	assert.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecution, toolErr.Code)
	assert.Equal(t, "fail", toolErr.Tool)
}

func TestNewFunctionToolFromStruct(t *testing.T) {
	type pingArgs struct {
		Host string `json:"host" description:"Host to probe"`
	}
	ping := NewFunctionToolFromStruct("ping", "Probe a host", SideEffectExternalNetwork, pingArgs{},
		func(ctx context.Context, args map[string]any) (any, error) {
			return "pong", nil
		})

	desc := ping.Descriptor()
	assert.Equal(t, "ping", desc.Name)
	assert.Equal(t, SideEffectExternalNetwork, desc.SideEffect)
	props := desc.Parameters["properties"].(map[string]any)
	assert.Contains(t, props, "host")
}
