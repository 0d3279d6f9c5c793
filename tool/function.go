package tool

import (
	"context"

	"github.com/amandio-vaz/collab-mistral/internal/util"
)

// FunctionTool adapts a plain Go function into a Tool. It holds the
// descriptor (schema and side-effect class) and invokes the wrapped
// function with already-validated arguments; the executor performs the
// validation and gating.
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	desc Descriptor
	fn   func(ctx context.Context, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from an explicit descriptor.
func NewFunctionTool(desc Descriptor, fn func(ctx context.Context, args map[string]any) (any, error)) *FunctionTool {
	return &FunctionTool{desc: desc, fn: fn}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct's
// exported fields, a convenience for simple argument containers.
//
// Example:
//
//	type PingArgs struct {
//	  Host string `json:"host" description:"Host to probe"`
//	}
//	pingTool := NewFunctionToolFromStruct("ping", "Probe a host",
//	  SideEffectExternalNetwork, PingArgs{}, pingFn)
func NewFunctionToolFromStruct(
	name, description string,
	sideEffect SideEffect,
	structType any,
	fn func(ctx context.Context, args map[string]any) (any, error),
) *FunctionTool {
	return NewFunctionTool(Descriptor{
		Name:        name,
		Description: description,
		Parameters:  util.SchemaFromStruct(structType),
		SideEffect:  sideEffect,
	}, fn)
}

// Descriptor returns the tool's registration metadata.
func (t *FunctionTool) Descriptor() Descriptor { return t.desc }

// Call invokes the wrapped function. Errors are normalized to *ToolError
// so downstream handling is uniform.
func (t *FunctionTool) Call(ctx context.Context, args map[string]any) (any, error) {
	result, err := t.fn(ctx, args)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok {
			return nil, toolErr
		}
		return nil, &ToolError{Tool: t.desc.Name, Message: err.Error(), Code: CodeExecution}
	}
	return result, nil
}
