// Package tool implements the tool subsystem: descriptors with declared
// input schemas and side-effect classes, a process-lifetime registry, and
// an executor that validates and gates every invocation before anything
// with side effects runs.
package tool

import (
	"context"
	"fmt"
)

// SideEffect classifies what a tool touches. The executor gates mutating
// and external-network tools behind per-agent allow-lists.
type SideEffect string

const (
	// SideEffectReadOnly tools observe state without changing anything.
	SideEffectReadOnly SideEffect = "read-only"
	// SideEffectMutating tools change state owned by this system or its
	// collaborators. Once started they run to completion even if the
	// request is canceled.
	SideEffectMutating SideEffect = "mutating"
	// SideEffectExternalNetwork tools reach endpoints outside the process.
	SideEffectExternalNetwork SideEffect = "external-network"
)

// Descriptor is the registration metadata of a tool. Parameters is a JSON
// schema (minimal subset) that every invocation is validated against before
// the underlying action executes.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	SideEffect  SideEffect     `json:"side_effect_class"`
}

// Tool is an executable capability. Implementations must be safe for
// concurrent use and must respect ctx cancellation unless their descriptor
// declares them mutating.
type Tool interface {
	Descriptor() Descriptor
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Error codes attached to ToolError by the registry and executor.
const (
	CodeUnknownTool     = "UNKNOWN_TOOL"
	CodeSchemaViolation = "SCHEMA_VIOLATION"
	CodeNotAllowed      = "NOT_ALLOWED"
	CodeTimeout         = "TIMEOUT"
	CodeExecution       = "EXECUTION_ERROR"
)

// ToolError is the uniform failure type for tool resolution and execution.
// It is surfaced back to the requesting agent as a normal tool outcome, not
// as a pipeline failure.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError with the given details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
