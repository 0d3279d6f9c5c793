package core

import "context"

// Descriptor carries the registration metadata of a specialist capability.
// Identifier must be unique within the registry; AcceptedIntents are the
// tags the intent router matches against.
type Descriptor struct {
	Identifier      string   `json:"identifier"`
	DisplayName     string   `json:"display_name"`
	Capability      string   `json:"capability_description"`
	AcceptedIntents []string `json:"accepted_intents"`
}

// OutcomeKind discriminates the fixed set of agent outcomes. New specialist
// capabilities are added by registering new Agent implementations, never by
// extending this set.
type OutcomeKind string

const (
	// OutcomeHandled means the agent produced the final text for the request.
	OutcomeHandled OutcomeKind = "handled"
	// OutcomeCannotHandle means the agent declined; the orchestrator reroutes.
	OutcomeCannotHandle OutcomeKind = "cannot_handle"
	// OutcomeNeedsTool means the agent requires a tool result before it can
	// answer; the orchestrator executes the tool and re-invokes the agent.
	OutcomeNeedsTool OutcomeKind = "needs_tool"
)

// DeclineReason is the machine-readable cause attached to a CannotHandle
// outcome. It is recorded in the reroute trace so downstream logic and tests
// can assert on it.
type DeclineReason string

const (
	DeclineOutOfDomain         DeclineReason = "out_of_domain"
	DeclineInsufficientContext DeclineReason = "insufficient_context"
	DeclineProviderUnavailable DeclineReason = "provider_unavailable"
	DeclineToolFailure         DeclineReason = "tool_failure"
	DeclineToolBudgetExhausted DeclineReason = "tool_budget_exhausted"
)

// ToolRequest names a registered tool plus the structured arguments an agent
// wants it invoked with.
type ToolRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult is a completed tool execution fed back into the requesting
// agent. Err carries the tool failure as data; tool failures are a normal
// outcome for the agent to react to, not a pipeline error.
type ToolResult struct {
	Name   string `json:"name"`
	Result any    `json:"result,omitempty"`
	Err    string `json:"error,omitempty"`
}

// Outcome is the discriminated result of one agent invocation. Exactly one
// of the payload fields is meaningful depending on Kind; use the
// constructors below rather than building the struct by hand.
type Outcome struct {
	Kind   OutcomeKind   `json:"kind"`
	Text   string        `json:"text,omitempty"`
	Reason DeclineReason `json:"reason,omitempty"`
	Tool   *ToolRequest  `json:"tool,omitempty"`
}

// Handled builds a successful outcome carrying the final response text.
func Handled(text string) Outcome {
	return Outcome{Kind: OutcomeHandled, Text: text}
}

// CannotHandle builds a decline outcome with a machine-readable reason.
func CannotHandle(reason DeclineReason) Outcome {
	return Outcome{Kind: OutcomeCannotHandle, Reason: reason}
}

// NeedsTool builds an outcome requesting execution of a registered tool.
func NeedsTool(name string, args map[string]any) Outcome {
	return Outcome{Kind: OutcomeNeedsTool, Tool: &ToolRequest{Name: name, Arguments: args}}
}

// Invocation is the input handed to an agent's Run. Prompt is the
// agent-scoped prompt the orchestrator built from the request text and the
// retrieved context; ToolResults accumulates results across tool
// round-trips within the same invocation.
type Invocation struct {
	Request     Request
	Context     []ContextChunk
	Prompt      string
	ToolResults []ToolResult
}

// Agent is the capability contract every registered specialist implements.
//
// Run must respect ctx cancellation and must not perform ad hoc network
// I/O: inference goes through the model client the agent was constructed
// with, tool execution goes through the orchestrator via NeedsTool. A
// non-nil error aborts the pipeline; declining is expressed through
// CannotHandle, never through an error.
type Agent interface {
	Descriptor() Descriptor
	Run(ctx context.Context, inv *Invocation) (Outcome, error)
}
