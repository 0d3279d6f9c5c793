package core

import "time"

// Action categorizes a pipeline step recorded in the invocation trace.
type Action string

const (
	// ActionRetrieve is a vector memory query (or its degraded-mode note).
	ActionRetrieve Action = "retrieve"
	// ActionInfer is one agent invocation against the inference client.
	ActionInfer Action = "infer"
	// ActionToolCall is one tool execution requested by an agent.
	ActionToolCall Action = "tool_call"
	// ActionReroute records an agent declining the request.
	ActionReroute Action = "reroute"
)

// TraceEntry is one ordered step of a request's pipeline execution.
type TraceEntry struct {
	Agent     string    `json:"agent,omitempty"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Outcome   string    `json:"outcome"`
}

// InvocationTrace is the append-only record of every action taken while
// handling a single request. Entries are strictly ordered by the sequence in
// which actions were issued; a request's pipeline is sequential so no
// locking is required.
type InvocationTrace struct {
	RequestID string       `json:"request_id"`
	Entries   []TraceEntry `json:"entries"`
}

// NewTrace creates an empty trace bound to a request.
func NewTrace(requestID string) *InvocationTrace {
	return &InvocationTrace{RequestID: requestID}
}

// Append records a new entry with the current UTC timestamp.
func (t *InvocationTrace) Append(agent string, action Action, outcome string) {
	t.Entries = append(t.Entries, TraceEntry{
		Agent:     agent,
		Action:    action,
		Timestamp: time.Now().UTC(),
		Outcome:   outcome,
	})
}

// Count returns the number of entries recorded for the given action.
func (t *InvocationTrace) Count(action Action) int {
	n := 0
	for _, e := range t.Entries {
		if e.Action == action {
			n++
		}
	}
	return n
}
