package core

import (
	"time"

	"github.com/google/uuid"
)

// Request is a single user request entering the pipeline. It is immutable
// once created; the orchestrator never mutates it.
type Request struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewRequest creates a Request with a fresh ID and UTC timestamp.
func NewRequest(text string) Request {
	return Request{
		ID:        NewID(),
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

// ContextChunk is a retrieved document fragment produced by a vector memory
// query. Read-only to consumers.
type ContextChunk struct {
	SourceID  string    `json:"source_id"`
	Text      string    `json:"text"`
	Embedding []float64 `json:"embedding,omitempty"`
	Score     float64   `json:"score"`
}

// Response is the consolidated result of one Request. ContributingAgents
// lists every agent actually invoked, in invocation order, including agents
// that declined before another one handled the request.
type Response struct {
	RequestID          string           `json:"request_id"`
	FinalText          string           `json:"final_text"`
	ContributingAgents []string         `json:"contributing_agents"`
	Trace              *InvocationTrace `json:"trace"`
}

// NewID generates a unique identifier used for requests and trace correlation.
func NewID() string { return uuid.NewString() }
