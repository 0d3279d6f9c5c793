// Package model defines the inference client and embedding provider
// contracts consumed by agents, the router and the vector memory. Vendor
// adapters live in subpackages; the mocks here keep the core testable
// without network access.
package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrProviderUnavailable is the distinguishable signal that the inference or
// embedding provider is down. Adapters wrap transport-level failures with
// this sentinel so callers can branch with errors.Is.
var ErrProviderUnavailable = errors.New("model: provider unavailable")

// Message is a single role-tagged prompt message.
type Message struct {
	Role string `json:"role"` // "system", "user", "assistant", "tool"
	Text string `json:"text"`
}

// ToolCall is a function call requested by the model, unified across
// vendors so downstream logic needs no per-provider branching. Arguments is
// the raw JSON argument object as emitted by the provider.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolSpec declaratively exposes a callable tool to the model. Parameters
// is a JSON Schema object (minimal subset).
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is the normalized structured prompt handed to Complete.
type Request struct {
	Instructions string     `json:"instructions"`
	Messages     []Message  `json:"messages"`
	Tools        []ToolSpec `json:"tools,omitempty"`
}

// Response is a structured completion. ToolCalls is non-empty when the
// model requests tool execution instead of (or in addition to) text.
type Response struct {
	Text         string     `json:"text"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
}

// Info contains metadata about a client implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Client is the single inference contract agents are allowed to call.
// Isolating all model I/O behind it is what makes timeout, cancellation and
// retry policy centrally enforceable.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Info() Info
}

// Embedder converts text into a fixed-length numeric vector for similarity
// search. Implementations delegate to an external embedding provider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// MockClient is a lightweight in-memory Client for tests and examples. It
// serves scripted responses first (FIFO), then canned per-prompt responses,
// then a deterministic default.
type MockClient struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	scripted  []Response
	err       error
}

// NewMockClient constructs a MockClient with tool support enabled.
func NewMockClient(name string) *MockClient {
	return &MockClient{
		info:      Info{Name: name, Provider: "mock", SupportsTools: true},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion keyed by the last
// user message.
func (m *MockClient) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Enqueue appends a scripted response served before any canned one. Useful
// for multi-turn tool flows.
func (m *MockClient) Enqueue(resp Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripted = append(m.scripted, resp)
}

// Fail makes every subsequent Complete call return err. Pass nil to clear.
func (m *MockClient) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if len(m.scripted) > 0 {
		resp := m.scripted[0]
		m.scripted = m.scripted[1:]
		return &resp, nil
	}
	prompt := lastUserMessage(req)
	if text, ok := m.responses[prompt]; ok {
		return &Response{Text: text, FinishReason: "stop"}, nil
	}
	return &Response{Text: fmt.Sprintf("Mock response to: %s", prompt), FinishReason: "stop"}, nil
}

// Info implements Client.
func (m *MockClient) Info() Info { return m.info }

func lastUserMessage(req Request) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Text
		}
	}
	return ""
}

// MockEmbedder is a deterministic, offline Embedder that hashes lowercased
// tokens into a fixed-size bag-of-words vector. Identical texts embed to
// identical vectors and shared vocabulary yields positive cosine
// similarity, which is all the tests and examples need.
type MockEmbedder struct {
	Dim int
}

// NewMockEmbedder returns a MockEmbedder with a 64-dimensional vector space.
func NewMockEmbedder() *MockEmbedder { return &MockEmbedder{Dim: 64} }

// Embed implements Embedder.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dim := e.Dim
	if dim <= 0 {
		dim = 64
	}
	vec := make([]float64, dim)
	for _, token := range Tokenize(text) {
		vec[tokenHash(token)%uint32(dim)]++
	}
	return vec, nil
}

// Tokenize lowercases text and splits it on non-alphanumeric runes. Shared
// by the mock embedder and the intent router's keyword matching.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
}

// tokenHash is FNV-1a over the token bytes.
func tokenHash(token string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(token); i++ {
		h ^= uint32(token[i])
		h *= 16777619
	}
	return h
}
