// Package history keeps a bounded record of recently handled requests so
// operators can inspect what the pipeline did without trawling logs.
package history

import (
	"sync"
	"time"

	"github.com/amandio-vaz/collab-mistral/core"
)

// Entry is one completed request as recorded by the gateway.
type Entry struct {
	RequestID          string    `json:"request_id"`
	RequestText        string    `json:"request_text"`
	FinalText          string    `json:"final_text"`
	ContributingAgents []string  `json:"contributing_agents"`
	HandledAt          time.Time `json:"handled_at"`
}

// InMemoryStore is a volatile, fixed-capacity history store backed by a
// process local ring. It is safe for concurrent access and best suited
// for single-instance deployments and demo servers. Returned entries are
// copies, so callers cannot mutate internal state.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	limit   int
}

// DefaultLimit is the capacity used when NewInMemoryStore receives a
// non-positive limit.
const DefaultLimit = 256

// NewInMemoryStore constructs an empty history store holding at most
// limit entries; the oldest entry is evicted first.
func NewInMemoryStore(limit int) *InMemoryStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &InMemoryStore{limit: limit}
}

// Record appends a handled request, evicting the oldest entry once the
// store is at capacity.
func (s *InMemoryStore) Record(requestText string, resp *core.Response) {
	agents := make([]string, len(resp.ContributingAgents))
	copy(agents, resp.ContributingAgents)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{
		RequestID:          resp.RequestID,
		RequestText:        requestText,
		FinalText:          resp.FinalText,
		ContributingAgents: agents,
		HandledAt:          time.Now().UTC(),
	})
	if len(s.entries) > s.limit {
		s.entries = s.entries[len(s.entries)-s.limit:]
	}
}

// Recent returns up to limit entries, newest first.
func (s *InMemoryStore) Recent(limit int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}
	out := make([]Entry, 0, limit)
	for i := len(s.entries) - 1; i >= len(s.entries)-limit; i-- {
		e := s.entries[i]
		e.ContributingAgents = append([]string(nil), e.ContributingAgents...)
		out = append(out, e)
	}
	return out
}

// Len returns the number of stored entries.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
