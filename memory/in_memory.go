// Package memory implements the vector memory the orchestrator retrieves
// context from. The in-memory store here owns the index and cosine
// similarity search; embedding computation is delegated to a model.Embedder.
// A Redis-backed variant lives in the redis subpackage.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/amandio-vaz/collab-mistral/core"
	"github.com/amandio-vaz/collab-mistral/model"
)

type entry struct {
	sourceID string
	text     string
	vector   []float64
	seq      uint64
}

// InMemoryStore is a process-local core.VectorStore. Reads and writes may
// run concurrently; a query sees a consistent snapshot taken under RLock,
// not necessarily the most recent upsert. Relevance ties are broken by most
// recent upsert first.
type InMemoryStore struct {
	mu       sync.RWMutex
	embedder model.Embedder
	entries  map[string]*entry
	seq      uint64
}

// NewInMemoryStore creates an empty store backed by the given embedder.
func NewInMemoryStore(embedder model.Embedder) *InMemoryStore {
	return &InMemoryStore{
		embedder: embedder,
		entries:  make(map[string]*entry),
	}
}

// Upsert embeds text and inserts or replaces the chunk stored under
// sourceID. Replacing bumps the recency sequence, so a re-upserted chunk
// wins relevance ties.
func (s *InMemoryStore) Upsert(ctx context.Context, sourceID, text string) error {
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed %q: %w", sourceID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.entries[sourceID] = &entry{sourceID: sourceID, text: text, vector: vector, seq: s.seq}
	return nil
}

// Query returns the k most similar chunks, highest relevance first. An
// empty index yields an empty slice, never an error.
func (s *InMemoryStore) Query(ctx context.Context, text string, k int) ([]core.ContextChunk, error) {
	if k <= 0 {
		return []core.ContextChunk{}, nil
	}
	queryVec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	snapshot := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		snapshot = append(snapshot, e)
	}
	s.mu.RUnlock()

	type scored struct {
		e     *entry
		score float64
	}
	results := make([]scored, 0, len(snapshot))
	for _, e := range snapshot {
		results = append(results, scored{e: e, score: Cosine(queryVec, e.vector)})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].e.seq > results[j].e.seq
	})

	if k > len(results) {
		k = len(results)
	}
	chunks := make([]core.ContextChunk, 0, k)
	for _, r := range results[:k] {
		chunks = append(chunks, core.ContextChunk{
			SourceID:  r.e.sourceID,
			Text:      r.e.text,
			Embedding: r.e.vector,
			Score:     r.score,
		})
	}
	return chunks, nil
}

// Len returns the number of stored chunks.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Cosine computes cosine similarity between two vectors. Mismatched lengths
// or zero-norm vectors score 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
