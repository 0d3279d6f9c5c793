// Package redis provides a Redis-backed core.VectorStore for deployments
// where retrieved context must survive process restarts. Vectors are stored
// as JSON in hashes under a configurable key prefix; similarity is computed
// client-side, which is adequate for the small indexes this system keeps.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/amandio-vaz/collab-mistral/core"
	"github.com/amandio-vaz/collab-mistral/memory"
	"github.com/amandio-vaz/collab-mistral/model"
)

// Options configure the Redis store.
type Options struct {
	// Prefix namespaces all keys written by this store.
	Prefix string
}

// Store implements core.VectorStore on top of a Redis instance.
type Store struct {
	client   *redis.Client
	embedder model.Embedder
	prefix   string
}

// New creates a Store using the given client and embedder.
func New(client *redis.Client, embedder model.Embedder, optFns ...func(o *Options)) *Store {
	opts := Options{Prefix: "collab:memory"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{client: client, embedder: embedder, prefix: opts.Prefix}
}

func (s *Store) docKey(sourceID string) string { return s.prefix + ":doc:" + sourceID }
func (s *Store) idsKey() string                { return s.prefix + ":ids" }
func (s *Store) seqKey() string                { return s.prefix + ":seq" }

// Upsert embeds text and writes the chunk hash, registering the source id
// in the index set and bumping the recency sequence.
func (s *Store) Upsert(ctx context.Context, sourceID, text string) error {
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed %q: %w", sourceID, err)
	}
	rawVec, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("marshal vector: %w", err)
	}

	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("redis incr: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.docKey(sourceID), map[string]any{
		"text": text,
		"vec":  string(rawVec),
		"seq":  seq,
	})
	pipe.SAdd(ctx, s.idsKey(), sourceID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis upsert: %w", err)
	}
	return nil
}

// Query fetches all indexed chunks, scores them client-side and returns the
// top k, highest relevance first with recency tie-break. An empty index
// yields an empty slice.
func (s *Store) Query(ctx context.Context, text string, k int) ([]core.ContextChunk, error) {
	if k <= 0 {
		return []core.ContextChunk{}, nil
	}
	queryVec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	ids, err := s.client.SMembers(ctx, s.idsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	if len(ids) == 0 {
		return []core.ContextChunk{}, nil
	}

	type scored struct {
		chunk core.ContextChunk
		seq   int64
	}
	results := make([]scored, 0, len(ids))
	for _, id := range ids {
		fields, err := s.client.HGetAll(ctx, s.docKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis hgetall %q: %w", id, err)
		}
		if len(fields) == 0 {
			continue // id was removed between SMEMBERS and HGETALL
		}
		var vector []float64
		if err := json.Unmarshal([]byte(fields["vec"]), &vector); err != nil {
			return nil, fmt.Errorf("unmarshal vector %q: %w", id, err)
		}
		seq, _ := strconv.ParseInt(fields["seq"], 10, 64)
		results = append(results, scored{
			chunk: core.ContextChunk{
				SourceID:  id,
				Text:      fields["text"],
				Embedding: vector,
				Score:     memory.Cosine(queryVec, vector),
			},
			seq: seq,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].chunk.Score != results[j].chunk.Score {
			return results[i].chunk.Score > results[j].chunk.Score
		}
		return results[i].seq > results[j].seq
	})

	if k > len(results) {
		k = len(results)
	}
	chunks := make([]core.ContextChunk, 0, k)
	for _, r := range results[:k] {
		chunks = append(chunks, r.chunk)
	}
	return chunks, nil
}
